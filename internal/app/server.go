package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"time"

	"botdash/clients/botapi"
	"botdash/config"
	"botdash/internal/logs"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxBodyBytes   = 1 << 16
	wsWriteTimeout = 10 * time.Second
)

// WebSocket upgrader for state push
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server is the local dashboard HTTP server.
type Server struct {
	logger     *zap.Logger
	dash       *Dashboard
	hub        *Broadcaster
	settings   *SettingsHandler
	extra      map[string]http.HandlerFunc
	httpServer *http.Server
}

func NewServer(logger *zap.Logger, dash *Dashboard, hub *Broadcaster, settings *SettingsHandler) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hub == nil {
		hub = NewBroadcaster(logger)
	}
	return &Server{
		logger:   logger,
		dash:     dash,
		hub:      hub,
		settings: settings,
		extra:    make(map[string]http.HandlerFunc),
	}
}

// HandleFunc adds a route. Must be called before Handler or Start.
func (s *Server) HandleFunc(pattern string, fn http.HandlerFunc) {
	s.extra[pattern] = fn
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.settings != nil {
		s.settings.RegisterRoutes(mux)
	}
	for pattern, fn := range s.extra {
		mux.HandleFunc(pattern, fn)
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/tab", s.handleTab)
	mux.HandleFunc("/api/logs/view", s.handleLogsView)
	mux.HandleFunc("/api/logs/filter", s.handleLogsFilter)
	mux.HandleFunc("/api/logs/clear", s.handleLogsClear)
	mux.HandleFunc("/api/logs/download", s.handleLogsDownload)
	mux.HandleFunc("/api/control", s.handleControl)
	mux.HandleFunc("/api/announcement", s.handleAnnouncement)
	mux.HandleFunc("/api/reaction_roles/add", s.handleReactionRoleAdd)
	mux.HandleFunc("/api/reaction_roles/remove", s.handleReactionRoleRemove)
	mux.HandleFunc("/api/simulate_log", s.handleSimulateLog)
	mux.HandleFunc("/ws", s.handleWebSocket)

	// HTML dashboard
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(dashboardHTML))
	})

	return requestLogging(s.logger, mux)
}

// Start listens on addr in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("dashboard server error", zap.Error(err))
		}
	}()
	s.logger.Info("dashboard server started", zap.String("addr", ln.Addr().String()))
	return nil
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.dash.State())
}

func (s *Server) handleTab(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Tab string `json:"tab"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.dash.Scheduler.StartFor(req.Tab); err != nil {
		writeJSON(w, http.StatusBadRequest, actionResponse{Error: err.Error()})
		return
	}
	s.hub.Changed(ComponentSettings)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tab":     req.Tab,
		"pollers": s.dash.Scheduler.Running(),
	})
}

func (s *Server) handleLogsView(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	if q.Has("level") || q.Has("text") {
		writeJSON(w, http.StatusOK, s.dash.Logs.Pipeline().ViewWith(logs.Filter{
			Level: q.Get("level"),
			Text:  q.Get("text"),
		}))
		return
	}
	writeJSON(w, http.StatusOK, s.dash.Logs.View())
}

func (s *Server) handleLogsFilter(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var f logs.Filter
	if !decodeBody(w, r, &f) {
		return
	}
	s.dash.Logs.SetFilter(f)
	writeJSON(w, http.StatusOK, s.dash.Logs.View())
}

func (s *Server) handleLogsClear(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	clearedAt := s.dash.Logs.Clear()
	resp := map[string]any{"success": true}
	if !clearedAt.IsZero() {
		resp["cleared_at"] = clearedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogsDownload(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	name, content := s.dash.Logs.Download()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Action string `json:"action"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	action, err := botapi.ParseControlAction(req.Action)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, actionResponse{Error: err.Error()})
		return
	}
	// The action outlives a browser that goes away mid-request.
	res, err := s.dash.Control.Dispatch(context.WithoutCancel(r.Context()), action)
	writeActionResult(w, res, err)
}

func (s *Server) handleAnnouncement(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		ChannelID string `json:"channel_id"`
		Message   string `json:"message"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.dash.Announcer.Send(context.WithoutCancel(r.Context()), req.ChannelID, req.Message)
	writeActionResult(w, res, err)
}

func (s *Server) handleReactionRoleAdd(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var form ReactionRoleForm
	if !decodeBody(w, r, &form) {
		return
	}
	res, err := s.dash.ReactionRoles.Add(context.WithoutCancel(r.Context()), form)
	writeActionResult(w, res, err)
}

func (s *Server) handleReactionRoleRemove(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		MessageID string `json:"message_id"`
		Emoji     string `json:"emoji"`
		Confirm   bool   `json:"confirm"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.dash.ReactionRoles.Remove(context.WithoutCancel(r.Context()), req.MessageID, req.Emoji, req.Confirm)
	writeActionResult(w, res, err)
}

func (s *Server) handleSimulateLog(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Level   string `json:"level"`
		Message string `json:"message"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.dash.Logs.SimulateLog(context.WithoutCancel(r.Context()), req.Level, req.Message)
	writeActionResult(w, res, err)
}

// wsMessage is pushed to dashboard browsers on every state change.
type wsMessage struct {
	Type   string `json:"type"`
	Update Update `json:"update"`
	State  State  `json:"state"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	// Read pump: only used to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(u Update) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(wsMessage{Type: "state", Update: u, State: s.dash.State()})
	}

	if err := send(Update{Component: "snapshot", Revision: s.hub.Revision()}); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			// Coalesce a burst of updates into one push.
			for drained := false; !drained; {
				select {
				case next, ok := <-updates:
					if !ok {
						return
					}
					u = next
				default:
					drained = true
				}
			}
			if err := send(u); err != nil {
				s.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// actionResponse is the reply of every mutating dashboard endpoint.
type actionResponse struct {
	Success bool                     `json:"success"`
	Message string                   `json:"message,omitempty"`
	Error   string                   `json:"error,omitempty"`
	Errors  []config.ValidationError `json:"errors,omitempty"`
}

func writeActionResult(w http.ResponseWriter, res *botapi.ActionResult, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: resultText(res)})
		return
	}

	var verrs ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, actionResponse{Error: "validation failed", Errors: verrs})
	case errors.Is(err, ErrControlBusy), errors.Is(err, ErrAnnouncementBusy):
		writeJSON(w, http.StatusConflict, actionResponse{Error: err.Error()})
	case errors.Is(err, ErrConfirmationRequired):
		writeJSON(w, http.StatusPreconditionRequired, actionResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusBadGateway, actionResponse{Error: botapi.Message(err)})
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// isJSON reports whether the request declares a JSON body.
func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	if !isJSON(r) {
		writeJSON(w, http.StatusUnsupportedMediaType, actionResponse{Error: "Content-Type must be application/json"})
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeJSON(w, http.StatusBadRequest, actionResponse{Error: "Invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func requestLogging(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.statusCode),
			zap.Int("bytes", rec.bytes),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
