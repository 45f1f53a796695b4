package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"botdash/clients/botapi"
	"botdash/config"

	"github.com/gorilla/websocket"
)

type serverEnv struct {
	api   *mockBotAPI
	audit *recordingNotifier
	hub   *Broadcaster
	dash  *Dashboard
	srv   *Server
}

func newServerEnv(t *testing.T) *serverEnv {
	t.Helper()
	env := &serverEnv{
		api:   newMockBotAPI(),
		audit: &recordingNotifier{},
		hub:   NewBroadcaster(nil),
	}
	env.dash = NewDashboard(nil, env.api, env.audit, config.Defaults(), newFakeClock(), env.hub)
	env.srv = NewServer(nil, env.dash, env.hub, nil)
	t.Cleanup(env.dash.Close)
	return env
}

func (e *serverEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeAction(t *testing.T, rec *httptest.ResponseRecorder) actionResponse {
	t.Helper()
	var resp actionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestServer_DashboardPage(t *testing.T) {
	env := newServerEnv(t)

	rec := env.do(http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "/ws") {
		t.Error("page should connect to the websocket")
	}

	if rec := env.do(http.MethodGet, "/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/health", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("unexpected health reply %d %q", rec.Code, rec.Body.String())
	}
}

func TestServer_State(t *testing.T) {
	env := newServerEnv(t)

	rec := env.do(http.MethodGet, "/api/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var state State
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Status.Indicator != "Loading" {
		t.Errorf("unexpected indicator %q", state.Status.Indicator)
	}
	if state.Config.Placeholder != PlaceholderLoading {
		t.Errorf("unexpected config placeholder %q", state.Config.Placeholder)
	}

	if rec := env.do(http.MethodPost, "/api/state", "{}"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestServer_Tab(t *testing.T) {
	env := newServerEnv(t)

	if rec := env.do(http.MethodPost, "/api/tab", `{"tab":"logs"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 before the scheduler starts, got %d", rec.Code)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.dash.Scheduler.Start(ctx)

	rec := env.do(http.MethodPost, "/api/tab", `{"tab":"logs"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := env.dash.Scheduler.Running(); len(got) != 1 || got[0] != ComponentLogs {
		t.Errorf("unexpected running pollers %v", got)
	}
}

func TestServer_Control(t *testing.T) {
	env := newServerEnv(t)

	rec := env.do(http.MethodPost, "/api/control", `{"action":"explode"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown action, got %d", rec.Code)
	}

	env.api.control = func(context.Context, botapi.ControlAction) (*botapi.ActionResult, error) {
		return okResult("Cogs reloaded"), nil
	}
	rec = env.do(http.MethodPost, "/api/control", `{"action":"reload_cogs"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp := decodeAction(t, rec); !resp.Success || resp.Message != "Cogs reloaded" {
		t.Errorf("unexpected response %+v", resp)
	}

	env.api.control = func(context.Context, botapi.ControlAction) (*botapi.ActionResult, error) {
		return nil, &botapi.APIError{StatusCode: 500, Message: "git pull failed"}
	}
	rec = env.do(http.MethodPost, "/api/control", `{"action":"update_git"}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
	if resp := decodeAction(t, rec); resp.Success || resp.Error != "git pull failed" {
		t.Errorf("unexpected response %+v", resp)
	}

	if rec := env.do(http.MethodPost, "/api/control", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad JSON, got %d", rec.Code)
	}
}

func TestServer_RequiresJSONContentType(t *testing.T) {
	env := newServerEnv(t)
	calls := 0
	env.api.control = func(context.Context, botapi.ControlAction) (*botapi.ActionResult, error) {
		calls++
		return okResult(""), nil
	}

	req := httptest.NewRequest(http.MethodPost, "/api/control", strings.NewReader(`{"action":"restart"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}
	if resp := decodeAction(t, rec); resp.Success || resp.Error == "" {
		t.Errorf("unexpected response %+v", resp)
	}
	if calls != 0 {
		t.Error("a non-JSON request must not reach the bot")
	}

	req = httptest.NewRequest(http.MethodPost, "/api/control", strings.NewReader(`{"action":"restart"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || calls != 1 {
		t.Errorf("expected a JSON request with charset to pass, got %d (calls=%d)", rec.Code, calls)
	}
}

func TestServer_ControlBusy(t *testing.T) {
	env := newServerEnv(t)
	started := make(chan struct{})
	release := make(chan struct{})
	env.api.control = func(context.Context, botapi.ControlAction) (*botapi.ActionResult, error) {
		close(started)
		<-release
		return okResult(""), nil
	}

	done := make(chan int, 1)
	go func() {
		done <- env.do(http.MethodPost, "/api/control", `{"action":"restart"}`).Code
	}()
	<-started

	if rec := env.do(http.MethodPost, "/api/control", `{"action":"restart"}`); rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if rec := env.do(http.MethodPost, "/api/announcement", `{"channel_id":"123456789012345678","message":"hi"}`); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for announcement during control, got %d", rec.Code)
	}

	close(release)
	if code := <-done; code != http.StatusOK {
		t.Errorf("expected first request to succeed, got %d", code)
	}
}

func TestServer_ReactionRoles(t *testing.T) {
	env := newServerEnv(t)

	rec := env.do(http.MethodPost, "/api/reaction_roles/add",
		`{"guild_id":"111111111111111111","channel_id":"222222222222222222","message_id":"333333333333333333","emoji":"👍","role_id":"abc"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	resp := decodeAction(t, rec)
	if len(resp.Errors) != 1 || resp.Errors[0].Field != "role_id" {
		t.Errorf("unexpected errors %+v", resp.Errors)
	}
	if env.api.Calls("AddReactionRole") != 0 {
		t.Error("invalid form must not reach the backend")
	}

	rec = env.do(http.MethodPost, "/api/reaction_roles/remove", `{"message_id":"333333333333333333","emoji":"👍"}`)
	if rec.Code != http.StatusPreconditionRequired {
		t.Errorf("expected 428 without confirmation, got %d", rec.Code)
	}

	rec = env.do(http.MethodPost, "/api/reaction_roles/remove", `{"message_id":"333333333333333333","emoji":"👍","confirm":true}`)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if env.api.Calls("RemoveReactionRole") != 1 {
		t.Errorf("expected one removal, got %d", env.api.Calls("RemoveReactionRole"))
	}
}

func TestServer_Logs(t *testing.T) {
	env := newServerEnv(t)
	env.api.logs = func(context.Context, time.Time) ([]botapi.RawLog, error) {
		return rawLines(
			"[2024-03-01 11:00:00] [INFO] [bot] ready",
			"[2024-03-01 11:00:01] [ERROR] [bot] failed",
		), nil
	}
	env.dash.Logs.Refresh(context.Background())

	rec := env.do(http.MethodGet, "/api/logs/view?level=ERROR", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var view struct {
		Lines []struct {
			Text string `json:"text"`
		} `json:"lines"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(view.Lines) != 1 || !strings.Contains(view.Lines[0].Text, "failed") {
		t.Errorf("unexpected lines %+v", view.Lines)
	}
	if env.dash.Logs.Pipeline().Filter().Level != "all" {
		t.Error("query filter must not change the active filter")
	}

	rec = env.do(http.MethodGet, "/api/logs/download", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "bot_logs_") {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	if strings.Count(rec.Body.String(), "\n") != 2 {
		t.Errorf("expected 2 lines, got %q", rec.Body.String())
	}

	if rec := env.do(http.MethodPost, "/api/logs/clear", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if n := len(env.dash.Logs.Pipeline().Entries()); n != 0 {
		t.Errorf("expected no entries after clear, got %d", n)
	}
}

func TestServer_WebSocketPushesState(t *testing.T) {
	env := newServerEnv(t)
	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if msg.Type != "state" || msg.Update.Component != "snapshot" {
		t.Errorf("unexpected first message %+v", msg.Update)
	}

	// Wait for the subscription to be registered before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	env.dash.Status.Refresh(context.Background())
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if msg.State.Status.Indicator != "Online" {
		t.Errorf("expected pushed status, got %q", msg.State.Status.Indicator)
	}
}
