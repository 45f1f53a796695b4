package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"botdash/clients/notifier"
	"botdash/config"

	"go.uber.org/zap"
)

// restartSections are read once at startup. Changing them needs a restart.
var restartSections = map[string]bool{
	"bot_api":   true,
	"dashboard": true,
	"discord":   true,
	"telegram":  true,
}

// SettingsHandler serves the dashboard settings API over a LiveConfig.
type SettingsHandler struct {
	logger *zap.Logger
	live   *config.LiveConfig
	audit  notifier.Notifier
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(logger *zap.Logger, live *config.LiveConfig, audit notifier.Notifier) *SettingsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = notifier.Nop{}
	}
	return &SettingsHandler{
		logger: logger,
		live:   live,
		audit:  audit,
	}
}

// RegisterRoutes registers the settings routes on the given mux.
func (h *SettingsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/settings", h.handleSettingsAPI)
	mux.HandleFunc("/api/settings/reset", h.handleSettingsReset)
	mux.HandleFunc("/api/settings/info", h.handleSettingsInfo)
}

// handleSettingsAPI handles GET and POST requests for settings.
func (h *SettingsHandler) handleSettingsAPI(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getSettings(w, r)
	case http.MethodPost:
		h.updateSettings(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// getSettings returns the current settings as JSON. Secrets are never included.
func (h *SettingsHandler) getSettings(w http.ResponseWriter, _ *http.Request) {
	cfg := h.live.Get()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(cfg); err != nil {
		h.logger.Error("failed to encode settings", zap.Error(err))
	}
}

// updateSettings merges the request body onto the current settings.
func (h *SettingsHandler) updateSettings(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Failed to read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	current := h.live.Get()
	newConfig, err := config.ConfigFromJSON(body, current)
	if err != nil {
		h.logger.Warn("failed to decode settings", zap.Error(err))
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	var fixed []config.ValidationError
	for _, section := range changedSections(current, newConfig) {
		if restartSections[section] {
			fixed = append(fixed, config.ValidationError{
				Field:   section,
				Message: "cannot be changed while running; edit the environment and restart",
			})
		}
	}
	if len(fixed) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"errors":  fixed,
		})
		return
	}

	h.apply(w, current, newConfig, "settings updated via API")
}

// handleSettingsReset resets settings to defaults.
func (h *SettingsHandler) handleSettingsReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	current := h.live.Get()
	defaults := config.Defaults()

	// Preserve startup-only sections from current config
	defaults.BotAPI = current.BotAPI
	defaults.Dashboard = current.Dashboard
	defaults.Discord = current.Discord
	defaults.Telegram = current.Telegram
	defaults.Logging = current.Logging

	h.apply(w, current, defaults, "settings reset to defaults via API")
}

func (h *SettingsHandler) apply(w http.ResponseWriter, current, next *config.Config, logMsg string) {
	changed := changedSections(current, next)

	if err := h.live.Update(next); err != nil {
		var verr *config.ConfigValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"errors":  verr.Errors,
			})
			return
		}
		h.logger.Error("failed to update settings", zap.Error(err))
		http.Error(w, "Failed to update settings: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.logger.Info(logMsg, zap.Strings("changed", changed))
	if len(changed) > 0 {
		h.audit.SendAuditEvent(notifier.AuditEvent{
			Kind:      notifier.AuditKindSettings,
			Detail:    strings.Join(changed, ", "),
			Success:   true,
			Timestamp: time.Now(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"changed":    changed,
		"applied_at": time.Now(),
	})
}

// handleSettingsInfo returns metadata about settings state.
func (h *SettingsHandler) handleSettingsInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"revision":     h.live.Revision(),
		"last_updated": h.live.LastUpdated(),
	})
}

// changedSections lists the top-level JSON sections that differ.
func changedSections(a, b *config.Config) []string {
	sa := sections(a)
	sb := sections(b)

	changed := []string{}
	for k, v := range sb {
		if !bytes.Equal(sa[k], v) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

func sections(c *config.Config) map[string]json.RawMessage {
	out := map[string]json.RawMessage{}
	data, err := json.Marshal(c)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(data, &out)
	return out
}
