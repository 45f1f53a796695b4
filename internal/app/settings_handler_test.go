package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"botdash/clients/notifier"
	"botdash/config"
)

func newSettingsMux(live *config.LiveConfig, audit notifier.Notifier) *http.ServeMux {
	mux := http.NewServeMux()
	NewSettingsHandler(nil, live, audit).RegisterRoutes(mux)
	return mux
}

func serve(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestSettingsHandler_Get(t *testing.T) {
	cfg := config.Defaults()
	cfg.Discord.BotToken = "secret-token"
	mux := newSettingsMux(config.NewLiveConfig(cfg), nil)

	rec := serve(mux, http.MethodGet, "/api/settings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret-token") {
		t.Error("settings must not expose secrets")
	}
	var got config.Config
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Stats.TopCommands != cfg.Stats.TopCommands {
		t.Errorf("unexpected top commands %d", got.Stats.TopCommands)
	}

	if rec := serve(mux, http.MethodDelete, "/api/settings", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestSettingsHandler_Update(t *testing.T) {
	live := config.NewLiveConfig(config.Defaults())
	audit := &recordingNotifier{}
	mux := newSettingsMux(live, audit)

	rec := serve(mux, http.MethodPost, "/api/settings", `{"stats":{"top_commands":10}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success bool     `json:"success"`
		Changed []string `json:"changed"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || !reflect.DeepEqual(resp.Changed, []string{"stats"}) {
		t.Errorf("unexpected response %+v", resp)
	}
	if live.Get().Stats.TopCommands != 10 {
		t.Errorf("config not updated: %d", live.Get().Stats.TopCommands)
	}
	if live.Get().Poll.Status != config.Defaults().Poll.Status {
		t.Error("untouched sections should keep their values")
	}

	events := audit.Events()
	if len(events) != 1 || events[0].Kind != notifier.AuditKindSettings || events[0].Detail != "stats" {
		t.Errorf("unexpected audit events %+v", events)
	}
}

func TestSettingsHandler_UpdateInvalid(t *testing.T) {
	live := config.NewLiveConfig(config.Defaults())
	audit := &recordingNotifier{}
	mux := newSettingsMux(live, audit)

	rec := serve(mux, http.MethodPost, "/api/settings", `{"stats":{"top_commands":0}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp struct {
		Success bool                     `json:"success"`
		Errors  []config.ValidationError `json:"errors"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success || len(resp.Errors) != 1 || resp.Errors[0].Field != "stats.top_commands" {
		t.Errorf("unexpected response %+v", resp)
	}
	if live.Revision() != 0 {
		t.Error("invalid settings must not be applied")
	}
	if len(audit.Events()) != 0 {
		t.Error("rejected settings must not be audited")
	}

	if rec := serve(mux, http.MethodPost, "/api/settings", `{`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad JSON, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/settings", strings.NewReader(`{"stats":{"top_commands":10}}`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType || live.Revision() != 0 {
		t.Errorf("expected 415 and no update for a form body, got %d", rec.Code)
	}
}

func TestSettingsHandler_UpdateRejectsRestartSections(t *testing.T) {
	live := config.NewLiveConfig(config.Defaults())
	audit := &recordingNotifier{}
	mux := newSettingsMux(live, audit)

	rec := serve(mux, http.MethodPost, "/api/settings",
		`{"bot_api":{"base_url":"http://x"},"stats":{"top_commands":10}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success bool                     `json:"success"`
		Errors  []config.ValidationError `json:"errors"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success || len(resp.Errors) != 1 || resp.Errors[0].Field != "bot_api" {
		t.Errorf("unexpected response %+v", resp)
	}
	if live.Revision() != 0 || live.Get().Stats.TopCommands == 10 {
		t.Error("a rejected update must not apply any section")
	}
	if len(audit.Events()) != 0 {
		t.Error("rejected settings must not be audited")
	}

	// Sending a section back unchanged is fine.
	body := `{"dashboard":{"listen_addr":"` + live.Get().Dashboard.ListenAddr + `"},"stats":{"top_commands":10}}`
	if rec := serve(mux, http.MethodPost, "/api/settings", body); rec.Code != http.StatusOK {
		t.Errorf("expected 200 for an unchanged dashboard section, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSettingsHandler_ResetKeepsEnvOnlySections(t *testing.T) {
	cfg := config.Defaults()
	cfg.Stats.TopCommands = 9
	cfg.Discord.BotToken = "token"
	cfg.Discord.AuditChannelID = "123456789012345678"
	cfg.BotAPI.BaseURL = "http://bot.internal:5000"
	live := config.NewLiveConfig(cfg)
	mux := newSettingsMux(live, nil)

	if rec := serve(mux, http.MethodGet, "/api/settings/reset", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}

	rec := serve(mux, http.MethodPost, "/api/settings/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := live.Get()
	if got.Stats.TopCommands != config.Defaults().Stats.TopCommands {
		t.Errorf("expected default top commands, got %d", got.Stats.TopCommands)
	}
	if got.Discord.BotToken != "token" || got.Discord.AuditChannelID != "123456789012345678" {
		t.Errorf("discord settings should survive a reset: %+v", got.Discord)
	}
	if got.BotAPI.BaseURL != "http://bot.internal:5000" {
		t.Errorf("bot api settings should survive a reset: %+v", got.BotAPI)
	}
}

func TestSettingsHandler_Info(t *testing.T) {
	live := config.NewLiveConfig(config.Defaults())
	mux := newSettingsMux(live, nil)

	_ = live.UpdatePartial(func(c *config.Config) { c.Stats.TopCommands = 3 })

	rec := serve(mux, http.MethodGet, "/api/settings/info", "")
	var info struct {
		Revision uint64 `json:"revision"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Revision != 1 {
		t.Errorf("expected revision 1, got %d", info.Revision)
	}
}

func TestChangedSections(t *testing.T) {
	a := config.Defaults()
	b := a.Clone()
	b.Poll.Logs = a.Poll.Logs * 2
	b.Toast.Visible = a.Toast.Visible * 2

	if got := changedSections(a, b); !reflect.DeepEqual(got, []string{"poll", "toast"}) {
		t.Errorf("unexpected sections %v", got)
	}
	if got := changedSections(a, a.Clone()); len(got) != 0 {
		t.Errorf("expected no changes, got %v", got)
	}
}
