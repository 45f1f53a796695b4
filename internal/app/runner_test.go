package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"botdash/clients"
	"botdash/config"

	"go.uber.org/zap"
)

func newTestRunner(t *testing.T, backend http.HandlerFunc) (*Runner, *config.LiveConfig) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Dashboard.Enabled = false
	if backend != nil {
		srv := httptest.NewServer(backend)
		t.Cleanup(srv.Close)
		cfg.BotAPI.BaseURL = srv.URL
	}
	live := config.NewLiveConfig(cfg)
	return NewRunner(clients.NewClients(zap.NewNop(), cfg), live), live
}

func TestNewRunner(t *testing.T) {
	runner, live := newTestRunner(t, nil)

	if runner.liveConfig != live {
		t.Error("unexpected liveConfig")
	}
	if runner.Dashboard() == nil {
		t.Fatal("expected dashboard to be built")
	}
	if got := runner.Dashboard().Scheduler.Interval(ComponentStatus); got != config.Defaults().Poll.Status {
		t.Errorf("unexpected status interval %v", got)
	}
}

func TestRunner_OnConfigUpdate(t *testing.T) {
	runner, live := newTestRunner(t, nil)
	live.AddObserver(runner)
	defer live.RemoveObserver(runner)

	err := live.UpdatePartial(func(c *config.Config) {
		c.Poll.Logs = 7 * time.Second
		c.Toast.Visible = 5 * time.Second
	})
	if err != nil {
		t.Fatalf("UpdatePartial: %v", err)
	}

	if got := runner.Dashboard().Scheduler.Interval(ComponentLogs); got != 7*time.Second {
		t.Errorf("expected logs interval 7s, got %v", got)
	}
}

func TestRunner_RunPollsUntilCancelled(t *testing.T) {
	runner, _ := newTestRunner(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/bot_info" {
			_, _ = w.Write([]byte(`{"status":"Online","user_count":3}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for runner.Dashboard().Status.View().Indicator != "Online" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := runner.Dashboard().Status.View().Indicator; got != "Online" {
		t.Fatalf("status never polled, indicator %q", got)
	}

	stats := runner.GetStats()
	if stats.Dashboard.Tab != TabAll {
		t.Errorf("unexpected tab %q", stats.Dashboard.Tab)
	}
	if len(stats.Dashboard.Pollers) != 5 {
		t.Errorf("expected 5 pollers for the all tab, got %v", stats.Dashboard.Pollers)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if len(runner.Dashboard().Scheduler.Running()) != 0 {
		t.Error("pollers should be stopped after Run returns")
	}
}

func TestRunner_RunRejectsUnknownTab(t *testing.T) {
	runner, live := newTestRunner(t, nil)
	runner.liveConfig = config.NewLiveConfig(func() *config.Config {
		c := live.Get()
		c.Dashboard.InitialTab = "nope"
		return c
	}())

	if err := runner.Run(context.Background()); err == nil {
		t.Fatal("expected error for unknown initial tab")
	}
}

func TestRunner_HandleStats(t *testing.T) {
	runner, _ := newTestRunner(t, nil)
	runner.startTime = time.Now().Add(-time.Minute)

	rec := httptest.NewRecorder()
	runner.handleStats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var stats ServiceStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Build.Commit == "" || stats.Runtime.GoVersion == "" {
		t.Errorf("missing build info: %+v", stats.Build)
	}
	if stats.UptimeSec < 59 {
		t.Errorf("unexpected uptime %d", stats.UptimeSec)
	}
	if stats.Notifications.DiscordEnabled || stats.Notifications.TelegramEnabled {
		t.Error("notifiers should be disabled without tokens")
	}

	rec = httptest.NewRecorder()
	runner.handleStats(rec, httptest.NewRequest(http.MethodPost, "/stats", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
