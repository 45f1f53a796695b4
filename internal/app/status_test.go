package app

import (
	"context"
	"encoding/json"
	"testing"

	"botdash/clients/botapi"
)

func decodeBotInfo(t *testing.T, raw string) *botapi.BotInfo {
	t.Helper()
	var info botapi.BotInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		t.Fatalf("decode bot info: %v", err)
	}
	return &info
}

func TestStatusPoller_Success(t *testing.T) {
	env := newTestEnv()
	info := decodeBotInfo(t, `{"status":"Online","uptime":"1 day, 2:03:04","latency_ms":42.5,"user_count":120,"guild_count":"3","commands_used_today":17}`)
	env.api.botInfo = func(context.Context) (*botapi.BotInfo, error) { return info, nil }

	p := NewStatusPoller(env.deps)
	if p.View().Indicator != "Loading" {
		t.Errorf("expected initial Loading indicator, got %q", p.View().Indicator)
	}

	p.Refresh(context.Background())
	v := p.View()

	if v.Indicator != "Online" || v.IndicatorClass != "online" {
		t.Errorf("unexpected indicator: %q/%q", v.Indicator, v.IndicatorClass)
	}
	if v.Uptime != "1 day, 2:03:04" {
		t.Errorf("unexpected uptime %q", v.Uptime)
	}
	if v.Latency != "42.5 ms" {
		t.Errorf("unexpected latency %q", v.Latency)
	}
	if v.Users != "120" || v.Guilds != "3" || v.CommandsToday != "17" {
		t.Errorf("unexpected counts: %+v", v)
	}
	if v.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
	if env.sink.Count(ComponentStatus) != 1 {
		t.Errorf("expected one status notification, got %d", env.sink.Count(ComponentStatus))
	}
}

func TestStatusPoller_MissingFields(t *testing.T) {
	env := newTestEnv()
	info := decodeBotInfo(t, `{"guild_count":null}`)
	env.api.botInfo = func(context.Context) (*botapi.BotInfo, error) { return info, nil }

	p := NewStatusPoller(env.deps)
	p.Refresh(context.Background())
	v := p.View()

	if v.Indicator != "Unknown" || v.IndicatorClass != "unknown" {
		t.Errorf("expected Unknown indicator, got %q/%q", v.Indicator, v.IndicatorClass)
	}
	for name, got := range map[string]string{
		"uptime":   v.Uptime,
		"latency":  v.Latency,
		"users":    v.Users,
		"guilds":   v.Guilds,
		"commands": v.CommandsToday,
	} {
		if got != NotAvailable {
			t.Errorf("%s: expected N/A, got %q", name, got)
		}
	}
}

func TestStatusPoller_Failures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		indicator string
		class     string
	}{
		{"network", errTransport, IndicatorOffline, "offline"},
		{"http", errAPI, IndicatorError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.api.botInfo = func(context.Context) (*botapi.BotInfo, error) {
				return decodeBotInfo(t, `{"status":"Online","user_count":5}`), nil
			}
			p := NewStatusPoller(env.deps)
			p.Refresh(context.Background())

			env.api.botInfo = func(context.Context) (*botapi.BotInfo, error) { return nil, tt.err }
			p.Refresh(context.Background())
			v := p.View()

			if v.Indicator != tt.indicator || v.IndicatorClass != tt.class {
				t.Errorf("expected %q/%q, got %q/%q", tt.indicator, tt.class, v.Indicator, v.IndicatorClass)
			}
			if v.Users != NotAvailable || v.Uptime != NotAvailable || v.Latency != NotAvailable {
				t.Errorf("previous values should be replaced by N/A: %+v", v)
			}
			if v.Error == "" {
				t.Error("expected error text")
			}
			if env.api.Calls("GetBotInfo") != 2 {
				t.Errorf("failure must not retry, got %d calls", env.api.Calls("GetBotInfo"))
			}
		})
	}
}

func TestStatusPoller_PayloadErrorShowsToast(t *testing.T) {
	env := newTestEnv()
	info := decodeBotInfo(t, `{"status":"Degraded","error":"gateway reconnecting"}`)
	env.api.botInfo = func(context.Context) (*botapi.BotInfo, error) { return info, nil }

	p := NewStatusPoller(env.deps)
	p.Refresh(context.Background())

	toast := env.toasts.Get(ComponentStatus)
	if toast.Text != "gateway reconnecting" || toast.Kind != ToastError {
		t.Errorf("unexpected toast: %+v", toast)
	}
	if p.View().Indicator != "Degraded" {
		t.Errorf("unexpected indicator %q", p.View().Indicator)
	}
}

func TestStatusPoller_StaleResponseDropped(t *testing.T) {
	env := newTestEnv()
	release := make(chan struct{})
	started := make(chan struct{})
	calls := 0

	env.api.botInfo = func(context.Context) (*botapi.BotInfo, error) {
		calls++
		if calls == 1 {
			close(started)
			<-release
			return &botapi.BotInfo{Status: "Stale"}, nil
		}
		return &botapi.BotInfo{Status: "Fresh"}, nil
	}

	p := NewStatusPoller(env.deps)
	done := make(chan struct{})
	go func() {
		p.Refresh(context.Background())
		close(done)
	}()
	<-started

	p.Refresh(context.Background())
	close(release)
	<-done

	if got := p.View().Indicator; got != "Fresh" {
		t.Errorf("older response overwrote newer one: %q", got)
	}
}
