package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"botdash/clients/botapi"

	"go.uber.org/zap"
)

// Indicator texts for failed status fetches.
const (
	IndicatorError   = "Error"
	IndicatorOffline = "Offline (API Error)"
)

// StatusView is the state of the status widgets.
type StatusView struct {
	Indicator      string    `json:"indicator"`
	IndicatorClass string    `json:"indicator_class"`
	Uptime         string    `json:"uptime"`
	Latency        string    `json:"latency"`
	Users          string    `json:"users"`
	Guilds         string    `json:"guilds"`
	CommandsToday  string    `json:"commands_today"`
	Error          string    `json:"error,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitzero"`
}

func unavailableStatus(indicator, class string) StatusView {
	return StatusView{
		Indicator:      indicator,
		IndicatorClass: class,
		Uptime:         NotAvailable,
		Latency:        NotAvailable,
		Users:          NotAvailable,
		Guilds:         NotAvailable,
		CommandsToday:  NotAvailable,
	}
}

// StatusPoller fetches bot status and metrics.
type StatusPoller struct {
	deps Deps

	mu   sync.RWMutex
	view StatusView
}

func NewStatusPoller(deps Deps) *StatusPoller {
	return &StatusPoller{
		deps: deps.withDefaults(),
		view: unavailableStatus("Loading", "loading"),
	}
}

// Refresh fetches /api/bot_info and replaces the view. Failures set every
// field to N/A; there is no retry.
func (p *StatusPoller) Refresh(ctx context.Context) {
	seq := p.deps.Seq.Next(ComponentStatus)
	info, err := p.deps.API.GetBotInfo(ctx)

	p.mu.Lock()
	if !p.deps.Seq.Current(ComponentStatus, seq) {
		p.mu.Unlock()
		return
	}
	now := p.deps.Clock.Now()

	if err != nil {
		if botapi.IsTransport(err) {
			p.deps.Logger.Warn("network error fetching bot status", zap.Error(err))
			p.view = unavailableStatus(IndicatorOffline, "offline")
		} else {
			p.deps.Logger.Warn("failed to fetch bot status", zap.Error(err))
			p.view = unavailableStatus(IndicatorError, "error")
		}
		p.view.Error = botapi.Message(err)
		p.view.UpdatedAt = now
		p.mu.Unlock()
		p.deps.Sink.Changed(ComponentStatus)
		return
	}

	status := textOr(strings.TrimSpace(info.Status), "Unknown")
	p.view = StatusView{
		Indicator:      status,
		IndicatorClass: strings.ToLower(status),
		Uptime:         textOr(info.Uptime.String(), NotAvailable),
		Latency:        NotAvailable,
		Users:          flexIntText(info.UserCount),
		Guilds:         flexIntText(info.GuildCount),
		CommandsToday:  flexIntText(info.CommandsUsedToday),
		Error:          info.Error,
		UpdatedAt:      now,
	}
	if l := info.LatencyMS.String(); l != "" {
		p.view.Latency = l + " ms"
	}
	p.mu.Unlock()

	if info.Error != "" {
		p.deps.Logger.Warn("bot reported an error", zap.String("status", status), zap.String("error", info.Error))
		p.deps.Toasts.Show(ComponentStatus, info.Error, ToastError)
	}
	p.deps.Sink.Changed(ComponentStatus)
}

// View returns the current status view.
func (p *StatusPoller) View() StatusView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.view
}
