package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"botdash/clients/botapi"
	"botdash/clients/notifier"

	"go.uber.org/zap"
)

// ErrControlBusy is returned while another control action is in flight.
var ErrControlBusy = errors.New("control panel is busy")

// CascadeComponents are refreshed after a successful control action.
var CascadeComponents = []string{ComponentStatus, ComponentStats, ComponentLogs, ComponentGuilds}

// ControlView is the state of the control panel.
type ControlView struct {
	Disabled    bool      `json:"disabled"`
	InFlight    string    `json:"in_flight,omitempty"`
	LastAction  string    `json:"last_action,omitempty"`
	LastSuccess bool      `json:"last_success"`
	LastMessage string    `json:"last_message,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// ControlDispatcher sends one-shot control actions. The panel is disabled
// while a request is in flight and re-enabled whatever the outcome.
type ControlDispatcher struct {
	deps    Deps
	cascade Refresher

	mu   sync.RWMutex
	view ControlView
}

func NewControlDispatcher(deps Deps, cascade Refresher) *ControlDispatcher {
	return &ControlDispatcher{
		deps:    deps.withDefaults(),
		cascade: cascade,
	}
}

// Dispatch posts action. On success the status, stats, logs and guild
// components are refreshed; failures are reported and nothing else happens.
func (d *ControlDispatcher) Dispatch(ctx context.Context, action botapi.ControlAction) (*botapi.ActionResult, error) {
	label := action.Label()

	d.mu.Lock()
	if d.view.Disabled {
		d.mu.Unlock()
		return nil, ErrControlBusy
	}
	d.view.Disabled = true
	d.view.InFlight = string(action)
	d.mu.Unlock()

	d.deps.Toasts.Show(ComponentControl, label+" in progress...", ToastInfo)
	d.deps.Sink.Changed(ComponentControl)

	res, err := d.deps.API.ControlBot(ctx, action)

	d.mu.Lock()
	d.view.Disabled = false
	d.view.InFlight = ""
	d.view.LastAction = string(action)
	d.view.LastSuccess = err == nil
	d.view.UpdatedAt = d.deps.Clock.Now()
	if err != nil {
		d.view.LastMessage = botapi.Message(err)
	} else {
		d.view.LastMessage = resultText(res)
	}
	d.mu.Unlock()
	d.deps.Sink.Changed(ComponentControl)

	event := notifier.AuditEvent{Kind: notifier.AuditKindControl, Action: string(action)}
	if err != nil {
		msg := botapi.Message(err)
		if botapi.IsTransport(err) {
			d.deps.Logger.Warn("network error sending control action", zap.String("action", string(action)), zap.Error(err))
			d.deps.Toasts.Show(ComponentControl, "Network error during "+strings.ToLower(label)+": "+msg, ToastError)
		} else {
			d.deps.Logger.Warn("control action failed", zap.String("action", string(action)), zap.Error(err))
			d.deps.Toasts.Show(ComponentControl, label+" failed: "+textOr(msg, "unknown error"), ToastError)
		}
		event.Message = msg
		d.deps.audit(event)
		return res, err
	}

	d.deps.Logger.Info("control action succeeded", zap.String("action", string(action)))
	d.deps.Toasts.Show(ComponentControl, strings.TrimSpace(label+" succeeded! "+resultText(res)), ToastSuccess)
	event.Success = true
	event.Message = resultText(res)
	d.deps.audit(event)

	if d.cascade != nil {
		d.cascade.Refresh(ctx, CascadeComponents...)
	}
	return res, nil
}

// Disabled reports whether a control action is in flight.
func (d *ControlDispatcher) Disabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.view.Disabled
}

func (d *ControlDispatcher) View() ControlView {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.view
}
