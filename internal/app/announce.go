package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"botdash/clients/botapi"
	"botdash/clients/notifier"
	"botdash/config"

	"go.uber.org/zap"
)

// ErrAnnouncementBusy is returned while an announcement or a control action
// is in flight.
var ErrAnnouncementBusy = errors.New("announcement sender is busy")

// AnnouncementView is the state of the announcement sender.
type AnnouncementView struct {
	Sending   bool      `json:"sending"`
	Message   string    `json:"message"`
	ChannelID string    `json:"channel_id"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Announcer sends announcements through the bot.
type Announcer struct {
	deps     Deps
	controls *ControlDispatcher
	cascade  Refresher

	mu   sync.RWMutex
	view AnnouncementView
}

// NewAnnouncer creates the sender. controls may be nil; when set, sending is
// refused while a control action is in flight.
func NewAnnouncer(deps Deps, controls *ControlDispatcher, cascade Refresher) *Announcer {
	return &Announcer{
		deps:     deps.withDefaults(),
		controls: controls,
		cascade:  cascade,
	}
}

// ValidateAnnouncement checks the message and channel id before sending.
func ValidateAnnouncement(channelID, message string) ValidationErrors {
	var errs ValidationErrors
	if message == "" {
		errs = append(errs, config.ValidationError{Field: "message", Message: "Please enter an announcement message."})
	}
	if !IsSnowflake(channelID) {
		errs = append(errs, config.ValidationError{Field: "channel_id", Message: "Please enter a valid Discord channel ID (17-19 digits)."})
	}
	return errs
}

// Send posts the announcement. Invalid input is rejected without a request.
// On success the message is cleared and logs are re-fetched.
func (a *Announcer) Send(ctx context.Context, channelID, message string) (*botapi.ActionResult, error) {
	channelID = strings.TrimSpace(channelID)
	message = strings.TrimSpace(message)

	a.mu.Lock()
	if a.view.Sending || (a.controls != nil && a.controls.Disabled()) {
		a.mu.Unlock()
		return nil, ErrAnnouncementBusy
	}
	a.view.Message = message
	a.view.ChannelID = channelID

	if errs := ValidateAnnouncement(channelID, message); len(errs) > 0 {
		a.mu.Unlock()
		a.deps.Toasts.Show(ComponentAnnouncement, errs[0].Message, ToastError)
		return nil, errs
	}
	a.view.Sending = true
	a.mu.Unlock()

	a.deps.Toasts.Show(ComponentAnnouncement, "Sending announcement...", ToastInfo)
	a.deps.Sink.Changed(ComponentAnnouncement)

	res, err := a.deps.API.SendAnnouncement(ctx, channelID, message)

	a.mu.Lock()
	a.view.Sending = false
	a.view.UpdatedAt = a.deps.Clock.Now()
	if err == nil {
		a.view.Message = ""
	}
	a.mu.Unlock()
	a.deps.Sink.Changed(ComponentAnnouncement)

	event := notifier.AuditEvent{
		Kind:   notifier.AuditKindAnnouncement,
		Target: channelID,
		Detail: message,
	}
	if err != nil {
		msg := botapi.Message(err)
		a.deps.Logger.Warn("failed to send announcement", zap.String("channelID", channelID), zap.Error(err))
		if botapi.IsTransport(err) {
			a.deps.Toasts.Show(ComponentAnnouncement, "Network error while sending announcement: "+msg, ToastError)
		} else {
			a.deps.Toasts.Show(ComponentAnnouncement, "Announcement failed: "+textOr(msg, "unknown error"), ToastError)
		}
		event.Message = msg
		a.deps.audit(event)
		return res, err
	}

	a.deps.Toasts.Show(ComponentAnnouncement, strings.TrimSpace("Announcement sent! "+resultText(res)), ToastSuccess)
	event.Success = true
	event.Message = resultText(res)
	a.deps.audit(event)

	if a.cascade != nil {
		a.cascade.Refresh(ctx, ComponentLogs)
	}
	return res, nil
}

func (a *Announcer) View() AnnouncementView {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.view
}
