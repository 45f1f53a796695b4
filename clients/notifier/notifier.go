package notifier

import (
	"time"
)

// AuditKind identifies the operator action being reported.
type AuditKind string

const (
	AuditKindControl            AuditKind = "control"
	AuditKindAnnouncement       AuditKind = "announcement"
	AuditKindReactionRoleAdd    AuditKind = "reaction_role_add"
	AuditKindReactionRoleRemove AuditKind = "reaction_role_remove"
	AuditKindSettings           AuditKind = "settings"
)

// AuditEvent describes one state-changing operator action and its outcome.
type AuditEvent struct {
	Kind    AuditKind
	Action  string // control action, e.g. "restart"
	Target  string // channel or message id, when relevant
	Detail  string // free text: announcement body, emoji/role pair, changed fields
	Success bool
	Message string // backend message or error text

	Timestamp time.Time
}

// Title returns a short human-readable heading for the event.
func (e AuditEvent) Title() string {
	outcome := "succeeded"
	if !e.Success {
		outcome = "failed"
	}
	switch e.Kind {
	case AuditKindControl:
		return "Control " + e.Action + " " + outcome
	case AuditKindAnnouncement:
		return "Announcement " + outcome
	case AuditKindReactionRoleAdd:
		return "Reaction role added"
	case AuditKindReactionRoleRemove:
		return "Reaction role removed"
	case AuditKindSettings:
		return "Dashboard settings updated"
	default:
		return string(e.Kind) + " " + outcome
	}
}

// Notifier is the interface for delivering audit events to a channel.
type Notifier interface {
	// SendAuditEvent delivers the event. Failures are logged, never returned.
	SendAuditEvent(event AuditEvent)

	// Close cleans up any resources.
	Close() error
}

// MultiNotifier broadcasts events to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a new MultiNotifier with the given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	var active []Notifier
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &MultiNotifier{notifiers: active}
}

// SendAuditEvent sends the event to all registered notifiers.
func (m *MultiNotifier) SendAuditEvent(event AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for _, n := range m.notifiers {
		n.SendAuditEvent(event)
	}
}

// Close closes all registered notifiers and returns the last error.
func (m *MultiNotifier) Close() error {
	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Count returns the number of active notifiers.
func (m *MultiNotifier) Count() int {
	return len(m.notifiers)
}

// Nop discards every event.
type Nop struct{}

func (Nop) SendAuditEvent(AuditEvent) {}
func (Nop) Close() error             { return nil }
