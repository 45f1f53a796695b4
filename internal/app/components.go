package app

import (
	"strconv"

	"botdash/clients/botapi"
	"botdash/clients/notifier"

	"go.uber.org/zap"
)

// NotAvailable is shown in place of any value the backend could not supply.
const NotAvailable = "N/A"

// Deps are the collaborators shared by every dashboard component.
type Deps struct {
	Logger *zap.Logger
	API    BotAPI
	Clock  Clock
	Sink   Sink
	Toasts *Toasts
	Seq    *Sequencer
	Audit  notifier.Notifier
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = RealClock()
	}
	if d.Sink == nil {
		d.Sink = nopSink{}
	}
	if d.Toasts == nil {
		d.Toasts = NewToasts(d.Clock, d.Sink, 0, 0)
	}
	if d.Seq == nil {
		d.Seq = NewSequencer()
	}
	if d.Audit == nil {
		d.Audit = notifier.Nop{}
	}
	return d
}

func (d Deps) audit(event notifier.AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = d.Clock.Now()
	}
	d.Audit.SendAuditEvent(event)
}

func flexIntText(f botapi.FlexInt) string {
	if !f.Valid {
		return NotAvailable
	}
	return strconv.FormatInt(f.Value, 10)
}

func textOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func resultText(res *botapi.ActionResult) string {
	if res == nil {
		return ""
	}
	return res.Text()
}
