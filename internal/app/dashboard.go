package app

import (
	"time"

	"botdash/clients/notifier"
	"botdash/config"
	"botdash/internal/logs"

	"go.uber.org/zap"
)

// State is the full dashboard view model.
type State struct {
	Revision      uint64            `json:"revision"`
	Tab           string            `json:"tab"`
	Pollers       []string          `json:"pollers"`
	Status        StatusView        `json:"status"`
	Stats         StatsView         `json:"stats"`
	Logs          logs.View         `json:"logs"`
	Config        ConfigView        `json:"config"`
	Guilds        GuildView         `json:"guilds"`
	ReactionRoles ReactionRolesView `json:"reaction_roles"`
	Control       ControlView       `json:"control"`
	Announcement  AnnouncementView  `json:"announcement"`
	Toasts        []Toast           `json:"toasts"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

type revisioner interface {
	Revision() uint64
}

// Dashboard wires every component to one API client, clock, sink and
// scheduler.
type Dashboard struct {
	logger *zap.Logger
	clock  Clock
	sink   Sink

	Scheduler     *Scheduler
	Toasts        *Toasts
	Status        *StatusPoller
	Stats         *StatsPoller
	Logs          *LogViewer
	Config        *ConfigViewer
	Guilds        *GuildViewer
	ReactionRoles *ReactionRoles
	Control       *ControlDispatcher
	Announcer     *Announcer
}

// NewDashboard builds the components and registers their pollers.
func NewDashboard(logger *zap.Logger, api BotAPI, audit notifier.Notifier, cfg *config.Config, clock Clock, sink Sink) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = RealClock()
	}
	if sink == nil {
		sink = nopSink{}
	}

	toasts := NewToasts(clock, sink, cfg.Toast.Visible, cfg.Toast.ClearDelay)
	deps := Deps{
		Logger: logger,
		API:    api,
		Clock:  clock,
		Sink:   sink,
		Toasts: toasts,
		Seq:    NewSequencer(),
		Audit:  audit,
	}
	sched := NewScheduler(logger.Named("scheduler"), nil)

	d := &Dashboard{
		logger:        logger,
		clock:         clock,
		sink:          sink,
		Scheduler:     sched,
		Toasts:        toasts,
		Status:        NewStatusPoller(deps),
		Stats:         NewStatsPoller(deps, cfg.Stats.TopCommands),
		Logs:          NewLogViewer(deps, logs.NewPipeline(PipelineOptions(cfg, clock.Now))),
		Config:        NewConfigViewer(deps),
		Guilds:        NewGuildViewer(deps),
		ReactionRoles: NewReactionRoles(deps),
	}
	d.Control = NewControlDispatcher(deps, sched)
	d.Announcer = NewAnnouncer(deps, d.Control, sched)

	sched.Register(ComponentStatus, cfg.Poll.Status, d.Status.Refresh)
	sched.Register(ComponentStats, cfg.Poll.Stats, d.Stats.Refresh)
	sched.Register(ComponentLogs, cfg.Poll.Logs, d.Logs.Refresh)
	sched.Register(ComponentGuilds, cfg.Poll.Guilds, d.Guilds.Refresh)
	sched.Register(ComponentReactionRoles, cfg.Poll.ReactionRoles, d.ReactionRoles.Refresh)
	sched.Register(ComponentConfig, 0, d.Config.Refresh)

	return d
}

// ApplyConfig pushes the hot-reloadable settings into the components.
func (d *Dashboard) ApplyConfig(cfg *config.Config) {
	d.Scheduler.SetInterval(ComponentStatus, cfg.Poll.Status)
	d.Scheduler.SetInterval(ComponentStats, cfg.Poll.Stats)
	d.Scheduler.SetInterval(ComponentLogs, cfg.Poll.Logs)
	d.Scheduler.SetInterval(ComponentGuilds, cfg.Poll.Guilds)
	d.Scheduler.SetInterval(ComponentReactionRoles, cfg.Poll.ReactionRoles)

	d.Stats.SetTopN(cfg.Stats.TopCommands)
	d.Toasts.SetTimings(cfg.Toast.Visible, cfg.Toast.ClearDelay)
	d.Logs.Pipeline().Reconfigure(PipelineOptions(cfg, d.clock.Now))

	d.sink.Changed(ComponentSettings)
}

// State assembles the current view model.
func (d *Dashboard) State() State {
	s := State{
		Tab:           d.Scheduler.Tab(),
		Pollers:       d.Scheduler.Running(),
		Status:        d.Status.View(),
		Stats:         d.Stats.View(),
		Logs:          d.Logs.View(),
		Config:        d.Config.View(),
		Guilds:        d.Guilds.View(),
		ReactionRoles: d.ReactionRoles.View(),
		Control:       d.Control.View(),
		Announcement:  d.Announcer.View(),
		Toasts:        d.Toasts.Active(),
		GeneratedAt:   d.clock.Now(),
	}
	if r, ok := d.sink.(revisioner); ok {
		s.Revision = r.Revision()
	}
	return s
}

// Close stops the pollers and pending toast timers.
func (d *Dashboard) Close() {
	d.Scheduler.StopAll()
	d.Toasts.Stop()
}
