package app

import (
	"context"
	"time"

	"botdash/clients/botapi"
)

// BotAPI is the subset of the bot REST client the dashboard components use.
type BotAPI interface {
	GetBotInfo(ctx context.Context) (*botapi.BotInfo, error)
	GetCommandStats(ctx context.Context) (*botapi.CommandStats, error)
	GetLogs(ctx context.Context, since time.Time) ([]botapi.RawLog, error)
	GetConfig(ctx context.Context) ([]botapi.ConfigItem, error)
	GetGuilds(ctx context.Context) ([]botapi.Guild, error)
	GetReactionRoles(ctx context.Context) ([]botapi.ReactionRole, error)
	AddReactionRole(ctx context.Context, req botapi.AddReactionRoleRequest) (*botapi.ActionResult, error)
	RemoveReactionRole(ctx context.Context, req botapi.RemoveReactionRoleRequest) (*botapi.ActionResult, error)
	ControlBot(ctx context.Context, action botapi.ControlAction) (*botapi.ActionResult, error)
	SendAnnouncement(ctx context.Context, channelID, message string) (*botapi.ActionResult, error)
	SimulateLog(ctx context.Context, level, message string) (*botapi.ActionResult, error)
}

var _ BotAPI = (*botapi.Client)(nil)

// Timer is a pending AfterFunc call.
type Timer interface {
	Stop() bool
}

// Clock abstracts wall time for components with timed behaviour.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

// Sink receives change notifications from components.
type Sink interface {
	Changed(component string)
}

type nopSink struct{}

func (nopSink) Changed(string) {}

// Refresher re-runs registered refresh functions by component name.
type Refresher interface {
	Refresh(ctx context.Context, names ...string)
}

// Component names, shared by the scheduler, the sink and the toast targets.
const (
	ComponentStatus        = "status"
	ComponentStats         = "stats"
	ComponentLogs          = "logs"
	ComponentConfig        = "config"
	ComponentGuilds        = "guilds"
	ComponentReactionRoles = "reaction_roles"
	ComponentControl       = "control"
	ComponentAnnouncement  = "announcement"
	ComponentToasts        = "toasts"
	ComponentSettings      = "settings"
)
