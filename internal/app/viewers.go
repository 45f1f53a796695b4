package app

import (
	"context"
	"sync"
	"time"

	"botdash/clients/botapi"
	"botdash/clients/discord"

	"go.uber.org/zap"
)

// Placeholder texts of the read-only panels.
const (
	PlaceholderLoading   = "Loading..."
	PlaceholderNoConfig  = "No configuration values."
	PlaceholderNoGuilds  = "The bot is not a member of any guild."
	PlaceholderNoRoles   = "No reaction roles configured."
	errConfigPrefix      = "Failed to load configuration: "
	errGuildsPrefix      = "Failed to load guilds: "
	errReactionRolesPref = "Failed to load reaction roles: "
)

// ConfigView is the state of the bot configuration panel.
type ConfigView struct {
	Items       []botapi.ConfigItem `json:"items"`
	Placeholder string              `json:"placeholder,omitempty"`
	Error       string              `json:"error,omitempty"`
	UpdatedAt   time.Time           `json:"updated_at,omitzero"`
}

// ConfigViewer fetches the bot configuration.
type ConfigViewer struct {
	deps Deps

	mu   sync.RWMutex
	view ConfigView
}

func NewConfigViewer(deps Deps) *ConfigViewer {
	return &ConfigViewer{
		deps: deps.withDefaults(),
		view: ConfigView{Items: []botapi.ConfigItem{}, Placeholder: PlaceholderLoading},
	}
}

// Refresh fetches /api/config and replaces the panel.
func (v *ConfigViewer) Refresh(ctx context.Context) {
	seq := v.deps.Seq.Next(ComponentConfig)
	items, err := v.deps.API.GetConfig(ctx)

	v.mu.Lock()
	if !v.deps.Seq.Current(ComponentConfig, seq) {
		v.mu.Unlock()
		return
	}
	view := ConfigView{Items: []botapi.ConfigItem{}, UpdatedAt: v.deps.Clock.Now()}
	switch {
	case err != nil:
		v.deps.Logger.Warn("failed to fetch bot config", zap.Error(err))
		view.Error = errConfigPrefix + botapi.Message(err)
	case len(items) == 0:
		view.Placeholder = PlaceholderNoConfig
	default:
		view.Items = items
	}
	v.view = view
	v.mu.Unlock()

	v.deps.Sink.Changed(ComponentConfig)
}

func (v *ConfigViewer) View() ConfigView {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := v.view
	out.Items = append([]botapi.ConfigItem{}, v.view.Items...)
	return out
}

// GuildSummary is one row of the guild panel.
type GuildSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MemberCount  string    `json:"member_count"`
	ChannelCount string    `json:"channel_count"`
	OwnerName    string    `json:"owner_name"`
	OwnerID      string    `json:"owner_id"`
	IconURL      string    `json:"icon_url,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
}

// NewGuildSummary converts a backend guild. Missing values show as N/A; the
// creation time is decoded from the guild id.
func NewGuildSummary(g botapi.Guild) GuildSummary {
	s := GuildSummary{
		ID:           textOr(g.ID.String(), NotAvailable),
		Name:         textOr(g.Name, NotAvailable),
		MemberCount:  flexIntText(g.MemberCount),
		ChannelCount: flexIntText(g.ChannelCount),
		OwnerName:    textOr(g.OwnerName, NotAvailable),
		OwnerID:      textOr(g.OwnerID.String(), NotAvailable),
		IconURL:      g.IconURL,
	}
	if created, err := discord.SnowflakeCreatedAt(g.ID.String()); err == nil && IsSnowflake(g.ID.String()) {
		s.CreatedAt = created.UTC()
	}
	return s
}

// GuildView is the state of the guild panel.
type GuildView struct {
	Guilds      []GuildSummary `json:"guilds"`
	Placeholder string         `json:"placeholder,omitempty"`
	Error       string         `json:"error,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at,omitzero"`
}

// GuildViewer fetches the guilds the bot is a member of.
type GuildViewer struct {
	deps Deps

	mu   sync.RWMutex
	view GuildView
}

func NewGuildViewer(deps Deps) *GuildViewer {
	return &GuildViewer{
		deps: deps.withDefaults(),
		view: GuildView{Guilds: []GuildSummary{}, Placeholder: PlaceholderLoading},
	}
}

// Refresh fetches /api/guilds and replaces the list wholesale.
func (v *GuildViewer) Refresh(ctx context.Context) {
	seq := v.deps.Seq.Next(ComponentGuilds)
	guilds, err := v.deps.API.GetGuilds(ctx)

	v.mu.Lock()
	if !v.deps.Seq.Current(ComponentGuilds, seq) {
		v.mu.Unlock()
		return
	}
	view := GuildView{Guilds: []GuildSummary{}, UpdatedAt: v.deps.Clock.Now()}
	switch {
	case err != nil:
		v.deps.Logger.Warn("failed to fetch guilds", zap.Error(err))
		view.Error = errGuildsPrefix + botapi.Message(err)
	case len(guilds) == 0:
		view.Placeholder = PlaceholderNoGuilds
	default:
		for _, g := range guilds {
			view.Guilds = append(view.Guilds, NewGuildSummary(g))
		}
	}
	v.view = view
	v.mu.Unlock()

	v.deps.Sink.Changed(ComponentGuilds)
}

func (v *GuildViewer) View() GuildView {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := v.view
	out.Guilds = append([]GuildSummary{}, v.view.Guilds...)
	return out
}
