package app

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"runtime/debug"
	"time"

	clts "botdash/clients"
	"botdash/config"

	"go.uber.org/zap"
)

// ensure Runner implements ConfigObserver
var _ config.ConfigObserver = (*Runner)(nil)

// Build info - populated from embedded VCS info at init time
var (
	BuildCommit = "dev"
	BuildTime   = "unknown"
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if setting.Value != "" {
					BuildCommit = setting.Value
				}
			case "vcs.time":
				BuildTime = setting.Value
			}
		}
	}
}

// Runner owns the dashboard components, their pollers and the local server.
type Runner struct {
	clients    *clts.Clients
	liveConfig *config.LiveConfig
	hub        *Broadcaster
	dash       *Dashboard
	server     *Server
	startTime  time.Time
}

// ServiceStats holds process and dashboard statistics.
type ServiceStats struct {
	// Build info
	Build struct {
		Commit    string `json:"commit"`
		Time      string `json:"time,omitempty"`
		GoVersion string `json:"go_version"`
	} `json:"build"`

	// Service info
	StartTime string `json:"start_time"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_seconds"`
	BotAPIURL string `json:"bot_api_url"`

	// Dashboard state
	Dashboard struct {
		Tab            string   `json:"tab"`
		Pollers        []string `json:"pollers"`
		Revision       uint64   `json:"revision"`
		Subscribers    int      `json:"subscribers"`
		DroppedUpdates int64    `json:"dropped_updates"`
		ConfigRevision uint64   `json:"config_revision"`
	} `json:"dashboard"`

	// Log pipeline
	Logs struct {
		State string `json:"state"`
		Held  int    `json:"held"`
	} `json:"logs"`

	// Notification status
	Notifications struct {
		DiscordEnabled   bool   `json:"discord_enabled"`
		DiscordChannelID string `json:"discord_channel_id,omitempty"`
		TelegramEnabled  bool   `json:"telegram_enabled"`
		TelegramChatID   string `json:"telegram_chat_id,omitempty"`
	} `json:"notifications"`

	// Go runtime stats
	Runtime struct {
		Goroutines int    `json:"goroutines"`
		HeapAlloc  uint64 `json:"heap_alloc"`
		HeapSys    uint64 `json:"heap_sys"`
		HeapInuse  uint64 `json:"heap_inuse"`
		NumGC      uint32 `json:"num_gc"`
		LastGC     string `json:"last_gc,omitempty"`
		GoVersion  string `json:"go_version"`
		NumCPU     int    `json:"num_cpu"`
		GOOS       string `json:"goos"`
		GOARCH     string `json:"goarch"`
	} `json:"runtime"`
}

func NewRunner(clients *clts.Clients, liveConfig *config.LiveConfig) *Runner {
	cfg := liveConfig.Get()
	hub := NewBroadcaster(clients.Logger.Named("hub"))
	return &Runner{
		clients:    clients,
		liveConfig: liveConfig,
		hub:        hub,
		dash:       NewDashboard(clients.Logger, clients.BotAPI, clients.Notifier, cfg, RealClock(), hub),
	}
}

// Dashboard returns the component bundle.
func (r *Runner) Dashboard() *Dashboard {
	return r.dash
}

// OnConfigUpdate is called when the config changes.
// Implements config.ConfigObserver interface.
func (r *Runner) OnConfigUpdate(cfg *config.Config) {
	r.clients.Logger.Info("config update received, propagating to components",
		zap.Duration("statusInterval", cfg.Poll.Status),
		zap.Duration("logsInterval", cfg.Poll.Logs),
		zap.Int("displayLimit", cfg.Logs.DisplayLimit),
	)
	r.dash.ApplyConfig(cfg)
}

// Run starts the pollers of the initial tab and the dashboard server, then
// blocks until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	r.startTime = time.Now()
	logger := r.clients.Logger
	cfg := r.liveConfig.Get()

	// Register as config observer for hot-reload
	r.liveConfig.AddObserver(r)
	defer r.liveConfig.RemoveObserver(r)

	logger.Info("starting dashboard",
		zap.String("botAPI", cfg.BotAPI.BaseURL),
		zap.String("initialTab", cfg.Dashboard.InitialTab),
		zap.Bool("incrementalLogs", cfg.Logs.Incremental),
	)

	r.dash.Scheduler.Start(ctx)
	if err := r.dash.Scheduler.StartFor(cfg.Dashboard.InitialTab); err != nil {
		return fmt.Errorf("start pollers: %w", err)
	}

	if cfg.Dashboard.Enabled {
		settings := NewSettingsHandler(logger.Named("settings"), r.liveConfig, r.clients.Notifier)
		r.server = NewServer(logger.Named("http"), r.dash, r.hub, settings)
		r.server.HandleFunc("/stats", r.handleStats)
		if err := r.server.Start(cfg.Dashboard.ListenAddr); err != nil {
			r.dash.Close()
			return fmt.Errorf("start dashboard server: %w", err)
		}
	}

	<-ctx.Done()
	logger.Info("runner shutting down")

	r.dash.Close()

	// Shutdown dashboard server
	if r.server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = r.server.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	return nil
}

func (r *Runner) handleStats(w http.ResponseWriter, req *http.Request) {
	if !requireMethod(w, req, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, r.GetStats())
}

// GetStats collects service statistics.
func (r *Runner) GetStats() ServiceStats {
	var stats ServiceStats

	// Build info
	stats.Build.Commit = BuildCommit
	stats.Build.Time = BuildTime
	stats.Build.GoVersion = runtime.Version()

	// Service info
	stats.StartTime = r.startTime.UTC().Format(time.RFC3339)
	uptime := time.Since(r.startTime)
	stats.Uptime = uptime.Round(time.Second).String()
	stats.UptimeSec = int64(uptime.Seconds())
	if r.clients.BotAPI != nil {
		stats.BotAPIURL = r.clients.BotAPI.BaseURL()
	}

	// Dashboard state
	stats.Dashboard.Tab = r.dash.Scheduler.Tab()
	stats.Dashboard.Pollers = r.dash.Scheduler.Running()
	stats.Dashboard.Revision = r.hub.Revision()
	stats.Dashboard.Subscribers = r.hub.Subscribers()
	stats.Dashboard.DroppedUpdates = r.hub.Dropped()
	stats.Dashboard.ConfigRevision = r.liveConfig.Revision()

	pipeline := r.dash.Logs.Pipeline()
	stats.Logs.State = string(pipeline.State())
	stats.Logs.Held = len(pipeline.Entries())

	// Notification status
	cfg := r.liveConfig.Get()
	stats.Notifications.DiscordEnabled = r.clients.Discord != nil && r.clients.Discord.Enabled()
	if stats.Notifications.DiscordEnabled {
		stats.Notifications.DiscordChannelID = cfg.Discord.AuditChannelID
	}
	stats.Notifications.TelegramEnabled = r.clients.Telegram != nil && r.clients.Telegram.Enabled()
	if stats.Notifications.TelegramEnabled {
		stats.Notifications.TelegramChatID = cfg.Telegram.AuditChatID
	}

	// Runtime stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats.Runtime.Goroutines = runtime.NumGoroutine()
	stats.Runtime.HeapAlloc = memStats.HeapAlloc
	stats.Runtime.HeapSys = memStats.HeapSys
	stats.Runtime.HeapInuse = memStats.HeapInuse
	stats.Runtime.NumGC = memStats.NumGC
	if memStats.LastGC > 0 {
		stats.Runtime.LastGC = time.Unix(0, int64(memStats.LastGC)).UTC().Format(time.RFC3339)
	}
	stats.Runtime.GoVersion = runtime.Version()
	stats.Runtime.NumCPU = runtime.NumCPU()
	stats.Runtime.GOOS = runtime.GOOS
	stats.Runtime.GOARCH = runtime.GOARCH

	return stats
}
