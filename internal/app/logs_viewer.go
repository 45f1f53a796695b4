package app

import (
	"context"
	"strings"
	"time"

	"botdash/clients/botapi"
	"botdash/config"
	"botdash/internal/logs"

	"go.uber.org/zap"
)

// LogViewer polls bot logs into a logs.Pipeline.
type LogViewer struct {
	deps     Deps
	pipeline *logs.Pipeline
}

func NewLogViewer(deps Deps, pipeline *logs.Pipeline) *LogViewer {
	return &LogViewer{deps: deps.withDefaults(), pipeline: pipeline}
}

// PipelineOptions derives pipeline options from the config.
func PipelineOptions(cfg *config.Config, now func() time.Time) logs.Options {
	return logs.Options{
		DisplayLimit:   cfg.Logs.DisplayLimit,
		HoldLimit:      cfg.Logs.HoldLimit,
		Incremental:    cfg.Logs.Incremental,
		Location:       cfg.Logs.Location(),
		Marker:         cfg.Logs.ServerMarker,
		DownloadPrefix: cfg.Logs.DownloadPrefix,
		Now:            now,
	}
}

// Pipeline returns the underlying pipeline.
func (v *LogViewer) Pipeline() *logs.Pipeline { return v.pipeline }

// Refresh fetches /api/logs, passing the clear time as since_timestamp in
// incremental mode.
func (v *LogViewer) Refresh(ctx context.Context) {
	seq := v.deps.Seq.Next(ComponentLogs)
	ticket := v.pipeline.Begin()

	records, err := v.deps.API.GetLogs(ctx, ticket.Since)
	if !v.deps.Seq.Current(ComponentLogs, seq) {
		return
	}

	if err != nil {
		v.deps.Logger.Warn("failed to fetch logs", zap.Error(err))
		if v.pipeline.Fail(ticket, "Failed to load logs: "+botapi.Message(err)) {
			v.deps.Sink.Changed(ComponentLogs)
		}
		return
	}

	added, ok := v.pipeline.Apply(ticket, records)
	if !ok {
		return
	}
	v.deps.Logger.Debug("logs fetched", zap.Int("received", len(records)), zap.Int("added", added))
	v.deps.Sink.Changed(ComponentLogs)
}

// Clear empties the viewer.
func (v *LogViewer) Clear() time.Time {
	t := v.pipeline.Clear()
	v.deps.Sink.Changed(ComponentLogs)
	return t
}

// SetFilter replaces the display filter.
func (v *LogViewer) SetFilter(f logs.Filter) {
	v.pipeline.SetFilter(f)
	v.deps.Sink.Changed(ComponentLogs)
}

func (v *LogViewer) View() logs.View { return v.pipeline.View() }

// Download returns the file name and content of a log download.
func (v *LogViewer) Download() (string, []byte) { return v.pipeline.Download() }

// SimulateLog asks the bot to emit a log line, then re-fetches logs.
func (v *LogViewer) SimulateLog(ctx context.Context, level, message string) (*botapi.ActionResult, error) {
	level = strings.ToUpper(strings.TrimSpace(level))
	if level == "" {
		level = logs.LevelInfo
	}
	message = strings.TrimSpace(message)
	if message == "" {
		errs := ValidationErrors{{Field: "message", Message: "is required"}}
		v.deps.Toasts.Show(ComponentLogs, "Log message is required", ToastError)
		return nil, errs
	}

	res, err := v.deps.API.SimulateLog(ctx, level, message)
	if err != nil {
		v.deps.Logger.Warn("failed to simulate log", zap.String("level", level), zap.Error(err))
		v.deps.Toasts.Show(ComponentLogs, "Failed to simulate log: "+botapi.Message(err), ToastError)
		return res, err
	}

	v.deps.Toasts.Show(ComponentLogs, strings.TrimSpace("Log simulated. "+resultText(res)), ToastSuccess)
	v.Refresh(ctx)
	return res, nil
}
