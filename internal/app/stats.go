package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"botdash/clients/botapi"

	"go.uber.org/zap"
)

// ChartData is the bar chart dataset.
type ChartData struct {
	Label  string   `json:"label"`
	Labels []string `json:"labels"`
	Data   []int64  `json:"data"`
}

// RankedCommand is one row of the top commands list.
type RankedCommand struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// StatsView is the state of the command usage chart and ranked list.
type StatsView struct {
	Total       int64           `json:"total"`
	TotalSource string          `json:"total_source,omitempty"` // "server" or "sum"
	Chart       ChartData       `json:"chart"`
	Top         []RankedCommand `json:"top"`
	Empty       bool            `json:"empty"`
	Error       string          `json:"error,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at,omitzero"`
}

const chartLabel = "Command usage"

// StatsPoller fetches command usage counts.
type StatsPoller struct {
	deps Deps

	mu   sync.RWMutex
	topN int
	view StatsView
}

func NewStatsPoller(deps Deps, topN int) *StatsPoller {
	if topN <= 0 {
		topN = 5
	}
	return &StatsPoller{
		deps: deps.withDefaults(),
		topN: topN,
		view: StatsView{Chart: ChartData{Label: chartLabel, Labels: []string{}, Data: []int64{}}},
	}
}

// SetTopN changes the ranked list length used by the next refresh.
func (p *StatsPoller) SetTopN(n int) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	p.topN = n
	p.mu.Unlock()
}

// Refresh fetches /api/command_stats and replaces the chart and list.
func (p *StatsPoller) Refresh(ctx context.Context) {
	seq := p.deps.Seq.Next(ComponentStats)
	stats, err := p.deps.API.GetCommandStats(ctx)

	p.mu.Lock()
	if !p.deps.Seq.Current(ComponentStats, seq) {
		p.mu.Unlock()
		return
	}
	now := p.deps.Clock.Now()

	if err != nil {
		p.deps.Logger.Warn("failed to fetch command stats", zap.Error(err))
		p.view.Chart.Labels = p.view.Chart.Labels[:0]
		p.view.Chart.Data = p.view.Chart.Data[:0]
		p.view.Top = nil
		p.view.Empty = false
		p.view.Error = "Failed to load command stats: " + botapi.Message(err)
		p.view.UpdatedAt = now
		p.mu.Unlock()
		p.deps.Sink.Changed(ComponentStats)
		return
	}

	p.view = buildStatsView(stats, p.topN, p.view.Chart)
	p.view.UpdatedAt = now
	p.mu.Unlock()

	p.deps.Sink.Changed(ComponentStats)
}

// buildStatsView reuses the backing arrays of prev for the chart dataset.
func buildStatsView(stats *botapi.CommandStats, topN int, prev ChartData) StatsView {
	v := StatsView{
		Chart: ChartData{
			Label:  chartLabel,
			Labels: prev.Labels[:0],
			Data:   prev.Data[:0],
		},
	}

	var sum int64
	for _, s := range stats.Stats {
		v.Chart.Labels = append(v.Chart.Labels, s.CommandName)
		v.Chart.Data = append(v.Chart.Data, s.UsageCount)
		sum += s.UsageCount
	}

	if stats.TotalToday.Valid {
		v.Total = stats.TotalToday.Value
		v.TotalSource = "server"
	} else {
		v.Total = sum
		v.TotalSource = "sum"
	}

	v.Top = RankCommands(stats.Stats, topN)
	v.Empty = len(stats.Stats) == 0
	return v
}

// RankCommands orders stats by usage, highest first, and keeps the first n.
// Equal counts keep their backend order.
func RankCommands(stats []botapi.CommandStat, n int) []RankedCommand {
	sorted := append([]botapi.CommandStat(nil), stats...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UsageCount > sorted[j].UsageCount
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}

	out := make([]RankedCommand, len(sorted))
	for i, s := range sorted {
		out[i] = RankedCommand{Rank: i + 1, Name: s.CommandName, Count: s.UsageCount}
	}
	return out
}

// View returns a copy of the current stats view.
func (p *StatsPoller) View() StatsView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v := p.view
	v.Chart.Labels = append([]string{}, v.Chart.Labels...)
	v.Chart.Data = append([]int64{}, v.Chart.Data...)
	v.Top = append([]RankedCommand(nil), v.Top...)
	return v
}
