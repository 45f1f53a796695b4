package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RefreshFunc performs one fetch-and-apply cycle of a component.
type RefreshFunc func(ctx context.Context)

// Tab names accepted by StartFor.
const (
	TabDashboard     = "dashboard"
	TabLogs          = "logs"
	TabConfig        = "config"
	TabGuilds        = "guilds"
	TabReactionRoles = "reaction_roles"
	TabAll           = "all"
)

// TabPlan lists the pollers a tab keeps running and the components it
// fetches once on activation.
type TabPlan struct {
	Periodic []string
	Once     []string
}

// DefaultTabs maps every dashboard tab to its pollers.
func DefaultTabs() map[string]TabPlan {
	return map[string]TabPlan{
		TabDashboard:     {Periodic: []string{ComponentStatus, ComponentStats}},
		TabLogs:          {Periodic: []string{ComponentLogs}},
		TabConfig:        {Once: []string{ComponentConfig}},
		TabGuilds:        {Periodic: []string{ComponentGuilds}},
		TabReactionRoles: {Periodic: []string{ComponentReactionRoles}},
		TabAll: {
			Periodic: []string{ComponentStatus, ComponentStats, ComponentLogs, ComponentGuilds, ComponentReactionRoles},
			Once:     []string{ComponentConfig},
		},
	}
}

var ErrSchedulerNotStarted = errors.New("scheduler not started")

type poller struct {
	name     string
	interval time.Duration
	refresh  RefreshFunc
}

type pollerRun struct {
	stop  chan struct{}
	reset chan time.Duration
}

// Scheduler is the poller registry. Each running poller is a goroutine that
// fetches immediately and then on every tick. Stopping a poller stops its
// ticker; a request already issued runs to completion.
type Scheduler struct {
	logger *zap.Logger

	mu      sync.Mutex
	base    context.Context
	tabs    map[string]TabPlan
	pollers map[string]*poller
	running map[string]*pollerRun
	tab     string
}

func NewScheduler(logger *zap.Logger, tabs map[string]TabPlan) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tabs == nil {
		tabs = DefaultTabs()
	}
	return &Scheduler{
		logger:  logger,
		tabs:    tabs,
		pollers: make(map[string]*poller),
		running: make(map[string]*pollerRun),
	}
}

// Register adds a component. An interval of zero registers a component that
// is only fetched on tab activation or by Refresh.
func (s *Scheduler) Register(name string, interval time.Duration, fn RefreshFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollers[name] = &poller{name: name, interval: interval, refresh: fn}
}

// Start binds the scheduler to ctx. Fetches issued by pollers use ctx, so
// they end only when ctx does.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()
}

// StartFor stops every running poller and starts the pollers of tab.
func (s *Scheduler) StartFor(tab string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.base == nil {
		return ErrSchedulerNotStarted
	}
	plan, ok := s.tabs[tab]
	if !ok {
		return fmt.Errorf("unknown tab %q", tab)
	}

	s.stopAllLocked()
	s.tab = tab

	for _, name := range plan.Periodic {
		p, ok := s.pollers[name]
		if !ok || p.interval <= 0 {
			s.logger.Warn("tab names an unregistered poller", zap.String("tab", tab), zap.String("poller", name))
			continue
		}
		run := &pollerRun{stop: make(chan struct{}), reset: make(chan time.Duration, 1)}
		s.running[name] = run
		go s.loop(s.base, p, p.interval, run)
	}
	for _, name := range plan.Once {
		p, ok := s.pollers[name]
		if !ok {
			continue
		}
		go p.refresh(s.base)
	}

	s.logger.Debug("pollers started", zap.String("tab", tab), zap.Strings("pollers", plan.Periodic))
	return nil
}

func (s *Scheduler) loop(ctx context.Context, p *poller, interval time.Duration, run *pollerRun) {
	p.refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-run.stop:
			return
		case d := <-run.reset:
			ticker.Reset(d)
		case <-ticker.C:
			select {
			case <-run.stop:
				return
			default:
			}
			p.refresh(ctx)
		}
	}
}

// StopAll stops every running poller.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAllLocked()
}

func (s *Scheduler) stopAllLocked() {
	for name, run := range s.running {
		close(run.stop)
		delete(s.running, name)
	}
}

// SetInterval changes the interval of a poller, re-arming it when running.
func (s *Scheduler) SetInterval(name string, d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pollers[name]
	if !ok || p.interval == d {
		return
	}
	p.interval = d
	if run, ok := s.running[name]; ok {
		// Keep only the newest pending interval.
		select {
		case <-run.reset:
		default:
		}
		run.reset <- d
	}
}

// Refresh runs the named refresh functions in order in the caller's goroutine.
func (s *Scheduler) Refresh(ctx context.Context, names ...string) {
	for _, name := range names {
		s.mu.Lock()
		p, ok := s.pollers[name]
		s.mu.Unlock()
		if !ok {
			s.logger.Debug("refresh of unregistered component", zap.String("component", name))
			continue
		}
		p.refresh(ctx)
	}
}

// Running returns the names of the running pollers, sorted.
func (s *Scheduler) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.running))
	for name := range s.running {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tab returns the tab of the last successful StartFor.
func (s *Scheduler) Tab() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab
}

// Interval returns the configured interval of a poller.
func (s *Scheduler) Interval(name string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pollers[name]; ok {
		return p.interval
	}
	return 0
}
