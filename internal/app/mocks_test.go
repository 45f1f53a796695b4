package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"botdash/clients/botapi"
	"botdash/clients/notifier"
)

// mockBotAPI is a configurable BotAPI. Unset funcs succeed with empty data.
type mockBotAPI struct {
	mu    sync.Mutex
	calls map[string]int

	botInfo            func(ctx context.Context) (*botapi.BotInfo, error)
	commandStats       func(ctx context.Context) (*botapi.CommandStats, error)
	logs               func(ctx context.Context, since time.Time) ([]botapi.RawLog, error)
	config             func(ctx context.Context) ([]botapi.ConfigItem, error)
	guilds             func(ctx context.Context) ([]botapi.Guild, error)
	reactionRoles      func(ctx context.Context) ([]botapi.ReactionRole, error)
	addReactionRole    func(ctx context.Context, req botapi.AddReactionRoleRequest) (*botapi.ActionResult, error)
	removeReactionRole func(ctx context.Context, req botapi.RemoveReactionRoleRequest) (*botapi.ActionResult, error)
	control            func(ctx context.Context, action botapi.ControlAction) (*botapi.ActionResult, error)
	announcement       func(ctx context.Context, channelID, message string) (*botapi.ActionResult, error)
	simulateLog        func(ctx context.Context, level, message string) (*botapi.ActionResult, error)
}

var _ BotAPI = (*mockBotAPI)(nil)

func newMockBotAPI() *mockBotAPI {
	return &mockBotAPI{calls: make(map[string]int)}
}

func (m *mockBotAPI) record(name string) {
	m.mu.Lock()
	m.calls[name]++
	m.mu.Unlock()
}

// Calls returns how many times the named method was called.
func (m *mockBotAPI) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func okResult(msg string) *botapi.ActionResult {
	return &botapi.ActionResult{Success: true, Message: msg}
}

func (m *mockBotAPI) GetBotInfo(ctx context.Context) (*botapi.BotInfo, error) {
	m.record("GetBotInfo")
	if m.botInfo != nil {
		return m.botInfo(ctx)
	}
	return &botapi.BotInfo{Status: "Online"}, nil
}

func (m *mockBotAPI) GetCommandStats(ctx context.Context) (*botapi.CommandStats, error) {
	m.record("GetCommandStats")
	if m.commandStats != nil {
		return m.commandStats(ctx)
	}
	return &botapi.CommandStats{}, nil
}

func (m *mockBotAPI) GetLogs(ctx context.Context, since time.Time) ([]botapi.RawLog, error) {
	m.record("GetLogs")
	if m.logs != nil {
		return m.logs(ctx, since)
	}
	return nil, nil
}

func (m *mockBotAPI) GetConfig(ctx context.Context) ([]botapi.ConfigItem, error) {
	m.record("GetConfig")
	if m.config != nil {
		return m.config(ctx)
	}
	return nil, nil
}

func (m *mockBotAPI) GetGuilds(ctx context.Context) ([]botapi.Guild, error) {
	m.record("GetGuilds")
	if m.guilds != nil {
		return m.guilds(ctx)
	}
	return nil, nil
}

func (m *mockBotAPI) GetReactionRoles(ctx context.Context) ([]botapi.ReactionRole, error) {
	m.record("GetReactionRoles")
	if m.reactionRoles != nil {
		return m.reactionRoles(ctx)
	}
	return nil, nil
}

func (m *mockBotAPI) AddReactionRole(ctx context.Context, req botapi.AddReactionRoleRequest) (*botapi.ActionResult, error) {
	m.record("AddReactionRole")
	if m.addReactionRole != nil {
		return m.addReactionRole(ctx, req)
	}
	return okResult(""), nil
}

func (m *mockBotAPI) RemoveReactionRole(ctx context.Context, req botapi.RemoveReactionRoleRequest) (*botapi.ActionResult, error) {
	m.record("RemoveReactionRole")
	if m.removeReactionRole != nil {
		return m.removeReactionRole(ctx, req)
	}
	return okResult(""), nil
}

func (m *mockBotAPI) ControlBot(ctx context.Context, action botapi.ControlAction) (*botapi.ActionResult, error) {
	m.record("ControlBot")
	if m.control != nil {
		return m.control(ctx, action)
	}
	return okResult(""), nil
}

func (m *mockBotAPI) SendAnnouncement(ctx context.Context, channelID, message string) (*botapi.ActionResult, error) {
	m.record("SendAnnouncement")
	if m.announcement != nil {
		return m.announcement(ctx, channelID, message)
	}
	return okResult(""), nil
}

func (m *mockBotAPI) SimulateLog(ctx context.Context, level, message string) (*botapi.ActionResult, error) {
	m.record("SimulateLog")
	if m.simulateLog != nil {
		return m.simulateLog(ctx, level, message)
	}
	return okResult(""), nil
}

var (
	errTransport = &botapi.TransportError{Op: "GET /api/bot_info", Err: errors.New("connection refused")}
	errAPI       = &botapi.APIError{StatusCode: 500, Message: "boom"}
)

// fakeClock fires AfterFunc callbacks only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and runs every timer that came due, including
// timers registered by the callbacks themselves.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()

		next.f()
	}
}

// Pending returns the number of timers that have neither fired nor stopped.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// recordingSink remembers every change notification.
type recordingSink struct {
	mu      sync.Mutex
	changes []string
}

func (s *recordingSink) Changed(component string) {
	s.mu.Lock()
	s.changes = append(s.changes, component)
	s.mu.Unlock()
}

func (s *recordingSink) Count(component string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.changes {
		if c == component {
			n++
		}
	}
	return n
}

// recordingNotifier captures audit events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notifier.AuditEvent
}

func (n *recordingNotifier) SendAuditEvent(event notifier.AuditEvent) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *recordingNotifier) Close() error { return nil }

func (n *recordingNotifier) Events() []notifier.AuditEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifier.AuditEvent(nil), n.events...)
}

// recordingRefresher records cascade refreshes instead of running them.
type recordingRefresher struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingRefresher) Refresh(_ context.Context, names ...string) {
	r.mu.Lock()
	r.names = append(r.names, names...)
	r.mu.Unlock()
}

func (r *recordingRefresher) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.names...)
	sort.Strings(out)
	return out
}

type testEnv struct {
	api    *mockBotAPI
	clock  *fakeClock
	sink   *recordingSink
	audit  *recordingNotifier
	toasts *Toasts
	deps   Deps
}

func newTestEnv() *testEnv {
	env := &testEnv{
		api:   newMockBotAPI(),
		clock: newFakeClock(),
		sink:  &recordingSink{},
		audit: &recordingNotifier{},
	}
	env.toasts = NewToasts(env.clock, env.sink, 3*time.Second, 300*time.Millisecond)
	env.deps = Deps{
		API:    env.api,
		Clock:  env.clock,
		Sink:   env.sink,
		Toasts: env.toasts,
		Seq:    NewSequencer(),
		Audit:  env.audit,
	}
	return env
}
