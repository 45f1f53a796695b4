package logs

import (
	"strings"
	"sync"
	"time"

	"botdash/clients/botapi"
)

// State is the log viewer lifecycle state.
type State string

const (
	StateEmpty     State = "EMPTY"
	StateLoading   State = "LOADING"
	StatePopulated State = "POPULATED"
	StateCleared   State = "CLEARED"
)

// LevelAll disables the level filter.
const LevelAll = "all"

// Options configures a Pipeline.
type Options struct {
	DisplayLimit   int
	HoldLimit      int // held entries cap; defaults to twice DisplayLimit
	Incremental    bool
	Location       *time.Location
	Marker         string
	DownloadPrefix string
	Now            func() time.Time
}

func (o *Options) normalize() {
	if o.DisplayLimit <= 0 {
		o.DisplayLimit = 500
	}
	if o.HoldLimit <= 0 {
		o.HoldLimit = 2 * o.DisplayLimit
	}
	if o.HoldLimit < o.DisplayLimit {
		o.HoldLimit = o.DisplayLimit
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	o.Marker = strings.ToLower(strings.TrimSpace(o.Marker))
	if o.Marker == "" {
		o.Marker = "werkzeug"
	}
	if o.DownloadPrefix == "" {
		o.DownloadPrefix = "bot_logs"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Filter selects entries for display. Level and text conditions are ANDed,
// so applying them in either order gives the same result.
type Filter struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Matches reports whether e passes both conditions.
func (f Filter) Matches(e Entry) bool {
	lvl := strings.TrimSpace(f.Level)
	if lvl != "" && !strings.EqualFold(lvl, LevelAll) && !strings.EqualFold(lvl, e.Level) {
		return false
	}
	if f.Text == "" {
		return true
	}
	return containsFold(e.Timestamp, f.Text) ||
		containsFold(e.Level, f.Text) ||
		containsFold(e.Source, f.Text) ||
		containsFold(e.Message, f.Text)
}

func containsFold(hay, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(hay), strings.ToLower(needle))
}

// Ticket identifies one fetch. Results carrying a ticket issued before the
// last Clear are discarded.
type Ticket struct {
	Since time.Time
	epoch uint64
}

// Line is one rendered log line.
type Line struct {
	Entry
	Text  string `json:"text"`
	Class string `json:"class,omitempty"`
}

// View is a snapshot of the log viewer.
type View struct {
	State     State     `json:"state"`
	Lines     []Line    `json:"lines"`
	Error     string    `json:"error,omitempty"`
	Held      int       `json:"held"`
	Matched   int       `json:"matched"`
	Filter    Filter    `json:"filter"`
	ClearedAt time.Time `json:"cleared_at,omitzero"`
}

// Pipeline holds log entries fetched from the bot and derives the view.
// All methods are safe for concurrent use.
type Pipeline struct {
	mu sync.Mutex

	opts   Options
	parser *Parser

	entries []Entry

	// seen counts held entries per key plus the keys of trimmed entries,
	// which are remembered (oldest first in forgotten) for up to HoldLimit
	// trims so a backend that resends its tail does not re-add them.
	seen      map[entryKey]int
	forgotten []entryKey
	state     State
	settled   State // state to fall back to when a fetch fails
	clearedAt time.Time
	epoch     uint64
	filter    Filter
	lastErr   string
}

// NewPipeline creates an empty pipeline.
func NewPipeline(opts Options) *Pipeline {
	opts.normalize()
	return &Pipeline{
		opts:    opts,
		parser:  NewParser(opts.Marker),
		seen:    make(map[entryKey]int),
		state:   StateEmpty,
		settled: StateEmpty,
		filter:  Filter{Level: LevelAll},
	}
}

// Reconfigure applies new options. Held entries are kept.
func (p *Pipeline) Reconfigure(opts Options) {
	if opts.Now == nil {
		p.mu.Lock()
		opts.Now = p.opts.Now
		p.mu.Unlock()
	}
	opts.normalize()

	p.mu.Lock()
	defer p.mu.Unlock()
	if opts.Marker != p.opts.Marker {
		p.parser = NewParser(opts.Marker)
	}
	p.opts = opts
	p.trim()
}

// Begin marks a fetch as in flight and returns its ticket. In incremental
// mode after a Clear, Ticket.Since is the clear time.
func (p *Pipeline) Begin() Ticket {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateLoading {
		p.settled = p.state
	}
	p.state = StateLoading

	t := Ticket{epoch: p.epoch}
	if p.opts.Incremental && !p.clearedAt.IsZero() {
		// Zone-less backend timestamps are compared in the pipeline's location.
		t.Since = p.clearedAt.In(p.opts.Location)
	}
	return t
}

// Apply ingests the result of the fetch identified by t and returns how many
// entries were added. Stale tickets are ignored and report false.
func (p *Pipeline) Apply(t Ticket, records []botapi.RawLog) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t.epoch != p.epoch {
		return 0, false
	}

	p.lastErr = ""

	if !p.opts.Incremental {
		p.entries = p.entries[:0]
		p.seen = make(map[entryKey]int)
		p.forgotten = nil
		for _, r := range records {
			e := p.parser.ParseRecord(r)
			p.entries = append(p.entries, e)
			p.seen[e.key()]++
		}
		p.trim()
		p.state = StatePopulated
		p.settled = p.state
		return len(records), true
	}

	// An entry is new unless it matches one known before this batch, so
	// repeated lines within one fetch are all kept.
	added := 0
	batch := make(map[entryKey]struct{})
	for _, r := range records {
		e := p.parser.ParseRecord(r)
		if !p.clearedAt.IsZero() && !p.after(e, p.clearedAt) {
			continue
		}
		k := e.key()
		if _, inBatch := batch[k]; !inBatch && p.seen[k] > 0 {
			continue
		}
		batch[k] = struct{}{}
		p.seen[k]++
		p.entries = append(p.entries, e)
		added++
	}
	p.trim()

	if len(p.entries) > 0 || p.settled != StateCleared {
		p.state = StatePopulated
	} else {
		p.state = StateCleared
	}
	p.settled = p.state
	return added, true
}

// trim drops the oldest held entries past HoldLimit. Their keys stay known
// until HoldLimit later trims push them out.
func (p *Pipeline) trim() {
	excess := len(p.entries) - p.opts.HoldLimit
	if excess <= 0 {
		return
	}
	for _, e := range p.entries[:excess] {
		p.forgotten = append(p.forgotten, e.key())
	}
	p.entries = append([]Entry(nil), p.entries[excess:]...)

	if over := len(p.forgotten) - p.opts.HoldLimit; over > 0 {
		for _, k := range p.forgotten[:over] {
			if p.seen[k]--; p.seen[k] <= 0 {
				delete(p.seen, k)
			}
		}
		p.forgotten = append([]entryKey(nil), p.forgotten[over:]...)
	}
}

// after reports whether e's parsed timestamp is strictly after t.
// Unparseable timestamps never are.
func (p *Pipeline) after(e Entry, t time.Time) bool {
	ts, ok := ParseTimestamp(e.Timestamp, p.opts.Location)
	if !ok {
		return false
	}
	return ts.After(t)
}

// Fail records a fetch failure. Held entries are kept; the view shows err
// in place of the rendered lines until the next successful fetch.
func (p *Pipeline) Fail(t Ticket, message string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t.epoch != p.epoch {
		return false
	}
	if message == "" {
		message = "failed to fetch logs"
	}
	p.lastErr = message
	p.state = p.settled
	return true
}

// Clear drops every held entry. In incremental mode the current time is
// recorded and later fetches only keep entries newer than it.
func (p *Pipeline) Clear() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = nil
	p.seen = make(map[entryKey]int)
	p.forgotten = nil
	p.epoch++
	p.lastErr = ""
	p.state = StateCleared
	p.settled = StateCleared
	if p.opts.Incremental {
		p.clearedAt = p.opts.Now()
	}
	return p.clearedAt
}

// SetFilter replaces the display filter. An empty level means all.
func (p *Pipeline) SetFilter(f Filter) {
	if strings.TrimSpace(f.Level) == "" {
		f.Level = LevelAll
	}
	p.mu.Lock()
	p.filter = f
	p.mu.Unlock()
}

// Filter returns the active display filter.
func (p *Pipeline) Filter() Filter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filter
}

// State returns the lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Entries returns a copy of the held entries in held order.
func (p *Pipeline) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Entry(nil), p.entries...)
}

// View renders with the active filter.
func (p *Pipeline) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.render(p.filter)
}

// ViewWith renders with an explicit filter, leaving the active one untouched.
func (p *Pipeline) ViewWith(f Filter) View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.render(f)
}

func (p *Pipeline) render(f Filter) View {
	v := View{
		State:     p.state,
		Held:      len(p.entries),
		Filter:    f,
		ClearedAt: p.clearedAt,
	}
	if p.lastErr != "" {
		v.Error = p.lastErr
		v.Lines = []Line{}
		return v
	}

	matched := Select(p.entries, f, p.opts.Marker)
	v.Matched = len(matched)
	if len(matched) > p.opts.DisplayLimit {
		matched = matched[len(matched)-p.opts.DisplayLimit:]
	}

	v.Lines = make([]Line, len(matched))
	for i, e := range matched {
		v.Lines[i] = Line{Entry: e, Text: e.Line(), Class: e.Class()}
	}
	return v
}

// Select returns the entries that pass f, dropping server-log entries.
func Select(entries []Entry, f Filter, marker string) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if strings.EqualFold(e.Source, marker) {
			continue
		}
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Download returns the file name and content of a log download: one line per
// held entry, in held order. Line breaks inside an entry are escaped.
func (p *Pipeline) Download() (string, []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := DownloadName(p.opts.DownloadPrefix, p.opts.Now().In(p.opts.Location))

	var sb strings.Builder
	for _, e := range p.entries {
		sb.WriteString(downloadEscaper.Replace(e.Line()))
		sb.WriteByte('\n')
	}
	return name, []byte(sb.String())
}

var downloadEscaper = strings.NewReplacer("\r", `\r`, "\n", `\n`)

// DownloadName formats "<prefix>_<YYYY-MM-DD>.txt".
func DownloadName(prefix string, day time.Time) string {
	return prefix + "_" + day.Format("2006-01-02") + ".txt"
}
