package app

import (
	"sort"
	"sync"
	"time"
)

// ToastKind selects the styling of a toast.
type ToastKind string

const (
	ToastInfo    ToastKind = "info"
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Toast is the transient message shown next to a widget.
type Toast struct {
	Target  string    `json:"target"`
	Text    string    `json:"text"`
	Kind    ToastKind `json:"kind,omitempty"`
	Visible bool      `json:"visible"`
	ShownAt time.Time `json:"shown_at"`
}

type toastSlot struct {
	toast Toast
	gen   uint64
	timer Timer
}

// Toasts holds one message slot per target. A shown message stays visible
// for the visible duration, loses its kind, and its text is cleared after
// the clear delay. Showing a new message on a target cancels the pending
// timers of the previous one.
type Toasts struct {
	mu         sync.Mutex
	clock      Clock
	sink       Sink
	visible    time.Duration
	clearDelay time.Duration
	slots      map[string]*toastSlot
}

func NewToasts(clock Clock, sink Sink, visible, clearDelay time.Duration) *Toasts {
	if clock == nil {
		clock = RealClock()
	}
	if sink == nil {
		sink = nopSink{}
	}
	return &Toasts{
		clock:      clock,
		sink:       sink,
		visible:    visible,
		clearDelay: clearDelay,
		slots:      make(map[string]*toastSlot),
	}
}

// SetTimings changes the durations used by later Show calls.
func (t *Toasts) SetTimings(visible, clearDelay time.Duration) {
	t.mu.Lock()
	t.visible = visible
	t.clearDelay = clearDelay
	t.mu.Unlock()
}

// Show displays text on target.
func (t *Toasts) Show(target, text string, kind ToastKind) {
	t.mu.Lock()
	slot, ok := t.slots[target]
	if !ok {
		slot = &toastSlot{}
		t.slots[target] = slot
	}
	if slot.timer != nil {
		slot.timer.Stop()
	}
	slot.gen++
	gen := slot.gen
	slot.toast = Toast{
		Target:  target,
		Text:    text,
		Kind:    kind,
		Visible: true,
		ShownAt: t.clock.Now(),
	}
	slot.timer = t.clock.AfterFunc(t.visible, func() { t.hide(target, gen) })
	t.mu.Unlock()

	t.sink.Changed(ComponentToasts)
}

func (t *Toasts) hide(target string, gen uint64) {
	t.mu.Lock()
	slot, ok := t.slots[target]
	if !ok || slot.gen != gen {
		t.mu.Unlock()
		return
	}
	slot.toast.Visible = false
	slot.toast.Kind = ""
	slot.timer = t.clock.AfterFunc(t.clearDelay, func() { t.clear(target, gen) })
	t.mu.Unlock()

	t.sink.Changed(ComponentToasts)
}

func (t *Toasts) clear(target string, gen uint64) {
	t.mu.Lock()
	slot, ok := t.slots[target]
	if !ok || slot.gen != gen {
		t.mu.Unlock()
		return
	}
	slot.toast.Text = ""
	slot.timer = nil
	t.mu.Unlock()

	t.sink.Changed(ComponentToasts)
}

// Get returns the toast of target.
func (t *Toasts) Get(target string) Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	if slot, ok := t.slots[target]; ok {
		return slot.toast
	}
	return Toast{Target: target}
}

// Active returns every toast that still has text, ordered by target.
func (t *Toasts) Active() []Toast {
	t.mu.Lock()
	out := make([]Toast, 0, len(t.slots))
	for _, slot := range t.slots {
		if slot.toast.Text != "" {
			out = append(out, slot.toast)
		}
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

// Stop cancels every pending timer.
func (t *Toasts) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, slot := range t.slots {
		if slot.timer != nil {
			slot.timer.Stop()
			slot.timer = nil
		}
	}
}
