package app

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const subscriberBuffer = 64

// Update tells subscribers which component changed and the state revision
// after the change.
type Update struct {
	Component string `json:"component"`
	Revision  uint64 `json:"revision"`
}

// Broadcaster is the view sink of the dashboard server. Every change bumps
// the revision and is fanned out to subscribers; slow subscribers lose
// updates instead of blocking components.
type Broadcaster struct {
	logger *zap.Logger

	revision atomic.Uint64
	dropped  atomic.Int64

	mu          sync.RWMutex
	subscribers map[chan Update]struct{}
}

func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		logger:      logger,
		subscribers: make(map[chan Update]struct{}),
	}
}

// Changed implements Sink.
func (b *Broadcaster) Changed(component string) {
	u := Update{Component: component, Revision: b.revision.Add(1)}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- u:
		default:
			n := b.dropped.Add(1)
			b.logger.Debug("dropped update for slow subscriber",
				zap.String("component", component),
				zap.Int64("totalDropped", n),
			)
		}
	}
}

// Revision returns the number of changes published so far.
func (b *Broadcaster) Revision() uint64 {
	return b.revision.Load()
}

// Dropped returns how many updates were dropped for slow subscribers.
func (b *Broadcaster) Dropped() int64 {
	return b.dropped.Load()
}

// Subscribe returns a buffered channel of updates and a function that
// unsubscribes and closes it.
func (b *Broadcaster) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, subscriberBuffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of active subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
