package config

import (
	"sync"
	"time"
)

// ConfigObserver is implemented by components that react to config changes.
type ConfigObserver interface {
	OnConfigUpdate(cfg *Config)
}

// ObserverFunc adapts a plain function to ConfigObserver. Func values are not
// comparable, so an ObserverFunc cannot be passed to RemoveObserver.
type ObserverFunc func(cfg *Config)

// OnConfigUpdate calls f(cfg).
func (f ObserverFunc) OnConfigUpdate(cfg *Config) { f(cfg) }

// LiveConfig is a thread-safe holder for the running Config.
// Settings changes from the dashboard go through Update and fan out to observers.
type LiveConfig struct {
	mu          sync.RWMutex
	config      *Config
	lastUpdated time.Time
	revision    uint64

	obsMu     sync.RWMutex
	observers []ConfigObserver
}

// NewLiveConfig creates a new LiveConfig with the given initial config.
func NewLiveConfig(initial *Config) *LiveConfig {
	if initial == nil {
		initial = Defaults()
	}
	return &LiveConfig{
		config:      initial.Clone(),
		lastUpdated: time.Now(),
	}
}

// Get returns a copy of the current config.
func (lc *LiveConfig) Get() *Config {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return lc.config.Clone()
}

// Update validates newConfig, swaps it in and notifies observers.
func (lc *LiveConfig) Update(newConfig *Config) error {
	if newConfig == nil {
		return nil
	}

	if result := newConfig.Validate(); !result.Valid {
		return &ConfigValidationError{Errors: result.Errors}
	}

	cloned := newConfig.Clone()

	lc.mu.Lock()
	lc.config = cloned
	lc.lastUpdated = time.Now()
	lc.revision++
	lc.mu.Unlock()

	// Observers run outside the lock; they may call Get.
	lc.notifyObservers(cloned)
	return nil
}

// UpdatePartial applies updateFn to a copy of the current config and stores
// the result through Update.
func (lc *LiveConfig) UpdatePartial(updateFn func(*Config)) error {
	next := lc.Get()
	updateFn(next)
	return lc.Update(next)
}

// AddObserver registers an observer.
func (lc *LiveConfig) AddObserver(obs ConfigObserver) {
	if obs == nil {
		return
	}
	lc.obsMu.Lock()
	defer lc.obsMu.Unlock()
	lc.observers = append(lc.observers, obs)
}

// RemoveObserver unregisters an observer.
func (lc *LiveConfig) RemoveObserver(obs ConfigObserver) {
	if obs == nil {
		return
	}
	lc.obsMu.Lock()
	defer lc.obsMu.Unlock()
	for i, o := range lc.observers {
		if o == obs {
			lc.observers = append(lc.observers[:i], lc.observers[i+1:]...)
			return
		}
	}
}

func (lc *LiveConfig) notifyObservers(cfg *Config) {
	lc.obsMu.RLock()
	observers := make([]ConfigObserver, len(lc.observers))
	copy(observers, lc.observers)
	lc.obsMu.RUnlock()

	for _, obs := range observers {
		obs.OnConfigUpdate(cfg.Clone())
	}
}

// LastUpdated returns when the config was last replaced.
func (lc *LiveConfig) LastUpdated() time.Time {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return lc.lastUpdated
}

// Revision counts successful updates since construction.
func (lc *LiveConfig) Revision() uint64 {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return lc.revision
}

// ConfigValidationError is returned when config validation fails.
type ConfigValidationError struct {
	Errors []ValidationError
}

func (e *ConfigValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "config validation failed"
	}
	return "config validation failed: " + e.Errors[0].Field + ": " + e.Errors[0].Message
}
