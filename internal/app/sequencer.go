package app

import "sync"

// Sequencer issues a monotonically increasing request number per endpoint.
// A result may be applied only while its number is still the latest issued
// for that endpoint.
type Sequencer struct {
	mu   sync.Mutex
	last map[string]uint64
}

func NewSequencer() *Sequencer {
	return &Sequencer{last: make(map[string]uint64)}
}

// Next issues the next number for endpoint.
func (s *Sequencer) Next(endpoint string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[endpoint]++
	return s.last[endpoint]
}

// Current reports whether seq is the latest number issued for endpoint.
func (s *Sequencer) Current(endpoint string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[endpoint] == seq
}
