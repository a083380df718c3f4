package press

import "sync"

// Selection tracks the file the operator selected most recently. Passes
// started for an older selection are discarded when they complete.
type Selection struct {
	mu         sync.Mutex
	generation uint64
	current    Pass
	hasPass    bool
}

// Select records a new file selection and returns its generation. The
// previously committed pass is cleared.
func (s *Selection) Select() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.current = Pass{}
	s.hasPass = false
	return s.generation
}

// Commit stores pass if generation is still the latest selection and
// reports whether it was accepted.
func (s *Selection) Commit(generation uint64, pass Pass) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		return false
	}
	s.current = pass
	s.hasPass = true
	return true
}

// IsCurrent reports whether generation is the latest selection.
func (s *Selection) IsCurrent(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return generation == s.generation
}

// Current returns the last accepted pass for the latest selection.
func (s *Selection) Current() (Pass, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.hasPass
}
