package buttons

import (
	"sync"

	"thermo-service/internal/types"
)

// State tracks the three front-panel buttons as two bitsets: the level
// of each button and a change flag that is set on every edge and
// cleared when consumed. Edge notifications and consumers may run on
// different goroutines, hence the lock.
type State struct {
	mu     sync.Mutex
	status uint8
	diff   uint8
}

func bit(b types.Button) uint8 {
	switch b {
	case types.Button1:
		return 0x01
	case types.Button2:
		return 0x02
	case types.Button3:
		return 0x04
	}
	return 0
}

// HandleEdge records one debounced edge from the GPIO layer.
func (s *State) HandleEdge(b types.Button, pressed bool) {
	m := bit(b)
	if m == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if pressed {
		s.status |= m
	} else {
		s.status &^= m
	}
	s.diff |= m
}

// Pressed reports the current level of a button.
func (s *State) Pressed(b types.Button) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status&bit(b) != 0
}

// ConsumeChanged reports whether a button changed state since the last
// call, clearing the flag. Each edge is observed exactly once.
func (s *State) ConsumeChanged(b types.Button) bool {
	m := bit(b)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.diff&m != 0 {
		s.diff &^= m
		return true
	}
	return false
}

// NextEvent consumes the lowest-numbered pending change and returns the
// button and its new level. ok is false when no change is pending.
// Button 1 outranks 2 outranks 3, matching the order the interrupt
// handler of the stock firmware polled them in.
func (s *State) NextEvent() (b types.Button, pressed bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, btn := range []types.Button{types.Button1, types.Button2, types.Button3} {
		m := bit(btn)
		if s.diff&m != 0 {
			s.diff &^= m
			return btn, s.status&m != 0, true
		}
	}
	return 0, false, false
}
