package buttons

import (
	"testing"

	"thermo-service/internal/types"
)

func TestEdgeUpdatesLevel(t *testing.T) {
	var s State
	s.HandleEdge(types.Button2, true)
	if !s.Pressed(types.Button2) {
		t.Error("Button 2 should read pressed after push edge")
	}
	s.HandleEdge(types.Button2, false)
	if s.Pressed(types.Button2) {
		t.Error("Button 2 should read released after release edge")
	}
}

func TestConsumeChangedClearsFlag(t *testing.T) {
	var s State
	s.HandleEdge(types.Button1, true)
	if !s.ConsumeChanged(types.Button1) {
		t.Error("First consume after an edge should report a change")
	}
	if s.ConsumeChanged(types.Button1) {
		t.Error("Second consume without a new edge should report nothing")
	}
}

func TestNextEventOrder(t *testing.T) {
	var s State
	s.HandleEdge(types.Button3, true)
	s.HandleEdge(types.Button1, true)

	b, pressed, ok := s.NextEvent()
	if !ok || b != types.Button1 || !pressed {
		t.Errorf("First event = (%v, %v, %v), want button 1 pressed", b, pressed, ok)
	}
	b, pressed, ok = s.NextEvent()
	if !ok || b != types.Button3 || !pressed {
		t.Errorf("Second event = (%v, %v, %v), want button 3 pressed", b, pressed, ok)
	}
	if _, _, ok = s.NextEvent(); ok {
		t.Error("NextEvent should report no pending change after draining")
	}
}

func TestNextEventReportsRelease(t *testing.T) {
	var s State
	s.HandleEdge(types.Button2, true)
	s.NextEvent()
	s.HandleEdge(types.Button2, false)

	b, pressed, ok := s.NextEvent()
	if !ok || b != types.Button2 || pressed {
		t.Errorf("Event = (%v, %v, %v), want button 2 released", b, pressed, ok)
	}
}

func TestBounceCollapsesToLatestLevel(t *testing.T) {
	var s State
	s.HandleEdge(types.Button1, true)
	s.HandleEdge(types.Button1, false)
	s.HandleEdge(types.Button1, true)

	b, pressed, ok := s.NextEvent()
	if !ok || b != types.Button1 || !pressed {
		t.Errorf("Event = (%v, %v, %v), want button 1 at its latest level", b, pressed, ok)
	}
	if _, _, ok = s.NextEvent(); ok {
		t.Error("Collapsed bounce should leave no second event")
	}
}
