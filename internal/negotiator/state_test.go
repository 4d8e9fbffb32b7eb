package negotiator

import "testing"

func TestTrackerMonotonicTransitions(t *testing.T) {
	tr := newTracker()
	for _, s := range []State{Connected, Negotiated, RequestSent, ResponseRead, Closed} {
		if err := tr.transition(s); err != nil {
			t.Fatalf("transition to %v: %v", s, err)
		}
	}
}

func TestTrackerRejectsBackwardTransition(t *testing.T) {
	tr := newTracker()
	tr.transition(Connected)
	tr.transition(Negotiated)
	if err := tr.transition(Connected); err == nil {
		t.Error("expected error transitioning backwards")
	}
}

func TestTrackerTerminalFailureIsSticky(t *testing.T) {
	tr := newTracker()
	tr.transition(Connected)
	tr.transition(Timeout)
	if err := tr.transition(Negotiated); err == nil {
		t.Error("expected error transitioning out of a terminal failure state")
	}
}

func TestTrackerFailureReachableFromAnyState(t *testing.T) {
	tr := newTracker()
	tr.transition(Connected)
	if err := tr.transition(DialFailed); err != nil {
		t.Errorf("failure states should be reachable from any non-terminal state: %v", err)
	}
}
