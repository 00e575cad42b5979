package domain

import "testing"

func TestStateTransitions(t *testing.T) {
	allowed := []struct{ from, to State }{
		{StateUnscheduled, StateGenerating},
		{StateGenerating, StateSelfValidating},
		{StateGenerating, StateRegenerateRetry},
		{StateGenerating, StateGenerationFailed},
		{StateSelfValidating, StateCrossValidating},
		{StateSelfValidating, StateRegenerateRetry},
		{StateSelfValidating, StateGenerationFailed},
		{StateRegenerateRetry, StateGenerating},
		{StateRegenerateRetry, StateGenerationFailed},
		{StateCrossValidating, StatePublished},
		{StatePublished, StateWindowOpen},
		{StateWindowOpen, StateClosed},
		{StateClosed, StateEvaluated},
	}
	for _, tc := range allowed {
		if !IsStateTransitionAllowed(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to State }{
		{StateUnscheduled, StatePublished},
		{StatePublished, StateGenerating},
		{StateEvaluated, StateClosed},
		{StateGenerationFailed, StateGenerating},
		{StateClosed, StateWindowOpen},
		{StateWindowOpen, StateEvaluated},
	}
	for _, tc := range denied {
		if IsStateTransitionAllowed(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	if !StateEvaluated.IsTerminal() {
		t.Fatal("evaluated should be terminal")
	}
	if !StateGenerationFailed.IsTerminal() {
		t.Fatal("generation_failed should be terminal")
	}
	if StateWindowOpen.IsTerminal() {
		t.Fatal("window_open should not be terminal")
	}
}
