package timestep

import "testing"

func TestStepTypePredicates(t *testing.T) {
	first := New(First, 0, 1, nil, 0)
	mid := New(Mid, 0, 1, nil, 1)
	last := New(Last, 0, 1, nil, 2)

	if !first.First() || first.Mid() || first.Last() {
		t.Error("expected a first step")
	}
	if first.End() != NotEnded {
		t.Errorf("expected NotEnded, got %v", first.End())
	}
	if !mid.Mid() || mid.First() || mid.Last() {
		t.Error("expected a mid step")
	}
	if !last.Last() || last.First() || last.Mid() {
		t.Error("expected a last step")
	}
}

func TestSetEnd(t *testing.T) {
	step := New(Mid, 0, 1, nil, 5)
	step.StepType = Last
	step.SetEnd(Timeout)

	if step.End() != Timeout {
		t.Errorf("expected Timeout, got %v", step.End())
	}
}

func TestSuccess(t *testing.T) {
	step := New(Last, 10, 0, nil, 7)
	if step.Success() {
		t.Error("expected no success without metadata")
	}

	step.SetInfo(InfoSuccess, false)
	if step.Success() {
		t.Error("expected no success when the flag is false")
	}

	step.SetInfo(InfoSuccess, true)
	step.SetInfo(InfoEpisodeLength, 7)
	if !step.Success() {
		t.Error("expected success")
	}
	if step.Info[InfoEpisodeLength].(int) != 7 {
		t.Errorf("expected episode length 7, got %v",
			step.Info[InfoEpisodeLength])
	}
}
