package nav

import (
	"fmt"
)

// Stage indexes an ordered sub-task phase within one episode
type Stage int

// StageTransition moves a StageMachine from one stage to the next.
// When is evaluated once per control step while its source stage is
// current. Do, if non-nil, is a one-shot side effect (e.g. forming a
// physical constraint) performed exactly once, at the moment the
// transition fires.
type StageTransition struct {
	When func() (bool, error)
	Do   func() error
}

// StageMachine tracks the current and previous sub-stage of a
// multi-stage task. Stages advance strictly in order: transition i
// moves from stage i to stage i+1, stages are never revisited and
// never skipped.
type StageMachine struct {
	names       []string
	transitions []StageTransition
	current     Stage
	previous    Stage
}

// NewStageMachine constructs a stage machine over an ordered list of
// named stages. Exactly one transition is required between each pair
// of consecutive stages.
func NewStageMachine(names []string,
	transitions []StageTransition) (*StageMachine, error) {
	if len(names) < 2 {
		return nil, fmt.Errorf("newStageMachine: need at least two " +
			"stages")
	}
	if len(transitions) != len(names)-1 {
		return nil, fmt.Errorf("newStageMachine: %v stages require %v "+
			"transitions, got %v", len(names), len(names)-1,
			len(transitions))
	}
	for i, tr := range transitions {
		if tr.When == nil {
			return nil, fmt.Errorf("newStageMachine: transition %v has no "+
				"predicate", i)
		}
	}

	return &StageMachine{names: names, transitions: transitions}, nil
}

// Current returns the current stage
func (s *StageMachine) Current() Stage {
	return s.current
}

// Previous returns the stage that was current before the most recent
// Check
func (s *StageMachine) Previous() Stage {
	return s.previous
}

// Name returns the name of a stage
func (s *StageMachine) Name(stage Stage) string {
	return s.names[stage]
}

// Check evaluates the current stage's transition predicate, advancing
// to the next stage and performing the transition's one-shot side
// effect if the predicate holds. Check returns whether a transition
// fired this step.
func (s *StageMachine) Check() (bool, error) {
	s.previous = s.current
	if int(s.current) >= len(s.transitions) {
		return false, nil
	}

	tr := s.transitions[s.current]
	fire, err := tr.When()
	if err != nil {
		return false, fmt.Errorf("check: stage %v predicate: %v",
			s.names[s.current], err)
	}
	if !fire {
		return false, nil
	}

	if tr.Do != nil {
		if err := tr.Do(); err != nil {
			return false, fmt.Errorf("check: stage %v side effect: %v",
				s.names[s.current], err)
		}
	}
	s.current++
	return true, nil
}

// Reset returns the machine to its start stage. Undoing one-shot side
// effects is the owning task's responsibility.
func (s *StageMachine) Reset() {
	s.current = 0
	s.previous = 0
}
