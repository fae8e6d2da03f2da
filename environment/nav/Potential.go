package nav

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/gonav/utils/floatutils"
)

// MinInitialPotential is the smallest baseline potential the tracker
// accepts. A baseline below this bound means the goal coincides with
// the starting position, which callers must treat as immediate success
// instead of tracking progress toward it.
const MinInitialPotential = 1e-9

// PotentialTracker maintains the scalar potential used for
// potential-based reward shaping. The tracker persists only the
// baseline potential of the current stage and the previous step's
// normalized potential; both are overwritten on every episode reset
// and stage transition.
type PotentialTracker struct {
	initialPotential    float64
	normalizedPotential float64
}

// NewPotentialTracker returns a tracker that must be initialized with
// Init before its first Update
func NewPotentialTracker() *PotentialTracker {
	return &PotentialTracker{normalizedPotential: 1.0}
}

// Init sets the baseline potential and resets the normalized potential
// to 1. It returns an error for non-finite or degenerate baselines.
func (p *PotentialTracker) Init(value float64) error {
	if !floatutils.Finite(value) {
		return fmt.Errorf("init: non-finite potential %v", value)
	}
	if math.Abs(value) < MinInitialPotential {
		return fmt.Errorf("init: degenerate potential %v: goal coincides "+
			"with the position of interest", value)
	}

	p.initialPotential = value
	p.normalizedPotential = 1.0
	return nil
}

// Update records a new potential value and returns the decrease of the
// normalized potential since the previous step. A positive delta means
// progress toward the goal.
func (p *PotentialTracker) Update(value float64) (float64, error) {
	if math.Abs(p.initialPotential) < MinInitialPotential {
		return 0, fmt.Errorf("update: tracker not initialized")
	}

	newNormalized := value / p.initialPotential
	if !floatutils.Finite(newNormalized) {
		return 0, fmt.Errorf("update: non-finite normalized potential "+
			"%v / %v", value, p.initialPotential)
	}

	delta := p.normalizedPotential - newNormalized
	p.normalizedPotential = newNormalized
	return delta, nil
}

// Normalized returns the previous step's normalized potential
func (p *PotentialTracker) Normalized() float64 {
	return p.normalizedPotential
}

// Initial returns the baseline potential of the current stage
func (p *PotentialTracker) Initial() float64 {
	return p.initialPotential
}
