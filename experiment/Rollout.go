// Package experiment rolls out policies in navigation environments
// and tracks the resulting data
package experiment

import (
	"fmt"

	env "github.com/samuelfneumann/gonav/environment"
	"github.com/samuelfneumann/gonav/experiment/trackers"
	ts "github.com/samuelfneumann/gonav/timestep"
	"github.com/samuelfneumann/gonav/utils/progressbar"
)

// Rollout runs a policy in an environment for a fixed number of
// timesteps, tracking data with its registered trackers
type Rollout struct {
	env.Environment
	Policy
	maxSteps     uint
	currentSteps uint
	trackers     []trackers.Tracker
	progress     *progressbar.Bar
}

// NewRollout creates and returns a new rollout of a policy in an
// environment. The steps parameter determines how many timesteps the
// rollout is run for, and the t parameter lists the trackers which
// record data along the way.
func NewRollout(e env.Environment, p Policy, steps uint,
	t ...trackers.Tracker) *Rollout {
	return &Rollout{
		Environment: e,
		Policy:      p,
		maxSteps:    steps,
		trackers:    t,
		progress:    progressbar.New(50, int(steps)),
	}
}

// Register registers a tracker with the rollout so that data generated
// during the rollout is recorded
func (r *Rollout) Register(t trackers.Tracker) {
	r.trackers = append(r.trackers, t)
}

// RunEpisode runs a single episode, returning whether the rollout's
// timestep limit has been reached
func (r *Rollout) RunEpisode() (bool, error) {
	step, err := r.Environment.Reset()
	if err != nil {
		return false, fmt.Errorf("runEpisode: %v", err)
	}
	r.track(step)

	for !step.Last() && r.currentSteps < r.maxSteps {
		r.currentSteps++
		r.progress.Increment(1)

		action := r.SelectAction(step)
		step, _, err = r.Environment.Step(action)
		if err != nil {
			return false, fmt.Errorf("runEpisode: %v", err)
		}

		r.track(step)
	}

	return r.currentSteps >= r.maxSteps, nil
}

// Run runs the entire rollout for all timesteps
func (r *Rollout) Run() error {
	ended := false
	var err error

	for !ended {
		ended, err = r.RunEpisode()
		if err != nil {
			return fmt.Errorf("run: %v", err)
		}
		r.progress.Display()
	}
	fmt.Println()
	return nil
}

// Save saves all the data cached by the trackers to disk
func (r *Rollout) Save() error {
	for _, tracker := range r.trackers {
		if err := tracker.Save(); err != nil {
			return fmt.Errorf("save: %v", err)
		}
	}
	return nil
}

// track caches the current timestep's data in each tracker
func (r *Rollout) track(step ts.TimeStep) {
	for _, tracker := range r.trackers {
		tracker.Track(step)
	}
}
