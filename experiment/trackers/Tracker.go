// Package trackers implements data trackers, which track and save
// data generated while rolling out policies in an environment
package trackers

import (
	ts "github.com/samuelfneumann/gonav/timestep"
)

// Tracker tracks data from an experiment and saves it to disk
type Tracker interface {
	// Track caches the data of a single timestep
	Track(step ts.TimeStep)

	// Save writes all cached data to disk
	Save() error
}
