package trackers

import (
	"encoding/gob"
	"fmt"
	"os"

	ts "github.com/samuelfneumann/gonav/timestep"
)

// EpisodeLength tracks and saves the number of timesteps in each
// finished episode of an experiment
type EpisodeLength struct {
	lengths  []int
	filename string
}

// NewEpisodeLength creates and returns a new *EpisodeLength Tracker
func NewEpisodeLength(filename string) Tracker {
	return &EpisodeLength{filename: filename}
}

// Track records the episode length whenever a timestep marks an
// episode boundary. Environments with automatic reset report the ended
// episode's length in the info metadata of the next episode's first
// timestep; both forms are tracked.
func (e *EpisodeLength) Track(step ts.TimeStep) {
	if length, ok := step.Info[ts.InfoEpisodeLength].(int); ok {
		e.lengths = append(e.lengths, length)
		return
	}

	if step.Last() {
		e.lengths = append(e.lengths, step.Number)
	}
}

// Save saves the data tracked by the EpisodeLength Tracker to disk
func (e *EpisodeLength) Save() error {
	file, err := os.Create(e.filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %v", err)
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err = en.Encode(e.lengths); err != nil {
		return fmt.Errorf("save: could not encode episode length "+
			"data: %v", err)
	}
	return nil
}
