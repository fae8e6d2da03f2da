package trackers

import (
	"encoding/gob"
	"fmt"
	"os"

	ts "github.com/samuelfneumann/gonav/timestep"
)

// SuccessRate tracks and saves the success flag of each finished
// episode of an experiment
type SuccessRate struct {
	successes []bool
	filename  string
}

// NewSuccessRate creates and returns a new *SuccessRate Tracker
func NewSuccessRate(filename string) Tracker {
	return &SuccessRate{filename: filename}
}

// Track records the success flag of every timestep carrying one
func (s *SuccessRate) Track(step ts.TimeStep) {
	if success, ok := step.Info[ts.InfoSuccess].(bool); ok {
		s.successes = append(s.successes, success)
	}
}

// Save saves the data tracked by the SuccessRate Tracker to disk
func (s *SuccessRate) Save() error {
	file, err := os.Create(s.filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %v", err)
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err = en.Encode(s.successes); err != nil {
		return fmt.Errorf("save: could not encode success data: %v", err)
	}
	return nil
}
