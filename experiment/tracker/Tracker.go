// Package tracker implements Trackers, which record per-scenario
// episode outcomes during an experiment and save them after it has
// finished
package tracker

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Episode is the outcome of one scenario instance over one episode
type Episode struct {
	// Episode is the experiment episode the scenario ran in
	Episode int

	// Scenario is the id of the scenario config
	Scenario int

	Return    float64
	Cost      float64
	Length    int
	Collision bool
	OffRoad   bool
}

// Interface Tracker keeps track of experiment data and saves the data
// after the experiment has finished
type Tracker interface {
	Track(e Episode)
	Save() error
}

// saveGob encodes data to filename
func saveGob(filename string, data interface{}) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not open save file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(data); err != nil {
		return fmt.Errorf("could not encode data: %w", err)
	}
	return nil
}

// loadGob decodes the data stored in filename into data
func loadGob(filename string, data interface{}) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("could not open data file: %w", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(data); err != nil {
		return fmt.Errorf("could not decode data: %w", err)
	}
	return nil
}
