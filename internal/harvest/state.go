// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"
)

// State is the persisted scheduler checkpoint. It carries the search
// parameters alongside the last run time, so a restarted scheduler
// resumes with the configuration it last ran with.
type State struct {
	Query        string    `yaml:"query"`
	Categories   []string  `yaml:"categories,omitempty"`
	MaxResults   int       `yaml:"max_results"`
	Webhook      string    `yaml:"webhook,omitempty"`
	ScheduleType string    `yaml:"schedule_type"`
	LastRunTime  time.Time `yaml:"last_run_time,omitempty"`
}

// LoadState reads a checkpoint from path. A missing file yields the
// zero state and no error, so first runs need no setup step.
func LoadState(path string) (State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("reading state file %s: %w", path, err)
	}

	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("parsing state file %s: %w", path, err)
	}
	return s, nil
}

// Save writes the checkpoint to path, creating parent directories as
// needed.
func (s State) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating state directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing state file %s: %w", path, err)
	}
	return nil
}
