package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	buildStateFile = "build.json"
)

// BuildState records the outcome of the last index build so "lubebot index"
// and the stats endpoint can report it across restarts.
type BuildState struct {
	CorpusRoot    string    `json:"corpus_root"`
	BuiltAt       time.Time `json:"built_at"`
	Files         int       `json:"files"`
	Chunks        int       `json:"chunks"`
	Indexed       int       `json:"indexed"`
	EmbedFailures int       `json:"embed_failures"`
	Skipped       bool      `json:"skipped"`
}

// LoadBuildState reads build.json from the target directory.
// Returns nil, nil if no build has been recorded yet.
func (m *Manager) LoadBuildState(overrideDir string) (*BuildState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, buildStateFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading build state: %w", err)
	}

	state := &BuildState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing build state: %w", err)
	}

	return state, nil
}

// SaveBuildState writes build.json into the target directory, creating
// ~/.lubebot/ if needed.
func (m *Manager) SaveBuildState(state *BuildState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil build state")
	}

	dir, err := m.Ensure(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling build state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, buildStateFile), data, 0o600); err != nil {
		return fmt.Errorf("writing build state: %w", err)
	}

	return nil
}

// ClearBuildState removes build.json. Missing files are not an error.
func (m *Manager) ClearBuildState(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil || dir == "" {
		return err
	}

	if err := os.Remove(filepath.Join(dir, buildStateFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing build state: %w", err)
	}
	return nil
}
