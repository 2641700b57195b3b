package canvas

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// canvasState is the TOML document persisted between runs.
type canvasState struct {
	CurrentArtwork string    `toml:"current_artwork"`
	LastRefresh    time.Time `toml:"last_refresh"`
}

// StateStore holds the client's runtime state behind a single mutex and
// persists it to a TOML file. Writes are in-memory until Flush; callers own
// the flush-on-shutdown contract.
type StateStore struct {
	mu    sync.Mutex
	path  string
	state canvasState
}

// OpenStateStore loads state from path, starting empty if the file does not
// exist yet.
func OpenStateStore(path string) (*StateStore, error) {
	s := &StateStore{path: path}

	if _, err := toml.DecodeFile(path, &s.state); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("decoding state file %s: %w", path, err)
		}
	}
	return s, nil
}

// CurrentArtwork returns the path of the artwork on display, or "" when no
// artwork has been retrieved yet.
func (s *StateStore) CurrentArtwork() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentArtwork
}

func (s *StateStore) LastRefresh() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastRefresh
}

// SetArtwork records a freshly retrieved artwork and the refresh time.
func (s *StateStore) SetArtwork(path string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentArtwork = path
	s.state.LastRefresh = at
}

// Flush writes the state to disk atomically via a temp file and rename.
func (s *StateStore) Flush() error {
	s.mu.Lock()
	state := s.state
	path := s.path
	s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".canvas-state-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(state); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp state file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}
