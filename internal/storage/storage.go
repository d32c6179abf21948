package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"flagrate-rgb/internal/model"
)

// Store keeps the latest status in a JSON file so the dashboard and tray
// have something to show before the first poll after a restart.
type Store struct {
	path  string
	mu    sync.RWMutex
	state model.StoredState
}

func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	s := &Store{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.state = defaultState()
			return s.saveLocked()
		}
		return err
	}
	if len(b) == 0 {
		s.state = defaultState()
		return s.saveLocked()
	}

	var state model.StoredState
	if err := json.Unmarshal(b, &state); err != nil {
		return err
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now().UTC()
	}
	s.state = state
	return nil
}

func defaultState() model.StoredState {
	return model.StoredState{CreatedAt: time.Now().UTC()}
}

func (s *Store) saveLocked() error {
	s.state.LastUpdatedUnixMS = time.Now().UnixMilli()
	b, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// SetStatus records st as the latest status and writes the file.
func (s *Store) SetStatus(st model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LatestStatus = &st
	return s.saveLocked()
}

func (s *Store) GetStatus() *model.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.LatestStatus == nil {
		return nil
	}
	st := *s.state.LatestStatus
	if st.Playback != nil {
		pb := *st.Playback
		pb.Images = append([]model.CoverImage(nil), pb.Images...)
		st.Playback = &pb
	}
	return &st
}
