// Package memory implements store.RoundStore in process memory.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alan-christopher/pns/go/pns"
	"github.com/alan-christopher/pns/go/pns/store"
)

// Store keeps runs in a map. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	runs map[string]store.Run
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		runs: make(map[string]store.Run),
	}
}

// SaveRun stores a copy of run, replacing any run with the same ID.
func (s *Store) SaveRun(_ context.Context, run store.Run) error {
	run.ID = strings.TrimSpace(run.ID)
	if run.ID == "" {
		return errors.New("SaveRun: empty run id")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.Rounds = append([]pns.Round(nil), run.Rounds...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

// LoadRun returns a copy of the run saved under id.
func (s *Store) LoadRun(_ context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("LoadRun %q: %w", id, store.ErrNotFound)
	}
	run.Rounds = append([]pns.Round(nil), run.Rounds...)
	return run, nil
}

// ListRuns returns every run ID, oldest first.
func (s *Store) ListRuns(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]store.Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})
	ids := make([]string, 0, len(runs))
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	return ids, nil
}
