// Package store persists the histories of completed simulation runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/alan-christopher/pns/go/pns"
)

// ErrNotFound is returned when loading a run which was never saved.
var ErrNotFound = errors.New("run not found")

// A Run is the persisted form of one Session: its configuration and every
// round it recorded.
type Run struct {
	ID               string
	CreatedAt        time.Time
	MeanPhotonNumber float64
	AttackEnabled    bool
	ResolvePolicy    pns.ResolvePolicy
	Rounds           []pns.Round
}

// NewRun captures the configuration and current history of s under id.
func NewRun(id string, s *pns.Session) Run {
	return Run{
		ID:               id,
		CreatedAt:        time.Now().UTC(),
		MeanPhotonNumber: s.MeanPhotonNumber(),
		AttackEnabled:    s.AttackEnabled(),
		ResolvePolicy:    s.ResolvePolicy(),
		Rounds:           s.History().Rounds(),
	}
}

// History rebuilds the run's rounds as a pns.History.
func (r Run) History() (*pns.History, error) {
	return pns.NewHistory(r.Rounds)
}

// A RoundStore saves and loads whole runs, keyed by run ID.
type RoundStore interface {
	// SaveRun persists run. Saving an ID twice replaces the earlier run.
	SaveRun(ctx context.Context, run Run) error
	// LoadRun returns the run saved under id, or ErrNotFound.
	LoadRun(ctx context.Context, id string) (Run, error)
	// ListRuns returns the IDs of every saved run, oldest first.
	ListRuns(ctx context.Context) ([]string, error)
}
