package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alan-christopher/pns/go/pns"
	"github.com/alan-christopher/pns/go/pns/store"
)

// RunStore is a store.RoundStore backed by the runs and rounds tables.
type RunStore struct {
	db *sql.DB
}

// NewRunStore returns a RunStore using db, which must already be migrated,
// e.g. by Open.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// SaveRun writes run and its rounds in one transaction, replacing any run with
// the same ID.
func (s *RunStore) SaveRun(ctx context.Context, run store.Run) error {
	run.ID = strings.TrimSpace(run.ID)
	if run.ID == "" {
		return errors.New("SaveRun: empty run id")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SaveRun begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Replacing a run replaces all of its rounds, via ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?;`, run.ID); err != nil {
		return fmt.Errorf("SaveRun delete previous: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO runs(id, created_at_ms, mean_photon_number, attack_enabled, resolve_policy)
VALUES (?, ?, ?, ?, ?);
`, run.ID, run.CreatedAt.UTC().UnixMilli(), run.MeanPhotonNumber, run.AttackEnabled, run.ResolvePolicy.String()); err != nil {
		return fmt.Errorf("SaveRun insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO rounds(
  run_id, idx, photon_count, alice_bit, alice_basis, bob_basis, bob_bit, eve_state, eve_bit, eve_basis
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`)
	if err != nil {
		return fmt.Errorf("SaveRun prepare rounds: %w", err)
	}
	defer stmt.Close()

	for _, r := range run.Rounds {
		var bobBit, eveBit, eveBasis any
		if r.Detected {
			bobBit = int(r.BobBit)
		}
		if r.EveState == pns.EveResolved {
			eveBit = int(r.EveBit)
			eveBasis = r.EveBasis.String()
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID, r.Index, r.PhotonCount, int(r.AliceBit), r.AliceBasis.String(), r.BobBasis.String(),
			bobBit, r.EveState.String(), eveBit, eveBasis,
		); err != nil {
			return fmt.Errorf("SaveRun insert round %d: %w", r.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SaveRun commit: %w", err)
	}
	return nil
}

// LoadRun reads the run saved under id, with its rounds in index order.
func (s *RunStore) LoadRun(ctx context.Context, id string) (store.Run, error) {
	run := store.Run{ID: id}
	var (
		createdMs int64
		policy    string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT created_at_ms, mean_photon_number, attack_enabled, resolve_policy
FROM runs WHERE id = ?;
`, id).Scan(&createdMs, &run.MeanPhotonNumber, &run.AttackEnabled, &policy)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("LoadRun %q: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return store.Run{}, fmt.Errorf("LoadRun %q: %w", id, err)
	}
	run.CreatedAt = time.UnixMilli(createdMs).UTC()
	if run.ResolvePolicy, err = pns.ParseResolvePolicy(policy); err != nil {
		return store.Run{}, fmt.Errorf("LoadRun %q: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT idx, photon_count, alice_bit, alice_basis, bob_basis, bob_bit, eve_state, eve_bit, eve_basis
FROM rounds WHERE run_id = ? ORDER BY idx;
`, id)
	if err != nil {
		return store.Run{}, fmt.Errorf("LoadRun %q rounds: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return store.Run{}, fmt.Errorf("LoadRun %q: %w", id, err)
		}
		run.Rounds = append(run.Rounds, r)
	}
	if err := rows.Err(); err != nil {
		return store.Run{}, fmt.Errorf("LoadRun %q rounds: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run ID, oldest first.
func (s *RunStore) ListRuns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs ORDER BY created_at_ms, id;`)
	if err != nil {
		return nil, fmt.Errorf("ListRuns: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ListRuns scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanRound(rows *sql.Rows) (pns.Round, error) {
	var (
		r                    pns.Round
		aliceBit             int
		aliceBasis, bobBasis string
		eveState             string
		bobBit, eveBit       sql.NullInt64
		eveBasis             sql.NullString
	)
	if err := rows.Scan(&r.Index, &r.PhotonCount, &aliceBit, &aliceBasis, &bobBasis,
		&bobBit, &eveState, &eveBit, &eveBasis); err != nil {
		return pns.Round{}, fmt.Errorf("scan round: %w", err)
	}

	var err error
	r.AliceBit = pns.Bit(aliceBit)
	if r.AliceBasis, err = pns.ParseBasis(aliceBasis); err != nil {
		return pns.Round{}, fmt.Errorf("round %d: %w", r.Index, err)
	}
	if r.BobBasis, err = pns.ParseBasis(bobBasis); err != nil {
		return pns.Round{}, fmt.Errorf("round %d: %w", r.Index, err)
	}
	if bobBit.Valid {
		r.Detected = true
		r.BobBit = pns.Bit(bobBit.Int64)
	}
	if r.EveState, err = pns.ParseEveState(eveState); err != nil {
		return pns.Round{}, fmt.Errorf("round %d: %w", r.Index, err)
	}
	if eveBit.Valid {
		r.EveBit = pns.Bit(eveBit.Int64)
	}
	if eveBasis.Valid {
		if r.EveBasis, err = pns.ParseBasis(eveBasis.String); err != nil {
			return pns.Round{}, fmt.Errorf("round %d: %w", r.Index, err)
		}
	}
	return r, nil
}
