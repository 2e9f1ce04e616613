package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Runs returns every run, oldest first. Run ids are UUIDv7 and sort by
// creation time.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, plan_hash, mode, status, started_seq, error
		FROM runs
		ORDER BY id COLLATE BINARY ASC, started_seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Run returns one run by id.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, plan_hash, mode, status, started_seq, error
		FROM runs WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// Steps returns the step records of a run ordered by phase and index:
// the dry phase precedes the real phase.
func (s *Store) Steps(ctx context.Context, runID string) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, idx, name, phase, status, duration_ns, error_kind, error
		FROM step_records
		WHERE run_id = ?
		ORDER BY CASE phase WHEN 'dry' THEN 0 ELSE 1 END, idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	recs := []StepRecord{}
	for rows.Next() {
		var rec StepRecord
		var ns int64
		if err := rows.Scan(&rec.RunID, &rec.Index, &rec.Name, &rec.Phase, &rec.Status, &ns, &rec.ErrorKind, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		rec.Duration = time.Duration(ns)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return recs, nil
}

// Values returns the store snapshot of a run sorted by name.
func (s *Store) Values(ctx context.Context, runID string) ([]ValueRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, name, type, stage, shape, bytes, rendered
		FROM run_values
		WHERE run_id = ?
		ORDER BY name COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query values: %w", err)
	}
	defer rows.Close()

	vals := []ValueRecord{}
	for rows.Next() {
		var v ValueRecord
		var shape string
		if err := rows.Scan(&v.RunID, &v.Name, &v.Type, &v.Stage, &shape, &v.Bytes, &v.Rendered); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		if err := json.Unmarshal([]byte(shape), &v.Shape); err != nil {
			return nil, fmt.Errorf("decode shape of %s: %w", v.Name, err)
		}
		vals = append(vals, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate values: %w", err)
	}
	return vals, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	if err := row.Scan(&r.ID, &r.Name, &r.PlanHash, &r.Mode, &r.Status, &r.StartedSeq, &r.Error); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}
