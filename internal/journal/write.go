package journal

import (
	"context"
	"encoding/json"
	"fmt"
)

// BeginRun inserts a run. A second insert with the same id is ignored.
func (s *Store) BeginRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, name, plan_hash, mode, status, started_seq, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, r.ID, r.Name, r.PlanHash, r.Mode, r.Status, r.StartedSeq, r.Error)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", r.ID, err)
	}
	return nil
}

// FinishRun sets the final status of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET status = ?, error = ? WHERE id = ?`, status, errMsg, runID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// RecordStep inserts a step outcome. Records are keyed by run, phase and
// index; duplicates are ignored.
func (s *Store) RecordStep(ctx context.Context, rec StepRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO step_records (run_id, idx, name, phase, status, duration_ns, error_kind, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, rec.RunID, rec.Index, rec.Name, rec.Phase, rec.Status, rec.Duration.Nanoseconds(), rec.ErrorKind, rec.Error)
	if err != nil {
		return fmt.Errorf("record step %d of %s: %w", rec.Index, rec.RunID, err)
	}
	return nil
}

// RecordValues inserts a store snapshot in one transaction.
func (s *Store) RecordValues(ctx context.Context, values []ValueRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record values: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_values (run_id, name, type, stage, shape, bytes, rendered)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("record values: %w", err)
	}
	defer stmt.Close()

	for _, v := range values {
		shape := v.Shape
		if shape == nil {
			shape = []int{}
		}
		shapeJSON, err := json.Marshal(shape)
		if err != nil {
			return fmt.Errorf("record value %s: %w", v.Name, err)
		}
		if _, err := stmt.ExecContext(ctx, v.RunID, v.Name, v.Type, v.Stage, string(shapeJSON), v.Bytes, v.Rendered); err != nil {
			return fmt.Errorf("record value %s: %w", v.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record values: %w", err)
	}
	return nil
}
