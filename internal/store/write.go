package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/adl/internal/conformance"
)

// nextSeq returns the next logical sequence number for a table.
func nextSeq(ctx context.Context, tx *sql.Tx, table string) (int64, error) {
	var seq int64
	// table is one of our own constants, never user input.
	err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) + 1 FROM "+table).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next seq for %s: %w", table, err)
	}
	return seq, nil
}

// WriteConversion inserts a conversion and its soft errors in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing the same record
// twice returns inserted=false and changes nothing.
//
// The record's seq is assigned here; the returned value is the stored seq.
func (s *Store) WriteConversion(ctx context.Context, rec ConversionRecord) (seq int64, inserted bool, err error) {
	inputJSON, err := marshalPayload(rec.Input)
	if err != nil {
		return 0, false, fmt.Errorf("write conversion: %w", err)
	}
	outputJSON, err := marshalPayload(rec.Output)
	if err != nil {
		return 0, false, fmt.Errorf("write conversion: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("write conversion: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	seq, err = nextSeq(ctx, tx, "conversions")
	if err != nil {
		return 0, false, fmt.Errorf("write conversion: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO conversions
		(id, run_id, api, version, type_name, direction, input, input_hash, output, output_hash, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.RunID,
		rec.API,
		rec.Version,
		rec.Type,
		rec.Direction.String(),
		inputJSON,
		rec.InputHash,
		outputJSON,
		rec.OutputHash,
		seq,
	)
	if err != nil {
		return 0, false, fmt.Errorf("write conversion: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("write conversion: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Already stored - report the existing seq
		if err := tx.QueryRowContext(ctx, `SELECT seq FROM conversions WHERE id = ?`, rec.ID).Scan(&seq); err != nil {
			return 0, false, fmt.Errorf("write conversion: select existing: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return 0, false, fmt.Errorf("write conversion: commit (existing): %w", err)
		}
		return seq, false, nil
	}

	for i, e := range rec.Errors {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO conversion_errors (conversion_id, idx, code, path, message)
			VALUES (?, ?, ?, ?, ?)
		`, rec.ID, i, string(e.Code), e.Path, e.Message)
		if err != nil {
			return 0, false, fmt.Errorf("write conversion: error %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("write conversion: commit: %w", err)
	}
	return seq, true, nil
}

// WriteConformanceRun stores the findings of one conformance check and
// returns the run's ID.
func (s *Store) WriteConformanceRun(ctx context.Context, api, group string, errs []conformance.ConformanceError) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write conformance run: begin tx: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, "conformance_runs")
	if err != nil {
		return 0, fmt.Errorf("write conformance run: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO conformance_runs (api, rule_group, unconformant, seq)
		VALUES (?, ?, ?, ?)
	`, api, group, conformance.HasUnconformant(errs), seq)
	if err != nil {
		return 0, fmt.Errorf("write conformance run: insert: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("write conformance run: last insert id: %w", err)
	}

	for i, e := range errs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO conformance_errors
			(run_id, idx, rule, scope, kind, violation_kind, model_name, type_name, property_path, message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			id, i,
			e.Rule,
			e.Scope.String(),
			e.Kind.String(),
			e.ViolationKind.String(),
			e.ModelName,
			e.TypeName,
			e.PropertyPath,
			e.Message,
		)
		if err != nil {
			return 0, fmt.Errorf("write conformance run: finding %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write conformance run: commit: %w", err)
	}
	return id, nil
}
