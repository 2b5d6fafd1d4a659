package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/adl/internal/conformance"
	"github.com/roach88/adl/internal/engine"
)

const conversionColumns = `id, run_id, api, version, type_name, direction, input, input_hash, output, output_hash, seq`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadConversion retrieves a single conversion with its errors.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadConversion(ctx context.Context, id string) (ConversionRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+conversionColumns+` FROM conversions WHERE id = ?`, id)
	rec, err := scanConversion(row)
	if err != nil {
		return ConversionRecord{}, err
	}
	rec.Errors, err = s.readConversionErrors(ctx, rec.ID)
	if err != nil {
		return ConversionRecord{}, err
	}
	return rec, nil
}

// ReadConversions returns stored conversions matching filter.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadConversions(ctx context.Context, filter ConversionFilter) ([]ConversionRecord, error) {
	var where []string
	var args []any
	if filter.API != "" {
		where = append(where, "api = ?")
		args = append(args, filter.API)
	}
	if filter.Version != "" {
		where = append(where, "version = ?")
		args = append(args, filter.Version)
	}
	if filter.Type != "" {
		where = append(where, "type_name = ?")
		args = append(args, filter.Type)
	}

	query := `SELECT ` + conversionColumns + ` FROM conversions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query conversions: %w", err)
	}
	defer rows.Close()

	records := []ConversionRecord{}
	for rows.Next() {
		rec, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversion: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversions: %w", err)
	}

	// Errors are loaded after the rows are closed; SQLite has one connection.
	rows.Close()
	for i := range records {
		records[i].Errors, err = s.readConversionErrors(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *Store) readConversionErrors(ctx context.Context, id string) ([]engine.ConversionError, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, path, message FROM conversion_errors
		WHERE conversion_id = ?
		ORDER BY idx ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query conversion errors: %w", err)
	}
	defer rows.Close()

	errs := []engine.ConversionError{}
	for rows.Next() {
		var e engine.ConversionError
		var code string
		if err := rows.Scan(&code, &e.Path, &e.Message); err != nil {
			return nil, fmt.Errorf("scan conversion error: %w", err)
		}
		e.Code = engine.ErrorCode(code)
		errs = append(errs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversion errors: %w", err)
	}
	return errs, nil
}

func scanConversion(row rowScanner) (ConversionRecord, error) {
	var rec ConversionRecord
	var direction, inputJSON, outputJSON string

	if err := row.Scan(
		&rec.ID, &rec.RunID, &rec.API, &rec.Version, &rec.Type, &direction,
		&inputJSON, &rec.InputHash, &outputJSON, &rec.OutputHash, &rec.Seq,
	); err != nil {
		return ConversionRecord{}, err
	}

	dir, err := engine.ParseDirection(direction)
	if err != nil {
		return ConversionRecord{}, fmt.Errorf("conversion %s: %w", rec.ID, err)
	}
	rec.Direction = dir

	if rec.Input, err = unmarshalPayload(inputJSON); err != nil {
		return ConversionRecord{}, fmt.Errorf("conversion %s: %w", rec.ID, err)
	}
	if rec.Output, err = unmarshalPayload(outputJSON); err != nil {
		return ConversionRecord{}, fmt.Errorf("conversion %s: %w", rec.ID, err)
	}
	return rec, nil
}

// ReadConformanceRun retrieves a conformance run with its findings.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadConformanceRun(ctx context.Context, id int64) (ConformanceRun, error) {
	var run ConformanceRun
	err := s.db.QueryRowContext(ctx, `
		SELECT id, api, rule_group, unconformant, seq FROM conformance_runs WHERE id = ?
	`, id).Scan(&run.ID, &run.API, &run.Group, &run.Unconformant, &run.Seq)
	if err != nil {
		return ConformanceRun{}, err
	}

	run.Errors, err = s.readConformanceErrors(ctx, run.ID)
	if err != nil {
		return ConformanceRun{}, err
	}
	return run, nil
}

// LatestConformanceRun returns the most recent run for api.
// Returns sql.ErrNoRows if api was never checked.
func (s *Store) LatestConformanceRun(ctx context.Context, api string) (ConformanceRun, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM conformance_runs WHERE api = ? ORDER BY seq DESC LIMIT 1
	`, api).Scan(&id)
	if err != nil {
		return ConformanceRun{}, err
	}
	return s.ReadConformanceRun(ctx, id)
}

func (s *Store) readConformanceErrors(ctx context.Context, runID int64) ([]conformance.ConformanceError, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule, scope, kind, violation_kind, model_name, type_name, property_path, message
		FROM conformance_errors
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query conformance errors: %w", err)
	}
	defer rows.Close()

	errs := []conformance.ConformanceError{}
	for rows.Next() {
		e, err := scanConformanceError(rows)
		if err != nil {
			return nil, err
		}
		errs = append(errs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conformance errors: %w", err)
	}
	return errs, nil
}

func scanConformanceError(rows *sql.Rows) (conformance.ConformanceError, error) {
	var e conformance.ConformanceError
	var scope, kind, violation string
	if err := rows.Scan(&e.Rule, &scope, &kind, &violation, &e.ModelName, &e.TypeName, &e.PropertyPath, &e.Message); err != nil {
		return e, fmt.Errorf("scan conformance error: %w", err)
	}

	var err error
	if e.Scope, err = conformance.ParseScope(scope); err != nil {
		return e, err
	}
	if e.Kind, err = conformance.ParseKind(kind); err != nil {
		return e, err
	}
	if e.ViolationKind, err = conformance.ParseViolationKind(violation); err != nil {
		return e, err
	}
	return e, nil
}
