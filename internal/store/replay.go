package store

import (
	"context"
	"fmt"

	"github.com/roach88/adl/internal/engine"
)

// ReplayReport summarizes re-running stored conversions.
type ReplayReport struct {
	Checked  int             `json:"checked"`
	Drift    []engine.Drift  `json:"drift"`
	Failures []ReplayFailure `json:"failures"`
}

// ReplayFailure is a stored conversion that could not be re-run at all,
// typically because its version or type no longer exists.
type ReplayFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Clean reports whether every replayed conversion reproduced its output.
func (r *ReplayReport) Clean() bool {
	return len(r.Drift) == 0 && len(r.Failures) == 0
}

// Replay re-runs every stored conversion of rt's API that matches filter,
// in seq order, and reports outputs whose hash changed.
func (s *Store) Replay(ctx context.Context, rt *engine.Runtime, filter ConversionFilter) (*ReplayReport, error) {
	filter.API = rt.API().Name
	records, err := s.ReadConversions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	report := &ReplayReport{Drift: []engine.Drift{}, Failures: []ReplayFailure{}}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Checked++

		drift, err := rt.Replay(ctx, rec.Recorded())
		if err != nil {
			report.Failures = append(report.Failures, ReplayFailure{ID: rec.ID, Error: err.Error()})
			continue
		}
		if drift != nil {
			report.Drift = append(report.Drift, *drift)
		}
	}
	return report, nil
}
