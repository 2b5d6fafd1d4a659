package engine

import (
	"context"
	"fmt"

	"github.com/roach88/adl/internal/ir"
)

// Recorded is a conversion captured earlier, as the store hands it back.
type Recorded struct {
	ID         string
	Version    string
	Type       string
	Direction  Direction
	Input      ir.IRObject
	OutputHash string
}

// Drift describes a stored conversion whose output changed.
type Drift struct {
	ID          string `json:"id"`
	Version     string `json:"version"`
	Type        string `json:"type"`
	Direction   string `json:"direction"`
	StoredHash  string `json:"stored_hash"`
	CurrentHash string `json:"current_hash"`
}

// Replay re-runs a recorded conversion against the current schema and
// reports drift when the output hash differs. Same input, same schema,
// same output: any difference means the schema or the engine changed.
func (r *Runtime) Replay(ctx context.Context, rec Recorded) (*Drift, error) {
	res, err := r.run(ctx, rec.Direction, rec.Version, rec.Type, rec.Input)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", rec.ID, err)
	}

	hash, err := ir.PayloadHash(res.Payload)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", rec.ID, err)
	}
	if hash == rec.OutputHash {
		return nil, nil
	}

	return &Drift{
		ID:          rec.ID,
		Version:     rec.Version,
		Type:        rec.Type,
		Direction:   rec.Direction.String(),
		StoredHash:  rec.OutputHash,
		CurrentHash: hash,
	}, nil
}
