package store

import (
	"fmt"

	"github.com/roach88/adl/internal/conformance"
	"github.com/roach88/adl/internal/engine"
	"github.com/roach88/adl/internal/ir"
)

// ConversionRecord is one stored engine run.
type ConversionRecord struct {
	ID         string                   `json:"id"`
	RunID      string                   `json:"run_id"`
	API        string                   `json:"api"`
	Version    string                   `json:"version"`
	Type       string                   `json:"type"`
	Direction  engine.Direction         `json:"-"`
	Input      ir.IRObject              `json:"input"`
	InputHash  string                   `json:"input_hash"`
	Output     ir.IRObject              `json:"output"`
	OutputHash string                   `json:"output_hash"`
	Errors     []engine.ConversionError `json:"errors"`
	Seq        int64                    `json:"seq"`
}

// NewConversionRecord captures the input and result of one run. The ID is
// content-addressed over the run ID and the input hash.
func NewConversionRecord(api, version, typeName string, dir engine.Direction, input ir.IRObject, res *engine.Result) (ConversionRecord, error) {
	if input == nil {
		input = ir.IRObject{}
	}
	inHash, err := ir.PayloadHash(input)
	if err != nil {
		return ConversionRecord{}, fmt.Errorf("new conversion record: input: %w", err)
	}
	outHash, err := ir.PayloadHash(res.Payload)
	if err != nil {
		return ConversionRecord{}, fmt.Errorf("new conversion record: output: %w", err)
	}

	id, err := ir.ConversionID(res.RunID, api, version, typeName, dir.String(), inHash)
	if err != nil {
		return ConversionRecord{}, fmt.Errorf("new conversion record: %w", err)
	}

	errs := res.Errors
	if errs == nil {
		errs = []engine.ConversionError{}
	}
	return ConversionRecord{
		ID:         id,
		RunID:      res.RunID,
		API:        api,
		Version:    version,
		Type:       typeName,
		Direction:  dir,
		Input:      input,
		InputHash:  inHash,
		Output:     res.Payload,
		OutputHash: outHash,
		Errors:     errs,
	}, nil
}

// Recorded returns the record in the form engine replay consumes.
func (r ConversionRecord) Recorded() engine.Recorded {
	return engine.Recorded{
		ID:         r.ID,
		Version:    r.Version,
		Type:       r.Type,
		Direction:  r.Direction,
		Input:      r.Input,
		OutputHash: r.OutputHash,
	}
}

// ConversionFilter narrows ReadConversions. Empty fields match everything.
type ConversionFilter struct {
	API     string
	Version string
	Type    string
}

// ConformanceRun is one stored conformance check.
type ConformanceRun struct {
	ID           int64                          `json:"id"`
	API          string                         `json:"api"`
	Group        string                         `json:"group"`
	Unconformant bool                           `json:"unconformant"`
	Seq          int64                          `json:"seq"`
	Errors       []conformance.ConformanceError `json:"errors"`
}
