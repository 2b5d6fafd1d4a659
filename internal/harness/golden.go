package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/adl/internal/ir"
)

// TraceSnapshot captures everything a scenario execution produced.
// It serializes through canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string        `json:"scenario_name"`
	Steps        []StepOutcome `json:"steps"`
	Trace        []TraceEvent  `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// ir.MarshalCanonical only handles IR types and generic maps and slices.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Steps))
	for i, step := range s.Steps {
		codes := make([]any, len(step.Errors))
		for j, c := range step.Errors {
			codes[j] = c
		}
		steps[i] = map[string]any{
			"direction": step.Direction,
			"version":   step.Version,
			"type":      step.Type,
			"output":    step.Output,
			"errors":    codes,
		}
	}

	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"step":   event.Step,
			"run_id": event.RunID,
			"seq":    event.Seq,
			"action": event.Action,
			"path":   event.Path,
		}
		if event.Detail != "" {
			eventMap["detail"] = event.Detail
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"steps":         steps,
		"trace":         traceList,
	}
}

// Marshal returns the canonical JSON form of the snapshot.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// NewSnapshot builds the snapshot of a scenario result.
func NewSnapshot(name string, result *Result) *TraceSnapshot {
	return &TraceSnapshot{
		ScenarioName: name,
		Steps:        result.Steps,
		Trace:        result.Trace,
	}
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
