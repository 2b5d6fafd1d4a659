package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/adl/internal/compiler"
	"github.com/roach88/adl/internal/engine"
	"github.com/roach88/adl/internal/ir"
	"github.com/roach88/adl/internal/schema"
	"github.com/roach88/adl/internal/store"
	"github.com/roach88/adl/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with deterministic run IDs against a fresh store.
type Harness struct {
	store  *store.Store
	rt     *engine.Runtime
	api    *schema.ApiModel
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Run IDs are "<scenario name>-1", "<scenario name>-2", ... so traces and
// stored records are reproducible.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load and compile the CUE schema
// 3. Execute steps, recording every conversion
// 4. Evaluate assertions
// 5. Return result with pass/fail, trace, and errors
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	api, err := LoadSchema(scenario.Schema, scenario.API)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	rt, err := engine.New(api,
		engine.WithLogger(logger),
		engine.WithIDGenerator(testutil.NewSequentialIDs(scenario.Name)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build runtime: %w", err)
	}

	h := &Harness{
		store:  st,
		rt:     rt,
		api:    api,
		logger: logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute steps: %w", err)
		}
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// LoadSchema compiles a single CUE file and returns the named API.
// An empty name selects the only API in the file.
func LoadSchema(path, apiName string) (*schema.ApiModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compiling %s: %w", path, err)
	}

	apis, errs := compiler.CompileAPIs(v)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if apiName == "" {
		if len(apis) != 1 {
			return nil, fmt.Errorf("%s declares %d APIs; name one with api:", path, len(apis))
		}
		return apis[0], nil
	}
	for _, api := range apis {
		if api.Name == apiName {
			return api, nil
		}
	}
	return nil, fmt.Errorf("api %q not found in %s", apiName, path)
}

// executeStep runs one conversion, records it and checks its expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	dir, err := engine.ParseDirection(step.Direction)
	if err != nil {
		return fmt.Errorf("step %d: %w", i, err)
	}

	input, err := stepInput(step, result)
	if err != nil {
		return fmt.Errorf("step %d: failed to convert input: %w", i, err)
	}

	res, err := h.rt.Run(ctx, dir, step.Version, step.Type, input)
	if err != nil {
		return fmt.Errorf("step %d: %w", i, err)
	}

	rec, err := store.NewConversionRecord(h.api.Name, step.Version, step.Type, dir, input, res)
	if err != nil {
		return fmt.Errorf("step %d: %w", i, err)
	}
	seq, _, err := h.store.WriteConversion(ctx, rec)
	if err != nil {
		return fmt.Errorf("step %d: failed to record conversion: %w", i, err)
	}

	for _, s := range res.Trace {
		result.Trace = append(result.Trace, TraceEvent{
			Step:   i,
			RunID:  res.RunID,
			Seq:    s.Seq,
			Action: s.Action,
			Path:   s.Path,
			Detail: s.Detail,
		})
	}

	outcome := StepOutcome{
		Direction: dir.String(),
		Version:   step.Version,
		Type:      step.Type,
		Output:    res.Payload,
		Errors:    errorCodes(res.Errors),
	}
	result.Steps = append(result.Steps, outcome)

	if step.Expect != nil {
		h.checkExpect(i, dir, step, outcome, result)
	}

	h.logger.Info("step completed",
		"step", i,
		"run_id", res.RunID,
		"direction", dir.String(),
		"type", step.Type,
		"errors", len(res.Errors),
		"seq", seq,
	)
	return nil
}

// checkExpect compares a step outcome against its expect clause.
func (h *Harness) checkExpect(i int, dir engine.Direction, step Step, outcome StepOutcome, result *Result) {
	exp := step.Expect

	if exp.Output != nil {
		want, err := toIRObject(exp.Output)
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: expected output: %v", i, err))
		} else if !ir.Equal(want, outcome.Output) {
			result.AddError(fmt.Sprintf("steps[%d]: output mismatch\n  expected: %s\n  actual:   %s",
				i, canonicalString(want), canonicalString(outcome.Output)))
		}
	}

	if exp.Errors != nil && !slices.Equal(exp.Errors, outcome.Errors) {
		result.AddError(fmt.Sprintf("steps[%d]: expected errors %v, got %v", i, exp.Errors, outcome.Errors))
	}

	if exp.Valid {
		vt, err := h.api.Lookup(step.Version, step.Type)
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
			return
		}
		model := vt.Normalized
		if dir == engine.ToVersioned {
			model = vt.Model
		}
		for _, v := range engine.Validate(model, outcome.Output) {
			result.AddError(fmt.Sprintf("steps[%d]: invalid output: %s", i, v.Error()))
		}
	}
}

// stepInput returns the payload a step converts.
func stepInput(step Step, result *Result) (ir.IRObject, error) {
	if step.InputFrom != nil {
		idx := *step.InputFrom
		if idx < 0 || idx >= len(result.Steps) {
			return nil, fmt.Errorf("input_from %d: no such step", idx)
		}
		return result.Steps[idx].Output.Clone(), nil
	}
	return toIRObject(step.Input)
}

// toIRObject converts a YAML-parsed map to an ir.IRObject.
// YAML null becomes an explicit null; floats are rejected.
func toIRObject(m map[string]interface{}) (ir.IRObject, error) {
	if m == nil {
		return ir.IRObject{}, nil
	}
	v, err := ir.FromGo(m)
	if err != nil {
		return nil, err
	}
	return v.(ir.IRObject), nil
}

func errorCodes(errs []engine.ConversionError) []string {
	codes := make([]string, len(errs))
	for i, e := range errs {
		codes[i] = string(e.Code)
	}
	return codes
}

func canonicalString(obj ir.IRObject) string {
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}
