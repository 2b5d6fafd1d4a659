package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/adl/internal/ir"
)

const widgetsSchema = "testdata/schemas/widgets.cue"

func normalizeStep(input map[string]interface{}, expect *ExpectClause) Step {
	return Step{
		Direction: "to_normalized",
		Version:   "2021-01-01",
		Type:      "Widget",
		Input:     input,
		Expect:    expect,
	}
}

func TestRun_SingleStep(t *testing.T) {
	scenario := &Scenario{
		Name:        "single",
		Description: "rename and default",
		Schema:      widgetsSchema,
		Steps: []Step{
			normalizeStep(map[string]interface{}{"colour": "blue"}, &ExpectClause{
				Output: map[string]interface{}{"color": "blue", "size": 7},
				Errors: []string{},
				Valid:  true,
			}),
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, "to_normalized", result.Steps[0].Direction)
	assert.Empty(t, result.Steps[0].Errors)

	require.Len(t, result.Trace, 3)
	assert.Equal(t, "rename", result.Trace[0].Action)
	assert.Equal(t, "single-1", result.Trace[0].RunID)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
}

func TestRun_OutputMismatchFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "wrong expected output",
		Schema:      widgetsSchema,
		Steps: []Step{
			normalizeStep(map[string]interface{}{"colour": "blue"}, &ExpectClause{
				Output: map[string]interface{}{"color": "green", "size": 7},
			}),
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "output mismatch")
	assert.Contains(t, result.Errors[0], `"color":"blue"`)
}

func TestRun_ErrorCodesCompared(t *testing.T) {
	scenario := &Scenario{
		Name:        "codes",
		Description: "soft errors are compared in order",
		Schema:      widgetsSchema,
		Steps: []Step{
			{
				Direction: "to_versioned",
				Version:   "2021-01-01",
				Type:      "Widget",
				Input: map[string]interface{}{
					"color": "red",
					"spec":  map[string]interface{}{"note": "x"},
				},
				Expect: &ExpectClause{Errors: []string{"C001"}},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, []string{"C004"}, result.Steps[0].Errors)
	assert.Contains(t, result.Errors[0], "expected errors [C001], got [C004]")
}

func TestRun_ValidFlagReportsViolations(t *testing.T) {
	scenario := &Scenario{
		Name:        "invalid_output",
		Description: "missing required color after normalization",
		Schema:      widgetsSchema,
		Steps: []Step{
			normalizeStep(map[string]interface{}{"size": 3}, &ExpectClause{Valid: true}),
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "invalid output")
	assert.Contains(t, result.Errors[0], "color")
}

func TestRun_InputFromChainsOutputs(t *testing.T) {
	from := 0
	scenario := &Scenario{
		Name:        "chain",
		Description: "normalize then convert back",
		Schema:      widgetsSchema,
		Steps: []Step{
			normalizeStep(map[string]interface{}{"colour": "red", "size": 2}, nil),
			{
				Direction: "to_versioned",
				Version:   "2021-01-01",
				Type:      "Widget",
				InputFrom: &from,
				Expect: &ExpectClause{
					Output: map[string]interface{}{"colour": "red", "size": 2},
					Errors: []string{"C004"},
				},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	// The chained input is a copy: the first output is untouched.
	assert.True(t, ir.Equal(ir.IRObject{"color": ir.IRString("red"), "size": ir.IRInt(2)}, result.Steps[0].Output))
	assert.Equal(t, "chain-2", result.Trace[len(result.Trace)-1].RunID)
}

func TestRun_NullInputIsPresent(t *testing.T) {
	scenario := &Scenario{
		Name:        "nulls",
		Description: "YAML null is an explicit null",
		Schema:      widgetsSchema,
		Steps: []Step{
			normalizeStep(map[string]interface{}{"colour": "red", "size": nil}, &ExpectClause{
				Output: map[string]interface{}{"color": "red", "size": nil},
			}),
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name     string
		scenario *Scenario
		wantErr  string
	}{
		{
			name: "unknown type",
			scenario: &Scenario{
				Name:   "bad_type",
				Schema: widgetsSchema,
				Steps:  []Step{{Direction: "to_normalized", Version: "2021-01-01", Type: "Gadget"}},
			},
			wantErr: "Gadget",
		},
		{
			name: "unknown api",
			scenario: &Scenario{
				Name:   "bad_api",
				Schema: widgetsSchema,
				API:    "gadgets",
				Steps:  []Step{normalizeStep(nil, nil)},
			},
			wantErr: `api "gadgets" not found`,
		},
		{
			name: "float input",
			scenario: &Scenario{
				Name:   "floats",
				Schema: widgetsSchema,
				Steps:  []Step{normalizeStep(map[string]interface{}{"size": 1.5}, nil)},
			},
			wantErr: "floats are not allowed",
		},
		{
			name: "missing schema",
			scenario: &Scenario{
				Name:   "no_schema",
				Schema: "testdata/schemas/nope.cue",
				Steps:  []Step{normalizeStep(nil, nil)},
			},
			wantErr: "failed to load schema",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tt.scenario)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/widget_round_trip.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := NewSnapshot(scenario.Name, first).Marshal()
	require.NoError(t, err)
	b, err := NewSnapshot(scenario.Name, second).Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestLoadSchema(t *testing.T) {
	api, err := LoadSchema(widgetsSchema, "")
	require.NoError(t, err)
	assert.Equal(t, "widgets", api.Name)

	api, err = LoadSchema(widgetsSchema, "widgets")
	require.NoError(t, err)
	require.NotNil(t, api.NormalizedType("Widget"))
}
