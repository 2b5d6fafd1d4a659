package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes a scenario file next to a copy of the widgets schema
// and returns its path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()

	schema, err := os.ReadFile(widgetsSchema)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "widgets.cue"), schema, 0644))

	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
schema: widgets.cue
steps:
  - direction: to_normalized
    version: "2021-01-01"
    type: Widget
    input:
      colour: red
      size: 3
      active: true
    expect:
      errors: []
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "widgets.cue"), scenario.Schema)
	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, "red", scenario.Steps[0].Input["colour"])
	assert.Equal(t, 3, scenario.Steps[0].Input["size"])
	assert.Equal(t, true, scenario.Steps[0].Input["active"])
	require.NotNil(t, scenario.Steps[0].Expect)
	assert.NotNil(t, scenario.Steps[0].Expect.Errors, "an empty list must stay distinguishable from an omitted one")
	assert.Empty(t, scenario.Assertions)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nonexistent.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	path := writeScenario(t, "name: [unclosed")
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_UnknownFieldsRejected(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/invalid_typo.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field step not found")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: d
schema: widgets.cue
steps: [{direction: to_normalized, version: v, type: Widget}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: n
schema: widgets.cue
steps: [{direction: to_normalized, version: v, type: Widget}]
`,
			wantErr: "description is required",
		},
		{
			name: "missing schema",
			content: `
name: n
description: d
steps: [{direction: to_normalized, version: v, type: Widget}]
`,
			wantErr: "schema is required",
		},
		{
			name: "schema not found",
			content: `
name: n
description: d
schema: other.cue
steps: [{direction: to_normalized, version: v, type: Widget}]
`,
			wantErr: "schema file not found",
		},
		{
			name: "no steps",
			content: `
name: n
description: d
schema: widgets.cue
steps: []
`,
			wantErr: "steps list is required",
		},
		{
			name: "bad direction",
			content: `
name: n
description: d
schema: widgets.cue
steps: [{direction: sideways, version: v, type: Widget}]
`,
			wantErr: "steps[0]: unknown direction",
		},
		{
			name: "missing version",
			content: `
name: n
description: d
schema: widgets.cue
steps: [{direction: to_normalized, type: Widget}]
`,
			wantErr: "steps[0]: version is required",
		},
		{
			name: "missing type",
			content: `
name: n
description: d
schema: widgets.cue
steps: [{direction: to_normalized, version: v}]
`,
			wantErr: "steps[0]: type is required",
		},
		{
			name: "input_from forward reference",
			content: `
name: n
description: d
schema: widgets.cue
steps:
  - {direction: to_normalized, version: v, type: Widget, input_from: 0}
`,
			wantErr: "steps[0]: input_from must name an earlier step",
		},
		{
			name: "input and input_from",
			content: `
name: n
description: d
schema: widgets.cue
steps:
  - {direction: to_normalized, version: v, type: Widget}
  - {direction: to_versioned, version: v, type: Widget, input_from: 0, input: {a: 1}}
`,
			wantErr: "steps[1]: input and input_from are mutually exclusive",
		},
		{
			name: "unknown assertion",
			content: `
name: n
description: d
schema: widgets.cue
steps: [{direction: to_normalized, version: v, type: Widget}]
assertions: [{type: trace_exists}]
`,
			wantErr: `unknown assertion type "trace_exists"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_AssertionValidation(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"missing type", Assertion{}, "type is required"},
		{"trace_contains without action", Assertion{Type: AssertTraceContains}, "action is required for trace_contains"},
		{"trace_order without actions", Assertion{Type: AssertTraceOrder}, "actions list is required"},
		{"trace_count without action", Assertion{Type: AssertTraceCount, Count: 1}, "action is required for trace_count"},
		{"trace_count negative", Assertion{Type: AssertTraceCount, Action: "copy", Count: -1}, "count must be non-negative"},
		{"final_state without table", Assertion{Type: AssertFinalState, Expect: map[string]interface{}{"a": 1}}, "table is required"},
		{"final_state without expect", Assertion{Type: AssertFinalState, Table: "conversions"}, "expect is required"},
		{"trace_count zero", Assertion{Type: AssertTraceCount, Action: "copy"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAssertion(0, &tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	path := writeScenario(t, `
name: based
description: d
schema: schemas/widgets.cue
steps: [{direction: to_normalized, version: "2021-01-01", type: Widget}]
`)

	scenario, err := LoadScenarioWithBasePath(path, "testdata")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "schemas", "widgets.cue"), scenario.Schema)
}

func TestLoadScenario_AbsoluteSchemaPath(t *testing.T) {
	abs, err := filepath.Abs(widgetsSchema)
	require.NoError(t, err)

	path := writeScenario(t, `
name: absolute
description: d
schema: `+abs+`
steps: [{direction: to_normalized, version: "2021-01-01", type: Widget}]
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, abs, scenario.Schema)
}

func TestAssertionConstants(t *testing.T) {
	assert.Equal(t, "trace_contains", AssertTraceContains)
	assert.Equal(t, "trace_order", AssertTraceOrder)
	assert.Equal(t, "trace_count", AssertTraceCount)
	assert.Equal(t, "final_state", AssertFinalState)
}

func TestLoadExampleScenarios(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/widget_round_trip.yaml")
	require.NoError(t, err)

	assert.Equal(t, "widget_round_trip", scenario.Name)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "..", "schemas", "widgets.cue"), scenario.Schema)
	require.Len(t, scenario.Steps, 2)
	require.NotNil(t, scenario.Steps[1].InputFrom)
	assert.Equal(t, 0, *scenario.Steps[1].InputFrom)
	assert.Len(t, scenario.Assertions, 4)

	_, err = LoadScenario("testdata/scenarios/invalid_missing_steps.yaml")
	require.Error(t, err)
}
