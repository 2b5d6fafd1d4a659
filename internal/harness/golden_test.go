package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/adl/internal/ir"
)

func TestRunWithGolden_WidgetRoundTrip(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/widget_round_trip.yaml")
	require.NoError(t, err)

	require.NoError(t, RunWithGolden(t, scenario))
}

func TestWidgetRoundTripPasses(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/widget_round_trip.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestAssertGolden_FromResult(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/widget_round_trip.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	// Same golden file, compared without re-running.
	require.NoError(t, AssertGolden(t, "widget_round_trip", result))
}

func TestTraceSnapshotCanonical(t *testing.T) {
	snapshot := &TraceSnapshot{
		ScenarioName: "snap",
		Steps: []StepOutcome{{
			Direction: "to_normalized",
			Version:   "v1",
			Type:      "Widget",
			Output:    ir.IRObject{"b": ir.IRInt(2), "a": ir.IRNull{}},
			Errors:    []string{"C001"},
		}},
		Trace: []TraceEvent{
			{Step: 0, RunID: "snap-1", Seq: 1, Action: "copy", Path: "b"},
		},
	}

	data, err := snapshot.Marshal()
	require.NoError(t, err)

	want := `{"scenario_name":"snap",` +
		`"steps":[{"direction":"to_normalized","errors":["C001"],"output":{"a":null,"b":2},"type":"Widget","version":"v1"}],` +
		`"trace":[{"action":"copy","path":"b","run_id":"snap-1","seq":1,"step":0}]}`
	assert.Equal(t, want, string(data))
}

func TestTraceSnapshotEmptyResult(t *testing.T) {
	data, err := NewSnapshot("empty", NewResult()).Marshal()
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"empty","steps":[],"trace":[]}`, string(data))
}
