// Package harness runs conversion scenarios against CUE schemas.
//
// A scenario names a schema file, a sequence of conversion steps and a set
// of assertions. Every step goes through the real engine and is recorded in
// a fresh in-memory store, so final_state assertions see exactly what
// `adl convert --db` would have written.
//
// # Scenario Format
//
//	name: widget_round_trip
//	description: "colour survives a round trip"
//	schema: ../schemas/widgets.cue
//	api: widgets
//	steps:
//	  - direction: to_normalized
//	    version: "2021-01-01"
//	    type: Widget
//	    input: { colour: red }
//	    expect:
//	      output: { color: red, size: 7 }
//	      errors: []
//	      valid: true
//	  - direction: to_versioned
//	    version: "2021-01-01"
//	    type: Widget
//	    input_from: 0
//	assertions:
//	  - type: trace_contains
//	    action: rename
//	    path: colour
//	  - type: final_state
//	    table: conversions
//	    where: { direction: to_versioned }
//	    expect: { type_name: Widget }
//
// # Assertion Types
//
//   - trace_contains: an action appears in the trace, optionally at a path
//   - trace_order: actions appear in the specified order
//   - trace_count: an action appears exactly N times
//   - final_state: one store row matches and holds the expected values
//
// # Deterministic Testing
//
// Run IDs come from testutil.SequentialIDs prefixed with the scenario name,
// and engine trace sequence numbers restart at 1 for every run. Snapshots
// serialize through canonical JSON, so golden files are byte-stable.
package harness
