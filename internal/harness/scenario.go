package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/adl/internal/engine"
)

// Scenario defines a conversion test scenario.
// Scenarios run a sequence of conversions against a CUE schema and assert
// on the outputs, the soft errors and the resulting trace.
type Scenario struct {
	// Name uniquely identifies this scenario. It also prefixes run IDs and
	// names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the path to the CUE file declaring the API.
	// Relative paths resolve against the scenario file location.
	Schema string `yaml:"schema"`

	// API selects the API when the schema declares more than one.
	API string `yaml:"api,omitempty"`

	// Steps are executed in order. Each is one engine call.
	Steps []Step `yaml:"steps"`

	// Assertions validate the combined trace and the recorded conversions.
	// Supported types: trace_contains, trace_order, trace_count, final_state
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one conversion call.
type Step struct {
	// Direction is to_normalized or to_versioned.
	Direction string `yaml:"direction"`

	Version string `yaml:"version"`
	Type    string `yaml:"type"`

	// Input is the source payload.
	Input map[string]interface{} `yaml:"input,omitempty"`

	// InputFrom feeds the output of an earlier step (zero-based) as input.
	// Mutually exclusive with Input.
	InputFrom *int `yaml:"input_from,omitempty"`

	// Expect specifies what the conversion must produce.
	// If nil, the step only contributes to the trace.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected conversion behavior.
type ExpectClause struct {
	// Output is compared exactly against the converted payload.
	Output map[string]interface{} `yaml:"output,omitempty"`

	// Errors lists the expected soft error codes, in order.
	// An empty list asserts a clean run; omitting it skips the check.
	Errors []string `yaml:"errors,omitempty"`

	// Valid runs payload validation on the output against the destination type.
	Valid bool `yaml:"valid,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an action appears in the trace, optionally at a path
	// - "trace_order": actions appear in order
	// - "trace_count": an action appears exactly N times
	// - "final_state": query a store table and verify expected values
	Type string `yaml:"type"`

	// Action is a trace action (used by trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Path narrows trace_contains to one property path.
	Path string `yaml:"path,omitempty"`

	// Table is the store table name (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by final_state).
	// All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected column values (used by final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected action order (used by trace_order).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file, resolving the schema
// path relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the schema path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
		return fmt.Errorf("schema file not found: %s", s.Schema)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if _, err := engine.ParseDirection(step.Direction); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		if step.Version == "" {
			return fmt.Errorf("steps[%d]: version is required", i)
		}
		if step.Type == "" {
			return fmt.Errorf("steps[%d]: type is required", i)
		}
		if step.InputFrom != nil {
			if step.Input != nil {
				return fmt.Errorf("steps[%d]: input and input_from are mutually exclusive", i)
			}
			if *step.InputFrom < 0 || *step.InputFrom >= i {
				return fmt.Errorf("steps[%d]: input_from must name an earlier step", i)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
