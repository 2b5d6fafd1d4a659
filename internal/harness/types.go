package harness

import "github.com/roach88/adl/internal/ir"

// TraceEvent is one engine trace step, tagged with the scenario step that
// produced it.
type TraceEvent struct {
	Step   int    `json:"step"`
	RunID  string `json:"run_id"`
	Seq    int64  `json:"seq"`
	Action string `json:"action"`
	Path   string `json:"path"`
	Detail string `json:"detail,omitempty"`
}

// StepOutcome is what one scenario step produced.
type StepOutcome struct {
	Direction string      `json:"direction"`
	Version   string      `json:"version"`
	Type      string      `json:"type"`
	Output    ir.IRObject `json:"output"`
	Errors    []string    `json:"errors"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Steps holds one outcome per scenario step, in order.
	Steps []StepOutcome `json:"steps"`

	// Trace concatenates the engine traces of every step.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepOutcome{},
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
