package conformance

import (
	"slices"
	"sync"

	"github.com/roach88/adl/internal/schema"
)

// Rule is a structural check over one schema instance.
type Rule interface {
	Name() string
	Group() string
	Kind() Kind
	Scope() Scope
	RunRule(instance *schema.ApiTypeModel) []ConformanceError
}

type entry struct {
	name string
	rule Rule
}

// Engine holds registered rules in registration order.
//
// Registration happens before the first Run; after that the engine is only
// read, so Run may be called from several goroutines.
type Engine struct {
	mu    sync.RWMutex
	rules []entry
}

// NewEngine returns an engine with no rules.
func NewEngine() *Engine {
	return &Engine{}
}

// Register adds a rule under name. Registering an existing name replaces the
// rule and keeps its original position.
func (e *Engine) Register(name string, rule Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.rules {
		if e.rules[i].name == name {
			e.rules[i].rule = rule
			return
		}
	}
	e.rules = append(e.rules, entry{name: name, rule: rule})
}

// Names returns the registered rule names in registration order.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.name
	}
	return names
}

// Groups returns the distinct rule groups, sorted.
func (e *Engine) Groups() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var groups []string
	for _, r := range e.rules {
		if !slices.Contains(groups, r.rule.Group()) {
			groups = append(groups, r.rule.Group())
		}
	}
	slices.Sort(groups)
	return groups
}

// Run executes every rule whose scope matches and whose group equals group,
// concatenating their findings in registration order. An empty group runs
// every group.
func (e *Engine) Run(instance *schema.ApiTypeModel, scope Scope, group string) []ConformanceError {
	e.mu.RLock()
	rules := slices.Clone(e.rules)
	e.mu.RUnlock()

	out := []ConformanceError{}
	for _, r := range rules {
		if r.rule.Scope() != scope {
			continue
		}
		if group != "" && r.rule.Group() != group {
			continue
		}
		for _, finding := range r.rule.RunRule(instance) {
			if finding.Rule == "" {
				finding.Rule = r.name
			}
			out = append(out, finding)
		}
	}
	return out
}

// RunAPI runs the engine over every normalized type and every versioned type
// of every version of api.
func (e *Engine) RunAPI(api *schema.ApiModel, group string) []ConformanceError {
	out := []ConformanceError{}
	for _, m := range api.Normalized {
		out = append(out, e.Run(m, NormalizedApiType, group)...)
	}
	for _, v := range api.Versions {
		for _, t := range v.Types {
			out = append(out, e.Run(t.Model, VersionedApiType, group)...)
		}
	}
	return out
}
