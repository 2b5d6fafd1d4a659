// Package arm holds conformance rules for Azure Resource Manager resources.
package arm

import (
	"fmt"

	"github.com/roach88/adl/internal/conformance"
	"github.com/roach88/adl/internal/schema"
)

const (
	// Group is the rule group of every rule in this package.
	Group = "arm"

	// RuleShape is the name ShapeRule registers under.
	RuleShape = "arm:shape_conformance"

	// envelope is the property holding the resource payload.
	envelope = "properties"

	maxDepth = 32
)

// EnvelopeProperties are the top-level properties every resource must declare.
var EnvelopeProperties = []string{
	"apiVersion", "name", "id", "resourceGroup", "location", "type", "tags", "etag", envelope,
}

// ShapeRule checks that a versioned resource is wrapped in the ARM envelope
// and that no nested type declares a property named "properties".
type ShapeRule struct{}

func (ShapeRule) Name() string             { return RuleShape }
func (ShapeRule) Group() string            { return Group }
func (ShapeRule) Kind() conformance.Kind   { return conformance.Shape }
func (ShapeRule) Scope() conformance.Scope { return conformance.VersionedApiType }

func (r ShapeRule) RunRule(instance *schema.ApiTypeModel) []conformance.ConformanceError {
	errs := []conformance.ConformanceError{}
	add := func(model, path, format string, args ...any) {
		errs = append(errs, conformance.ConformanceError{
			Scope:         conformance.VersionedApiType,
			Kind:          conformance.Shape,
			ViolationKind: conformance.Unconformant,
			ModelName:     model,
			TypeName:      instance.Name,
			PropertyPath:  path,
			Message:       fmt.Sprintf(format, args...),
		})
	}

	for _, name := range EnvelopeProperties {
		if instance.GetProperty(name) == nil {
			add(instance.Name, name,
				"arm resource %s is unconformant, missing top level property %s; all arm resources must be wrapped in the arm envelope",
				instance.Name, name)
		}
	}

	payload := instance.GetProperty(envelope)
	if payload == nil {
		return errs
	}
	if payload.DataTypeKind != schema.Complex || payload.Complex == nil {
		add(instance.Name, envelope,
			"arm resource %s is unconformant, properties must be defined as a complex type", instance.Name)
		return errs
	}

	var walk func(model *schema.ApiTypeModel, base string, depth int)
	walk = func(model *schema.ApiTypeModel, base string, depth int) {
		if depth > maxDepth {
			return
		}
		for _, p := range model.Properties {
			path := base + "." + p.Name
			if p.Name == envelope {
				add(model.Name, path,
					"arm resource %s is unconformant, property with name %q is not allowed in nested types",
					instance.Name, envelope)
			}
			if (p.DataTypeKind == schema.Complex || p.DataTypeKind == schema.ComplexArray) && p.Complex != nil {
				walk(p.Complex, path, depth+1)
			}
		}
	}
	walk(payload.Complex, envelope, 0)

	return errs
}

// Register adds the ARM rules to a conformance engine.
func Register(e *conformance.Engine) {
	e.Register(RuleShape, ShapeRule{})
}
