package conformance

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/roach88/adl/internal/schema"
)

// Names and group of the built-in generic rules.
const (
	GroupADL              = "adl"
	RuleConversionTargets = "adl:conversion_targets"
	RulePropertyNaming    = "adl:property_naming"
)

const (
	constraintRenameTo = "RenameTo"
	constraintMoveTo   = "MoveTo"
	maxWalkDepth       = 32
)

// ConversionTargetRule checks that every RenameTo and MoveTo target on a
// versioned type resolves in the normalized type it is paired with.
//
// A MoveTo that crosses containers only works toward the normalized shape,
// so it is reported as a warning as well.
type ConversionTargetRule struct {
	pairs map[*schema.ApiTypeModel]*schema.ApiTypeModel
}

// NewConversionTargetRule builds the rule from the pairings of a catalog.
func NewConversionTargetRule(catalog ...*schema.ApiModel) *ConversionTargetRule {
	r := &ConversionTargetRule{pairs: make(map[*schema.ApiTypeModel]*schema.ApiTypeModel)}
	for _, api := range catalog {
		for _, v := range api.Versions {
			for _, t := range v.Types {
				r.pairs[t.Model] = t.Normalized
			}
		}
	}
	return r
}

func (*ConversionTargetRule) Name() string  { return RuleConversionTargets }
func (*ConversionTargetRule) Group() string { return GroupADL }
func (*ConversionTargetRule) Kind() Kind    { return Conversion }
func (*ConversionTargetRule) Scope() Scope  { return VersionedApiType }

func (r *ConversionTargetRule) RunRule(instance *schema.ApiTypeModel) []ConformanceError {
	w := &targetWalk{typeName: instance.Name, errs: []ConformanceError{}}
	normalized, ok := r.pairs[instance]
	if !ok || normalized == nil {
		w.report(Unconformant, instance.Name, "", "versioned type has no normalized counterpart")
		return w.errs
	}
	w.root = normalized
	w.level(instance, normalized, "", 0)
	return w.errs
}

type targetWalk struct {
	typeName string
	root     *schema.ApiTypeModel
	errs     []ConformanceError
}

func (w *targetWalk) report(v ViolationKind, model, path, format string, args ...any) {
	w.errs = append(w.errs, ConformanceError{
		Scope:         VersionedApiType,
		Kind:          Conversion,
		ViolationKind: v,
		ModelName:     model,
		TypeName:      w.typeName,
		PropertyPath:  path,
		Message:       fmt.Sprintf(format, args...),
	})
}

func (w *targetWalk) level(versioned, normalized *schema.ApiTypeModel, base string, depth int) {
	if depth > maxWalkDepth {
		return
	}
	for _, p := range versioned.Properties {
		if p.Removed {
			continue
		}
		path := p.Name
		if base != "" {
			path = base + "." + p.Name
		}

		counterpart := p.Name
		for _, c := range p.Conversion {
			switch c.Name {
			case constraintRenameTo:
				counterpart = c.Arg(0)
				if normalized.GetProperty(counterpart) == nil {
					w.report(Unconformant, versioned.Name, path,
						"RenameTo target %q is not a property of normalized type %s", counterpart, normalized.Name)
				}
			case constraintMoveTo:
				if !strings.ContainsAny(c.Arg(0), "$.") {
					counterpart = c.Arg(0)
				}
				w.moveTarget(versioned, normalized, path, c.Arg(0))
			}
		}

		if !p.IsComplex() || p.Complex == nil {
			continue
		}
		np := normalized.GetProperty(counterpart)
		if np == nil || !np.IsComplex() || np.Complex == nil {
			continue
		}
		w.level(p.Complex, np.Complex, path, depth+1)
	}
}

func (w *targetWalk) moveTarget(versioned, normalized *schema.ApiTypeModel, path, target string) {
	segments := strings.Split(target, ".")
	model := normalized
	if segments[0] == "$" {
		model = w.root
		segments = segments[1:]
	}
	if len(segments) == 0 {
		w.report(Unconformant, versioned.Name, path, "MoveTo target %q has no segments", target)
		return
	}

	for i, seg := range segments {
		p := model.GetProperty(seg)
		if p == nil {
			w.report(Unconformant, versioned.Name, path,
				"MoveTo target %q: %s is not a property of normalized type %s", target, seg, model.Name)
			return
		}
		if i == len(segments)-1 {
			break
		}
		if p.DataTypeKind != schema.Complex || p.Complex == nil {
			w.report(Unconformant, versioned.Name, path,
				"MoveTo target %q: %s is %s, only complex properties can be traversed", target, seg, p.DataTypeKind)
			return
		}
		model = p.Complex
	}

	if strings.HasPrefix(target, "$") || len(segments) > 1 {
		w.report(Warning, versioned.Name, path,
			"MoveTo target %q leaves the current container and will not convert back to the versioned shape", target)
	}
}

// PropertyNamingRule warns about normalized property names that are not
// lower camel case.
type PropertyNamingRule struct{}

func (PropertyNamingRule) Name() string  { return RulePropertyNaming }
func (PropertyNamingRule) Group() string { return GroupADL }
func (PropertyNamingRule) Kind() Kind    { return Naming }
func (PropertyNamingRule) Scope() Scope  { return NormalizedApiType }

func (r PropertyNamingRule) RunRule(instance *schema.ApiTypeModel) []ConformanceError {
	errs := []ConformanceError{}
	r.walk(instance, instance, "", 0, &errs)
	return errs
}

func (r PropertyNamingRule) walk(root, model *schema.ApiTypeModel, base string, depth int, errs *[]ConformanceError) {
	if depth > maxWalkDepth {
		return
	}
	for _, p := range model.Properties {
		path := p.Name
		if base != "" {
			path = base + "." + p.Name
		}
		if !lowerCamel(p.Name) {
			*errs = append(*errs, ConformanceError{
				Scope:         NormalizedApiType,
				Kind:          Naming,
				ViolationKind: Warning,
				ModelName:     model.Name,
				TypeName:      root.Name,
				PropertyPath:  path,
				Message:       fmt.Sprintf("property name %q is not lower camel case", p.Name),
			})
		}
		if p.IsComplex() && p.Complex != nil {
			r.walk(root, p.Complex, path, depth+1, errs)
		}
	}
}

func lowerCamel(name string) bool {
	for i, r := range name {
		if i == 0 && !unicode.IsLower(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return name != ""
}

// RegisterBuiltins registers the generic rules for a catalog.
func RegisterBuiltins(e *Engine, catalog ...*schema.ApiModel) {
	e.Register(RuleConversionTargets, NewConversionTargetRule(catalog...))
	e.Register(RulePropertyNaming, PropertyNamingRule{})
}
