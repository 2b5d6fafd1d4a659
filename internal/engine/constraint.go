package engine

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/roach88/adl/internal/ir"
	"github.com/roach88/adl/internal/schema"
)

// Constraint is a compiled defaulting or conversion constraint.
//
// Apply runs the constraint for property p at the context's current level.
// Failures are recorded on the context as soft errors; Apply never panics on
// bad payload data.
type Constraint interface {
	Name() string
	Apply(dir Direction, c *Context, p *schema.Property)
}

// filler is implemented by constraints that fill in destination values
// without moving anything. Properties whose conversion constraints are all
// fillers still get the default structural copy first.
type filler interface {
	fillsOnly()
}

// Built-in constraint names.
const (
	NameDefaultValue = "DefaultValue"
	NameRenameTo     = "RenameTo"
	NameMoveTo       = "MoveTo"
)

// DefaultValue assigns Value to the destination property when it is absent,
// or when a string or number property holds its zero value. An explicit
// false is a real boolean value and is left alone.
type DefaultValue struct {
	Value string
}

func (DefaultValue) Name() string { return NameDefaultValue }
func (DefaultValue) fillsOnly()   {}

func (d DefaultValue) Apply(_ Direction, c *Context, p *schema.Property) {
	model, obj := c.Destination()
	target := model.GetProperty(p.Name)
	if target == nil {
		c.Errorf(ErrCodeMissingProperty, c.PathOf(p.Name),
			"DefaultValue failed to find property %s on %s and will not run", p.Name, model.Name)
		return
	}
	applyDefault(c, obj, target, d.Value)
}

func applyDefault(c *Context, obj ir.IRObject, p *schema.Property, literal string) {
	if !p.IsScalar() {
		c.Verbose("DefaultValue ignored on non-scalar property", "path", c.PathOf(p.Name), "kind", p.DataTypeKind.String())
		return
	}

	current, present := obj[p.Name]
	if present && !zeroFor(p.DataTypeName, current) {
		return
	}

	value, err := coerce(p.DataTypeName, literal)
	if err != nil {
		c.Errorf(ErrCodeInvalidDefault, c.PathOf(p.Name), "DefaultValue %q: %v", literal, err)
		return
	}
	obj[p.Name] = value
	c.record(ActionDefault, c.PathOf(p.Name), literal)
}

// zeroFor reports whether v counts as unset for the given scalar type.
// Booleans never do.
func zeroFor(typeName string, v ir.IRValue) bool {
	switch typeName {
	case schema.TypeString:
		_, ok := v.(ir.IRString)
		return ok && ir.IsZeroScalar(v)
	case schema.TypeNumber:
		_, ok := v.(ir.IRInt)
		return ok && ir.IsZeroScalar(v)
	default:
		return false
	}
}

func coerce(typeName, literal string) (ir.IRValue, error) {
	switch typeName {
	case schema.TypeString:
		return ir.IRString(literal), nil
	case schema.TypeNumber:
		n, err := strconv.ParseInt(literal, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer")
		}
		return ir.IRInt(n), nil
	case schema.TypeBoolean:
		b, err := strconv.ParseBool(literal)
		if err != nil {
			return nil, fmt.Errorf("not a boolean")
		}
		return ir.IRBool(b), nil
	default:
		return nil, fmt.Errorf("unsupported scalar type %q", typeName)
	}
}

// RenameTo copies a property to a differently named property in the same
// container on the other side.
type RenameTo struct {
	Target string
}

func (RenameTo) Name() string { return NameRenameTo }

func (r RenameTo) Apply(dir Direction, c *Context, p *schema.Property) {
	if dir == ToNormalized {
		target := c.NormalizedModel.GetProperty(r.Target)
		if target == nil {
			c.Errorf(ErrCodeMissingProperty, c.PathOf(p.Name),
				"RenameTo failed to find property %s on %s and will not run", r.Target, c.NormalizedModel.Name)
			return
		}
		c.transfer(ActionRename, p, c.Versioned, p.Name, target, c.Normalized, r.Target, c.PathOf(r.Target))
		return
	}

	source := c.NormalizedModel.GetProperty(r.Target)
	if source == nil {
		c.Errorf(ErrCodeMissingProperty, c.PathOf(p.Name),
			"RenameTo failed to find property %s on %s and will not run", r.Target, c.NormalizedModel.Name)
		return
	}
	c.transfer(ActionRename, source, c.Normalized, r.Target, p, c.Versioned, p.Name, c.PathOf(p.Name))
}

// MoveTo copies a property to a dotted path on the other side. A leading
// "$" starts the path at the root instead of the current level.
//
// Only the normalized side supports crossing containers. Converting back to
// a versioned shape accepts single-segment targets and rejects anything else.
type MoveTo struct {
	Path string
}

func (MoveTo) Name() string { return NameMoveTo }

func (m MoveTo) Apply(dir Direction, c *Context, p *schema.Property) {
	if dir == ToNormalized {
		if !c.Versioned.Has(p.Name) {
			return
		}
		c.Verbose("MoveTo", "path", m.Path, "source", c.PathOf(p.Name))
		model, obj, leaf, ok := c.resolvePath(m.Path, c.PathOf(p.Name))
		if !ok {
			return
		}
		target := model.GetProperty(leaf)
		if target == nil {
			c.Errorf(ErrCodeMissingProperty, c.PathOf(p.Name),
				"MoveTo failed to find property %s on %s and will not run", leaf, model.Name)
			return
		}
		c.transfer(ActionMove, p, c.Versioned, p.Name, target, obj, leaf, m.destinationPath(c))
		return
	}

	if strings.HasPrefix(m.Path, "$") || strings.Contains(m.Path, ".") {
		c.Errorf(ErrCodeUnsupportedPath, c.PathOf(p.Name),
			"MoveTo path %q: only same-container targets are supported when converting to a versioned shape", m.Path)
		return
	}
	source := c.NormalizedModel.GetProperty(m.Path)
	if source == nil {
		c.Errorf(ErrCodeMissingProperty, c.PathOf(p.Name),
			"MoveTo failed to find property %s on %s and will not run", m.Path, c.NormalizedModel.Name)
		return
	}
	c.transfer(ActionMove, source, c.Normalized, m.Path, p, c.Versioned, p.Name, c.PathOf(p.Name))
}

// destinationPath is the field path written to on the normalized side.
func (m MoveTo) destinationPath(c *Context) string {
	if rest, rooted := strings.CutPrefix(m.Path, "$."); rooted {
		return rest
	}
	return c.PathOf(m.Path)
}

// Factory builds a constraint from its declared arguments.
type Factory func(args []string) (Constraint, error)

// Registry maps constraint names to factories. It is filled before a
// Runtime is built; lookups afterwards are read-only.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding DefaultValue, RenameTo and MoveTo.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NameDefaultValue, func(args []string) (Constraint, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("DefaultValue takes 1 argument, got %d", len(args))
		}
		return DefaultValue{Value: args[0]}, nil
	})
	r.Register(NameRenameTo, func(args []string) (Constraint, error) {
		if len(args) != 1 || args[0] == "" {
			return nil, fmt.Errorf("RenameTo takes 1 non-empty argument, got %d", len(args))
		}
		return RenameTo{Target: args[0]}, nil
	})
	r.Register(NameMoveTo, func(args []string) (Constraint, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("MoveTo takes 1 argument, got %d", len(args))
		}
		if err := checkPath(args[0]); err != nil {
			return nil, err
		}
		return MoveTo{Path: args[0]}, nil
	})
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Build compiles a declared constraint.
func (r *Registry) Build(c schema.Constraint) (Constraint, error) {
	r.mu.RLock()
	f, ok := r.factories[c.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown constraint %q", c.Name)
	}
	return f(c.Arguments)
}

func checkPath(path string) error {
	if path == "" {
		return fmt.Errorf("MoveTo path is empty")
	}
	segments := strings.Split(path, ".")
	if segments[0] == "$" {
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return fmt.Errorf("MoveTo path %q has no target segment", path)
	}
	for _, s := range segments {
		if s == "" || s == "$" {
			return fmt.Errorf("MoveTo path %q has an empty or misplaced segment", path)
		}
	}
	return nil
}

// compiledProperty holds the constraints of one property, built once.
type compiledProperty struct {
	defaulting []Constraint
	conversion []Constraint
}

func compileProperty(reg *Registry, p *schema.Property) (compiledProperty, error) {
	var out compiledProperty
	for _, decl := range p.Defaulting {
		c, err := reg.Build(decl)
		if err != nil {
			return out, fmt.Errorf("property %s: %w", p.Name, err)
		}
		out.defaulting = append(out.defaulting, c)
	}
	for _, decl := range p.Conversion {
		c, err := reg.Build(decl)
		if err != nil {
			return out, fmt.Errorf("property %s: %w", p.Name, err)
		}
		out.conversion = append(out.conversion, c)
	}
	return out, nil
}

func onlyFillers(cs []Constraint) bool {
	for _, c := range cs {
		if _, ok := c.(filler); !ok {
			return false
		}
	}
	return true
}
