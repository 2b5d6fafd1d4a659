package engine

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/roach88/adl/internal/ir"
	"github.com/roach88/adl/internal/schema"
)

// Direction selects which side of a conversion is the source.
type Direction int

const (
	// ToNormalized converts a versioned payload into the canonical shape.
	ToNormalized Direction = iota
	// ToVersioned converts a canonical payload into a versioned wire shape.
	ToVersioned
)

func (d Direction) String() string {
	switch d {
	case ToNormalized:
		return "to_normalized"
	case ToVersioned:
		return "to_versioned"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection accepts the String() form of a direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "to_normalized", "normalize":
		return ToNormalized, nil
	case "to_versioned", "convert":
		return ToVersioned, nil
	default:
		return 0, fmt.Errorf("unknown direction %q (want to_normalized or to_versioned)", s)
	}
}

// Step is one entry in a conversion trace.
type Step struct {
	Seq    int64  `json:"seq"`
	Action string `json:"action"`
	Path   string `json:"path"`
	Detail string `json:"detail,omitempty"`
}

// Trace actions.
const (
	ActionCopy     = "copy"
	ActionRename   = "rename"
	ActionMove     = "move"
	ActionDefault  = "default"
	ActionSkip     = "skip"
	ActionConflict = "conflict"
	ActionError    = "error"
)

// run holds the state shared by every Context of one top-level call.
type run struct {
	id       string
	logger   *slog.Logger
	clock    *Clock
	errors   []ConversionError
	trace    []Step
	resolved func(p *schema.Property) compiledProperty
}

// Context threads one conversion call through the recursive walk.
//
// A Context is created per top-level Normalize/Convert call and never shared
// between calls. Roots stay fixed; the leveled pair (model + payload at the
// current depth) changes as the walk descends. Child contexts share the run,
// so errors and trace entries accumulate in one place.
type Context struct {
	Direction Direction

	RootVersionedModel  *schema.ApiTypeModel
	RootVersioned       ir.IRObject
	RootNormalizedModel *schema.ApiTypeModel
	RootNormalized      ir.IRObject

	VersionedModel  *schema.ApiTypeModel
	Versioned       ir.IRObject
	NormalizedModel *schema.ApiTypeModel
	Normalized      ir.IRObject

	// FieldPath is the dotted path of the current level, "" at the root.
	FieldPath string

	run *run
}

// RunID returns the identifier of the run this context belongs to.
func (c *Context) RunID() string {
	return c.run.id
}

// Errors returns the soft errors recorded so far.
func (c *Context) Errors() []ConversionError {
	return c.run.errors
}

// Source returns the leveled (model, payload) pair values are read from.
func (c *Context) Source() (*schema.ApiTypeModel, ir.IRObject) {
	if c.Direction == ToNormalized {
		return c.VersionedModel, c.Versioned
	}
	return c.NormalizedModel, c.Normalized
}

// Destination returns the leveled (model, payload) pair values are written to.
func (c *Context) Destination() (*schema.ApiTypeModel, ir.IRObject) {
	if c.Direction == ToNormalized {
		return c.NormalizedModel, c.Normalized
	}
	return c.VersionedModel, c.Versioned
}

// PathOf returns the field path of a property name at the current level.
func (c *Context) PathOf(name string) string {
	if c.FieldPath == "" {
		return name
	}
	return c.FieldPath + "." + name
}

// descend returns a child context for a nested level. The source and
// destination pairs are given in direction order.
func (c *Context) descend(segment string, srcModel *schema.ApiTypeModel, src ir.IRObject, dstModel *schema.ApiTypeModel, dst ir.IRObject) *Context {
	child := *c
	child.FieldPath = segment
	if c.Direction == ToNormalized {
		child.VersionedModel, child.Versioned = srcModel, src
		child.NormalizedModel, child.Normalized = dstModel, dst
	} else {
		child.NormalizedModel, child.Normalized = srcModel, src
		child.VersionedModel, child.Versioned = dstModel, dst
	}
	return &child
}

// Errorf records a soft error and logs it at error level.
func (c *Context) Errorf(code ErrorCode, path, format string, args ...any) {
	e := ConversionError{Code: code, Path: path, Message: fmt.Sprintf(format, args...)}
	c.run.errors = append(c.run.errors, e)
	c.record(ActionError, path, string(code))
	c.run.logger.Error(e.Message,
		"code", string(code),
		"path", path,
		"direction", c.Direction.String(),
	)
}

// Verbose logs a step-level diagnostic. It never affects the result.
func (c *Context) Verbose(msg string, args ...any) {
	c.run.logger.Debug(msg, args...)
}

func (c *Context) record(action, path, detail string) {
	c.run.trace = append(c.run.trace, Step{
		Seq:    c.run.clock.Next(),
		Action: action,
		Path:   path,
		Detail: detail,
	})
}

func indexSegment(base string, i int) string {
	return base + "[" + strconv.Itoa(i) + "]"
}

func keySegment(base, key string) string {
	return base + "[" + strconv.Quote(key) + "]"
}
