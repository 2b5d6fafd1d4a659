package engine

import (
	"strings"

	"github.com/roach88/adl/internal/ir"
	"github.com/roach88/adl/internal/schema"
)

// resolvePath walks a dotted path on the normalized side and returns the
// parent (model, payload) pair of the final segment together with the leaf
// name. A leading "$" starts at the root; otherwise the walk starts at the
// current level.
//
// Missing intermediate objects are created on the way down. Containers are
// always objects, never arrays. An undeclared segment or a non-object value
// in the way is a soft error and ok is false.
func (c *Context) resolvePath(path, errPath string) (model *schema.ApiTypeModel, obj ir.IRObject, leaf string, ok bool) {
	segments := strings.Split(path, ".")
	model, obj = c.NormalizedModel, c.Normalized
	if segments[0] == "$" {
		model, obj = c.RootNormalizedModel, c.RootNormalized
		segments = segments[1:]
	}
	if len(segments) == 0 || segments[len(segments)-1] == "" {
		c.Errorf(ErrCodeUnresolvablePath, errPath, "path %q has no target segment", path)
		return nil, nil, "", false
	}

	for _, seg := range segments[:len(segments)-1] {
		p := model.GetProperty(seg)
		if p == nil {
			c.Errorf(ErrCodeUnresolvablePath, errPath,
				"path %q: property %s not found on %s", path, seg, model.Name)
			return nil, nil, "", false
		}

		next, present := obj[seg]
		if !present {
			next = ir.IRObject{}
			obj[seg] = next
		}
		child, isObj := next.(ir.IRObject)
		if !isObj {
			c.Errorf(ErrCodeNotContainer, errPath,
				"path %q: %s holds %s, not an object", path, seg, ir.TypeName(next))
			return nil, nil, "", false
		}

		model, obj = p.ComplexDataTypeOrPanic(), child
	}

	return model, obj, segments[len(segments)-1], true
}
