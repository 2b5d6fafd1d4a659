package engine

import (
	"github.com/roach88/adl/internal/ir"
	"github.com/roach88/adl/internal/schema"
)

// convertLevel walks the versioned model's properties at the current level.
// Each property either runs its conversion constraints or falls back to the
// structural copy; a failing property never stops its siblings.
func (c *Context) convertLevel() {
	for _, vp := range c.VersionedModel.Properties {
		c.convertProperty(vp)
	}
}

func (c *Context) convertProperty(vp *schema.Property) {
	path := c.PathOf(vp.Name)
	if vp.Removed {
		c.Verbose("skipping removed property", "path", path)
		c.record(ActionSkip, path, "removed")
		return
	}

	compiled := c.run.resolved(vp)
	if len(compiled.conversion) > 0 {
		if onlyFillers(compiled.conversion) && !vp.ManuallyConverted {
			c.autoConvert(vp)
		}
		for _, con := range compiled.conversion {
			con.Apply(c.Direction, c, vp)
		}
		return
	}

	if vp.ManuallyConverted {
		c.Verbose("skipping manually converted property without conversion constraint", "path", path)
		c.record(ActionSkip, path, "manual")
		return
	}
	c.autoConvert(vp)
}

// autoConvert copies a versioned property to or from the same-named
// normalized property.
func (c *Context) autoConvert(vp *schema.Property) {
	np := c.NormalizedModel.GetProperty(vp.Name)
	if np == nil {
		c.Verbose("no normalized counterpart", "path", c.PathOf(vp.Name), "model", c.NormalizedModel.Name)
		return
	}

	if c.Direction == ToNormalized {
		c.transfer(ActionCopy, vp, c.Versioned, vp.Name, np, c.Normalized, np.Name, c.PathOf(np.Name))
		return
	}
	c.transfer(ActionCopy, np, c.Normalized, np.Name, vp, c.Versioned, vp.Name, c.PathOf(vp.Name))
}

// transfer moves one value from the source container to the destination
// container. Absence propagates; an already populated destination is a
// conflict and both sides are left untouched.
func (c *Context) transfer(action string, srcProp *schema.Property, src ir.IRObject, srcKey string, dstProp *schema.Property, dst ir.IRObject, dstKey, dstPath string) {
	v, present := src[srcKey]
	if !present {
		return
	}

	if dstProp.Removed {
		c.Verbose("not writing removed property", "path", dstPath)
		c.record(ActionSkip, dstPath, "removed")
		return
	}
	if dst.Has(dstKey) {
		c.record(ActionConflict, dstPath, srcKey)
		c.Errorf(ErrCodeConflict, dstPath,
			"%s found property %s already defined on the destination and will not run", action, dstKey)
		return
	}

	if srcProp.DataTypeKind != dstProp.DataTypeKind {
		c.Verbose("kind mismatch, copying as-is",
			"path", dstPath,
			"source_kind", srcProp.DataTypeKind.String(),
			"destination_kind", dstProp.DataTypeKind.String())
		dst[dstKey] = ir.Clone(v)
		c.record(action, dstPath, srcKey)
		return
	}

	dst[dstKey] = c.copyValue(srcProp, dstProp, v, dstPath)
	c.record(action, dstPath, srcKey)
}

// copyValue produces the destination value for v, dispatching on the
// destination kind. Complex members recurse through the converter so nested
// constraints run.
func (c *Context) copyValue(srcProp, dstProp *schema.Property, v ir.IRValue, path string) ir.IRValue {
	switch dstProp.DataTypeKind {
	case schema.Scalar:
		return ir.Clone(v)

	case schema.ScalarArray:
		arr, ok := v.(ir.IRArray)
		if !ok {
			return ir.Clone(v)
		}
		out := make(ir.IRArray, len(arr))
		for i, elem := range arr {
			out[i] = ir.Clone(elem)
		}
		return out

	case schema.Complex:
		obj, ok := v.(ir.IRObject)
		if !ok {
			return ir.Clone(v)
		}
		return c.convertNested(path, srcProp, dstProp, obj)

	case schema.ComplexArray:
		arr, ok := v.(ir.IRArray)
		if !ok {
			return ir.Clone(v)
		}
		out := make(ir.IRArray, len(arr))
		for i, elem := range arr {
			obj, ok := elem.(ir.IRObject)
			if !ok {
				out[i] = ir.Clone(elem)
				continue
			}
			out[i] = c.convertNested(indexSegment(path, i), srcProp, dstProp, obj)
		}
		return out

	case schema.Map, schema.ComplexMap:
		obj, ok := v.(ir.IRObject)
		if !ok {
			return ir.Clone(v)
		}
		out := make(ir.IRObject, len(obj))
		// Sorted so nested steps and errors are recorded in a stable order.
		for _, key := range obj.SortedKeys() {
			elem := obj[key]
			nested, isObj := elem.(ir.IRObject)
			if dstProp.DataTypeKind == schema.Map || !isObj {
				out[key] = ir.Clone(elem)
				continue
			}
			out[key] = c.convertNested(keySegment(path, key), srcProp, dstProp, nested)
		}
		return out

	default:
		return ir.Clone(v)
	}
}

func (c *Context) convertNested(path string, srcProp, dstProp *schema.Property, src ir.IRObject) ir.IRObject {
	dst := ir.IRObject{}
	child := c.descend(path, srcProp.ComplexDataTypeOrPanic(), src, dstProp.ComplexDataTypeOrPanic(), dst)
	child.convertLevel()
	return dst
}

// defaultLevel runs defaulting constraints over the destination pair at the
// current level and every nested object below it.
func (c *Context) defaultLevel() {
	model, obj := c.Destination()
	for _, p := range model.Properties {
		if p.Removed {
			continue
		}
		for _, con := range c.run.resolved(p).defaulting {
			con.Apply(c.Direction, c, p)
		}
		if !p.IsComplex() {
			continue
		}

		nested := p.ComplexDataTypeOrPanic()
		base := c.PathOf(p.Name)
		switch v := obj[p.Name].(type) {
		case ir.IRObject:
			switch p.DataTypeKind {
			case schema.Complex:
				c.defaultChild(base, nested, v)
			case schema.ComplexMap:
				for _, key := range v.SortedKeys() {
					if child, ok := v[key].(ir.IRObject); ok {
						c.defaultChild(keySegment(base, key), nested, child)
					}
				}
			}
		case ir.IRArray:
			if p.DataTypeKind != schema.ComplexArray {
				continue
			}
			for i, elem := range v {
				if child, ok := elem.(ir.IRObject); ok {
					c.defaultChild(indexSegment(base, i), nested, child)
				}
			}
		}
	}
}

func (c *Context) defaultChild(path string, model *schema.ApiTypeModel, obj ir.IRObject) {
	c.descend(path, nil, nil, model, obj).defaultLevel()
}
