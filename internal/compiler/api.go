package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/adl/internal/schema"
)

// maxDepth bounds nested type resolution. CUE rejects structural cycles on
// its own; this catches pathological nesting with a readable error.
const maxDepth = 32

// Attribute keys recognised on fields.
const (
	attrConversion = "conv"
	attrDefaulting = "def"
	attrValidation = "valid"
	attrFlags      = "adl"
)

// Flags accepted inside @adl(...).
const (
	FlagRemoved          = "Removed"
	FlagNoAutoConversion = "NoAutoConversion"
)

// CompileAPI parses one API definition into a catalog entry.
// Uses the CUE SDK's Go API directly.
//
// The CUE value should be the API struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(src)
//	api, err := CompileAPI(v.LookupPath(cue.ParsePath("api.widgets")))
func CompileAPI(v cue.Value) (*schema.ApiModel, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	api := &schema.ApiModel{Name: lastLabel(v)}

	normVal := v.LookupPath(cue.ParsePath("normalized"))
	if !normVal.Exists() {
		return nil, &CompileError{
			Field:   "normalized",
			Message: "normalized types are required",
			Pos:     v.Pos(),
		}
	}

	iter, err := normVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		m, err := CompileType(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		api.Normalized = append(api.Normalized, m)
	}
	if len(api.Normalized) == 0 {
		return nil, &CompileError{
			Field:   "normalized",
			Message: "at least one normalized type is required",
			Pos:     normVal.Pos(),
		}
	}

	// Versions are optional: an API may be defined before its first release.
	versVal := v.LookupPath(cue.ParsePath("versions"))
	if !versVal.Exists() {
		return api, nil
	}

	verIter, err := versVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for verIter.Next() {
		version, err := compileVersion(api, verIter.Label(), verIter.Value())
		if err != nil {
			return nil, err
		}
		api.Versions = append(api.Versions, version)
	}

	return api, nil
}

// CompileAPIs compiles every API declared under the top-level "api" field
// of v, in source order. An API that fails to compile is skipped and its
// error collected; the rest still compile.
func CompileAPIs(v cue.Value) ([]*schema.ApiModel, []error) {
	apisVal := v.LookupPath(cue.ParsePath("api"))
	if !apisVal.Exists() {
		return nil, []error{&CompileError{Field: "api", Message: "no api field found", Pos: v.Pos()}}
	}

	iter, err := apisVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}
	var (
		apis []*schema.ApiModel
		errs []error
	)
	for iter.Next() {
		api, err := CompileAPI(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("api %s: %w", iter.Label(), err))
			continue
		}
		apis = append(apis, api)
	}
	return apis, errs
}

func compileVersion(api *schema.ApiModel, name string, v cue.Value) (*schema.Version, error) {
	version := &schema.Version{Name: name}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		typeName := iter.Label()
		normalized := api.NormalizedType(typeName)
		if normalized == nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("versions.%s.%s", name, typeName),
				Message: fmt.Sprintf("no normalized type named %s", typeName),
				Pos:     iter.Value().Pos(),
			}
		}

		m, err := CompileType(typeName, iter.Value())
		if err != nil {
			return nil, err
		}
		version.Types = append(version.Types, &schema.VersionedApiType{
			Model:      m,
			Version:    name,
			Normalized: normalized,
		})
	}

	return version, nil
}

// CompileType parses a CUE struct into an ApiTypeModel.
func CompileType(name string, v cue.Value) (*schema.ApiTypeModel, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileModel(name, v, name, 0)
}

func compileModel(name string, v cue.Value, path string, depth int) (*schema.ApiTypeModel, error) {
	if depth > maxDepth {
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("type nesting exceeds %d levels", maxDepth),
			Pos:     v.Pos(),
		}
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("type %s must be a struct, got %v", name, v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	iter, err := v.Fields(cue.Optional(true))
	if err != nil {
		return nil, formatCUEError(err)
	}

	var props []*schema.Property
	for iter.Next() {
		p, err := compileProperty(iter.Label(), iter.Value(), path+"."+iter.Label(), depth)
		if err != nil {
			return nil, err
		}
		p.Optional = iter.IsOptional()
		props = append(props, p)
	}

	m, err := schema.NewApiTypeModel(name, props...)
	if err != nil {
		return nil, &CompileError{Field: path, Message: err.Error(), Pos: v.Pos()}
	}
	return m, nil
}

func compileProperty(name string, v cue.Value, path string, depth int) (*schema.Property, error) {
	p := &schema.Property{Name: name}

	if err := resolveKind(p, v, path, depth); err != nil {
		return nil, err
	}
	if err := parseAttributes(p, v, path); err != nil {
		return nil, err
	}
	return p, nil
}

// resolveKind sets DataTypeKind, DataTypeName and the nested model.
// Exactly one data type must resolve; anything else is a load error.
func resolveKind(p *schema.Property, v cue.Value, path string, depth int) error {
	switch v.IncompleteKind() {
	case cue.ListKind:
		elem := v.LookupPath(cue.MakePath(cue.AnyIndex))
		if !elem.Exists() {
			return &CompileError{
				Field:   path,
				Message: "list must declare an element type, e.g. [...string]",
				Pos:     v.Pos(),
			}
		}
		if elem.IncompleteKind() == cue.StructKind {
			nested, typeName, err := compileNested(p.Name, elem, path+"[]", depth)
			if err != nil {
				return err
			}
			p.DataTypeKind = schema.ComplexArray
			p.DataTypeName = typeName
			p.Complex = nested
			return nil
		}
		scalar, err := scalarTypeName(elem, path+"[]")
		if err != nil {
			return err
		}
		p.DataTypeKind = schema.ScalarArray
		p.DataTypeName = scalar
		return nil

	case cue.StructKind:
		if elem, ok := mapElement(v); ok {
			if elem.IncompleteKind() == cue.StructKind {
				nested, _, err := compileNested(p.Name, elem, path+"{}", depth)
				if err != nil {
					return err
				}
				p.DataTypeKind = schema.ComplexMap
				p.DataTypeName = schema.TypeMap
				p.Complex = nested
				return nil
			}
			if _, err := scalarTypeName(elem, path+"{}"); err != nil {
				return err
			}
			p.DataTypeKind = schema.Map
			p.DataTypeName = schema.TypeMap
			return nil
		}
		nested, typeName, err := compileNested(p.Name, v, path, depth)
		if err != nil {
			return err
		}
		p.DataTypeKind = schema.Complex
		p.DataTypeName = typeName
		p.Complex = nested
		return nil

	default:
		scalar, err := scalarTypeName(v, path)
		if err != nil {
			return err
		}
		p.DataTypeKind = schema.Scalar
		p.DataTypeName = scalar
		return nil
	}
}

// mapElement reports the value constraint of a {[string]: T} struct.
// A struct that also declares regular fields is a complex type, not a map.
func mapElement(v cue.Value) (cue.Value, bool) {
	elem := v.LookupPath(cue.MakePath(cue.AnyString))
	if !elem.Exists() {
		return cue.Value{}, false
	}
	iter, err := v.Fields(cue.Optional(true))
	if err == nil && iter.Next() {
		return cue.Value{}, false
	}
	return elem, true
}

// compileNested builds the model of a complex property. The type name comes
// from the referenced definition (#Address -> Address) when there is one,
// otherwise from the field label.
func compileNested(label string, v cue.Value, path string, depth int) (*schema.ApiTypeModel, string, error) {
	typeName := label
	if _, ref := v.ReferencePath(); len(ref.Selectors()) > 0 {
		sels := ref.Selectors()
		typeName = strings.TrimPrefix(sels[len(sels)-1].String(), "#")
	}

	m, err := compileModel(typeName, v, path, depth+1)
	if err != nil {
		return nil, "", err
	}
	return m, typeName, nil
}

// scalarTypeName converts a CUE kind to a scalar data type name.
// Floats are forbidden: payload numbers are always int64.
func scalarTypeName(v cue.Value, path string) (string, error) {
	switch k := v.IncompleteKind(); k {
	case cue.StringKind:
		return schema.TypeString, nil
	case cue.IntKind:
		return schema.TypeNumber, nil
	case cue.BoolKind:
		return schema.TypeBoolean, nil
	case cue.FloatKind, cue.NumberKind:
		return "", &CompileError{
			Field:   path,
			Message: "float types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   path,
			Message: fmt.Sprintf("property must resolve to exactly one data type, got %v", k),
			Pos:     v.Pos(),
		}
	}
}

// parseAttributes reads constraint and flag attributes from a field.
//
//	size?: int @def(DefaultValue, 7) @valid(MaxLength, 3)
//	colour: string @conv(RenameTo, color)
//	legacy?: string @adl(Removed)
func parseAttributes(p *schema.Property, v cue.Value, path string) error {
	for _, attr := range v.Attributes(cue.FieldAttr) {
		if err := attr.Err(); err != nil {
			return &CompileError{Field: path, Message: err.Error(), Pos: v.Pos()}
		}

		switch attr.Name() {
		case attrConversion, attrDefaulting, attrValidation:
			c, err := constraintFromAttr(attr, path, v.Pos())
			if err != nil {
				return err
			}
			switch attr.Name() {
			case attrConversion:
				p.Conversion = append(p.Conversion, c)
			case attrDefaulting:
				p.Defaulting = append(p.Defaulting, c)
			default:
				p.Validation = append(p.Validation, c)
			}

		case attrFlags:
			for i := 0; i < attr.NumArgs(); i++ {
				flag, err := attr.String(i)
				if err != nil {
					return &CompileError{Field: path, Message: err.Error(), Pos: v.Pos()}
				}
				switch flag {
				case FlagRemoved:
					p.Removed = true
				case FlagNoAutoConversion:
					p.ManuallyConverted = true
				default:
					return &CompileError{
						Field:   path,
						Message: fmt.Sprintf("unknown @adl flag %q", flag),
						Pos:     v.Pos(),
					}
				}
			}
		}
	}
	return nil
}

func constraintFromAttr(attr cue.Attribute, path string, pos token.Pos) (schema.Constraint, error) {
	args := make([]string, 0, attr.NumArgs())
	for i := 0; i < attr.NumArgs(); i++ {
		s, err := attr.String(i)
		if err != nil {
			return schema.Constraint{}, &CompileError{Field: path, Message: err.Error(), Pos: pos}
		}
		args = append(args, strings.TrimSpace(s))
	}

	// An empty body still parses as one empty argument.
	if len(args) == 0 || args[0] == "" {
		return schema.Constraint{}, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("@%s requires a constraint name", attr.Name()),
			Pos:     pos,
		}
	}

	return schema.Constraint{Name: args[0], Arguments: args[1:]}, nil
}

func lastLabel(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return strings.Trim(sels[len(sels)-1].String(), `"`)
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
