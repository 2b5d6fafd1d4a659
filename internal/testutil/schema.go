package testutil

import "github.com/roach88/adl/internal/schema"

// PropOpt adjusts a property built by the helpers below.
type PropOpt func(*schema.Property)

// Optional marks the property optional.
func Optional() PropOpt { return func(p *schema.Property) { p.Optional = true } }

// Removed marks the property removed.
func Removed() PropOpt { return func(p *schema.Property) { p.Removed = true } }

// Manual marks the property as excluded from auto conversion.
func Manual() PropOpt { return func(p *schema.Property) { p.ManuallyConverted = true } }

// Rename adds a RenameTo conversion constraint.
func Rename(target string) PropOpt {
	return Conversion("RenameTo", target)
}

// Move adds a MoveTo conversion constraint.
func Move(path string) PropOpt {
	return Conversion("MoveTo", path)
}

// Default adds a DefaultValue defaulting constraint.
func Default(value string) PropOpt {
	return func(p *schema.Property) {
		p.Defaulting = append(p.Defaulting, schema.Constraint{Name: "DefaultValue", Arguments: []string{value}})
	}
}

// Conversion adds an arbitrary conversion constraint.
func Conversion(name string, args ...string) PropOpt {
	return func(p *schema.Property) {
		p.Conversion = append(p.Conversion, schema.Constraint{Name: name, Arguments: args})
	}
}

// Valid adds a validation constraint.
func Valid(name string, args ...string) PropOpt {
	return func(p *schema.Property) {
		p.Validation = append(p.Validation, schema.Constraint{Name: name, Arguments: args})
	}
}

func prop(name string, kind schema.DataTypeKind, typeName string, nested *schema.ApiTypeModel, opts []PropOpt) *schema.Property {
	p := &schema.Property{Name: name, DataTypeKind: kind, DataTypeName: typeName, Complex: nested}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Str builds a string scalar property.
func Str(name string, opts ...PropOpt) *schema.Property {
	return prop(name, schema.Scalar, schema.TypeString, nil, opts)
}

// Num builds a number scalar property.
func Num(name string, opts ...PropOpt) *schema.Property {
	return prop(name, schema.Scalar, schema.TypeNumber, nil, opts)
}

// Bool builds a boolean scalar property.
func Bool(name string, opts ...PropOpt) *schema.Property {
	return prop(name, schema.Scalar, schema.TypeBoolean, nil, opts)
}

// Strs builds a string array property.
func Strs(name string, opts ...PropOpt) *schema.Property {
	return prop(name, schema.ScalarArray, schema.TypeString, nil, opts)
}

// StrMap builds a map of scalars.
func StrMap(name string, opts ...PropOpt) *schema.Property {
	return prop(name, schema.Map, schema.TypeMap, nil, opts)
}

// Complex builds a nested object property.
func Complex(name string, m *schema.ApiTypeModel, opts ...PropOpt) *schema.Property {
	return prop(name, schema.Complex, m.Name, m, opts)
}

// ComplexArray builds an array-of-objects property.
func ComplexArray(name string, m *schema.ApiTypeModel, opts ...PropOpt) *schema.Property {
	return prop(name, schema.ComplexArray, m.Name, m, opts)
}

// ComplexMap builds a map-of-objects property.
func ComplexMap(name string, m *schema.ApiTypeModel, opts ...PropOpt) *schema.Property {
	return prop(name, schema.ComplexMap, schema.TypeMap, m, opts)
}

// Model builds an ApiTypeModel and panics on duplicate names.
func Model(name string, props ...*schema.Property) *schema.ApiTypeModel {
	return schema.MustApiTypeModel(name, props...)
}

// API builds a one-version catalog entry pairing versioned with normalized.
func API(name string, normalized *schema.ApiTypeModel, version string, versioned *schema.ApiTypeModel) *schema.ApiModel {
	api := &schema.ApiModel{Name: name, Normalized: []*schema.ApiTypeModel{normalized}}
	return AddVersion(api, version, versioned)
}

// AddVersion adds a version holding one type paired by name with a
// normalized type of the API.
func AddVersion(api *schema.ApiModel, version string, versioned *schema.ApiTypeModel) *schema.ApiModel {
	api.Versions = append(api.Versions, &schema.Version{
		Name: version,
		Types: []*schema.VersionedApiType{{
			Model:      versioned,
			Version:    version,
			Normalized: api.NormalizedType(versioned.Name),
		}},
	})
	return api
}
