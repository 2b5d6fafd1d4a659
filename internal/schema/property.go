package schema

import "fmt"

// DataTypeKind classifies the shape of a property's value.
type DataTypeKind int

const (
	Scalar DataTypeKind = iota
	ScalarArray
	Complex
	ComplexArray
	Map
	ComplexMap
)

var kindNames = [...]string{
	Scalar:       "Scalar",
	ScalarArray:  "ScalarArray",
	Complex:      "Complex",
	ComplexArray: "ComplexArray",
	Map:          "Map",
	ComplexMap:   "ComplexMap",
}

func (k DataTypeKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("DataTypeKind(%d)", int(k))
	}
	return kindNames[k]
}

// Scalar data type names.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeMap     = "Map"
)

// Constraint is a named annotation on a property. Arguments are untyped
// literals; each constraint implementation decides how to read them.
type Constraint struct {
	Name      string   `json:"name"`
	Arguments []string `json:"arguments,omitempty"`
}

// Arg returns the i-th argument or "" when it is missing.
func (c Constraint) Arg(i int) string {
	if i < 0 || i >= len(c.Arguments) {
		return ""
	}
	return c.Arguments[i]
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s(%v)", c.Name, c.Arguments)
}

// Property describes one named member of an ApiTypeModel.
type Property struct {
	Name         string
	DataTypeKind DataTypeKind

	// DataTypeName is string/number/boolean for scalars and scalar elements,
	// the nested type name for complex kinds, and "Map" for plain maps.
	DataTypeName string

	Optional          bool
	Removed           bool
	ManuallyConverted bool

	Defaulting []Constraint
	Validation []Constraint
	Conversion []Constraint

	// Complex is set for Complex, ComplexArray and ComplexMap.
	Complex *ApiTypeModel
}

// ComplexDataTypeOrPanic returns the nested model of a complex-kind property.
// Calling it on any other kind is a schema defect and panics.
func (p *Property) ComplexDataTypeOrPanic() *ApiTypeModel {
	if !p.IsComplex() {
		panic(fmt.Sprintf("schema: property %q of kind %s has no complex data type", p.Name, p.DataTypeKind))
	}
	if p.Complex == nil {
		panic(fmt.Sprintf("schema: property %q of kind %s is missing its nested model", p.Name, p.DataTypeKind))
	}
	return p.Complex
}

// IsArray reports ScalarArray or ComplexArray.
func (p *Property) IsArray() bool {
	return p.DataTypeKind == ScalarArray || p.DataTypeKind == ComplexArray
}

// IsMap reports Map or ComplexMap.
func (p *Property) IsMap() bool {
	return p.DataTypeKind == Map || p.DataTypeKind == ComplexMap
}

// IsComplex reports whether the property carries a nested model.
func (p *Property) IsComplex() bool {
	switch p.DataTypeKind {
	case Complex, ComplexArray, ComplexMap:
		return true
	}
	return false
}

func (p *Property) IsScalar() bool {
	return p.DataTypeKind == Scalar
}

func (p *Property) HasConversion() bool {
	return len(p.Conversion) > 0
}

func (p *Property) HasDefaulting() bool {
	return len(p.Defaulting) > 0
}
