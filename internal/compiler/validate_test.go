package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/adl/internal/schema"
)

func codes(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestValidateCleanAPI(t *testing.T) {
	api := compileWidgets(t)
	errs := Validate(api)
	assert.Empty(t, errs)
}

func TestValidateNormalizedRules(t *testing.T) {
	nested := schema.MustApiTypeModel("Spec",
		&schema.Property{Name: "replicas", DataTypeKind: schema.Scalar, DataTypeName: schema.TypeNumber, Removed: true},
	)
	normalized := schema.MustApiTypeModel("Widget",
		&schema.Property{
			Name: "color", DataTypeKind: schema.Scalar, DataTypeName: schema.TypeString,
			Conversion: []schema.Constraint{{Name: "RenameTo", Arguments: []string{"x"}}},
		},
		&schema.Property{
			Name: "spec", DataTypeKind: schema.Complex, DataTypeName: "Spec", Complex: nested,
			Defaulting: []schema.Constraint{{Name: "DefaultValue", Arguments: []string{"1"}}},
		},
	)

	errs := Validate(&schema.ApiModel{Name: "widgets", Normalized: []*schema.ApiTypeModel{normalized}})

	assert.ElementsMatch(t, []string{ErrNormalizedConversion, ErrDefaultOnNonScalar, ErrNormalizedRemoved}, codes(errs))
}

func TestValidateVersionedRules(t *testing.T) {
	normalized := schema.MustApiTypeModel("Widget",
		&schema.Property{Name: "color", DataTypeKind: schema.Scalar, DataTypeName: schema.TypeString},
	)
	versioned := schema.MustApiTypeModel("Widget",
		&schema.Property{Name: "manual", DataTypeKind: schema.Scalar, DataTypeName: schema.TypeString, ManuallyConverted: true},
		&schema.Property{
			Name: "twice", DataTypeKind: schema.Scalar, DataTypeName: schema.TypeString,
			Conversion: []schema.Constraint{{Name: "RenameTo", Arguments: []string{"a"}}, {Name: "RenameTo", Arguments: []string{"b"}}},
		},
		&schema.Property{
			Name: "unnamed", DataTypeKind: schema.Scalar, DataTypeName: schema.TypeString,
			Validation: []schema.Constraint{{Name: ""}},
		},
	)

	api := &schema.ApiModel{
		Name:       "widgets",
		Normalized: []*schema.ApiTypeModel{normalized},
		Versions: []*schema.Version{
			{Name: "v1", Types: []*schema.VersionedApiType{{Model: versioned, Version: "v1", Normalized: normalized}}},
			{Name: "v1"},
		},
	}

	errs := Validate(api)
	assert.ElementsMatch(t, []string{
		ErrManualWithoutConvert,
		ErrMultipleConversions,
		ErrEmptyConstraintName,
		ErrDuplicateVersionName,
		ErrVersionWithoutTypes,
	}, codes(errs))

	for _, e := range errs {
		assert.Contains(t, e.Error(), "["+e.Code+"]")
	}
}
