package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/adl/internal/ir"
	"github.com/roach88/adl/internal/schema"
	tu "github.com/roach88/adl/internal/testutil"
)

func validationModel() *schema.ApiTypeModel {
	return tu.Model("Widget",
		tu.Str("color", tu.Valid("OneOf", "red", "blue")),
		tu.Str("name", tu.Valid("MaxLength", "5"), tu.Valid("MinLength", "2")),
		tu.Num("size", tu.Optional()),
		tu.Bool("enabled", tu.Optional()),
		tu.Strs("tags", tu.Optional(), tu.Valid("MaxLength", "2")),
		tu.StrMap("labels", tu.Optional()),
		tu.Str("legacy", tu.Removed()),
		tu.Complex("spec", tu.Model("Spec", tu.Num("replicas")), tu.Optional()),
		tu.ComplexArray("ports", tu.Model("Port", tu.Num("number")), tu.Optional()),
		tu.ComplexMap("sites", tu.Model("Site", tu.Str("city")), tu.Optional()),
	)
}

func TestValidateAcceptsWellFormedPayload(t *testing.T) {
	payload := ir.Obj(
		ir.O("color", ir.IRString("red")),
		ir.O("name", ir.IRString("café")),
		ir.O("size", ir.IRInt(3)),
		ir.O("enabled", ir.IRBool(false)),
		ir.O("tags", ir.Arr(ir.IRString("a"), ir.IRString("b"))),
		ir.O("labels", ir.Obj(ir.O("tier", ir.IRString("web")), ir.O("weight", ir.IRInt(2)))),
		ir.O("spec", ir.Obj(ir.O("replicas", ir.IRInt(1)))),
		ir.O("ports", ir.Arr(ir.Obj(ir.O("number", ir.IRInt(80))))),
		ir.O("sites", ir.Obj(ir.O("ams", ir.Obj(ir.O("city", ir.IRString("Amsterdam")))))),
	)

	assert.Empty(t, Validate(validationModel(), payload))
}

func TestValidateReportsEveryProblem(t *testing.T) {
	payload := ir.Obj(
		ir.O("color", ir.IRString("green")),
		ir.O("size", ir.IRString("big")),
		ir.O("tags", ir.Arr(ir.IRString("a"), ir.IRInt(2), ir.IRString("c"))),
		ir.O("labels", ir.Obj(ir.O("nested", ir.Obj()))),
		ir.O("spec", ir.Obj()),
		ir.O("ports", ir.Arr(ir.IRString("80"))),
		ir.O("sites", ir.Obj(ir.O("ams", ir.Obj(ir.O("city", ir.IRInt(1)))))),
	)

	errs := Validate(validationModel(), payload)

	got := make(map[string]ErrorCode, len(errs))
	for _, e := range errs {
		got[e.Path] = e.Code
	}
	assert.Equal(t, map[string]ErrorCode{
		"color":             ErrCodeViolation,
		"name":              ErrCodeRequired,
		"size":              ErrCodeKindMismatch,
		"tags":              ErrCodeViolation,
		"tags[1]":           ErrCodeKindMismatch,
		`labels["nested"]`:  ErrCodeKindMismatch,
		"spec.replicas":     ErrCodeRequired,
		"ports[0]":          ErrCodeKindMismatch,
		`sites["ams"].city`: ErrCodeKindMismatch,
	}, got)
}

func TestValidateNullAndOptional(t *testing.T) {
	model := tu.Model("Widget", tu.Str("color"), tu.Str("note", tu.Optional()))

	errs := Validate(model, ir.Obj(ir.O("color", ir.IRNull{}), ir.O("note", ir.IRNull{})))
	assert.Equal(t, []ErrorCode{ErrCodeRequired}, codesOf(errs))
	assert.Equal(t, "color", errs[0].Path)
}

func TestValidateLengthConstraints(t *testing.T) {
	model := validationModel()
	base := func(name string) ir.IRObject {
		return ir.Obj(ir.O("color", ir.IRString("blue")), ir.O("name", ir.IRString(name)))
	}

	assert.Equal(t, []ErrorCode{ErrCodeViolation}, codesOf(Validate(model, base("toolong"))))
	assert.Equal(t, []ErrorCode{ErrCodeViolation}, codesOf(Validate(model, base("x"))))
	assert.Empty(t, Validate(model, base("ok")))
}

func TestValidateWithCustomValidators(t *testing.T) {
	model := tu.Model("Widget", tu.Num("size", tu.Valid("Even")), tu.Str("color", tu.Valid("Unknown")))
	vs := DefaultValidators()
	vs["Even"] = func(_ schema.Constraint, _ *schema.Property, v ir.IRValue) string {
		if n, ok := v.(ir.IRInt); ok && n%2 != 0 {
			return "must be even"
		}
		return ""
	}

	errs := ValidateWith(vs, model, ir.Obj(ir.O("size", ir.IRInt(3)), ir.O("color", ir.IRString("x"))))
	assert.Len(t, errs, 1)
	assert.Equal(t, "size", errs[0].Path)
	assert.Contains(t, errs[0].Message, "must be even")

	assert.Empty(t, ValidateWith(vs, model, ir.Obj(ir.O("size", ir.IRInt(4)), ir.O("color", ir.IRString("x")))))
}
