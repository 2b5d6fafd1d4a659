package engine

import (
	"fmt"
	"slices"
	"strconv"
	"unicode/utf8"

	"github.com/roach88/adl/internal/ir"
	"github.com/roach88/adl/internal/schema"
)

// ValidatorFunc checks one present value against a validation constraint.
// It returns "" when the value passes, otherwise a message.
type ValidatorFunc func(c schema.Constraint, p *schema.Property, v ir.IRValue) string

// Validators maps validation constraint names to their checks.
type Validators map[string]ValidatorFunc

// DefaultValidators returns MaxLength, MinLength and OneOf.
func DefaultValidators() Validators {
	return Validators{
		"MaxLength": checkLength(func(n, limit int) bool { return n <= limit }, "at most"),
		"MinLength": checkLength(func(n, limit int) bool { return n >= limit }, "at least"),
		"OneOf":     checkOneOf,
	}
}

// Validate checks a payload against its model using DefaultValidators.
func Validate(model *schema.ApiTypeModel, payload ir.IRObject) []ConversionError {
	return ValidateWith(DefaultValidators(), model, payload)
}

// ValidateWith checks a payload against its model:
//   - non-optional properties must be present
//   - present values must match the declared kind and scalar type
//   - validation-group constraints must pass
//
// Constraint names without a validator are ignored. All problems are
// reported; validation never stops early.
func ValidateWith(vs Validators, model *schema.ApiTypeModel, payload ir.IRObject) []ConversionError {
	w := &validator{validators: vs, errs: []ConversionError{}}
	w.object(model, payload, "")
	return w.errs
}

type validator struct {
	validators Validators
	errs       []ConversionError
}

func (w *validator) add(code ErrorCode, path, format string, args ...any) {
	w.errs = append(w.errs, ConversionError{Code: code, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (w *validator) object(model *schema.ApiTypeModel, obj ir.IRObject, base string) {
	for _, p := range model.Properties {
		path := p.Name
		if base != "" {
			path = base + "." + p.Name
		}
		if p.Removed {
			continue
		}

		v, present := obj[p.Name]
		if !present {
			if !p.Optional {
				w.add(ErrCodeRequired, path, "required property %s is missing", p.Name)
			}
			continue
		}
		if _, isNull := v.(ir.IRNull); isNull {
			if !p.Optional {
				w.add(ErrCodeRequired, path, "required property %s is null", p.Name)
			}
			continue
		}

		if !w.kind(p, v, path) {
			continue
		}
		for _, c := range p.Validation {
			check, ok := w.validators[c.Name]
			if !ok {
				continue
			}
			if msg := check(c, p, v); msg != "" {
				w.add(ErrCodeViolation, path, "%s: %s", c.Name, msg)
			}
		}
	}
}

// kind checks v against the declared kind and recurses into nested models.
// It reports whether v matched.
func (w *validator) kind(p *schema.Property, v ir.IRValue, path string) bool {
	mismatch := func(want string) bool {
		w.add(ErrCodeKindMismatch, path, "expected %s, got %s", want, ir.TypeName(v))
		return false
	}

	switch p.DataTypeKind {
	case schema.Scalar:
		if ir.TypeName(v) != p.DataTypeName {
			return mismatch(p.DataTypeName)
		}

	case schema.ScalarArray:
		arr, ok := v.(ir.IRArray)
		if !ok {
			return mismatch("array of " + p.DataTypeName)
		}
		for i, elem := range arr {
			if ir.TypeName(elem) != p.DataTypeName {
				w.add(ErrCodeKindMismatch, indexSegment(path, i), "expected %s, got %s", p.DataTypeName, ir.TypeName(elem))
			}
		}

	case schema.Complex:
		obj, ok := v.(ir.IRObject)
		if !ok {
			return mismatch("object")
		}
		w.object(p.ComplexDataTypeOrPanic(), obj, path)

	case schema.ComplexArray:
		arr, ok := v.(ir.IRArray)
		if !ok {
			return mismatch("array of objects")
		}
		for i, elem := range arr {
			obj, ok := elem.(ir.IRObject)
			if !ok {
				w.add(ErrCodeKindMismatch, indexSegment(path, i), "expected object, got %s", ir.TypeName(elem))
				continue
			}
			w.object(p.ComplexDataTypeOrPanic(), obj, indexSegment(path, i))
		}

	case schema.Map:
		obj, ok := v.(ir.IRObject)
		if !ok {
			return mismatch("map")
		}
		for _, key := range obj.SortedKeys() {
			if !ir.IsScalar(obj[key]) {
				w.add(ErrCodeKindMismatch, keySegment(path, key), "expected scalar, got %s", ir.TypeName(obj[key]))
			}
		}

	case schema.ComplexMap:
		obj, ok := v.(ir.IRObject)
		if !ok {
			return mismatch("map of objects")
		}
		for _, key := range obj.SortedKeys() {
			nested, ok := obj[key].(ir.IRObject)
			if !ok {
				w.add(ErrCodeKindMismatch, keySegment(path, key), "expected object, got %s", ir.TypeName(obj[key]))
				continue
			}
			w.object(p.ComplexDataTypeOrPanic(), nested, keySegment(path, key))
		}
	}
	return true
}

func checkLength(ok func(n, limit int) bool, word string) ValidatorFunc {
	return func(c schema.Constraint, _ *schema.Property, v ir.IRValue) string {
		limit, err := strconv.Atoi(c.Arg(0))
		if err != nil {
			return fmt.Sprintf("invalid limit %q", c.Arg(0))
		}
		var n int
		switch val := v.(type) {
		case ir.IRString:
			n = utf8.RuneCountInString(string(val))
		case ir.IRArray:
			n = len(val)
		case ir.IRObject:
			n = len(val)
		default:
			return ""
		}
		if !ok(n, limit) {
			return fmt.Sprintf("length %d, want %s %d", n, word, limit)
		}
		return ""
	}
}

func checkOneOf(c schema.Constraint, _ *schema.Property, v ir.IRValue) string {
	var s string
	switch val := v.(type) {
	case ir.IRString:
		s = string(val)
	case ir.IRInt:
		s = strconv.FormatInt(int64(val), 10)
	case ir.IRBool:
		s = strconv.FormatBool(bool(val))
	default:
		return ""
	}
	if slices.Contains(c.Arguments, s) {
		return ""
	}
	return fmt.Sprintf("%q is not one of %v", s, c.Arguments)
}
