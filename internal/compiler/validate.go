package compiler

import (
	"fmt"

	"github.com/roach88/adl/internal/schema"
)

// Validation error codes (E100-E199)
const (
	// Normalized type errors (E101-E109)
	ErrNormalizedConversion = "E101" // conversion constraints only make sense on versioned types
	ErrNormalizedRemoved    = "E102" // the normalized shape cannot remove properties

	// Property errors (E110-E119)
	ErrDefaultOnNonScalar   = "E110" // defaulting has no effect on non-scalar kinds
	ErrManualWithoutConvert = "E111" // NoAutoConversion without a conversion constraint
	ErrMultipleConversions  = "E112" // at most one conversion constraint per property
	ErrEmptyConstraintName  = "E113" // constraint name is required

	// API errors (E120-E129)
	ErrVersionWithoutTypes  = "E120" // version declares no types
	ErrDuplicateVersionName = "E121" // version names are unique per API
	ErrDuplicateNormalized  = "E122" // normalized type names are unique per API
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled API for schema mistakes the loader accepts but
// the engine cannot act on. Returns all errors found (does not fail-fast).
func Validate(api *schema.ApiModel) []ValidationError {
	var errs []ValidationError

	seen := make(map[string]bool)
	for _, m := range api.Normalized {
		if seen[m.Name] {
			errs = append(errs, ValidationError{
				Field:   "normalized." + m.Name,
				Message: fmt.Sprintf("duplicate normalized type %q", m.Name),
				Code:    ErrDuplicateNormalized,
			})
		}
		seen[m.Name] = true
		errs = append(errs, validateNormalized(m, "normalized."+m.Name)...)
	}

	versions := make(map[string]bool)
	for _, v := range api.Versions {
		field := "versions." + v.Name
		if versions[v.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate version %q", v.Name),
				Code:    ErrDuplicateVersionName,
			})
		}
		versions[v.Name] = true

		if len(v.Types) == 0 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "version declares no types",
				Code:    ErrVersionWithoutTypes,
			})
		}
		for _, t := range v.Types {
			errs = append(errs, validateVersioned(t.Model, field+"."+t.Name())...)
		}
	}

	return errs
}

func validateNormalized(m *schema.ApiTypeModel, path string) []ValidationError {
	var errs []ValidationError
	for _, p := range m.Properties {
		field := path + "." + p.Name
		if p.HasConversion() {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "normalized properties cannot carry conversion constraints",
				Code:    ErrNormalizedConversion,
			})
		}
		if p.Removed {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "normalized properties cannot be removed",
				Code:    ErrNormalizedRemoved,
			})
		}
		errs = append(errs, validateCommon(p, field)...)
		if p.IsComplex() {
			errs = append(errs, validateNormalized(p.ComplexDataTypeOrPanic(), field)...)
		}
	}
	return errs
}

func validateVersioned(m *schema.ApiTypeModel, path string) []ValidationError {
	var errs []ValidationError
	for _, p := range m.Properties {
		field := path + "." + p.Name
		if p.ManuallyConverted && !p.HasConversion() {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "NoAutoConversion requires an explicit conversion constraint",
				Code:    ErrManualWithoutConvert,
			})
		}
		if len(p.Conversion) > 1 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%d conversion constraints declared, at most one is allowed", len(p.Conversion)),
				Code:    ErrMultipleConversions,
			})
		}
		errs = append(errs, validateCommon(p, field)...)
		if p.IsComplex() {
			errs = append(errs, validateVersioned(p.ComplexDataTypeOrPanic(), field)...)
		}
	}
	return errs
}

func validateCommon(p *schema.Property, field string) []ValidationError {
	var errs []ValidationError
	if p.HasDefaulting() && !p.IsScalar() {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("defaulting has no effect on %s properties", p.DataTypeKind),
			Code:    ErrDefaultOnNonScalar,
		})
	}
	for _, group := range [][]schema.Constraint{p.Defaulting, p.Validation, p.Conversion} {
		for _, c := range group {
			if c.Name == "" {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: "constraint name is required",
					Code:    ErrEmptyConstraintName,
				})
			}
		}
	}
	return errs
}
