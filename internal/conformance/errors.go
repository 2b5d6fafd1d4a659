package conformance

import (
	"fmt"
	"strings"
)

// Scope is the kind of schema instance a rule runs against.
type Scope int

const (
	NormalizedApiType Scope = iota
	VersionedApiType
)

func (s Scope) String() string {
	switch s {
	case NormalizedApiType:
		return "NormalizedApiType"
	case VersionedApiType:
		return "VersionedApiType"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// MarshalText renders the scope by name in JSON output.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Kind classifies what a rule checks.
type Kind int

const (
	Shape Kind = iota
	Naming
	Conversion
)

func (k Kind) String() string {
	switch k {
	case Shape:
		return "Shape"
	case Naming:
		return "Naming"
	case Conversion:
		return "Conversion"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText renders the kind by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ViolationKind is the severity of a finding.
type ViolationKind int

const (
	Unconformant ViolationKind = iota
	Warning
)

func (v ViolationKind) String() string {
	switch v {
	case Unconformant:
		return "Unconformant"
	case Warning:
		return "Warning"
	default:
		return fmt.Sprintf("ViolationKind(%d)", int(v))
	}
}

// MarshalText renders the severity by name in JSON output.
func (v ViolationKind) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// ConformanceError is one finding reported by a rule.
type ConformanceError struct {
	Rule          string        `json:"rule"`
	Scope         Scope         `json:"scope"`
	Kind          Kind          `json:"kind"`
	ViolationKind ViolationKind `json:"violation_kind"`

	// ModelName is the model that holds the offending property; it differs
	// from TypeName when the property sits in a nested type.
	ModelName    string `json:"model_name,omitempty"`
	TypeName     string `json:"type_name"`
	PropertyPath string `json:"property_path,omitempty"`
	Message      string `json:"message"`
}

// Error implements the error interface.
func (e *ConformanceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.ViolationKind, e.Kind)
	if e.Rule != "" {
		fmt.Fprintf(&b, " [%s]", e.Rule)
	}
	fmt.Fprintf(&b, " %s", e.TypeName)
	if e.PropertyPath != "" {
		fmt.Fprintf(&b, ".%s", e.PropertyPath)
	}
	fmt.Fprintf(&b, ": %s", e.Message)
	return b.String()
}

// HasUnconformant reports whether any finding is more than a warning.
func HasUnconformant(errs []ConformanceError) bool {
	for _, e := range errs {
		if e.ViolationKind == Unconformant {
			return true
		}
	}
	return false
}

// ParseScope accepts the String() form of a scope.
func ParseScope(s string) (Scope, error) {
	for _, v := range []Scope{NormalizedApiType, VersionedApiType} {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown scope %q", s)
}

// ParseKind accepts the String() form of a kind.
func ParseKind(s string) (Kind, error) {
	for _, v := range []Kind{Shape, Naming, Conversion} {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}

// ParseViolationKind accepts the String() form of a severity.
func ParseViolationKind(s string) (ViolationKind, error) {
	for _, v := range []ViolationKind{Unconformant, Warning} {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown violation kind %q", s)
}
