package schema

import "fmt"

// ApiTypeModel is a named, ordered set of properties.
type ApiTypeModel struct {
	Name       string
	Properties []*Property

	index map[string]*Property
}

// NewApiTypeModel builds a model and indexes its properties by name.
// Property names must be unique within one model.
func NewApiTypeModel(name string, props ...*Property) (*ApiTypeModel, error) {
	m := &ApiTypeModel{
		Name:       name,
		Properties: props,
		index:      make(map[string]*Property, len(props)),
	}
	for _, p := range props {
		if p == nil {
			return nil, &LoadError{Type: name, Message: "nil property"}
		}
		if _, dup := m.index[p.Name]; dup {
			return nil, &LoadError{Type: name, Property: p.Name, Message: "duplicate property name"}
		}
		m.index[p.Name] = p
	}
	return m, nil
}

// MustApiTypeModel is like NewApiTypeModel but panics on error.
// Use only in tests or for hand-built models known to be valid.
func MustApiTypeModel(name string, props ...*Property) *ApiTypeModel {
	m, err := NewApiTypeModel(name, props...)
	if err != nil {
		panic(err)
	}
	return m
}

// GetProperty returns the property with the given name, or nil.
func (m *ApiTypeModel) GetProperty(name string) *Property {
	if m == nil {
		return nil
	}
	if m.index == nil {
		for _, p := range m.Properties {
			if p.Name == name {
				return p
			}
		}
		return nil
	}
	return m.index[name]
}

// LoadError reports a schema that cannot be turned into a model.
type LoadError struct {
	Type     string
	Property string
	Message  string
}

func (e *LoadError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("schema %s.%s: %s", e.Type, e.Property, e.Message)
	}
	return fmt.Sprintf("schema %s: %s", e.Type, e.Message)
}
