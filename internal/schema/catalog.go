package schema

import (
	"fmt"
	"slices"
)

// ApiModel groups the normalized types of one API with all of its versions.
type ApiModel struct {
	Name       string
	Normalized []*ApiTypeModel
	Versions   []*Version
}

// Version is one published wire shape of an API.
type Version struct {
	Name  string
	Types []*VersionedApiType
}

// VersionedApiType pairs a versioned type with the normalized type it
// converts to and from.
type VersionedApiType struct {
	Model      *ApiTypeModel
	Version    string
	Normalized *ApiTypeModel
}

// Name returns the type name shared by both sides of the pairing.
func (t *VersionedApiType) Name() string {
	return t.Model.Name
}

// NormalizedType returns the normalized type with the given name, or nil.
func (a *ApiModel) NormalizedType(name string) *ApiTypeModel {
	for _, m := range a.Normalized {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Version returns the named version, or nil.
func (a *ApiModel) Version(name string) *Version {
	for _, v := range a.Versions {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// VersionNames returns version names in sorted order.
func (a *ApiModel) VersionNames() []string {
	names := make([]string, 0, len(a.Versions))
	for _, v := range a.Versions {
		names = append(names, v.Name)
	}
	slices.Sort(names)
	return names
}

// Lookup resolves a versioned type by version and type name.
func (a *ApiModel) Lookup(version, typeName string) (*VersionedApiType, error) {
	v := a.Version(version)
	if v == nil {
		return nil, fmt.Errorf("api %s: unknown version %q", a.Name, version)
	}
	t := v.Type(typeName)
	if t == nil {
		return nil, fmt.Errorf("api %s version %s: unknown type %q", a.Name, version, typeName)
	}
	return t, nil
}

// Type returns the versioned type with the given name, or nil.
func (v *Version) Type(name string) *VersionedApiType {
	for _, t := range v.Types {
		if t.Model.Name == name {
			return t
		}
	}
	return nil
}
