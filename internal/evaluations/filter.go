package evaluations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// FilterValue is a saved-search metadata filter value: either a single
// scalar the call value must equal, or a list the call value must be in.
type FilterValue struct {
	scalar string
	list   []string
	isList bool
}

// Scalar builds an equality filter value.
func Scalar(v string) FilterValue {
	return FilterValue{scalar: v}
}

// List builds a containment filter value.
func List(vs ...string) FilterValue {
	return FilterValue{list: slices.Clone(vs), isList: true}
}

// IsList reports whether v is the list variant.
func (v FilterValue) IsList() bool {
	return v.isList
}

// Values returns the accepted values.
func (v FilterValue) Values() []string {
	if v.isList {
		return slices.Clone(v.list)
	}
	return []string{v.scalar}
}

// Matches reports whether a call metadata value satisfies the filter.
func (v FilterValue) Matches(value string) bool {
	if v.isList {
		return slices.Contains(v.list, value)
	}
	return v.scalar == value
}

func (v FilterValue) MarshalJSON() ([]byte, error) {
	if v.isList {
		list := v.list
		if list == nil {
			list = []string{}
		}
		return json.Marshal(list)
	}
	return json.Marshal(v.scalar)
}

func (v *FilterValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("filter value list: %w", err)
		}
		*v = List(list...)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("filter value must be a string or string list: %w", err)
	}
	*v = Scalar(s)
	return nil
}

// Filter is a metadata filter keyed by metadata name.
type Filter map[string]FilterValue

// Matches reports whether every filter key is satisfied by metadata.
// A key absent from metadata never matches.
func (f Filter) Matches(metadata map[string]string) bool {
	for key, want := range f {
		got, ok := metadata[key]
		if !ok || !want.Matches(got) {
			return false
		}
	}
	return true
}
