package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// State is the whole local store document: one array of records per
// collection plus a settings object.
type State struct {
	Collections map[string][]Record
	Settings    map[string]any
}

// EmptyState returns the empty schema: every standard collection present
// and empty, and an empty settings object.
func EmptyState() *State {
	s := &State{
		Collections: make(map[string][]Record, len(StandardCollections)),
		Settings:    map[string]any{},
	}
	for _, c := range StandardCollections {
		s.Collections[c] = []Record{}
	}
	return s
}

// EnsureSchema injects every missing standard collection and the settings
// object. It returns the names it added; a nil result means the state was
// already complete.
func (s *State) EnsureSchema() []string {
	if s.Collections == nil {
		s.Collections = make(map[string][]Record, len(StandardCollections))
	}
	var added []string
	for _, c := range StandardCollections {
		if _, ok := s.Collections[c]; !ok {
			s.Collections[c] = []Record{}
			added = append(added, c)
		}
	}
	if s.Settings == nil {
		s.Settings = map[string]any{}
		added = append(added, SettingsKey)
	}
	return added
}

// Clone returns a deep-enough copy: collection slices and record field maps
// are copied, nested field values are shared.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := &State{
		Collections: make(map[string][]Record, len(s.Collections)),
		Settings:    maps.Clone(s.Settings),
	}
	for name, recs := range s.Collections {
		cp := make([]Record, len(recs))
		for i, r := range recs {
			cp[i] = r.Clone()
		}
		c.Collections[name] = cp
	}
	return c
}

// CollectionNames returns the collection names in sorted order.
func (s *State) CollectionNames() []string {
	return slices.Sorted(maps.Keys(s.Collections))
}

// Count returns the total number of records across all collections.
func (s *State) Count() int {
	n := 0
	for _, recs := range s.Collections {
		n += len(recs)
	}
	return n
}

// MarshalJSON writes one top-level key per collection and the settings
// object.
func (s *State) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(s.Collections)+1)
	for name, recs := range s.Collections {
		if recs == nil {
			recs = []Record{}
		}
		doc[name] = recs
	}
	settings := s.Settings
	if settings == nil {
		settings = map[string]any{}
	}
	doc[SettingsKey] = settings
	return json.Marshal(doc)
}

// UnmarshalJSON accepts any object whose values are arrays of record
// objects, plus an optional settings object. Unknown array keys are kept as
// collections.
func (s *State) UnmarshalJSON(data []byte) error {
	parsed, err := ParseState(data)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}

// ParseState validates and decodes a store document. It checks the shape
// before building anything, so a payload that fails here has not been
// partially applied anywhere. Fixed record fields with undecodable values
// do not fail the document; see ParseStateReport.
func ParseState(data []byte) (*State, error) {
	s, _, err := ParseStateReport(data)
	return s, err
}

// ParseStateReport is ParseState that also returns, per collection, the
// fixed fields it could not decode. Only syntax errors and a wrong document,
// collection, record or settings shape are errors.
func ParseStateReport(data []byte) (*State, map[string][]FieldIssue, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil, fmt.Errorf("%w: document is empty", ErrInvalidState)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	s := &State{Collections: make(map[string][]Record, len(raw))}
	var issues map[string][]FieldIssue
	for key, value := range raw {
		if key == SettingsKey {
			var settings map[string]any
			if err := json.Unmarshal(value, &settings); err != nil {
				return nil, nil, fmt.Errorf("%w: settings must be an object: %v", ErrInvalidState, err)
			}
			s.Settings = settings
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(value, &items); err != nil {
			return nil, nil, fmt.Errorf("%w: collection %q must be an array: %v", ErrInvalidState, key, err)
		}
		recs := make([]Record, 0, len(items))
		for i, item := range items {
			var m map[string]any
			if err := json.Unmarshal(item, &m); err != nil {
				return nil, nil, fmt.Errorf("%w: %s[%d]: %v", ErrInvalidState, key, i, err)
			}
			if m == nil {
				return nil, nil, fmt.Errorf("%w: %s[%d]: record must be a JSON object", ErrInvalidState, key, i)
			}
			rec, bad := recordFromMapLenient(m)
			for _, issue := range bad {
				issue.Index = i
				if issues == nil {
					issues = map[string][]FieldIssue{}
				}
				issues[key] = append(issues[key], issue)
			}
			recs = append(recs, rec)
		}
		s.Collections[key] = recs
	}
	return s, issues, nil
}

// EncodeState renders the document the way it is stored on disk: indented,
// newline-terminated JSON.
func EncodeState(s *State) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
