package types

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"time"
)

// JSON keys of the fixed record fields.
const (
	FieldID        = "id"
	FieldRemoteID  = "remoteId"
	FieldOwnerID   = "ownerId"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"

	// LegacyFieldRemoteID is the key older store files used for RemoteID.
	// It is accepted on decode and never written.
	LegacyFieldRemoteID = "supabaseId"
)

// TimestampLayout is the on-disk layout for CreatedAt and UpdatedAt.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// fixedFields are the keys owned by the Record struct. They never live in
// Fields.
var fixedFields = map[string]bool{
	FieldID:             true,
	FieldRemoteID:       true,
	FieldOwnerID:        true,
	FieldCreatedAt:      true,
	FieldUpdatedAt:      true,
	LegacyFieldRemoteID: true,
}

// IsFixedField reports whether key is one of the fixed record keys.
func IsFixedField(key string) bool {
	return fixedFields[key]
}

// Record is one entry of a collection. The fixed fields are explicit; every
// other attribute (title, content, status, ...) lives in Fields and is
// flattened into the same JSON object on encode.
type Record struct {
	ID        string         // UUID v7, assigned at local insertion.
	RemoteID  string         // Remote row id; empty until synchronized.
	OwnerID   string         // Owning user.
	CreatedAt time.Time      // Set by the local store on insert.
	UpdatedAt time.Time      // Set by the local store on update; zero until then.
	Fields    map[string]any // Open attributes.

	// unreadable holds fixed-key values that could not be decoded. They are
	// written back unchanged while the matching struct field is empty.
	unreadable map[string]any
}

// Synced reports whether the record has been confirmed by the remote store.
func (r Record) Synced() bool {
	return r.RemoteID != ""
}

// Field returns the open attribute stored under key.
func (r Record) Field(key string) (any, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// Clone returns a copy of r whose Fields map can be modified without
// affecting r. Nested values are shared.
func (r Record) Clone() Record {
	c := r
	if r.Fields != nil {
		c.Fields = maps.Clone(r.Fields)
	}
	return c
}

// Apply merges patch onto the open fields. Fixed keys in patch are ignored;
// the caller owns the fixed fields.
func (r *Record) Apply(patch map[string]any) {
	if len(patch) == 0 {
		return
	}
	if r.Fields == nil {
		r.Fields = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		if fixedFields[k] {
			continue
		}
		r.Fields[k] = v
	}
}

// MarshalJSON flattens fixed and open fields into one object.
func (r Record) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Fields)+5)
	for k, v := range r.Fields {
		if fixedFields[k] {
			continue
		}
		m[k] = v
	}
	for k, v := range r.unreadable {
		m[k] = v
	}
	if r.ID != "" || m[FieldID] == nil {
		m[FieldID] = r.ID
	}
	if r.RemoteID != "" {
		m[FieldRemoteID] = r.RemoteID
	}
	if r.OwnerID != "" {
		m[FieldOwnerID] = r.OwnerID
	}
	if !r.CreatedAt.IsZero() {
		m[FieldCreatedAt] = FormatTimestamp(r.CreatedAt)
	}
	if !r.UpdatedAt.IsZero() {
		m[FieldUpdatedAt] = FormatTimestamp(r.UpdatedAt)
	}
	return json.Marshal(m)
}

// UnmarshalJSON splits a flat JSON object into fixed and open fields.
func (r *Record) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("%w: record must be a JSON object", ErrInvalidData)
	}
	rec, err := RecordFromMap(m)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// RecordFromMap builds a Record from a decoded JSON object. Fixed keys with
// the wrong type produce ErrInvalidData.
func RecordFromMap(m map[string]any) (Record, error) {
	var rec Record
	var err error
	if rec.ID, err = stringField(m, FieldID); err != nil {
		return Record{}, err
	}
	if rec.OwnerID, err = stringField(m, FieldOwnerID); err != nil {
		return Record{}, err
	}
	if rec.RemoteID, err = stringField(m, FieldRemoteID); err != nil {
		return Record{}, err
	}
	if rec.RemoteID == "" {
		if rec.RemoteID, err = stringField(m, LegacyFieldRemoteID); err != nil {
			return Record{}, err
		}
	}
	if rec.CreatedAt, err = timeField(m, FieldCreatedAt); err != nil {
		return Record{}, err
	}
	if rec.UpdatedAt, err = timeField(m, FieldUpdatedAt); err != nil {
		return Record{}, err
	}
	for k, v := range m {
		if fixedFields[k] {
			continue
		}
		if rec.Fields == nil {
			rec.Fields = make(map[string]any, len(m))
		}
		rec.Fields[k] = v
	}
	return rec, nil
}

// FieldIssue describes a fixed record field whose value could not be
// decoded.
type FieldIssue struct {
	Index int // position in the collection
	Key   string
	Err   error
}

// recordFromMapLenient is RecordFromMap for stored documents: a fixed field
// with an undecodable value is left empty, its raw value is kept for
// re-encoding, and the problem is reported instead of failing the record.
func recordFromMapLenient(m map[string]any) (Record, []FieldIssue) {
	var rec Record
	var issues []FieldIssue
	keep := func(key string, err error) {
		if rec.unreadable == nil {
			rec.unreadable = map[string]any{}
		}
		rec.unreadable[key] = m[key]
		issues = append(issues, FieldIssue{Key: key, Err: err})
	}

	str := func(key string, dst *string) {
		v, err := stringField(m, key)
		if err != nil {
			keep(key, err)
			return
		}
		*dst = v
	}
	str(FieldID, &rec.ID)
	str(FieldOwnerID, &rec.OwnerID)
	str(FieldRemoteID, &rec.RemoteID)
	if rec.RemoteID == "" {
		if _, bad := rec.unreadable[FieldRemoteID]; !bad {
			str(LegacyFieldRemoteID, &rec.RemoteID)
		}
	}
	for key, dst := range map[string]*time.Time{
		FieldCreatedAt: &rec.CreatedAt,
		FieldUpdatedAt: &rec.UpdatedAt,
	} {
		v, err := timeField(m, key)
		if err != nil {
			keep(key, err)
			continue
		}
		*dst = v
	}

	for k, v := range m {
		if fixedFields[k] {
			continue
		}
		if rec.Fields == nil {
			rec.Fields = make(map[string]any, len(m))
		}
		rec.Fields[k] = v
	}
	return rec, issues
}

// FormatTimestamp renders t in TimestampLayout, in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Layouts ParseTimestamp accepts besides RFC 3339. Values without a zone
// are read as UTC.
var fallbackLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseTimestamp accepts any RFC 3339 timestamp, with or without fractional
// seconds, a zone-less date-time, or a bare date.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t.UTC(), nil
	}
	for _, layout := range fallbackLayouts {
		if t, ferr := time.Parse(layout, s); ferr == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case float64:
		// Numeric ids from older remote rows.
		return fmt.Sprintf("%.0f", s), nil
	case bool:
		return strconv.FormatBool(s), nil
	default:
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidData, key, v)
	}
}

func timeField(m map[string]any, key string) (time.Time, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return time.Time{}, nil
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return time.Time{}, nil
		}
		parsed, err := ParseTimestamp(t)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %s: %v", ErrInvalidData, key, err)
		}
		return parsed, nil
	case float64:
		// JSON numbers are Unix milliseconds, as Date.now() writes them.
		return time.UnixMilli(int64(t)).UTC(), nil
	case time.Time:
		return t.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %s must be a timestamp string, got %T", ErrInvalidData, key, v)
	}
}
