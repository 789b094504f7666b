package remote

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/monalisamaguruwada102-web/studysync/pkg/types"
)

//go:embed schema.yaml
var defaultSchemaYAML []byte

// fixedColumns maps the fixed record keys to their columns. They are the
// same for every table and cannot be overridden.
var fixedColumns = map[string]string{
	types.FieldID:        types.ColumnID,
	types.FieldOwnerID:   types.ColumnOwnerID,
	types.FieldCreatedAt: types.ColumnCreatedAt,
	types.FieldUpdatedAt: types.ColumnUpdatedAt,
}

// CollectionSchema describes how one collection maps onto its remote table.
type CollectionSchema struct {
	Table     string            `yaml:"table"`
	Fields    map[string]string `yaml:"fields"`
	LocalOnly []string          `yaml:"local_only"`

	toField   map[string]string
	localOnly map[string]bool
}

// Schema is the naming schema for every collection.
type Schema struct {
	LocalOnly   []string                     `yaml:"local_only"`
	Collections map[string]*CollectionSchema `yaml:"collections"`

	localOnly map[string]bool
}

// DefaultSchema returns the built-in schema.
func DefaultSchema() *Schema {
	s, err := ParseSchema(defaultSchemaYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in remote schema: %v", err))
	}
	return s
}

// LoadSchema reads a schema file. An empty path returns the built-in schema.
func LoadSchema(path string) (*Schema, error) {
	if path == "" {
		return DefaultSchema(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	return ParseSchema(data)
}

// ParseSchema decodes and validates a YAML schema. Each collection's field
// map must be one-to-one and must not redefine the fixed columns.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	s.localOnly = toSet(s.LocalOnly)
	if s.Collections == nil {
		s.Collections = map[string]*CollectionSchema{}
	}
	for name, cs := range s.Collections {
		if cs == nil {
			cs = &CollectionSchema{}
			s.Collections[name] = cs
		}
		if err := cs.index(name); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func (cs *CollectionSchema) index(name string) error {
	if cs.Table == "" {
		cs.Table = types.RemoteTable(name)
	}
	cs.toField = make(map[string]string, len(cs.Fields))
	for field, column := range cs.Fields {
		if types.IsFixedField(field) {
			return fmt.Errorf("schema %s: field %q is fixed", name, field)
		}
		if column == "" {
			return fmt.Errorf("schema %s: field %q has no column", name, field)
		}
		if prev, dup := cs.toField[column]; dup {
			return fmt.Errorf("schema %s: column %q mapped by %q and %q", name, column, prev, field)
		}
		cs.toField[column] = field
	}
	cs.localOnly = toSet(cs.LocalOnly)
	return nil
}

func (s *Schema) collection(name string) *CollectionSchema {
	return s.Collections[name]
}

// Table returns the remote table of a collection.
func (s *Schema) Table(collection string) string {
	if cs := s.collection(collection); cs != nil {
		return cs.Table
	}
	return types.RemoteTable(collection)
}

// Column returns the column name for an application field name.
func (s *Schema) Column(collection, field string) string {
	if c, ok := fixedColumns[field]; ok {
		return c
	}
	if cs := s.collection(collection); cs != nil {
		if c, ok := cs.Fields[field]; ok {
			return c
		}
	}
	return ToSnake(field)
}

// Field returns the application field name for a column name.
func (s *Schema) Field(collection, column string) string {
	for f, c := range fixedColumns {
		if c == column {
			return f
		}
	}
	if cs := s.collection(collection); cs != nil {
		if f, ok := cs.toField[column]; ok {
			return f
		}
	}
	return ToCamel(column)
}

// IsLocalOnly reports whether a field must never be sent to the remote.
func (s *Schema) IsLocalOnly(collection, field string) bool {
	if s.localOnly[field] {
		return true
	}
	if cs := s.collection(collection); cs != nil {
		return cs.localOnly[field]
	}
	return false
}

// ToRemote converts a record to a row of the collection's table. The row id
// is the record's remote id when it has one, else its local id. Local-only
// fields are dropped.
func (s *Schema) ToRemote(collection string, rec types.Record) types.Row {
	row := make(types.Row, len(rec.Fields)+4)
	for field, v := range rec.Fields {
		if types.IsFixedField(field) || s.IsLocalOnly(collection, field) {
			continue
		}
		row[s.Column(collection, field)] = v
	}
	id := rec.ID
	if rec.RemoteID != "" {
		id = rec.RemoteID
	}
	row[types.ColumnID] = id
	if rec.OwnerID != "" {
		row[types.ColumnOwnerID] = rec.OwnerID
	}
	if !rec.CreatedAt.IsZero() {
		row[types.ColumnCreatedAt] = rec.CreatedAt.UTC()
	}
	if !rec.UpdatedAt.IsZero() {
		row[types.ColumnUpdatedAt] = rec.UpdatedAt.UTC()
	}
	return row
}

// FromRemote converts a row back to a record. The record's ID is the row id;
// columns that map to local-only fields are ignored.
func (s *Schema) FromRemote(collection string, row types.Row) (types.Record, error) {
	m := make(map[string]any, len(row))
	for column, v := range row {
		field := s.Field(collection, column)
		if s.IsLocalOnly(collection, field) {
			continue
		}
		if t, ok := v.(time.Time); ok {
			v = types.FormatTimestamp(t)
		}
		m[field] = v
	}
	rec, err := types.RecordFromMap(m)
	if err != nil {
		return types.Record{}, fmt.Errorf("row of %s: %w", s.Table(collection), err)
	}
	return rec, nil
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
