package models

import (
	"bytes"
	"encoding/json"
)

// ValueKind tags the type held by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindNumber
	KindText
)

// Value is a single dataset cell: a number, a string or null.
// Raw always holds the trimmed source text so numeric cells can still be
// compared as strings.
type Value struct {
	Kind ValueKind
	Num  float64
	Raw  string
}

// NullValue returns the missing value.
func NullValue() Value {
	return Value{Kind: KindNull}
}

// NumberValue builds a numeric cell.
func NumberValue(raw string, num float64) Value {
	return Value{Kind: KindNumber, Num: num, Raw: raw}
}

// TextValue builds a text cell.
func TextValue(raw string) Value {
	return Value{Kind: KindText, Raw: raw}
}

func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// Interface returns the value as a plain Go value (nil, float64 or string).
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindText:
		return v.Raw
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Schema is the ordered, immutable column set shared by every record of a
// dataset snapshot.
type Schema struct {
	names []string
	index map[string]int
}

// NewSchema builds a schema. Duplicate names keep their first position.
func NewSchema(names []string) *Schema {
	s := &Schema{
		names: make([]string, 0, len(names)),
		index: make(map[string]int, len(names)),
	}
	for _, name := range names {
		if _, ok := s.index[name]; ok {
			continue
		}
		s.index[name] = len(s.names)
		s.names = append(s.names, name)
	}
	return s
}

// Names returns a copy of the column names in schema order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *Schema) Len() int {
	return len(s.names)
}

// Index returns the position of a column.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Record is one row of the reference dataset. Every record exposes the full
// schema; absent cells are null, never omitted.
type Record struct {
	schema *Schema
	values []Value
}

// NewRecord binds values to a schema, padding short rows with nulls.
func NewRecord(schema *Schema, values []Value) Record {
	vals := make([]Value, schema.Len())
	copy(vals, values)
	for i := len(values); i < len(vals); i++ {
		vals[i] = NullValue()
	}
	return Record{schema: schema, values: vals}
}

// Get returns the value of a column, or null for an unknown column.
func (r Record) Get(column string) Value {
	if r.schema == nil {
		return NullValue()
	}
	i, ok := r.schema.Index(column)
	if !ok {
		return NullValue()
	}
	return r.values[i]
}

// At returns the value at a schema position.
func (r Record) At(i int) Value {
	if i < 0 || i >= len(r.values) {
		return NullValue()
	}
	return r.values[i]
}

func (r Record) Len() int {
	return len(r.values)
}

// Map converts the record into a column→value map.
func (r Record) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(r.values))
	if r.schema == nil {
		return out
	}
	for i, name := range r.schema.names {
		out[name] = r.values[i].Interface()
	}
	return out
}

// MarshalJSON writes the record as an object in schema order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if r.schema != nil {
		for i, name := range r.schema.names {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(name)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			val, err := json.Marshal(r.values[i])
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
