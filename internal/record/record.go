package record

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Record is a billing configuration: an ordered object keyed by billing
// field. The zero Record holds nothing and marshals to null.
type Record struct {
	obj *Object
}

// Build validates raw extraction output against the billing schema and
// returns the record with fields in declared order. A null
// extraction_notes is stored as an empty string.
func Build(raw []byte) (Record, error) {
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return Record{}, &SchemaError{Field: "(root)", Reason: "malformed json: " + err.Error()}
	}

	s, err := loadSchemas()
	if err != nil {
		return Record{}, err
	}
	if err := s.record.Validate(generic); err != nil {
		return Record{}, schemaError("", err)
	}

	v, err := Parse(raw)
	if err != nil {
		return Record{}, &SchemaError{Field: "(root)", Reason: err.Error()}
	}
	src, _ := v.AsObject()

	out := NewObject()
	for _, name := range FieldNames {
		fv, _ := src.Get(name)
		out.Set(name, fv)
	}
	notes, _ := src.Get(FieldExtractionNotes)
	if notes.IsNull() {
		notes = String("")
	}
	out.Set(FieldExtractionNotes, notes)
	return Record{obj: out}, nil
}

// Load decodes a stored record without validating it. Stored records may
// carry edits that the extraction schema would not produce. Top-level
// fields come back in declared order whatever order the store kept.
func Load(data []byte) (Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Record{}, nil
	}
	v, err := Parse(data)
	if err != nil {
		return Record{}, err
	}
	switch v.Kind() {
	case KindNull:
		return Record{}, nil
	case KindObject:
		obj, _ := v.AsObject()
		return Record{obj: declaredOrder(obj)}, nil
	default:
		return Record{}, fmt.Errorf("record: expected object, got %s", v.Kind())
	}
}

func declaredOrder(src *Object) *Object {
	out := NewObject()
	for _, name := range append(FieldNames[:len(FieldNames):len(FieldNames)], FieldExtractionNotes) {
		if v, ok := src.Get(name); ok {
			out.Set(name, v)
		}
	}
	for _, key := range src.Keys() {
		if _, ok := out.Get(key); !ok {
			v, _ := src.Get(key)
			out.Set(key, v)
		}
	}
	return out
}

// FromObject wraps an object as a record without validation.
func FromObject(o *Object) Record {
	return Record{obj: o}
}

func (r Record) IsZero() bool { return r.obj == nil }

// Object returns the underlying object. Callers must not modify it.
func (r Record) Object() *Object { return r.obj }

// AsValue returns the record as a JSON value.
func (r Record) AsValue() Value {
	if r.obj == nil {
		return Null()
	}
	return ObjectValue(r.obj)
}

func (r Record) Clone() Record {
	if r.obj == nil {
		return Record{}
	}
	return Record{obj: r.obj.Clone()}
}

func (r Record) Equal(o Record) bool {
	if r.obj == nil || o.obj == nil {
		return r.obj == nil && o.obj == nil
	}
	return r.obj.Equal(o.obj)
}

// Get returns a top-level field.
func (r Record) Get(name string) (Value, bool) {
	if r.obj == nil {
		return Null(), false
	}
	return r.obj.Get(name)
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r.obj == nil {
		return []byte("null"), nil
	}
	return r.obj.MarshalJSON()
}

func (r *Record) UnmarshalJSON(data []byte) error {
	loaded, err := Load(data)
	if err != nil {
		return err
	}
	*r = loaded
	return nil
}

// Scan implements sql.Scanner for JSON columns.
func (r *Record) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		*r = Record{}
		return nil
	case []byte:
		return r.UnmarshalJSON(s)
	case string:
		return r.UnmarshalJSON([]byte(s))
	default:
		return errors.New("record: unsupported scan type")
	}
}

// Value implements driver.Valuer.
func (r Record) Value() (driver.Value, error) {
	if r.obj == nil {
		return nil, nil
	}
	return r.MarshalJSON()
}
