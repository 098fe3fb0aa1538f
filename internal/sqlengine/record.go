package sqlengine

import (
	"bytes"
	"encoding/json"
)

// Field is one named cell of a record.
type Field struct {
	Name  string
	Value Value
}

// Record is an ordered mapping from field name to value. Field order is
// the order of the table definition, or of the SELECT list after
// projection.
type Record []Field

// Get returns the value stored under name.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Null, false
}

// Keys returns the field names in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Name
	}
	return keys
}

// Project returns a new record with exactly the named fields, in the given
// order. Names the record lacks are present with a null value.
func (r Record) Project(names []string) Record {
	out := make(Record, len(names))
	for i, name := range names {
		v, _ := r.Get(name)
		out[i] = Field{Name: name, Value: v}
	}
	return out
}

// MarshalJSON encodes the record as a JSON object, keeping field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
