// Package records defines the keyed field-map rows shared by the filter,
// selection, discount and column components, and maps raw backend payloads
// into them.
package records

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/scheme-engine/pkg/constants"
)

const (
	// KeyField is the JSON name of the stable local row key.
	KeyField = "key"

	// IDField is the JSON name of the backend identifier.
	IDField = "_id"
)

// Record is one table row: a stable local key, the backend identifier when
// known, and scalar fields by name.
type Record struct {
	Key    string
	ID     string
	Fields map[string]interface{}
}

// New builds a record, allocating the field map when fields is nil.
func New(key, id string, fields map[string]interface{}) Record {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	return Record{Key: key, ID: id, Fields: fields}
}

// Get returns the field value. ok is false when the field is missing or nil.
func (r Record) Get(field string) (interface{}, bool) {
	if r.Fields == nil {
		return nil, false
	}
	v, ok := r.Fields[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Has reports whether the field key exists at all, nil values included.
func (r Record) Has(field string) bool {
	if r.Fields == nil {
		return false
	}
	_, ok := r.Fields[field]
	return ok
}

// Text returns the string form of a field, or "" when it is unset.
func (r Record) Text(field string) string {
	v, ok := r.Get(field)
	if !ok {
		return ""
	}
	return ValueString(v)
}

// Float coerces a field to a number. Unset or non-numeric values yield 0.
func (r Record) Float(field string) float64 {
	v, ok := r.Get(field)
	if !ok {
		return 0
	}
	f, _ := ToFloat(v)
	return f
}

// Set assigns a field value.
func (r *Record) Set(field string, value interface{}) {
	if r.Fields == nil {
		r.Fields = make(map[string]interface{})
	}
	r.Fields[field] = value
}

// Delete removes a field.
func (r Record) Delete(field string) {
	if r.Fields != nil {
		delete(r.Fields, field)
	}
}

// IsBlank reports whether a field is missing, nil or the empty string.
func (r Record) IsBlank(field string) bool {
	v, ok := r.Get(field)
	if !ok {
		return true
	}
	s, isString := v.(string)
	return isString && s == ""
}

// Clone returns a copy whose field map can be mutated independently.
func (r Record) Clone() Record {
	fields := make(map[string]interface{}, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{Key: r.Key, ID: r.ID, Fields: fields}
}

// FieldNames returns the sorted field names of the record.
func (r Record) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON flattens the record into a single object with "key" and "_id"
// next to the fields, which is the row shape table front ends consume.
func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(r.Fields)+2)
	for k, v := range r.Fields {
		flat[k] = v
	}
	flat[KeyField] = r.Key
	if r.ID != "" {
		flat[IDField] = r.ID
	}
	return json.Marshal(flat)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var flat map[string]interface{}
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	r.Key = ValueString(flat[KeyField])
	r.ID = ValueString(flat[IDField])
	delete(flat, KeyField)
	delete(flat, IDField)
	if flat == nil {
		flat = make(map[string]interface{})
	}
	r.Fields = flat
	return nil
}

// ValueString returns the canonical string form of a scalar. Numbers print
// without trailing zeros so 12 and 12.0 compare equal after a JSON round
// trip.
func ValueString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case json.Number:
		return val.String()
	case time.Time:
		return val.UTC().Format(constants.DateLayout)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ToFloat converts numbers and numeric strings to float64.
func ToFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// IsFalsy mirrors the falsy set used for option lists: nil, empty string,
// false, zero and NaN.
func IsFalsy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case time.Time:
		return val.IsZero()
	}
	if f, ok := ToFloat(v); ok {
		if _, isString := v.(string); !isString {
			return f == 0 || math.IsNaN(f)
		}
	}
	return false
}

// Keys returns the keys of recs in order.
func Keys(recs []Record) []string {
	keys := make([]string, len(recs))
	for i, r := range recs {
		keys[i] = r.Key
	}
	return keys
}

// Index maps each key to its position in recs.
func Index(recs []Record) map[string]int {
	idx := make(map[string]int, len(recs))
	for i, r := range recs {
		idx[r.Key] = i
	}
	return idx
}
