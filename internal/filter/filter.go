// Package filter narrows record collections by per-field constraints and
// derives the option lists used by checkbox filters.
package filter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/iwvelando/scheme-engine/pkg/records"
)

// Constraint restricts one field. A non-empty Values set means membership;
// otherwise a non-empty Text means case-insensitive substring match. An empty
// constraint does not filter.
type Constraint struct {
	Text   string
	Values []interface{}
}

// Text builds a substring constraint.
func Text(text string) Constraint {
	return Constraint{Text: text}
}

// OneOf builds a value-set constraint.
func OneOf(values ...interface{}) Constraint {
	return Constraint{Values: values}
}

// Active reports whether the constraint narrows anything.
func (c Constraint) Active() bool {
	return len(c.Values) > 0 || c.Text != ""
}

// MarshalJSON encodes a value set as an array and a text query as a string.
func (c Constraint) MarshalJSON() ([]byte, error) {
	if len(c.Values) > 0 {
		return json.Marshal(c.Values)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts a string, an array of scalars or null.
func (c *Constraint) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*c = Constraint{}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	switch trimmed[0] {
	case '"':
		return json.Unmarshal(trimmed, &c.Text)
	case '[':
		return json.Unmarshal(trimmed, &c.Values)
	default:
		var scalar interface{}
		if err := json.Unmarshal(trimmed, &scalar); err != nil {
			return err
		}
		c.Text = records.ValueString(scalar)
		return nil
	}
}

// State maps field names to constraints.
type State map[string]Constraint

// Active reports whether any constraint in the state narrows anything.
func (s State) Active() bool {
	for _, c := range s {
		if c.Active() {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the state.
func (s State) Clone() State {
	out := make(State, len(s))
	for field, c := range s {
		values := append([]interface{}(nil), c.Values...)
		out[field] = Constraint{Text: c.Text, Values: values}
	}
	return out
}

// With returns a copy of s with field set to c.
func (s State) With(field string, c Constraint) State {
	out := s.Clone()
	out[field] = c
	return out
}

// Without returns a copy of s with field removed.
func (s State) Without(field string) State {
	out := s.Clone()
	delete(out, field)
	return out
}

// Fields returns the fields carrying an active constraint, sorted.
func (s State) Fields() []string {
	fields := make([]string, 0, len(s))
	for field, c := range s {
		if c.Active() {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	return fields
}

// Compact drops inactive constraints.
func (s State) Compact() State {
	out := make(State, len(s))
	for _, field := range s.Fields() {
		out[field] = s[field]
	}
	return out
}

type compiled struct {
	field  string
	set    map[string]struct{}
	needle string
}

func compile(state State) []compiled {
	fields := state.Fields()
	preds := make([]compiled, 0, len(fields))
	for _, field := range fields {
		c := state[field]
		p := compiled{field: field}
		if len(c.Values) > 0 {
			p.set = make(map[string]struct{}, len(c.Values))
			for _, v := range c.Values {
				p.set[records.ValueString(v)] = struct{}{}
			}
		} else {
			p.needle = strings.ToLower(c.Text)
		}
		preds = append(preds, p)
	}
	return preds
}

func (p compiled) match(r records.Record) bool {
	v, ok := r.Get(p.field)
	if !ok {
		return false
	}
	s := records.ValueString(v)
	if p.set != nil {
		_, hit := p.set[s]
		return hit
	}
	return strings.Contains(strings.ToLower(s), p.needle)
}

func matchAll(preds []compiled, r records.Record) bool {
	for _, p := range preds {
		if !p.match(r) {
			return false
		}
	}
	return true
}

// Matches reports whether a single record passes every active constraint.
func Matches(r records.Record, state State) bool {
	return matchAll(compile(state), r)
}

// Apply returns the records passing every active constraint, in input order.
// With no active constraint the input slice is returned unchanged.
func Apply(recs []records.Record, state State) []records.Record {
	preds := compile(state)
	if len(preds) == 0 {
		return recs
	}
	out := make([]records.Record, 0, len(recs))
	for _, r := range recs {
		if matchAll(preds, r) {
			out = append(out, r)
		}
	}
	return out
}

// ApplyContext is Apply processed in chunks of chunkSize records, yielding
// the processor and checking ctx between chunks. The result is identical to
// Apply.
func ApplyContext(ctx context.Context, recs []records.Record, state State, chunkSize int) ([]records.Record, error) {
	preds := compile(state)
	if len(preds) == 0 {
		return recs, nil
	}
	if chunkSize <= 0 {
		chunkSize = len(recs)
	}
	out := make([]records.Record, 0, len(recs))
	for start := 0; start < len(recs); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("filtering interrupted after %d of %d records: %w", start, len(recs), err)
		}
		end := start + chunkSize
		if end > len(recs) {
			end = len(recs)
		}
		for _, r := range recs[start:end] {
			if matchAll(preds, r) {
				out = append(out, r)
			}
		}
		runtime.Gosched()
	}
	return out, nil
}
