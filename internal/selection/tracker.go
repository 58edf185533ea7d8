// Package selection tracks checked row keys independently of which rows the
// active filter currently shows.
package selection

import "sort"

// Tracker is a set of selected record keys. Keys that no longer exist in the
// collection are kept until ClearAll or an explicit Deselect. The zero value
// is an empty selection.
type Tracker struct {
	keys map[string]struct{}
}

// New returns a tracker holding keys.
func New(keys ...string) *Tracker {
	t := &Tracker{keys: make(map[string]struct{}, len(keys))}
	t.Select(keys...)
	return t
}

// Select adds keys.
func (t *Tracker) Select(keys ...string) {
	t.init()
	for _, k := range keys {
		t.keys[k] = struct{}{}
	}
}

// Deselect removes keys.
func (t *Tracker) Deselect(keys ...string) {
	for _, k := range keys {
		delete(t.keys, k)
	}
}

// SelectAllVisible adds the visible keys to the existing selection. It never
// removes anything.
func (t *Tracker) SelectAllVisible(visible []string) {
	t.Select(visible...)
}

// DeselectAllVisible removes the visible keys and leaves hidden selections
// untouched.
func (t *Tracker) DeselectAllVisible(visible []string) {
	t.Deselect(visible...)
}

// SetVisibleChecked applies a checkbox change scoped to the visible rows:
// visible keys in checked become selected, the other visible keys become
// unselected, and keys outside visible are not affected. Checked keys that
// are not visible are ignored.
func (t *Tracker) SetVisibleChecked(visible, checked []string) {
	t.init()
	want := make(map[string]struct{}, len(checked))
	for _, k := range checked {
		want[k] = struct{}{}
	}
	for _, k := range visible {
		if _, ok := want[k]; ok {
			t.keys[k] = struct{}{}
		} else {
			delete(t.keys, k)
		}
	}
}

func (t *Tracker) init() {
	if t.keys == nil {
		t.keys = make(map[string]struct{})
	}
}

// ClearAll empties the selection.
func (t *Tracker) ClearAll() {
	t.keys = make(map[string]struct{})
}

// Has reports whether key is selected.
func (t *Tracker) Has(key string) bool {
	_, ok := t.keys[key]
	return ok
}

// Len returns the number of selected keys.
func (t *Tracker) Len() int {
	return len(t.keys)
}

// Keys returns the selected keys, sorted.
func (t *Tracker) Keys() []string {
	out := make([]string, 0, len(t.keys))
	for k := range t.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CountIn returns how many of keys are selected.
func (t *Tracker) CountIn(keys []string) int {
	n := 0
	for _, k := range keys {
		if t.Has(k) {
			n++
		}
	}
	return n
}
