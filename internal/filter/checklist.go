package filter

import "github.com/iwvelando/scheme-engine/pkg/records"

// Checklist is the state of one checkbox filter dropdown: its options, the
// search box, and the checked values. Checked values hidden by the search
// stay checked.
type Checklist struct {
	Field   string
	Options []Option
	Search  string
	checked []interface{}
}

// NewChecklist builds a checklist for field, pre-checking the values of an
// existing constraint.
func NewChecklist(field string, options []Option, current Constraint) *Checklist {
	c := &Checklist{Field: field, Options: options}
	c.add(current.Values)
	return c
}

// Visible returns the options matching the search box.
func (c *Checklist) Visible() []Option {
	return SearchOptions(c.Options, c.Search)
}

// Checked returns the checked values in the order they were checked.
func (c *Checklist) Checked() []interface{} {
	return append([]interface{}(nil), c.checked...)
}

// IsChecked reports whether value is checked.
func (c *Checklist) IsChecked(value interface{}) bool {
	key := records.ValueString(value)
	for _, v := range c.checked {
		if records.ValueString(v) == key {
			return true
		}
	}
	return false
}

// SelectAllVisible adds every visible option to the checked values, keeping
// the ones already checked.
func (c *Checklist) SelectAllVisible() {
	visible := c.Visible()
	values := make([]interface{}, len(visible))
	for i, o := range visible {
		values[i] = o.Value
	}
	c.add(values)
}

// SetVisibleChecked replaces the checked state of the visible options with
// values. Checked values outside the visible options are kept; values that
// are not visible options are ignored.
func (c *Checklist) SetVisibleChecked(values []interface{}) {
	visible := make(map[string]struct{})
	for _, o := range c.Visible() {
		visible[records.ValueString(o.Value)] = struct{}{}
	}

	kept := make([]interface{}, 0, len(c.checked)+len(values))
	for _, v := range c.checked {
		if _, isVisible := visible[records.ValueString(v)]; !isVisible {
			kept = append(kept, v)
		}
	}
	c.checked = kept

	var accepted []interface{}
	for _, v := range values {
		if _, isVisible := visible[records.ValueString(v)]; isVisible {
			accepted = append(accepted, v)
		}
	}
	c.add(accepted)
}

// Clear unchecks everything.
func (c *Checklist) Clear() {
	c.checked = nil
}

// Constraint returns the value-set constraint for the checked values.
func (c *Checklist) Constraint() Constraint {
	return Constraint{Values: c.Checked()}
}

func (c *Checklist) add(values []interface{}) {
	seen := make(map[string]struct{}, len(c.checked))
	for _, v := range c.checked {
		seen[records.ValueString(v)] = struct{}{}
	}
	for _, v := range values {
		key := records.ValueString(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		c.checked = append(c.checked, v)
	}
}
