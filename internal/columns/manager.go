// Package columns manages the visible product columns and the user-defined
// custom columns that are added to, edited on, and removed from every row.
package columns

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iwvelando/scheme-engine/pkg/records"
	"github.com/iwvelando/scheme-engine/pkg/validation"
)

// DataType is the value type of a custom column.
type DataType string

const (
	Text    DataType = "text"
	Number  DataType = "number"
	Boolean DataType = "boolean"
	Date    DataType = "date"
)

// ErrUnknownColumn is returned when a key names no custom column.
var ErrUnknownColumn = errors.New("custom column not found")

// Definition describes one custom column.
type Definition struct {
	Title        string   `json:"title" yaml:"title" validate:"required"`
	Key          string   `json:"key" yaml:"key" validate:"required,columnkey"`
	DataType     DataType `json:"dataType" yaml:"dataType" validate:"required,oneof=text number boolean date"`
	DefaultValue string   `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
}

// Edit carries the mutable attributes of a column. Nil fields are left as
// they are. The key cannot be edited.
type Edit struct {
	Title        *string   `json:"title,omitempty"`
	DataType     *DataType `json:"dataType,omitempty"`
	DefaultValue *string   `json:"defaultValue,omitempty"`
}

// Coerce converts a raw default value to the column's type: numbers parse
// or fall back to 0, booleans are true only for "true", dates pass through
// (nil when blank), text stays a string.
func Coerce(dataType DataType, raw string) interface{} {
	switch dataType {
	case Number:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return 0.0
		}
		return f
	case Boolean:
		return raw == "true"
	case Date:
		if raw == "" {
			return nil
		}
		return raw
	default:
		return raw
	}
}

// Manager holds the visible column list and the custom column definitions.
type Manager struct {
	fixed   []string
	custom  []Definition
	visible []string
}

// NewManager returns a manager whose fixed columns are all visible.
func NewManager(fixed []string) *Manager {
	return &Manager{
		fixed:   append([]string(nil), fixed...),
		visible: append([]string(nil), fixed...),
	}
}

// Fixed returns the built-in column keys.
func (m *Manager) Fixed() []string {
	return append([]string(nil), m.fixed...)
}

// Custom returns the custom column definitions in creation order.
func (m *Manager) Custom() []Definition {
	return append([]Definition(nil), m.custom...)
}

// CustomKeys returns the custom column keys in creation order.
func (m *Manager) CustomKeys() []string {
	keys := make([]string, len(m.custom))
	for i, d := range m.custom {
		keys[i] = d.Key
	}
	return keys
}

// Visible returns the visible column keys.
func (m *Manager) Visible() []string {
	return append([]string(nil), m.visible...)
}

// IsVisible reports whether key is visible.
func (m *Manager) IsVisible(key string) bool {
	return indexOf(m.visible, key) >= 0
}

// SetVisible replaces the visible column list. Unknown keys are dropped and
// duplicates collapsed.
func (m *Manager) SetVisible(keys []string) {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup || !m.known(k) {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	m.visible = out
}

// Toggle flips the visibility of one column.
func (m *Manager) Toggle(key string) {
	if i := indexOf(m.visible, key); i >= 0 {
		m.visible = append(m.visible[:i:i], m.visible[i+1:]...)
		return
	}
	if m.known(key) {
		m.visible = append(m.visible, key)
	}
}

// Find returns the custom column with key.
func (m *Manager) Find(key string) (Definition, bool) {
	for _, d := range m.custom {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

// Add registers a custom column, writes its coerced default into every
// record of all and makes it visible. Nothing changes when validation fails.
func (m *Manager) Add(def Definition, all []records.Record) error {
	def.Title = strings.TrimSpace(def.Title)
	problems := &validation.Error{}
	problems.Merge(validation.Struct(def))
	if _, exists := m.Find(def.Key); exists {
		problems.Add("key", fmt.Sprintf("%q is already used by a custom column", def.Key))
	} else if indexOf(m.fixed, def.Key) >= 0 {
		problems.Add("key", fmt.Sprintf("%q is a built-in column", def.Key))
	}
	if err := problems.OrNil(); err != nil {
		return err
	}

	value := Coerce(def.DataType, def.DefaultValue)
	for i := range all {
		all[i].Set(def.Key, value)
	}
	m.custom = append(m.custom, def)
	m.visible = append(m.visible, def.Key)
	return nil
}

// Edit updates a column's title, type or default. A non-empty default is
// written only into records of each collection whose field is blank, so
// values already entered per row are kept. It returns the number of records
// back-filled.
func (m *Manager) Edit(key string, edit Edit, collections ...[]records.Record) (int, error) {
	i := m.index(key)
	if i < 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownColumn, key)
	}

	updated := m.custom[i]
	if edit.Title != nil {
		updated.Title = strings.TrimSpace(*edit.Title)
	}
	if edit.DataType != nil {
		updated.DataType = *edit.DataType
	}
	if edit.DefaultValue != nil {
		updated.DefaultValue = *edit.DefaultValue
	}
	if err := validation.Struct(updated); err != nil {
		return 0, err
	}
	m.custom[i] = updated

	if edit.DefaultValue == nil || *edit.DefaultValue == "" {
		return 0, nil
	}
	value := Coerce(updated.DataType, updated.DefaultValue)
	filled := 0
	for _, recs := range collections {
		for j := range recs {
			if recs[j].IsBlank(key) {
				recs[j].Set(key, value)
				filled++
			}
		}
	}
	return filled, nil
}

// Delete removes a custom column, its field from every record of each
// collection, and its key from the visible list.
func (m *Manager) Delete(key string, collections ...[]records.Record) error {
	i := m.index(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, key)
	}
	m.custom = append(m.custom[:i:i], m.custom[i+1:]...)
	if j := indexOf(m.visible, key); j >= 0 {
		m.visible = append(m.visible[:j:j], m.visible[j+1:]...)
	}
	for _, recs := range collections {
		for j := range recs {
			recs[j].Delete(key)
		}
	}
	return nil
}

// CustomValues extracts the custom column values of one record.
func (m *Manager) CustomValues(r records.Record) map[string]interface{} {
	out := make(map[string]interface{}, len(m.custom))
	for _, d := range m.custom {
		if v, ok := r.Get(d.Key); ok {
			out[d.Key] = v
		}
	}
	return out
}

func (m *Manager) known(key string) bool {
	return indexOf(m.fixed, key) >= 0 || m.index(key) >= 0
}

func (m *Manager) index(key string) int {
	for i, d := range m.custom {
		if d.Key == key {
			return i
		}
	}
	return -1
}

func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}
