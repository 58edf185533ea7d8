// Package workspace holds the state of the scheme authoring tables. Every
// change to filters, selection, prices or cells goes through Dispatch.
package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iwvelando/scheme-engine/internal/columns"
	"github.com/iwvelando/scheme-engine/internal/discount"
	"github.com/iwvelando/scheme-engine/internal/filter"
	"github.com/iwvelando/scheme-engine/internal/selection"
	"github.com/iwvelando/scheme-engine/pkg/constants"
	"github.com/iwvelando/scheme-engine/pkg/records"
	"github.com/iwvelando/scheme-engine/pkg/validation"
)

// ActionType names a table state transition.
type ActionType string

const (
	ApplyFilter     ActionType = "APPLY_FILTER"
	ClearFilter     ActionType = "CLEAR_FILTER"
	ClearAllFilters ActionType = "CLEAR_ALL_FILTERS"
	ApplyPreset     ActionType = "APPLY_PRESET"
	Select          ActionType = "SELECT"
	Deselect        ActionType = "DESELECT"
	SelectAll       ActionType = "SELECT_ALL"
	DeselectAll     ActionType = "DESELECT_ALL"
	SetChecked      ActionType = "SET_CHECKED"
	ClearSelection  ActionType = "CLEAR_SELECTION"
	ApplyDiscount   ActionType = "APPLY_DISCOUNT"
	SetCell         ActionType = "SET_CELL"
)

// Action is one dispatched change. Which fields are read depends on Type.
type Action struct {
	Type       ActionType        `json:"type"`
	Field      string            `json:"field,omitempty"`
	Constraint filter.Constraint `json:"constraint"`
	Filters    filter.State      `json:"filters,omitempty"`
	Keys       []string          `json:"keys,omitempty"`
	Key        string            `json:"key,omitempty"`
	Value      string            `json:"value,omitempty"`
}

// Result reports the table counts after an action.
type Result struct {
	RequestID string           `json:"requestId"`
	Total     int              `json:"total"`
	Visible   int              `json:"visible"`
	Selected  int              `json:"selected"`
	Discount  *discount.Result `json:"discount,omitempty"`
}

// Options tunes a table.
type Options struct {
	OptionSampleLimit int
	ChunkSize         int
	DeferThreshold    int
	Strategy          discount.Strategy
	Logger            *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.OptionSampleLimit <= 0 {
		o.OptionSampleLimit = constants.DefaultOptionSampleLimit
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = constants.DefaultFilterChunkSize
	}
	if o.DeferThreshold <= 0 {
		o.DeferThreshold = constants.DefaultDeferThreshold
	}
	if o.Strategy == nil {
		o.Strategy = discount.FlavourDivisor{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// View is a read-only copy of the table state.
type View struct {
	Name          string               `json:"name"`
	Total         int                  `json:"total"`
	VisibleCount  int                  `json:"visibleCount"`
	Filters       filter.State         `json:"filters"`
	Columns       []string             `json:"columns"`
	CustomColumns []columns.Definition `json:"customColumns"`
	Rows          []records.Record     `json:"rows"`
	Selected      []string             `json:"selected"`
}

// Table is one filterable, selectable record collection. It is safe for
// concurrent use; the last write wins.
type Table struct {
	name string
	opts Options

	mu        sync.RWMutex
	all       []records.Record
	filters   filter.State
	visible   []records.Record
	selection *selection.Tracker
	columns   *columns.Manager
}

// NewTable returns a table over recs with every fixed column visible.
func NewTable(name string, recs []records.Record, fixedColumns []string, opts Options) *Table {
	t := &Table{
		name:      name,
		opts:      opts.withDefaults(),
		all:       recs,
		filters:   filter.State{},
		visible:   recs,
		selection: selection.New(),
		columns:   columns.NewManager(fixedColumns),
	}
	return t
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Strategy returns the discount strategy of the table.
func (t *Table) Strategy() discount.Strategy {
	return t.opts.Strategy
}

// Dispatch applies an action. On error the state is left unchanged.
func (t *Table) Dispatch(ctx context.Context, a Action) (Result, error) {
	requestID := uuid.NewString()
	start := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	var discountResult *discount.Result
	var err error
	switch a.Type {
	case ApplyFilter:
		if a.Field == "" {
			return Result{}, validation.NewError("field", "is required")
		}
		next := t.filters.Without(a.Field)
		if a.Constraint.Active() {
			next = t.filters.With(a.Field, a.Constraint)
		}
		err = t.refilter(ctx, next)
	case ClearFilter:
		if a.Field == "" {
			return Result{}, validation.NewError("field", "is required")
		}
		err = t.refilter(ctx, t.filters.Without(a.Field))
	case ClearAllFilters:
		err = t.refilter(ctx, filter.State{})
	case ApplyPreset:
		err = t.refilter(ctx, a.Filters.Compact())
	case Select:
		t.selection.Select(a.Keys...)
	case Deselect:
		t.selection.Deselect(a.Keys...)
	case SelectAll:
		t.selection.SelectAllVisible(records.Keys(t.visible))
	case DeselectAll:
		t.selection.DeselectAllVisible(records.Keys(t.visible))
	case SetChecked:
		t.selection.SetVisibleChecked(records.Keys(t.visible), a.Keys)
	case ClearSelection:
		t.selection.ClearAll()
	case ApplyDiscount:
		// Targets are the rows passing the filter now, not at the last refilter
		if err = t.refilter(ctx, t.filters); err == nil {
			var res discount.Result
			res, err = discount.ApplyBulk(t.all, records.Keys(t.visible), t.opts.Strategy, a.Value)
			discountResult = &res
		}
	case SetCell:
		if err = t.setCell(a.Key, a.Field, a.Value); err == nil && t.constrained(a.Field) {
			err = t.refilter(ctx, t.filters)
		}
	default:
		return Result{}, validation.NewError("type", fmt.Sprintf("unknown action %q", a.Type))
	}

	if err != nil {
		t.opts.Logger.Warn("table action rejected",
			zap.String("op", "workspace.Dispatch"),
			zap.String("requestId", requestID),
			zap.String("table", t.name),
			zap.String("action", string(a.Type)),
			zap.Error(err),
		)
		return Result{}, err
	}

	res := Result{
		RequestID: requestID,
		Total:     len(t.all),
		Visible:   len(t.visible),
		Selected:  t.selection.Len(),
		Discount:  discountResult,
	}
	t.opts.Logger.Debug("table action applied",
		zap.String("op", "workspace.Dispatch"),
		zap.String("requestId", requestID),
		zap.String("table", t.name),
		zap.String("action", string(a.Type)),
		zap.Int("visible", res.Visible),
		zap.Int("selected", res.Selected),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// refilter recomputes the visible rows for next and commits both only when
// filtering completes.
func (t *Table) refilter(ctx context.Context, next filter.State) error {
	var visible []records.Record
	if len(t.all) > t.opts.DeferThreshold {
		var err error
		visible, err = filter.ApplyContext(ctx, t.all, next, t.opts.ChunkSize)
		if err != nil {
			return err
		}
	} else {
		visible = filter.Apply(t.all, next)
	}
	t.filters = next
	t.visible = visible
	return nil
}

func (t *Table) setCell(key, field, value string) error {
	i := t.indexOf(key)
	if i < 0 {
		return validation.NewError("key", fmt.Sprintf("no row %q", key))
	}
	if field == records.FieldDiscountPrice {
		_, err := discount.SetPrice(&t.all[i], value)
		return err
	}
	def, ok := t.columns.Find(field)
	if !ok {
		return validation.NewError("field", fmt.Sprintf("%q is not an editable column", field))
	}
	t.all[i].Set(field, columns.Coerce(def.DataType, value))
	return nil
}

// constrained reports whether an active filter reads field.
func (t *Table) constrained(field string) bool {
	c, ok := t.filters[field]
	return ok && c.Active()
}

func (t *Table) indexOf(key string) int {
	for i := range t.all {
		if t.all[i].Key == key {
			return i
		}
	}
	return -1
}

// Replace swaps in a freshly loaded collection. Filters and selection are
// kept, custom columns are re-applied with their defaults.
func (t *Table) Replace(ctx context.Context, recs []records.Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, def := range t.columns.Custom() {
		value := columns.Coerce(def.DataType, def.DefaultValue)
		for i := range recs {
			if recs[i].IsBlank(def.Key) {
				recs[i].Set(def.Key, value)
			}
		}
	}
	prev := t.all
	t.all = recs
	if err := t.refilter(ctx, t.filters); err != nil {
		t.all = prev
		return err
	}
	return nil
}

// Filters returns a copy of the active filter state.
func (t *Table) Filters() filter.State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.filters.Clone()
}

// Len returns the size of the full collection.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.all)
}

// Visible returns copies of the rows passing the filter.
func (t *Table) Visible() []records.Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneAll(t.visible)
}

// Records returns copies of every row.
func (t *Table) Records() []records.Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneAll(t.all)
}

// Selected returns copies of the selected rows in collection order. Keys
// that match no row are skipped.
func (t *Table) Selected() []records.Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []records.Record
	for _, r := range t.all {
		if t.selection.Has(r.Key) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// SelectedKeys returns the raw selection, including keys that match no row.
func (t *Table) SelectedKeys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.selection.Keys()
}

// Options lists the distinct values of field for a checkbox filter.
func (t *Table) Options(field, search string) filter.OptionSet {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return filter.CappedOptions(t.all, field, t.opts.OptionSampleLimit, search)
}

// Checklist returns checkbox filter state for field, pre-checked with the
// active constraint.
func (t *Table) Checklist(field, search string) *filter.Checklist {
	set := t.Options(field, search)
	t.mu.RLock()
	current := t.filters[field]
	t.mu.RUnlock()
	c := filter.NewChecklist(field, set.Options, current)
	c.Search = search
	return c
}

// Snapshot returns the table state with at most limit rows, all rows when
// limit is 0.
func (t *Table) Snapshot(limit int) View {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rows := t.visible
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return View{
		Name:          t.name,
		Total:         len(t.all),
		VisibleCount:  len(t.visible),
		Filters:       t.filters.Clone(),
		Columns:       t.columns.Visible(),
		CustomColumns: t.columns.Custom(),
		Rows:          cloneAll(rows),
		Selected:      t.selection.Keys(),
	}
}

// AddColumn adds a custom column to every row.
func (t *Table) AddColumn(def columns.Definition) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.columns.Add(def, t.all)
}

// EditColumn updates a custom column and back-fills blank cells.
func (t *Table) EditColumn(key string, edit columns.Edit) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	filled, err := t.columns.Edit(key, edit, t.all)
	if err != nil || filled == 0 || !t.constrained(key) {
		return filled, err
	}
	return filled, t.refilter(context.Background(), t.filters)
}

// DeleteColumn removes a custom column from every row.
func (t *Table) DeleteColumn(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.columns.Delete(key, t.all, t.visible)
}

// SetVisibleColumns replaces the visible column list.
func (t *Table) SetVisibleColumns(keys []string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.columns.SetVisible(keys)
	return t.columns.Visible()
}

// ToggleColumn flips one column's visibility.
func (t *Table) ToggleColumn(key string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.columns.Toggle(key)
	return t.columns.Visible()
}

// VisibleColumns returns the visible column keys in display order.
func (t *Table) VisibleColumns() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.columns.Visible()
}

// CustomColumnKeys returns the custom column keys.
func (t *Table) CustomColumnKeys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.columns.CustomKeys()
}

// CustomColumns returns the custom column definitions.
func (t *Table) CustomColumns() []columns.Definition {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.columns.Custom()
}

func cloneAll(recs []records.Record) []records.Record {
	out := make([]records.Record, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out
}
