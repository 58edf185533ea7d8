package server

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/iwvelando/scheme-engine/internal/columns"
	"github.com/iwvelando/scheme-engine/internal/filter"
	"github.com/iwvelando/scheme-engine/internal/presets"
	"github.com/iwvelando/scheme-engine/internal/workspace"
	"github.com/iwvelando/scheme-engine/pkg/validation"
)

type tablesResponse struct {
	Kind   string   `json:"kind"`
	Tables []string `json:"tables"`
}

type columnsResponse struct {
	Visible []string             `json:"visible"`
	Custom  []columns.Definition `json:"custom"`
}

type visibleColumnsRequest struct {
	Visible []string `json:"visible"`
	Toggle  string   `json:"toggle,omitempty"`
}

type savePresetRequest struct {
	Name string `json:"name"`
	// Filters defaults to the table's active filters when omitted.
	Filters filter.State `json:"filters,omitempty"`
}

// table resolves the {table} path segment, writing a 404 when it is unknown.
func (h *handler) table(w http.ResponseWriter, r *http.Request, op string) (*workspace.Table, bool) {
	t, err := h.page.Table(r.PathValue("table"))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusNotFound, err.Error(), op)
		return nil, false
	}
	return t, true
}

func (h *handler) presetStore(w http.ResponseWriter, r *http.Request, op string) (*presets.Store, bool) {
	store, ok := h.presets[r.PathValue("table")]
	if !ok || store == nil {
		h.respondErrorWithOp(w, http.StatusNotFound,
			"table "+strconv.Quote(r.PathValue("table"))+" has no filter presets", op)
		return nil, false
	}
	return store, true
}

func (h *handler) handleTables(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, tablesResponse{
		Kind:   string(h.page.Kind),
		Tables: h.page.TableNames(),
	})
}

func (h *handler) handleView(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleView"
	t, ok := h.table(w, r, op)
	if !ok {
		return
	}

	limit := h.previewRowLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.respondErrorWithOp(w, http.StatusBadRequest, "limit must be a non-negative integer", op)
			return
		}
		limit = n
	}
	h.writeJSON(w, http.StatusOK, t.Snapshot(limit))
}

func (h *handler) handleDispatch(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDispatch"
	t, ok := h.table(w, r, op)
	if !ok {
		return
	}

	var action workspace.Action
	if !h.decodeJSON(w, r, &action, op) {
		return
	}
	// A preset applied by name is resolved against the table's preset
	// store; explicit filters are dispatched as given.
	if action.Type == workspace.ApplyPreset && action.Filters == nil && action.Key != "" {
		store, ok := h.presetStore(w, r, op)
		if !ok {
			return
		}
		filters, err := store.Filters(action.Key)
		if err != nil {
			h.respondDomainError(w, err, op)
			return
		}
		action.Filters = filters
	}

	res, err := t.Dispatch(r.Context(), action)
	if err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *handler) handleOptions(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleOptions"
	t, ok := h.table(w, r, op)
	if !ok {
		return
	}
	field := r.URL.Query().Get("field")
	if field == "" {
		h.respondDomainError(w, validation.NewError("field", "is required"), op)
		return
	}
	h.writeJSON(w, http.StatusOK, t.Options(field, r.URL.Query().Get("search")))
}

func (h *handler) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAddColumn"
	t, ok := h.table(w, r, op)
	if !ok {
		return
	}
	var def columns.Definition
	if !h.decodeJSON(w, r, &def, op) {
		return
	}
	if err := t.AddColumn(def); err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	h.logger.Info("added custom column",
		zap.String("op", op),
		zap.String("table", t.Name()),
		zap.String("key", def.Key),
	)
	h.writeJSON(w, http.StatusCreated, columnsResponse{Visible: t.VisibleColumns(), Custom: t.CustomColumns()})
}

func (h *handler) handleEditColumn(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleEditColumn"
	t, ok := h.table(w, r, op)
	if !ok {
		return
	}
	var edit columns.Edit
	if !h.decodeJSON(w, r, &edit, op) {
		return
	}
	updated, err := t.EditColumn(r.PathValue("key"), edit)
	if err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

func (h *handler) handleDeleteColumn(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDeleteColumn"
	t, ok := h.table(w, r, op)
	if !ok {
		return
	}
	if err := t.DeleteColumn(r.PathValue("key")); err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleVisibleColumns(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleVisibleColumns"
	t, ok := h.table(w, r, op)
	if !ok {
		return
	}
	var req visibleColumnsRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}
	var visible []string
	if req.Toggle != "" {
		visible = t.ToggleColumn(req.Toggle)
	} else {
		visible = t.SetVisibleColumns(req.Visible)
	}
	h.writeJSON(w, http.StatusOK, columnsResponse{Visible: visible, Custom: t.CustomColumns()})
}

func (h *handler) handleListPresets(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleListPresets"
	store, ok := h.presetStore(w, r, op)
	if !ok {
		return
	}
	if r.URL.Query().Get("refresh") == "true" {
		if _, err := store.Refresh(r.Context()); err != nil {
			h.respondDomainError(w, err, op)
			return
		}
	}
	h.writeJSON(w, http.StatusOK, store.List())
}

func (h *handler) handleSavePreset(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSavePreset"
	t, ok := h.table(w, r, op)
	if !ok {
		return
	}
	store, ok := h.presetStore(w, r, op)
	if !ok {
		return
	}
	var req savePresetRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}
	filters := req.Filters
	if filters == nil {
		filters = t.Filters()
	}
	preset, err := store.Save(r.Context(), req.Name, filters)
	if err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, preset)
}

func (h *handler) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleApplyPreset"
	t, ok := h.table(w, r, op)
	if !ok {
		return
	}
	store, ok := h.presetStore(w, r, op)
	if !ok {
		return
	}
	filters, err := store.Filters(r.PathValue("name"))
	if err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	res, err := t.Dispatch(r.Context(), workspace.Action{Type: workspace.ApplyPreset, Filters: filters})
	if err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *handler) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDeletePreset"
	store, ok := h.presetStore(w, r, op)
	if !ok {
		return
	}
	if err := store.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
