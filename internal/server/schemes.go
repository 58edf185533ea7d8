package server

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/iwvelando/scheme-engine/internal/duplicates"
	"github.com/iwvelando/scheme-engine/internal/export"
	"github.com/iwvelando/scheme-engine/internal/scheme"
	"github.com/iwvelando/scheme-engine/pkg/constants"
	"github.com/iwvelando/scheme-engine/pkg/records"
	"github.com/iwvelando/scheme-engine/pkg/validation"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfContentType  = "application/pdf"
)

type draftRequest struct {
	SchemeCode string `json:"schemeCode,omitempty"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type duplicatesResponse struct {
	Criteria duplicates.Criteria `json:"criteria"`
	Groups   []duplicates.Group  `json:"groups"`
	Stats    duplicates.Stats    `json:"stats"`
}

type cleanupRequest struct {
	Criteria string `json:"criteria"`
	GroupID  string `json:"groupId"`
	KeepID   string `json:"keepId"`
}

type cleanupResponse struct {
	DeletedCount int `json:"deletedCount"`
	Remaining    int `json:"remaining"`
}

// draft decodes a draftRequest and composes the page draft, generating a
// scheme code when none is given.
func (h *handler) draft(w http.ResponseWriter, r *http.Request, op string) (scheme.Draft, bool) {
	var req draftRequest
	if !h.decodeJSON(w, r, &req, op) {
		return scheme.Draft{}, false
	}
	code := strings.TrimSpace(req.SchemeCode)
	if code == "" {
		code = scheme.GenerateCode()
	}
	return h.page.Draft(code, req.StartDate, req.EndDate), true
}

func (h *handler) handleDraft(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDraft"
	d, ok := h.draft(w, r, op)
	if !ok {
		return
	}
	payload, err := d.Payload()
	if err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, payload)
}

func (h *handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePreview"
	d, ok := h.draft(w, r, op)
	if !ok {
		return
	}
	payload, err := d.Payload()
	if err != nil {
		h.respondDomainError(w, err, op)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, payload, h.page.Products.CustomColumns()); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	h.writeFile(w, scheme.ExportFileName(payload.SchemeCode, constants.ExportFormatExcel), buf.Bytes(), op)
}

func (h *handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSubmit"
	if !h.requireSchemes(w, op) {
		return
	}
	d, ok := h.draft(w, r, op)
	if !ok {
		return
	}
	receipt, err := h.schemes.Submit(r.Context(), d)
	if err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusCreated, receipt)
}

func (h *handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleVerify"
	kind, ok := h.kind(w, r, op)
	if !ok {
		return
	}
	var req notesRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}
	if err := h.schemes.Verify(r.Context(), kind, r.PathValue("id"), req.Notes); err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleReject(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleReject"
	kind, ok := h.kind(w, r, op)
	if !ok {
		return
	}
	var req notesRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}
	if err := h.schemes.Reject(r.Context(), kind, r.PathValue("id"), req.Notes); err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleExport"
	kind, ok := h.kind(w, r, op)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = constants.ExportFormatExcel
	}
	file, err := h.schemes.Export(r.Context(), kind, r.PathValue("id"), r.URL.Query().Get("name"), format)
	if err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	h.writeFile(w, file.Name, file.Data, op)
}

// kind resolves the {kind} path segment and checks that scheme actions are
// configured.
func (h *handler) kind(w http.ResponseWriter, r *http.Request, op string) (scheme.Kind, bool) {
	if !h.requireSchemes(w, op) {
		return "", false
	}
	kind, err := scheme.ParseKind(r.PathValue("kind"))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return "", false
	}
	return kind, true
}

func (h *handler) requireSchemes(w http.ResponseWriter, op string) bool {
	if h.schemes == nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, "scheme backend is not configured", op)
		return false
	}
	return true
}

func (h *handler) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDuplicates"
	criteria, err := duplicates.ParseCriteria(r.URL.Query().Get("criteria"))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	groups, stats, err := duplicates.Find(h.page.Products.Records(), criteria)
	if err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	if groups == nil {
		groups = []duplicates.Group{}
	}
	h.writeJSON(w, http.StatusOK, duplicatesResponse{Criteria: criteria, Groups: groups, Stats: stats})
}

func (h *handler) handleDuplicateCleanup(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDuplicateCleanup"
	if h.cleaner == nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, "duplicate cleanup is not configured", op)
		return
	}
	var req cleanupRequest
	if !h.decodeJSON(w, r, &req, op) {
		return
	}
	criteria, err := duplicates.ParseCriteria(req.Criteria)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	products := h.page.Products.Records()
	groups, _, err := duplicates.Find(products, criteria)
	if err != nil {
		h.respondDomainError(w, err, op)
		return
	}
	var group *duplicates.Group
	for i := range groups {
		if groups[i].ID == req.GroupID {
			group = &groups[i]
			break
		}
	}
	if group == nil {
		h.respondDomainError(w, validation.NewError("groupId", "no duplicate group "+strconv.Quote(req.GroupID)), op)
		return
	}

	deleted, err := h.cleaner.Cleanup(r.Context(), *group, req.KeepID)
	if err != nil {
		h.respondDomainError(w, err, op)
		return
	}

	// Drop the removed products locally so the table matches the backend
	// without a reload.
	removed := make(map[string]bool, len(group.Products))
	for _, p := range group.Products {
		if p.ID != req.KeepID {
			removed[p.Key] = true
		}
	}
	remaining := make([]records.Record, 0, len(products))
	for _, p := range products {
		if !removed[p.Key] {
			remaining = append(remaining, p)
		}
	}
	if err := h.page.Products.Replace(r.Context(), remaining); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}

	h.logger.Info("removed duplicate products",
		zap.String("op", op),
		zap.String("group", group.ID),
		zap.String("keepId", req.KeepID),
		zap.Int("deleted", deleted),
	)
	h.writeJSON(w, http.StatusOK, cleanupResponse{DeletedCount: deleted, Remaining: len(remaining)})
}

func (h *handler) writeFile(w http.ResponseWriter, name string, data []byte, op string) {
	contentType := pdfContentType
	if strings.HasSuffix(name, ".xlsx") {
		contentType = xlsxContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("failed to write file response",
			zap.String("op", op),
			zap.String("file", name),
			zap.Error(err),
		)
	}
}
