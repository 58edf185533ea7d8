package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/iwvelando/scheme-engine/internal/client"
	"github.com/iwvelando/scheme-engine/internal/columns"
	"github.com/iwvelando/scheme-engine/internal/discount"
	"github.com/iwvelando/scheme-engine/internal/duplicates"
	"github.com/iwvelando/scheme-engine/internal/presets"
	"github.com/iwvelando/scheme-engine/internal/scheme"
	"github.com/iwvelando/scheme-engine/internal/session"
	"github.com/iwvelando/scheme-engine/internal/workspace"
	"github.com/iwvelando/scheme-engine/pkg/constants"
	"github.com/iwvelando/scheme-engine/pkg/validation"
)

// Deps are the components served by the handler. Page is required; a nil
// Schemes, Cleaner or preset store disables the matching endpoints.
type Deps struct {
	Logger          *zap.Logger
	Page            *workspace.Page
	Presets         map[string]*presets.Store // keyed by table name
	Schemes         *scheme.Service
	Cleaner         *duplicates.Cleaner
	MaxRequestSize  int64
	PreviewRowLimit int
	Version         string
}

type handler struct {
	logger          *zap.Logger
	page            *workspace.Page
	presets         map[string]*presets.Store
	schemes         *scheme.Service
	cleaner         *duplicates.Cleaner
	maxRequestSize  int64
	previewRowLimit int
	version         string
}

// NewHandler constructs the JSON API over a scheme creation page.
func NewHandler(deps Deps) http.Handler {
	h := &handler{
		logger:          deps.Logger,
		page:            deps.Page,
		presets:         deps.Presets,
		schemes:         deps.Schemes,
		cleaner:         deps.Cleaner,
		maxRequestSize:  deps.MaxRequestSize,
		previewRowLimit: deps.PreviewRowLimit,
		version:         strings.TrimSpace(deps.Version),
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.maxRequestSize <= 0 {
		h.maxRequestSize = constants.DefaultMaxRequestSizeBytes
	}
	if h.previewRowLimit <= 0 {
		h.previewRowLimit = constants.DefaultPreviewRowLimit
	}
	if h.version == "" {
		h.version = "dev"
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/version", h.handleVersion)

	// Table state and reducer actions
	mux.HandleFunc("GET /api/tables", h.handleTables)
	mux.HandleFunc("GET /api/tables/{table}", h.handleView)
	mux.HandleFunc("POST /api/tables/{table}/actions", h.handleDispatch)
	mux.HandleFunc("GET /api/tables/{table}/options", h.handleOptions)

	// Custom and visible columns
	mux.HandleFunc("POST /api/tables/{table}/columns", h.handleAddColumn)
	mux.HandleFunc("PUT /api/tables/{table}/columns", h.handleVisibleColumns)
	mux.HandleFunc("PUT /api/tables/{table}/columns/{key}", h.handleEditColumn)
	mux.HandleFunc("DELETE /api/tables/{table}/columns/{key}", h.handleDeleteColumn)

	// Filter presets
	mux.HandleFunc("GET /api/tables/{table}/presets", h.handleListPresets)
	mux.HandleFunc("POST /api/tables/{table}/presets", h.handleSavePreset)
	mux.HandleFunc("POST /api/tables/{table}/presets/{name}/apply", h.handleApplyPreset)
	mux.HandleFunc("DELETE /api/tables/{table}/presets/{id}", h.handleDeletePreset)

	// Duplicate products
	mux.HandleFunc("GET /api/duplicates", h.handleDuplicates)
	mux.HandleFunc("POST /api/duplicates/cleanup", h.handleDuplicateCleanup)

	// Scheme drafting
	mux.HandleFunc("POST /api/scheme/draft", h.handleDraft)
	mux.HandleFunc("POST /api/scheme/preview", h.handlePreview)
	mux.HandleFunc("POST /api/scheme/submit", h.handleSubmit)
	mux.HandleFunc("PUT /api/schemes/{kind}/{id}/verify", h.handleVerify)
	mux.HandleFunc("PUT /api/schemes/{kind}/{id}/reject", h.handleReject)
	mux.HandleFunc("GET /api/schemes/{kind}/{id}/export", h.handleExport)

	return mux
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// decodeJSON reads a bounded JSON body into out. It writes the error
// response itself and reports whether decoding succeeded.
func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, out interface{}, op string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestSize)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxRequestSize), op)
			return false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), op)
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var validationErr *validation.Error
	var forbidden *session.ForbiddenError
	var apiErr *client.APIError
	switch {
	case errors.As(err, &validationErr), errors.Is(err, discount.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrUnauthenticated), errors.Is(err, session.ErrExpired):
		return http.StatusUnauthorized
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.Is(err, presets.ErrNotFound), errors.Is(err, columns.ErrUnknownColumn):
		return http.StatusNotFound
	case errors.Is(err, presets.ErrPending):
		return http.StatusConflict
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondDomainError writes err with the status statusFor assigns, adding
// per-field messages for validation failures.
func (h *handler) respondDomainError(w http.ResponseWriter, err error, op string) {
	status := statusFor(err)
	var validationErr *validation.Error
	if errors.As(err, &validationErr) {
		h.logger.Warn("request rejected",
			zap.String("op", op),
			zap.Int("status", status),
			zap.Error(err),
		)
		h.writeJSON(w, status, map[string]interface{}{
			"error":  err.Error(),
			"fields": validationErr.Messages(),
		})
		return
	}
	h.respondErrorWithOp(w, status, err.Error(), op)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("workspace request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
