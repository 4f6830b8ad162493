// Package handlers implements the read-only HTTP façade spec §6.4 calls
// for, adapted from the teacher's interfaces/http/rest/handlers package:
// one handler type per resource family, each decoding query parameters,
// calling into application/registry, and writing a JSON response.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"workitems/application/registry"
	"workitems/pkg/common"
	apperrors "workitems/pkg/errors"
)

// WorkItemHandler serves get_details, list_work_items, get_full_tree,
// export_project, and list_history over HTTP.
type WorkItemHandler struct {
	registry *registry.Registry
	logger   *zap.Logger
}

// NewWorkItemHandler constructs the handler.
func NewWorkItemHandler(reg *registry.Registry, logger *zap.Logger) *WorkItemHandler {
	return &WorkItemHandler{registry: reg, logger: logger}
}

// GetDetails handles GET /work-items/{id}.
func (h *WorkItemHandler) GetDetails(w http.ResponseWriter, r *http.Request) {
	params, _ := json.Marshal(struct {
		ID string `json:"id"`
	}{chi.URLParam(r, "id")})
	h.dispatch(w, r, "get_details", params)
}

// ListWorkItems handles GET /work-items.
func (h *WorkItemHandler) ListWorkItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	body := map[string]interface{}{
		"roots_only":       q.Get("roots_only") == "true",
		"include_inactive": q.Get("include_inactive") == "true",
	}
	if parentID := q.Get("parent_id"); parentID != "" {
		body["parent_id"] = parentID
	}
	if status := q.Get("status"); status != "" {
		body["status"] = status
	}
	params, _ := json.Marshal(body)
	h.dispatch(w, r, "list_work_items", params)
}

// GetFullTree handles GET /work-items/{id}/tree.
func (h *WorkItemHandler) GetFullTree(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	body := map[string]interface{}{
		"root_id":                       chi.URLParam(r, "id"),
		"include_inactive_items":        q.Get("include_inactive_items") == "true",
		"include_inactive_dependencies": q.Get("include_inactive_dependencies") == "true",
	}
	if depth := q.Get("max_depth"); depth != "" {
		if n, err := strconv.Atoi(depth); err == nil {
			body["max_depth"] = n
		}
	}
	params, _ := json.Marshal(body)
	h.dispatch(w, r, "get_full_tree", params)
}

// ExportProject handles GET /work-items/{id}/export.
func (h *WorkItemHandler) ExportProject(w http.ResponseWriter, r *http.Request) {
	params, _ := json.Marshal(struct {
		ID string `json:"id"`
	}{chi.URLParam(r, "id")})
	h.dispatch(w, r, "export_project", params)
}

// ListHistory handles GET /history.
func (h *WorkItemHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	body := map[string]interface{}{}
	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			body["limit"] = n
		}
	}
	if start := q.Get("start_date"); start != "" {
		if t, err := time.Parse(time.RFC3339, start); err == nil {
			body["start_date"] = t
		}
	}
	if end := q.Get("end_date"); end != "" {
		if t, err := time.Parse(time.RFC3339, end); err == nil {
			body["end_date"] = t
		}
	}
	params, _ := json.Marshal(body)
	h.dispatch(w, r, "list_history", params)
}

func (h *WorkItemHandler) dispatch(w http.ResponseWriter, r *http.Request, op string, params json.RawMessage) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := h.registry.Execute(ctx, op, params)
	if err != nil {
		h.respondError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

func (h *WorkItemHandler) respondError(w http.ResponseWriter, err error) {
	if domainErr, ok := err.(*apperrors.DomainError); ok {
		common.RespondErrorWithDetails(w, domainErr.StatusCode, domainErr.Code, domainErr.Message, domainErr.Details)
		return
	}
	if _, ok := err.(registry.ErrUnknownOperation); ok {
		common.RespondError(w, http.StatusNotFound, common.StandardErrorCodes.NotFound, err.Error())
		return
	}
	h.logger.Error("unhandled error", zap.Error(err))
	common.RespondError(w, http.StatusInternalServerError, common.StandardErrorCodes.InternalError, "an internal error occurred")
}
