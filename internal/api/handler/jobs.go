package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kiranshivaraju/jobstatus/internal/api/response"
	"github.com/kiranshivaraju/jobstatus/internal/store"
	"github.com/kiranshivaraju/jobstatus/pkg/models"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// JobsHandler serves the read-only job catalog.
type JobsHandler struct {
	store store.Store
}

func NewJobsHandler(s store.Store) *JobsHandler {
	return &JobsHandler{store: s}
}

// List handles GET /api/v1/jobs?page=&limit=.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(r, "limit", defaultPageLimit)
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	jobs, total, err := h.store.ListJobs(r.Context(), store.Page{Page: page, Limit: limit})
	if err != nil {
		h.internalError(w, "list jobs", err)
		return
	}

	response.Collection(w, jobs, response.PaginationMeta{
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasNext: page*limit < total,
	})
}

// Get handles GET /api/v1/jobs/{slug}.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, ok := h.load(w, r, chi.URLParam(r, "slug"))
	if !ok {
		return
	}
	response.JSON(w, job)
}

// Related handles GET /api/v1/jobs/{slug}/related?count=.
func (h *JobsHandler) Related(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	count := queryInt(r, "count", store.DefaultRelatedCount)
	if count < 1 {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "count must be a positive integer")
		return
	}

	jobs, err := h.store.RelatedJobs(r.Context(), slug, count)
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found")
		return
	}
	if err != nil {
		h.internalError(w, "related jobs", err)
		return
	}
	response.JSON(w, jobs)
}

// Compare handles GET /api/v1/compare?a=&b=.
func (h *JobsHandler) Compare(w http.ResponseWriter, r *http.Request) {
	slugA, slugB := r.URL.Query().Get("a"), r.URL.Query().Get("b")
	if slugA == "" || slugB == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "a and b are required")
		return
	}

	a, ok := h.load(w, r, slugA)
	if !ok {
		return
	}
	b, ok := h.load(w, r, slugB)
	if !ok {
		return
	}
	response.JSON(w, models.CompareJobs(a, b))
}

func (h *JobsHandler) load(w http.ResponseWriter, r *http.Request, slug string) (*models.JobRecord, bool) {
	job, err := h.store.GetJob(r.Context(), slug)
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Job not found")
		return nil, false
	}
	if err != nil {
		h.internalError(w, "get job", err)
		return nil, false
	}
	return job, true
}

func (h *JobsHandler) internalError(w http.ResponseWriter, op string, err error) {
	slog.Error("catalog query failed", "op", op, "error", err)
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
}

// queryInt reads an integer query parameter. Non-numeric values fall back to def.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
