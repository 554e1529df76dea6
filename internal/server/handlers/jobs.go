package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/loopboard/loopboard/internal/apierrors"
	"github.com/loopboard/loopboard/internal/cache"
	"github.com/loopboard/loopboard/internal/db"
	"github.com/loopboard/loopboard/internal/pagination"
)

const maxJobBody = 1 << 20

// JobsHandler serves the jobs feed endpoints.
type JobsHandler struct {
	feed     *db.Feed
	apiCache *cache.APIResponseCache
	defaults pagination.Defaults
	logger   *zap.Logger
}

// NewJobsHandler wires the feed queries to the HTTP surface. apiCache may be
// nil when response caching is disabled; writes then skip invalidation.
func NewJobsHandler(feed *db.Feed, apiCache *cache.APIResponseCache, defaults pagination.Defaults, logger *zap.Logger) *JobsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobsHandler{feed: feed, apiCache: apiCache, defaults: defaults, logger: logger}
}

// jobsPage is the listing response body. Total appears only when the caller
// asked for it in offset mode.
type jobsPage struct {
	Items      []db.Job `json:"items"`
	HasNext    bool     `json:"has_next"`
	NextCursor string   `json:"next_cursor,omitempty"`
	Total      *int64   `json:"total,omitempty"`
}

// List serves GET /api/jobs.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := pagination.Parse(query, h.defaults)

	category := strings.ToLower(strings.TrimSpace(query.Get("category")))
	includeTotal, _ := strconv.ParseBool(query.Get("include_total"))

	page, err := h.feed.ListJobs(r.Context(), category, params, includeTotal)
	if err != nil {
		apierrors.RespondWithError(w, r, apierrors.NewDatabaseError("failed to list jobs").WithCause(err))
		return
	}

	respondJSON(w, http.StatusOK, jobsPage{
		Items:      page.Items,
		HasNext:    page.HasNext,
		NextCursor: page.NextCursor,
		Total:      page.Total,
	})
}

// createJobRequest is the POST /api/jobs body.
type createJobRequest struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// Create serves POST /api/jobs. A successful insert drops every cached
// /api/jobs response so the next read sees the new row.
func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJobBody)).Decode(&req); err != nil {
		apierrors.RespondWithError(w, r, apierrors.NewInvalidInputError("invalid request body").WithCause(err))
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Company = strings.TrimSpace(req.Company)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	if req.Title == "" || req.Company == "" || req.Category == "" {
		apierrors.RespondWithEnvelope(w, r, apierrors.NewValidationError("title, company and category are required"))
		return
	}

	id, err := h.feed.InsertJob(r.Context(), db.Job{
		Title:       req.Title,
		Company:     req.Company,
		Category:    req.Category,
		Location:    strings.TrimSpace(req.Location),
		Description: req.Description,
	})
	if err != nil {
		apierrors.RespondWithError(w, r, apierrors.NewDatabaseError("failed to create job").WithCause(err))
		return
	}

	if h.apiCache != nil {
		dropped := h.apiCache.Invalidate(r.Context(), "/api/jobs")
		h.logger.Debug("invalidated cached jobs responses",
			zap.Int64("job_id", id),
			zap.Int("entries", dropped))
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{"id": id})
}
