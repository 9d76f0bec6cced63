package api

import (
	"net/http"
	"strconv"
	"strings"

	"dirsage/internal/database"
)

const (
	defaultPageSize  = 100
	maxPageSize      = 1000
	defaultStatsDays = 7
	maxStatsDays     = 3650
)

// DeletionsLogResponse is the API response for deletion log
type DeletionsLogResponse struct {
	Entries    []database.DeletionRecord `json:"entries"`
	TotalCount int                       `json:"total_count"`
	PageSize   int                       `json:"page_size"`
	Page       int                       `json:"page"`
	HasMore    bool                      `json:"has_more"`
}

// DeletionsLog handles GET /api/v1/deletions/log
func (h *Handler) DeletionsLog(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, "deletion history is disabled", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	limit := intParam(q.Get("limit"), defaultPageSize, 1, maxPageSize)
	page := intParam(q.Get("page"), 1, 1, 0)

	filter := database.Filter{
		Action: strings.ToUpper(q.Get("action")),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if p := q.Get("path"); p != "" {
		filter.Path = "%" + p + "%"
	}

	records, total, err := h.history.GetDeletionsPaginated(filter)
	if err != nil {
		h.logger.Error("Deletion log query failed", "error", err)
		respondError(w, "failed to query deletion history", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []database.DeletionRecord{}
	}

	respondJSON(w, DeletionsLogResponse{
		Entries:    records,
		TotalCount: total,
		PageSize:   limit,
		Page:       page,
		HasMore:    filter.Offset+limit < total,
	}, http.StatusOK)
}

// DeletionStats handles GET /api/v1/deletions/stats
func (h *Handler) DeletionStats(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, "deletion history is disabled", http.StatusServiceUnavailable)
		return
	}

	days := intParam(r.URL.Query().Get("days"), defaultStatsDays, 1, maxStatsDays)
	stats, err := h.history.GetDeletionStats(days)
	if err != nil {
		h.logger.Error("Deletion stats query failed", "error", err)
		respondError(w, "failed to query deletion history", http.StatusInternalServerError)
		return
	}
	respondJSON(w, stats, http.StatusOK)
}

// intParam parses s, falling back to def when it is missing, malformed or
// outside [lo, hi]. A hi of 0 leaves the upper bound open.
func intParam(s string, def, lo, hi int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < lo || (hi > 0 && v > hi) {
		return def
	}
	return v
}
