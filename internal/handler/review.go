package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mwalsh/jamreg/internal/repository"
	"github.com/mwalsh/jamreg/internal/service"
)

// ReviewHandler exposes the staff dashboard endpoints. Every route sits
// behind the staff middleware.
type ReviewHandler struct {
	review *service.ReviewService
	logger *slog.Logger
}

func NewReviewHandler(review *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{review: review, logger: logger}
}

// HandleList returns one page of applications.
//
// GET /api/staff/applications?filter=judges&page=2
// GET /api/staff/applications?filter=search&search=alice+team42
func (h *ReviewHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}

	opts := repository.ListOptions{
		Filter: repository.ListFilter(r.URL.Query().Get("filter")),
		Search: r.URL.Query().Get("search"),
		Page:   page,
	}

	apps, err := h.review.List(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"applications": apps,
		"page":         page,
		"pageSize":     repository.PageSize,
	})
}

// HandleGet returns a single application.
//
// GET /api/staff/applications/{id}
func (h *ReviewHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	app, err := h.review.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// HandleAccept accepts an application.
//
// POST /api/staff/applications/{id}/accept
func (h *ReviewHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	if err := h.review.Accept(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDecline declines an application.
//
// POST /api/staff/applications/{id}/decline
func (h *ReviewHandler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	if err := h.review.Decline(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveEntry withdraws a participant along with their slot
// reservation.
//
// POST /api/staff/applications/{id}/remove-entry
func (h *ReviewHandler) HandleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.review.RemoveEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type tiersRequest struct {
	T1 bool `json:"t1"`
	T2 bool `json:"t2"`
	T3 bool `json:"t3"`
}

// HandleMarkTiers records which tiers a participant confirmed.
//
// PUT /api/staff/applications/{id}/tiers
func (h *ReviewHandler) HandleMarkTiers(w http.ResponseWriter, r *http.Request) {
	var req tiersRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.review.MarkTiers(r.Context(), chi.URLParam(r, "id"), req.T1, req.T2, req.T3)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type commitRequest struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

// HandleRecordCommit ingests a commit observed in an applicant's event
// repository.
//
// POST /api/staff/applications/{id}/commits
func (h *ReviewHandler) HandleRecordCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	commit, err := h.review.RecordCommit(r.Context(), chi.URLParam(r, "id"), req.SHA, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, commit)
}
