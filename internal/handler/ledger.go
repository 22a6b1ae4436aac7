package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mwalsh/jamreg/internal/service"
)

// LedgerHandler exposes the repo-action ledger to staff tooling.
type LedgerHandler struct {
	ledger *service.LedgerService
	logger *slog.Logger
}

func NewLedgerHandler(ledger *service.LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, logger: logger}
}

// HandleReposWithAction lists the repos an action was performed for. With a
// repo query parameter it instead reports that single repo's state.
//
// GET /api/staff/repo-actions/{action}
// GET /api/staff/repo-actions/{action}?repo=entry-alice
func (h *LedgerHandler) HandleReposWithAction(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")

	if repo := r.URL.Query().Get("repo"); repo != "" {
		done, err := h.ledger.IsComplete(r.Context(), action, repo)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"action":   action,
			"repo":     repo,
			"complete": done,
		})
		return
	}

	repos, err := h.ledger.ReposWithAction(r.Context(), action)
	if err != nil {
		writeError(w, err)
		return
	}
	if repos == nil {
		repos = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"action": action,
		"repos":  repos,
	})
}

type markCompleteRequest struct {
	Repos []string `json:"repos"`
}

// HandleMarkComplete records an action as done for one or many repos.
// Already-recorded repos are skipped.
//
// POST /api/staff/repo-actions/{action}
func (h *LedgerHandler) HandleMarkComplete(w http.ResponseWriter, r *http.Request) {
	var req markCompleteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.ledger.SetCompleteBulk(r.Context(), chi.URLParam(r, "action"), req.Repos); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
