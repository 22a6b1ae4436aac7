package handler

import (
	"log/slog"
	"net/http"

	"github.com/mwalsh/jamreg/internal/auth"
	"github.com/mwalsh/jamreg/internal/identity"
	"github.com/mwalsh/jamreg/internal/service"
)

// ApplicationHandler exposes the registration endpoints applicants hit after
// logging in with GitHub. The identity facts come from the session, never
// from the request body.
type ApplicationHandler struct {
	intake *service.IntakeService
	logger *slog.Logger
}

func NewApplicationHandler(intake *service.IntakeService, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{intake: intake, logger: logger}
}

type participantRequest struct {
	DBOHandle    string  `json:"dboHandle"`
	StreamHandle *string `json:"streamHandle"`
}

type judgeRequest struct {
	DBOHandle    string `json:"dboHandle"`
	IRCHandle    string `json:"ircHandle"`
	GameHandle   string `json:"gameHandle"`
	ContactEmail string `json:"contactEmail"`
}

// HandleSubmitParticipant registers the authenticated user as a participant.
//
// POST /api/applications/participant
func (h *ApplicationHandler) HandleSubmitParticipant(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req participantRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	app, err := h.intake.SubmitParticipant(r.Context(), sessionIdentity(session), service.ParticipantForm{
		DBOHandle:    req.DBOHandle,
		StreamHandle: req.StreamHandle,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, app)
}

// HandleSubmitJudge submits a judge application for the authenticated user.
//
// POST /api/applications/judge
func (h *ApplicationHandler) HandleSubmitJudge(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req judgeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	app, err := h.intake.SubmitJudge(r.Context(), sessionIdentity(session), service.JudgeForm{
		DBOHandle:    req.DBOHandle,
		IRCHandle:    req.IRCHandle,
		GameHandle:   req.GameHandle,
		ContactEmail: req.ContactEmail,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, app)
}

func sessionIdentity(session *auth.Session) identity.Identity {
	return identity.Identity{
		GitHubID: session.GitHubID,
		Username: session.Username,
		Emails:   session.Emails,
	}
}
