package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/quickassist/collab-server-go/internal/apperr"
	"github.com/quickassist/collab-server-go/internal/editsession"
	"github.com/quickassist/collab-server-go/internal/middleware"
	"github.com/quickassist/collab-server-go/internal/model"
)

type SessionHandler struct {
	sessionService *editsession.Service
}

func NewSessionHandler(sessionService *editsession.Service) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateSession)
	r.Get("/", h.ListSessions)
	r.Get("/{sessionID}", h.GetSession)
	r.Put("/{sessionID}", h.UpdateSession)

	return r
}

type createEditSessionRequest struct {
	Title       string `json:"title"`
	Language    string `json:"language"`
	CodeContent string `json:"codeContent"`
}

// POST /v1/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	participantID := middleware.ParticipantID(r)
	if participantID == "" {
		writeError(w, apperr.MissingRequired("participantId"))
		return
	}

	var req createEditSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.InvalidInput("body", "malformed JSON"))
		return
	}

	session, err := h.sessionService.Create(r.Context(), model.CreateEditSessionParams{
		ParticipantID: participantID,
		Title:         req.Title,
		Language:      req.Language,
		CodeContent:   req.CodeContent,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create edit session")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// GET /v1/sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	participantID := middleware.ParticipantID(r)
	if participantID == "" {
		writeError(w, apperr.MissingRequired("participantId"))
		return
	}

	sessions, err := h.sessionService.ListByParticipant(r.Context(), participantID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list edit sessions")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessions)
}

// GET /v1/sessions/{sessionID}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.sessionService.Get(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

type updateEditSessionRequest struct {
	CodeContent string `json:"codeContent"`
	Language    string `json:"language"`
}

// PUT /v1/sessions/{sessionID}
func (h *SessionHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req updateEditSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.InvalidInput("body", "malformed JSON"))
		return
	}

	if err := h.sessionService.UpdateContent(r.Context(), sessionID, req.CodeContent, req.Language); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to update edit session")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}
