package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/quickassist/collab-server-go/internal/apperr"
	"github.com/quickassist/collab-server-go/internal/middleware"
	"github.com/quickassist/collab-server-go/internal/model"
	"github.com/quickassist/collab-server-go/internal/registry"
	"github.com/quickassist/collab-server-go/internal/sync"
)

type CollabHandler struct {
	registry registry.Registry
	channel  sync.Channel
}

func NewCollabHandler(reg registry.Registry, channel sync.Channel) *CollabHandler {
	return &CollabHandler{
		registry: reg,
		channel:  channel,
	}
}

func (h *CollabHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateSession)
	r.Post("/join", h.JoinSession)
	r.Delete("/{sessionID}", h.EndSession)
	r.Post("/{sessionID}/events", h.PublishEvent)

	return r
}

type createSessionRequest struct {
	OwnerSessionID string           `json:"ownerSessionId"`
	Permission     model.Permission `json:"permission"`
}

// POST /v1/collab/sessions
func (h *CollabHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	participantID := middleware.ParticipantID(r)
	if participantID == "" {
		writeError(w, apperr.MissingRequired("participantId"))
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.OwnerSessionID == "" {
		writeError(w, apperr.MissingRequired("ownerSessionId"))
		return
	}

	session, err := h.registry.Create(r.Context(), req.OwnerSessionID, participantID, req.Permission)
	if err != nil {
		log.Error().Err(err).Msg("failed to create shared session")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

type joinSessionRequest struct {
	ShareCode string `json:"shareCode"`
}

// POST /v1/collab/sessions/join
func (h *CollabHandler) JoinSession(w http.ResponseWriter, r *http.Request) {
	participantID := middleware.ParticipantID(r)
	if participantID == "" {
		writeError(w, apperr.MissingRequired("participantId"))
		return
	}

	var req joinSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.ShareCode == "" {
		writeError(w, apperr.MissingRequired("shareCode"))
		return
	}

	session, err := h.registry.Join(r.Context(), req.ShareCode, participantID)
	if err != nil {
		if !apperr.IsNotFound(err) {
			log.Error().Err(err).Msg("failed to join shared session")
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// DELETE /v1/collab/sessions/{sessionID}
func (h *CollabHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	participantID := middleware.ParticipantID(r)
	if participantID == "" {
		writeError(w, apperr.MissingRequired("participantId"))
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.registry.End(r.Context(), sessionID, participantID); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to end shared session")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ended": true})
}

type publishEventRequest struct {
	Kind        model.SyncEventKind `json:"kind"`
	CodeContent *string             `json:"codeContent,omitempty"`
	Language    *string             `json:"language,omitempty"`
	Line        *int                `json:"line,omitempty"`
	Column      *int                `json:"column,omitempty"`
}

// POST /v1/collab/sessions/{sessionID}/events
func (h *CollabHandler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	participantID := middleware.ParticipantID(r)
	if participantID == "" {
		writeError(w, apperr.MissingRequired("participantId"))
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	var req publishEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.InvalidInput("body", "malformed JSON"))
		return
	}

	now := time.Now()
	evt := model.SyncEvent{
		ID:                  model.NewEventID(now),
		SharedSessionID:     sessionID,
		OriginParticipantID: participantID,
		Kind:                req.Kind,
		CodeContent:         req.CodeContent,
		Language:            req.Language,
		Line:                req.Line,
		Column:              req.Column,
		CreatedAt:           now,
	}
	if err := evt.Validate(); err != nil {
		writeError(w, apperr.ValidationError(err.Error()))
		return
	}

	if err := h.channel.Publish(r.Context(), evt); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to publish sync event")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"id": evt.ID})
}
