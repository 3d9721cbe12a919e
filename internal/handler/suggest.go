package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/quickassist/collab-server-go/internal/apperr"
	"github.com/quickassist/collab-server-go/internal/middleware"
	"github.com/quickassist/collab-server-go/internal/suggest"
)

type SuggestHandler struct {
	suggestService *suggest.Service
}

func NewSuggestHandler(suggestService *suggest.Service) *SuggestHandler {
	return &SuggestHandler{
		suggestService: suggestService,
	}
}

// POST /v1/suggest
func (h *SuggestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	participantID := middleware.ParticipantID(r)
	if participantID == "" {
		writeError(w, apperr.MissingRequired("participantId"))
		return
	}

	var req suggest.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.InvalidInput("body", "malformed JSON"))
		return
	}
	req.ParticipantID = participantID

	result, err := h.suggestService.Suggest(r.Context(), req)
	if err != nil {
		writeError(w, apperr.InvalidInput("kind", err.Error()))
		return
	}
	if result == nil {
		// Superseded by a newer request from the same service instance.
		writeJSON(w, http.StatusOK, map[string]bool{"superseded": true})
		return
	}

	if result.Fallback {
		log.Debug().Str("participantId", participantID).Msg("served fallback suggestion")
	}
	writeJSON(w, http.StatusOK, result)
}
