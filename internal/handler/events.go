package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/quickassist/collab-server-go/internal/apperr"
	"github.com/quickassist/collab-server-go/internal/middleware"
	"github.com/quickassist/collab-server-go/internal/model"
	"github.com/quickassist/collab-server-go/internal/repository"
	"github.com/quickassist/collab-server-go/internal/sync"
)

const heartbeatInterval = 30 * time.Second

// EventsHandler streams sync events for one shared session over SSE.
// The subscriber's own events are filtered out by the channel; the
// participantId query param identifies the subscriber because
// EventSource cannot set headers.
type EventsHandler struct {
	channel sync.Channel
	events  repository.SyncEventRepository
}

func NewEventsHandler(channel sync.Channel, events repository.SyncEventRepository) *EventsHandler {
	return &EventsHandler{
		channel: channel,
		events:  events,
	}
}

// GET /v1/collab/sessions/{sessionID}/events
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	participantID := middleware.ParticipantID(r)
	if participantID == "" {
		writeError(w, apperr.MissingRequired("participantId"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	incoming := make(chan model.SyncEvent, 100)
	sub, err := h.channel.Subscribe(sessionID, participantID, func(evt model.SyncEvent) {
		select {
		case incoming <- evt:
		default:
			// Slow consumer; the retained log covers the gap on
			// reconnect.
		}
	})
	if err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to subscribe to sync channel")
		writeError(w, err)
		return
	}
	defer sub.Close()

	log.Info().
		Str("sessionId", sessionID).
		Str("participantId", participantID).
		Msg("sse connection established")

	if err := h.sendMissedEvents(r, w, flusher, sessionID, participantID); err != nil {
		log.Error().Err(err).Msg("failed to send missed events")
	}

	h.sendEvent(w, flusher, "connected", map[string]string{
		"sessionId":     sessionID,
		"participantId": participantID,
	})

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Info().
				Str("sessionId", sessionID).
				Str("participantId", participantID).
				Msg("sse connection closed by client")
			return

		case evt := <-incoming:
			if err := h.sendEvent(w, flusher, "sync", evt); err != nil {
				log.Error().Err(err).Msg("failed to send sync event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().
					Str("sessionId", sessionID).
					Msg("heartbeat failed, closing connection")
				return
			}
			flusher.Flush()
		}
	}
}

// sendMissedEvents replays the retained log past the client's last-seen
// id, so a reconnecting poller or dropped stream catches up.
func (h *EventsHandler) sendMissedEvents(r *http.Request, w http.ResponseWriter, flusher http.Flusher, sessionID, participantID string) error {
	if h.events == nil {
		return nil
	}
	after := r.URL.Query().Get("after")

	events, err := h.events.ListAfter(r.Context(), sessionID, after, participantID)
	if err != nil {
		return err
	}

	for _, evt := range events {
		if err := h.sendEvent(w, flusher, "sync", evt); err != nil {
			return err
		}
	}

	if len(events) > 0 {
		log.Debug().
			Str("sessionId", sessionID).
			Int("count", len(events)).
			Msg("replayed missed sync events")
	}
	return nil
}

func (h *EventsHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, jsonData); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
