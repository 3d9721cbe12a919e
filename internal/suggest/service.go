// Package suggest calls the code-suggestion backend and degrades to
// canned responses when it is unreachable, unconfigured, or slow. The
// caller never sees an error from this package.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	gosync "sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quickassist/collab-server-go/internal/model"
	"github.com/quickassist/collab-server-go/internal/repository"
)

// Request is one suggestion call from the editor shell.
type Request struct {
	Code          string               `json:"code"`
	Language      string               `json:"language"`
	CursorLine    int                  `json:"cursorLine,omitempty"`
	CursorColumn  int                  `json:"cursorColumn,omitempty"`
	Kind          model.SuggestionKind `json:"kind"`
	EditSessionID *string              `json:"editSessionId,omitempty"`
	ParticipantID string               `json:"participantId"`
}

// Result is what the shell renders. Fallback marks a canned substitute.
type Result struct {
	Suggestion    string `json:"suggestion"`
	Explanation   string `json:"explanation"`
	IssueDetected bool   `json:"issueDetected"`
	Fallback      bool   `json:"fallback"`
}

// Recorder persists suggestion events and usage metrics. Both sides are
// optional; a nil recorder component is skipped.
type Recorder struct {
	Events  repository.SuggestionEventRepository
	Metrics repository.UsageMetricRepository
}

// Service is the suggestion client. A per-participant monotonically
// increasing request seq marks only the newest outstanding request
// authoritative, so a slow response for an abandoned request is dropped
// instead of clobbering fresher state.
type Service struct {
	backendURL string
	timeout    time.Duration
	httpClient *http.Client
	recorder   Recorder

	mu   gosync.Mutex
	seqs map[string]uint64
}

func NewService(backendURL string, timeout time.Duration, recorder Recorder) *Service {
	return &Service{
		backendURL: backendURL,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		recorder:   recorder,
		seqs:       make(map[string]uint64),
	}
}

// Suggest performs one suggestion round-trip. Backend failures of any
// kind substitute a canned per-kind fallback; the returned error is
// always nil for a valid request.
func (s *Service) Suggest(ctx context.Context, req Request) (*Result, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("suggest: unknown kind %q", req.Kind)
	}

	seq := s.nextSeq(req.ParticipantID)
	result := s.call(ctx, req)
	if !s.isCurrent(req.ParticipantID, seq) {
		// A newer request went out while this one was in flight; its
		// response is stale and must not be applied.
		log.Debug().Str("kind", string(req.Kind)).Msg("Dropping stale suggestion response")
		return nil, nil
	}

	s.record(ctx, req, result)
	return result, nil
}

func (s *Service) nextSeq(participantID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[participantID]++
	return s.seqs[participantID]
}

func (s *Service) isCurrent(participantID string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seqs[participantID] == seq
}

func (s *Service) call(ctx context.Context, req Request) *Result {
	if s.backendURL == "" {
		log.Debug().Msg("Suggestion backend not configured, using fallback")
		return fallbackResult(req.Kind)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return fallbackResult(req.Kind)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.backendURL, bytes.NewReader(body))
	if err != nil {
		return fallbackResult(req.Kind)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		log.Warn().Err(err).Msg("Suggestion backend unreachable, using fallback")
		return fallbackResult(req.Kind)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("Suggestion backend error, using fallback")
		return fallbackResult(req.Kind)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Warn().Err(err).Msg("Malformed suggestion response, using fallback")
		return fallbackResult(req.Kind)
	}
	return &result
}

func (s *Service) record(ctx context.Context, req Request, result *Result) {
	if s.recorder.Events != nil {
		_, err := s.recorder.Events.Create(ctx, model.CreateSuggestionEventParams{
			EditSessionID: req.EditSessionID,
			ParticipantID: req.ParticipantID,
			Kind:          req.Kind,
			Language:      req.Language,
			Fallback:      result.Fallback,
			IssueDetected: result.IssueDetected,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to record suggestion event")
		}
	}
	if s.recorder.Metrics != nil {
		if err := s.recorder.Metrics.Upsert(ctx, time.Now().UTC().Truncate(24*time.Hour), req.Language, 1, 0); err != nil {
			log.Warn().Err(err).Msg("Failed to upsert usage metric")
		}
	}
}

// fallbackResult is the canned substitute used whenever the backend
// cannot answer.
func fallbackResult(kind model.SuggestionKind) *Result {
	result := &Result{Fallback: true}
	switch kind {
	case model.SuggestionComplete:
		result.Suggestion = "// Suggestions are unavailable right now. Keep typing and try again shortly."
		result.Explanation = "The suggestion service could not be reached."
	case model.SuggestionOptimize:
		result.Suggestion = "// No optimization advice available offline."
		result.Explanation = "The suggestion service could not be reached; your code was not analyzed."
	case model.SuggestionDebug:
		result.Suggestion = "// Automated debugging is unavailable offline. Check the browser console for runtime errors."
		result.Explanation = "The suggestion service could not be reached; no issues were scanned."
	case model.SuggestionDocument:
		result.Suggestion = "// Documentation generation is unavailable offline."
		result.Explanation = "The suggestion service could not be reached."
	}
	return result
}
