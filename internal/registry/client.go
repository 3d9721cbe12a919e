package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/quickassist/collab-server-go/internal/apperr"
	"github.com/quickassist/collab-server-go/internal/model"
)

// Client implements Registry against a remote collaboration server, so
// the orchestrator does not care whether the registry is in-process or
// hosted. HTTP 404 maps back to NOT_FOUND and transport failures to
// PERSISTENCE_ERROR, preserving the invalid-code versus
// connection-problem distinction across the wire.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// participantIDHeader matches what the server's middleware reads. The
// id is self-asserted; there is no real auth in this design.
const participantIDHeader = "X-Participant-Id"

type createRequest struct {
	OwnerSessionID string           `json:"ownerSessionId"`
	Permission     model.Permission `json:"permission"`
}

type joinRequest struct {
	ShareCode string `json:"shareCode"`
}

func (c *Client) Create(ctx context.Context, ownerSessionID, hostParticipantID string, permission model.Permission) (*model.SharedSession, error) {
	var session model.SharedSession
	err := c.post(ctx, "/v1/collab/sessions", hostParticipantID, createRequest{
		OwnerSessionID: ownerSessionID,
		Permission:     permission,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) Join(ctx context.Context, code, guestParticipantID string) (*model.SharedSession, error) {
	var session model.SharedSession
	err := c.post(ctx, "/v1/collab/sessions/join", guestParticipantID, joinRequest{
		ShareCode: code,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) End(ctx context.Context, sessionID, participantID string) error {
	url := fmt.Sprintf("%s/v1/collab/sessions/%s?participantId=%s", c.baseURL, sessionID, participantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return apperr.Internal("build end request").WithCause(err)
	}
	req.Header.Set(participantIDHeader, participantID)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Persistence(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return c.errorFromStatus(resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, participantID string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return apperr.Internal("encode request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return apperr.Internal("build request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(participantIDHeader, participantID)

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Persistence(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return c.errorFromStatus(resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Persistence(err)
	}
	return nil
}

func (c *Client) errorFromStatus(status int) error {
	switch status {
	case http.StatusNotFound:
		return apperr.InvalidShareCode()
	case http.StatusBadRequest:
		return apperr.ValidationError("request rejected by server")
	default:
		return apperr.Persistence(fmt.Errorf("server returned status %d", status))
	}
}

var _ Registry = (*Client)(nil)
