package model

import "time"

type SharedSession struct {
	ID                 string     `db:"id" json:"id"`
	OwnerSessionID     string     `db:"owner_session_id" json:"ownerSessionId"`
	ShareCode          string     `db:"share_code" json:"shareCode"`
	HostParticipantID  string     `db:"host_participant_id" json:"hostParticipantId"`
	GuestParticipantID *string    `db:"guest_participant_id" json:"guestParticipantId,omitempty"`
	Permission         Permission `db:"permission" json:"permission"`
	Active             bool       `db:"active" json:"active"`
	ConnectedAt        *time.Time `db:"connected_at" json:"connectedAt,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"createdAt"`
	ExpiresAt          time.Time  `db:"expires_at" json:"expiresAt"`
}

// Expired reports whether the session is past its TTL. Read paths must
// treat an expired session as not found even before the cleanup job
// physically removes the row.
func (s *SharedSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type CreateSharedSessionParams struct {
	OwnerSessionID    string
	ShareCode         string
	HostParticipantID string
	Permission        Permission
	ExpiresAt         time.Time
}
