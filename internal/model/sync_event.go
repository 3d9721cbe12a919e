package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SyncEvent is one propagated change within a shared session. Payload
// fields depend on Kind: edit and language_change carry CodeContent and
// Language, cursor carries Line and Column.
type SyncEvent struct {
	ID                  string        `db:"id" json:"id"`
	SharedSessionID     string        `db:"shared_session_id" json:"sharedSessionId"`
	OriginParticipantID string        `db:"origin_participant_id" json:"originParticipantId"`
	Kind                SyncEventKind `db:"kind" json:"kind"`
	CodeContent         *string       `db:"code_content" json:"codeContent,omitempty"`
	Language            *string       `db:"language" json:"language,omitempty"`
	Line                *int          `db:"line" json:"line,omitempty"`
	Column              *int          `db:"col" json:"column,omitempty"`
	CreatedAt           time.Time     `db:"created_at" json:"createdAt"`
}

// NewEventID returns an id that sorts lexicographically in creation
// order: a zero-padded unix-milli timestamp plus a random tiebreak.
// The polling channel's last-seen cursor depends on this ordering.
func NewEventID(now time.Time) string {
	return fmt.Sprintf("%013d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

func (e *SyncEvent) Validate() error {
	if e.SharedSessionID == "" {
		return fmt.Errorf("sync event: missing shared session id")
	}
	if e.OriginParticipantID == "" {
		return fmt.Errorf("sync event: missing origin participant id")
	}
	switch e.Kind {
	case SyncEventEdit, SyncEventLanguageChange:
		if e.CodeContent == nil || e.Language == nil {
			return fmt.Errorf("sync event: %s requires codeContent and language", e.Kind)
		}
	case SyncEventCursor:
		if e.Line == nil || e.Column == nil {
			return fmt.Errorf("sync event: cursor requires line and column")
		}
	default:
		return fmt.Errorf("sync event: unknown kind %q", e.Kind)
	}
	return nil
}
