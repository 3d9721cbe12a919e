package model

import "time"

// EditSession is one underlying editor session: the buffer being edited,
// independent of whether it is currently shared.
type EditSession struct {
	ID            string    `db:"id" json:"id"`
	ParticipantID string    `db:"participant_id" json:"participantId"`
	Title         string    `db:"title" json:"title"`
	Language      string    `db:"language" json:"language"`
	CodeContent   string    `db:"code_content" json:"codeContent"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateEditSessionParams struct {
	ParticipantID string
	Title         string
	Language      string
	CodeContent   string
}
