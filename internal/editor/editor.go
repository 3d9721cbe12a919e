// Package editor defines the contract to the text-editing widget. The
// widget itself is an external component; everything here treats it as
// an opaque buffer with cursor access.
package editor

import "strings"

// Position is a 1-based line/column cursor location.
type Position struct {
	Line   int
	Column int
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position
	End   Position
}

// Widget is the surface the collaboration orchestrator needs from the
// editing component: full-buffer get/set, cursor access, and a ranged
// edit primitive.
type Widget interface {
	Value() string
	SetValue(text string)
	Position() Position
	ApplyEdit(rng Range, text string)
}

// Buffer is an in-memory Widget used by tests and by the child-window
// fallback path while no real editor is mounted.
type Buffer struct {
	text string
	pos  Position
}

func NewBuffer() *Buffer {
	return &Buffer{pos: Position{Line: 1, Column: 1}}
}

func (b *Buffer) Value() string {
	return b.text
}

func (b *Buffer) SetValue(text string) {
	b.text = text
}

func (b *Buffer) Position() Position {
	return b.pos
}

func (b *Buffer) SetPosition(pos Position) {
	b.pos = pos
}

// ApplyEdit replaces the given span with text. Positions outside the
// buffer clamp to its bounds.
func (b *Buffer) ApplyEdit(rng Range, text string) {
	start := b.offset(rng.Start)
	end := b.offset(rng.End)
	if end < start {
		start, end = end, start
	}
	b.text = b.text[:start] + text + b.text[end:]
}

func (b *Buffer) offset(pos Position) int {
	lines := strings.SplitAfter(b.text, "\n")
	offset := 0
	for i := 0; i < pos.Line-1 && i < len(lines); i++ {
		offset += len(lines[i])
	}
	offset += pos.Column - 1
	if offset < 0 {
		offset = 0
	}
	if offset > len(b.text) {
		offset = len(b.text)
	}
	return offset
}
