package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer(t *testing.T) {
	t.Run("set and get value", func(t *testing.T) {
		buf := NewBuffer()
		buf.SetValue("let x = 1;")
		assert.Equal(t, "let x = 1;", buf.Value())
	})

	t.Run("apply edit replaces a span", func(t *testing.T) {
		buf := NewBuffer()
		buf.SetValue("let x = 1;\nlet y = 2;\n")

		buf.ApplyEdit(Range{
			Start: Position{Line: 2, Column: 9},
			End:   Position{Line: 2, Column: 10},
		}, "42")

		assert.Equal(t, "let x = 1;\nlet y = 42;\n", buf.Value())
	})

	t.Run("positions clamp to buffer bounds", func(t *testing.T) {
		buf := NewBuffer()
		buf.SetValue("abc")

		buf.ApplyEdit(Range{
			Start: Position{Line: 1, Column: 2},
			End:   Position{Line: 9, Column: 99},
		}, "!")

		assert.Equal(t, "a!", buf.Value())
	})
}
