package sharecode

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	t.Run("generates 6-character code", func(t *testing.T) {
		code := Generate()

		pattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)
		assert.True(t, pattern.MatchString(code), "code should be 6 uppercase alphanumerics, got: %s", code)
	})

	t.Run("uses only allowed characters", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			code := Generate()
			for _, c := range code {
				found := false
				for _, allowed := range Alphabet {
					if c == allowed {
						found = true
						break
					}
				}
				assert.True(t, found, "character '%c' should be in allowed set", c)
			}
		}
	})

	t.Run("excludes ambiguous characters", func(t *testing.T) {
		// O, I, 0, 1 are excluded from the alphabet
		for i := 0; i < 100; i++ {
			code := Generate()
			assert.NotContains(t, code, "O")
			assert.NotContains(t, code, "I")
			assert.NotContains(t, code, "0")
			assert.NotContains(t, code, "1")
		}
	})

	t.Run("generates unique codes", func(t *testing.T) {
		codes := make(map[string]bool)
		for i := 0; i < 100; i++ {
			code := Generate()
			assert.False(t, codes[code], "duplicate code generated: %s", code)
			codes[code] = true
		}
	})
}

func TestAlphabet(t *testing.T) {
	t.Run("contains no ambiguous characters", func(t *testing.T) {
		assert.NotContains(t, Alphabet, "O")
		assert.NotContains(t, Alphabet, "I")
		assert.NotContains(t, Alphabet, "0")
		assert.NotContains(t, Alphabet, "1")
	})

	t.Run("contains expected character count", func(t *testing.T) {
		// 26 letters - O, I = 24 letters
		// 10 digits - 0, 1 = 8 digits
		// Total = 32 characters
		assert.Len(t, Alphabet, 32)
	})
}

func TestNormalize(t *testing.T) {
	t.Run("uppercases and trims", func(t *testing.T) {
		assert.Equal(t, "AB3K9Q", Normalize("  ab3k9q "))
		assert.Equal(t, "AB3K9Q", Normalize("AB3K9Q"))
	})
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		code string
		want bool
	}{
		{"generated code", Generate(), true},
		{"too short", "AB3K9", false},
		{"too long", "AB3K9QX", false},
		{"ambiguous glyph", "AB3K90", false},
		{"lowercase rejected before normalize", "ab3k9q", false},
		{"empty", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Valid(tc.code))
		})
	}
}
