// Package sharecode generates the short human-typable codes identifying
// shared sessions. Codes are read aloud or retyped, so the alphabet
// excludes glyphs that transcribe badly (0/O, 1/I). Uniqueness among
// active sessions is the registry's job, not the generator's.
package sharecode

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Alphabet has exactly 32 characters: 24 letters (no O, no I) and
// 8 digits (no 0, no 1).
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length of a share code.
const Length = 6

// Generate returns a random 6-character share code.
func Generate() string {
	chars := []byte(Alphabet)
	code := make([]byte, Length)
	for i := 0; i < Length; i++ {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		code[i] = chars[n.Int64()]
	}
	return string(code)
}

// Normalize maps user input onto canonical code form: trimmed, uppercase.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether a normalized code has the right shape. It does
// not say anything about the code existing.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(Alphabet, c) {
			return false
		}
	}
	return true
}
