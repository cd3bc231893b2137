package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// codeAlphabet excludes 0/O, 1/I/L so codes survive handwriting and
// phone readouts.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeGroupLen = 4

// GenerateEmergencyCode returns a printable code like "VP-K3NM-8XQ2".
// ~31^8 combinations keeps blind guessing impractical even with the
// public lookup endpoint rate limited.
func GenerateEmergencyCode(prefix string) (string, error) {
	groups := make([]string, 2)
	for g := range groups {
		var b strings.Builder
		for i := 0; i < codeGroupLen; i++ {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
			if err != nil {
				return "", fmt.Errorf("generate emergency code: %w", err)
			}
			b.WriteByte(codeAlphabet[n.Int64()])
		}
		groups[g] = b.String()
	}
	return fmt.Sprintf("%s-%s-%s", prefix, groups[0], groups[1]), nil
}

// NormalizeEmergencyCode uppercases and strips spaces so a code read
// over the phone still matches.
func NormalizeEmergencyCode(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), " ", ""))
}
