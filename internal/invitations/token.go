package invitations

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const defaultTokenBytes = 32

// newToken draws n random bytes and hex-encodes them, giving a 2n-character
// token. 32 bytes is the configured default, matching the 64-character
// tokens stored in manager_invitations.
func newToken(n int) (string, error) {
	if n <= 0 {
		n = defaultTokenBytes
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
