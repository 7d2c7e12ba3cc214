// Package auth — opaque token generation.
//
// Two kinds of random strings circulate in this system and they have
// different requirements:
//
//   - Storage names only need to be collision-free. rs/xid covers that
//     (timestamp + machine + counter), and the service layer uses it when
//     naming files on disk.
//   - Verification tokens and download tokens act as capabilities: whoever
//     holds one can verify the account or fetch the file. These must be
//     UNGUESSABLE, so they come from crypto/rand, never from xid (xid values
//     are largely predictable by design).
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// opaqueTokenBytes is the entropy per token. 32 bytes → 256 bits → 64 hex
// characters. Unguessable by brute force for any realistic attacker.
const opaqueTokenBytes = 32

// NewOpaqueToken returns a cryptographically random hex string for use as an
// email-verification token or a file download token.
//
// The token is opaque: it carries no structure, no timestamp, no identity.
// It only means something because a database row points at it.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		// rand.Read only fails if the OS entropy source is broken —
		// refuse to mint a token rather than fall back to weak randomness.
		return "", fmt.Errorf("auth: reading random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
