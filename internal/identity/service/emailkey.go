package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DeriveEmailKey produces the deterministic one-way lookup key for an email
// address: case-folded, trimmed, SHA-256, hex. Every existence check goes
// through this key. The reversible encrypted form exists solely for recovery
// flows and is never queried by.
func DeriveEmailKey(email string) string {
	folded := strings.ToLower(strings.TrimSpace(email))
	sum := sha256.Sum256([]byte(folded))
	return hex.EncodeToString(sum[:])
}
