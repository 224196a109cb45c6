// Package idgen provides identifier and payment reference generation.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// New generates a random UUID for entity identifiers.
func New() string {
	return uuid.NewString()
}

// WithPrefix generates a random ID with a prefix (e.g. "reg_", "txn_", "intent_").
// Result is prefix + 24 hex chars (12 random bytes).
func WithPrefix(prefix string) string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return prefix + hex.EncodeToString(b)
}

// Reference generates a payment reference shared with the gateway.
// The millisecond timestamp keeps references sortable and readable in
// the gateway dashboard; the random suffix guarantees uniqueness for
// submissions landing in the same millisecond.
func Reference() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return fmt.Sprintf("CC-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(b))
}
