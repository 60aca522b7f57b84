// Package id generates identifiers for entities and correlation handles.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "batch-V1StGXR8_Z5jdHi6B-myT")
//
// These are used for log correlation and token ids, never for synced rows.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// NewEntityID returns a random UUID string for a synced row.
// Clients store these verbatim, so the canonical hyphenated form is used.
func NewEntityID() string {
	return uuid.NewString()
}

// IsEntityID reports whether s parses as a UUID.
func IsEntityID(s string) bool {
	return uuid.Validate(s) == nil
}
