package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

const (
	keyPrefix   = "adk_"
	keyBytes    = 24
	prefixChars = 12
)

// Generate returns a fresh raw key, e.g. "adk_3f9c…".
func Generate() (string, error) {
	buf := make([]byte, keyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return keyPrefix + hex.EncodeToString(buf), nil
}

// Hash returns the hex SHA-256 digest stored in key_hash.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Prefix returns the operator-visible head of a raw key.
func Prefix(raw string) string {
	if len(raw) <= prefixChars {
		return raw
	}
	return raw[:prefixChars]
}

// NewRecord builds an active Record for raw under tenantID.  ttl <= 0 means
// the key never expires.
func NewRecord(raw, tenantID, name string, scopes []string, ttl time.Duration, now time.Time) *Record {
	rec := &Record{
		ID:          uuid.NewString(),
		KeyHash:     Hash(raw),
		KeyPrefix:   Prefix(raw),
		TenantID:    tenantID,
		Name:        name,
		Permissions: Scopes(scopes),
		Active:      true,
		CreatedAt:   now.UTC(),
	}
	if ttl > 0 {
		exp := now.Add(ttl).UTC()
		rec.ExpiresAt = &exp
	}
	return rec
}
