package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// DefaultIdempotencyTTL is how long a stored idempotency record remains
// replayable before it is eligible for garbage collection.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyKey is the durable record backing at-most-once execution of a
// mutating request. A record is never updated once a response is stored,
// except by TTL-based garbage collection.
type IdempotencyKey struct {
	ID             string     `json:"id"`
	Key            string     `json:"key"`
	UserID         string     `json:"user_id"`
	Endpoint       string     `json:"endpoint"`
	Method         string     `json:"method"`
	RequestHash    string     `json:"request_hash"`
	IsProcessing   bool       `json:"is_processing"`
	ResponseStatus *int       `json:"response_status,omitempty"`
	ResponseBody   []byte     `json:"response_body,omitempty"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	ExpiresAt      time.Time  `json:"expires_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// HasResponse reports whether a completed response has been stored.
func (k *IdempotencyKey) HasResponse() bool {
	return k.ProcessedAt != nil && k.ResponseStatus != nil
}

// IsExpired reports whether the record has passed its TTL.
func (k *IdempotencyKey) IsExpired(now time.Time) bool {
	return !now.Before(k.ExpiresAt)
}

var hexKeyPattern = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)

// ValidIdempotencyKey reports whether a client-supplied key is a SHA-256 hex
// digest or a UUID. Anything else is rejected before touching the store.
func ValidIdempotencyKey(key string) bool {
	if hexKeyPattern.MatchString(key) {
		return true
	}
	_, err := uuid.Parse(key)
	return err == nil
}
