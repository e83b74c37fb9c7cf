package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidIdempotencyKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{name: "uuid", key: "c7a1f9d2-3b44-4f1e-9a6e-0d2b8c4f5e6a", want: true},
		{name: "sha256 hex lowercase", key: strings.Repeat("ab", 32), want: true},
		{name: "sha256 hex uppercase", key: strings.Repeat("AB", 32), want: true},
		{name: "empty", key: "", want: false},
		{name: "short hex", key: strings.Repeat("ab", 16), want: false},
		{name: "non hex at full length", key: strings.Repeat("zz", 32), want: false},
		{name: "arbitrary string", key: "my-checkout-attempt-1", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidIdempotencyKey(tt.key))
		})
	}
}

func TestIdempotencyKey_HasResponse(t *testing.T) {
	now := time.Now()
	status := 201

	pending := IdempotencyKey{IsProcessing: true}
	assert.False(t, pending.HasResponse())

	partial := IdempotencyKey{ResponseStatus: &status}
	assert.False(t, partial.HasResponse())

	done := IdempotencyKey{ResponseStatus: &status, ProcessedAt: &now}
	assert.True(t, done.HasResponse())
}

func TestIdempotencyKey_IsExpired(t *testing.T) {
	now := time.Now()

	live := IdempotencyKey{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, live.IsExpired(now))

	stale := IdempotencyKey{ExpiresAt: now.Add(-time.Hour)}
	assert.True(t, stale.IsExpired(now))
}
