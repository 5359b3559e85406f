// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSHA256HasherDigest(t *testing.T) {
	t.Parallel()

	h := NewSHA256Hasher()

	t.Run("known vectors", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t,
			"ed9f02f10e07faa4b8c450098c23ad6a8b6a2396523897c0beec0ecdf327d2e9",
			h.Digest("wos1234"))
		assert.Equal(t,
			"03ac674216f3e15c761ee1a5e255f067953623c8b388b4459e13f978d7c846f4",
			h.Digest("1234"))
	})

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, h.Digest("secret"), h.Digest("secret"))
		assert.NotEqual(t, h.Digest("secret"), h.Digest("secret2"))
	})

	t.Run("lowercase hex", func(t *testing.T) {
		t.Parallel()
		digest := h.Digest("AnythingAtAll")
		assert.Equal(t, strings.ToLower(digest), digest)
		assert.Len(t, digest, 64)
	})

	t.Run("empty input digests to empty", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, h.Digest(""))
	})

	t.Run("falls back to plaintext when primitive fails", func(t *testing.T) {
		t.Parallel()
		broken := &SHA256Hasher{digestFn: func(string) (string, error) {
			return "", errors.New("digest unavailable")
		}}
		assert.Equal(t, "pw1", broken.Digest("pw1"))
	})
}

func TestSecretVerifier(t *testing.T) {
	t.Parallel()

	h := NewSHA256Hasher()
	v := NewSecretVerifier(h)

	tests := []struct {
		name     string
		secret   string
		stored   string
		ok       bool
		strategy MatchStrategy
	}{
		{
			name:     "digest match",
			secret:   "pw1",
			stored:   h.Digest("pw1"),
			ok:       true,
			strategy: DigestMatch,
		},
		{
			name:     "legacy plaintext match",
			secret:   "pw1",
			stored:   "pw1",
			ok:       true,
			strategy: LegacyPlaintextMatch,
		},
		{
			name:     "mismatch",
			secret:   "pw1",
			stored:   h.Digest("other"),
			ok:       false,
			strategy: NoMatch,
		},
		{
			name:     "empty stored value never matches",
			secret:   "pw1",
			stored:   "",
			ok:       false,
			strategy: NoMatch,
		},
		{
			name:     "empty secret never matches",
			secret:   "",
			stored:   h.Digest("pw1"),
			ok:       false,
			strategy: NoMatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ok, strategy := v.Verify(tt.secret, tt.stored)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.strategy, strategy)
		})
	}
}
