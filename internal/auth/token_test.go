package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/ops-dashboard/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	identity := domain.Identity{SubjectID: "u-1", Username: "alice", Role: domain.RoleOperations}
	token, expiresAt, err := tm.Generate(identity)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, domain.RoleOperations, claims.Role)
	assert.Equal(t, identity, claims.Identity())
}

func TestTokenExpiry(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Millisecond)

	token, _, err := tm.Generate(domain.Identity{SubjectID: "u-1", Username: "alice", Role: domain.RoleAdmin})
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)

	_, err = tm.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenTamperedSignature(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	token, _, err := tm.Generate(domain.Identity{SubjectID: "u-1", Username: "alice", Role: domain.RoleAdmin})
	require.NoError(t, err)

	// flip the last byte of the signature segment
	tampered := []byte(token)
	last := len(tampered) - 1
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}

	_, err = tm.Parse(string(tampered))
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	other := NewTokenManager("other-secret", time.Hour)

	token, _, err := tm.Generate(domain.Identity{SubjectID: "u-1", Username: "alice", Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	_, err := tm.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
