package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 2)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "pw123")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123", hash)

	assert.NoError(t, h.Compare(ctx, hash, "pw123"))
	assert.Error(t, h.Compare(ctx, hash, "wrong"))
}

func TestHasherInvalidCostFallsBack(t *testing.T) {
	h := NewHasher(99, 1)
	ctx := context.Background()

	hash, err := h.Hash(ctx, "pw123")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(ctx, hash, "pw123"))
}

func TestHasherCancelledContext(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// a held semaphore slot forces Acquire to observe the cancelled context
	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)

	_, err := h.Hash(ctx, "pw123")
	assert.Error(t, err)
}

func TestCompareDummyDoesNotPanic(t *testing.T) {
	h := NewHasher(bcrypt.MinCost, 1)
	h.CompareDummy(context.Background())
}
