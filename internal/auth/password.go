package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// dummyHash is a valid bcrypt digest compared against when the username does
// not exist, so lookup misses cost the same work as a real mismatch.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Hasher performs bcrypt operations behind a bounded semaphore so CPU-heavy
// hashing cannot saturate the request-handling goroutines.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewHasher builds a hasher with the configured cost and worker bound.
func NewHasher(cost, workers int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if workers <= 0 {
		workers = 4
	}
	return &Hasher{cost: cost, sem: semaphore.NewWeighted(int64(workers))}
}

// Hash derives a salted hash from a plaintext password.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare verifies a password against its stored hash.
func (h *Hasher) Compare(ctx context.Context, hashed, plain string) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// CompareDummy burns a hash comparison for nonexistent usernames.
func (h *Hasher) CompareDummy(ctx context.Context) {
	_ = h.Compare(ctx, dummyHash, "mismatch")
}
