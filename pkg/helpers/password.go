package helpers

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// PasswordCost is the bcrypt work factor used for every new hash.
const PasswordCost = 10

// bcrypt only reads the first 72 bytes of its input.
const bcryptMaxInput = 72

// PasswordHasher hashes and compares passwords with bcrypt.
// At most Slots hash computations run at once; callers beyond that wait on ctx.
type PasswordHasher struct {
	cost   int
	sem    *semaphore.Weighted
	Logger *logrus.Logger
}

// NewPasswordHasher returns a hasher bounded to slots concurrent computations.
// slots <= 0 means GOMAXPROCS.
func NewPasswordHasher(slots int, logger *logrus.Logger) *PasswordHasher {
	if slots <= 0 {
		slots = runtime.GOMAXPROCS(0)
	}
	return &PasswordHasher{cost: PasswordCost, sem: semaphore.NewWeighted(int64(slots)), Logger: logger}
}

// Hash returns a self-contained bcrypt hash (salt + cost + digest) of plain.
func (h *PasswordHasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	b, err := bcrypt.GenerateFromPassword(bcryptInput(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare reports whether candidate matches hash. It never returns an error:
// a malformed hash or a cancelled wait yields false.
func (h *PasswordHasher) Compare(ctx context.Context, candidate, hash string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(candidate))
	if err == nil {
		return true
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) && h.Logger != nil {
		h.Logger.WithError(err).Warn("malformed password hash")
	}
	return false
}

// bcryptInput returns plain as bytes, or a 44-byte SHA-256 digest of it when
// plain is longer than bcrypt accepts. Every byte of a long password counts.
func bcryptInput(plain string) []byte {
	if len(plain) <= bcryptMaxInput {
		return []byte(plain)
	}
	sum := sha256.Sum256([]byte(plain))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
