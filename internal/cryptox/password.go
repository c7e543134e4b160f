package cryptox

import (
	"fmt"
	"sync"

	"github.com/dmitrijs2005/blockpass/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the login hash cost used unless configured otherwise.
const DefaultBcryptCost = 12

// maxPasswordLength is bcrypt's input limit; longer inputs would be
// truncated silently.
const maxPasswordLength = 72

// PasswordHasher hashes login passwords with bcrypt. Its salt is generated
// by bcrypt for each hash and is unrelated to the KDF salt.
type PasswordHasher struct {
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewPasswordHasher returns a hasher with the given bcrypt cost.
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost must be in %d..%d", common.ErrorInvalidInput, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &PasswordHasher{cost: cost}, nil
}

// Hash returns the modular-crypt encoded bcrypt hash ("$2a$<cost>$...").
func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" || len(password) > maxPasswordLength {
		return "", fmt.Errorf("%w: password must be 1..%d bytes", common.ErrorInvalidInput, maxPasswordLength)
	}
	pw := []byte(password)
	defer common.WipeByteArray(pw)

	hash, err := bcrypt.GenerateFromPassword(pw, h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. A malformed hash or an
// over-long password simply yields false.
func (h *PasswordHasher) Verify(password, hash string) bool {
	if len(password) > maxPasswordLength {
		return false
	}
	pw := []byte(password)
	defer common.WipeByteArray(pw)

	return bcrypt.CompareHashAndPassword([]byte(hash), pw) == nil
}

// VerifyNothing runs a comparison against a fixed hash of the configured cost
// and always returns false. It is used when no account matched so the login
// path takes the same time whether or not the username exists.
func (h *PasswordHasher) VerifyNothing(password string) bool {
	h.dummyOnce.Do(func() {
		h.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("blockpass-no-such-user"), h.cost)
	})
	_ = h.Verify(password, string(h.dummyHash))
	return false
}
