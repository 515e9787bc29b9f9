package auth

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

const (
	// ProductionCost is the bcrypt work factor used outside of tests.
	ProductionCost = 12
	// TestCost keeps test suites fast. Only reachable through HashModeTest.
	TestCost = bcrypt.MinCost

	MinPasswordLength = 8
	MaxPasswordBytes  = 72
)

const (
	HashModeProduction = "production"
	HashModeTest       = "test"
)

// CostForMode returns the bcrypt cost for a configured hash mode. Anything
// other than the explicit test mode gets the production cost.
func CostForMode(mode string) int {
	if strings.EqualFold(strings.TrimSpace(mode), HashModeTest) {
		return TestCost
	}
	return ProductionCost
}

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)

	// Verify reports whether password matches hash. A malformed hash is
	// indistinguishable from a wrong password.
	Verify(password, hash string) bool

	// VerifyDummy burns the same work as Verify against a hash that never
	// matches. Used when no account exists for a login attempt.
	VerifyDummy(password string) bool

	NeedsRehash(hash string) bool
}

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct {
	cost  int
	dummy []byte
}

// NewBcryptHasher creates a hasher with the given cost. The dummy hash is
// generated here with the same cost so the timing of VerifyDummy always
// tracks the configured work factor.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, oops.Code("AUTH_INVALID_COST").With("cost", cost).Errorf("bcrypt cost out of range")
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, oops.Code("AUTH_DUMMY_HASH_FAILED").Wrap(err)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(secret)), cost)
	if err != nil {
		return nil, oops.Code("AUTH_DUMMY_HASH_FAILED").Wrap(err)
	}

	return &BcryptHasher{cost: cost, dummy: dummy}, nil
}

// Cost is the bcrypt work factor new hashes are produced with.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")
	}
	if len(password) > MaxPasswordBytes {
		return "", oops.Code("AUTH_PASSWORD_TOO_LONG").Errorf("password exceeds %d bytes", MaxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").Wrap(err)
	}

	return string(hash), nil
}

func (h *BcryptHasher) Verify(password, hash string) bool {
	if hash == "" {
		return h.VerifyDummy(password)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (h *BcryptHasher) VerifyDummy(password string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
	return false
}

// NeedsRehash reports whether hash was produced with a different cost than
// the one currently configured.
func (h *BcryptHasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost != h.cost
}

// ValidatePasswordPolicy checks length bounds for a new password.
func ValidatePasswordPolicy(password string) error {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordBytes {
		return oops.Code("AUTH_WEAK_PASSWORD").
			With("min", MinPasswordLength).
			With("max", MaxPasswordBytes).
			Wrap(ErrWeakPassword)
	}
	return nil
}
