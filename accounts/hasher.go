package accounts

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies passwords. Every password is concatenated with
// a process-wide pepper before hashing, on top of the per-record salt bcrypt
// generates itself. The cost factor should put a single verification in the
// 100-300ms range.
type Hasher struct {
	pepper string
	cost   int
}

// NewHasher creates a Hasher with the given pepper and bcrypt cost. A cost
// outside bcrypt's supported range falls back to DefaultCost.
func NewHasher(pepper string, cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{pepper: pepper, cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password+h.pepper), h.cost)
	if err != nil {
		return "", errors.Wrap(err, "[Hasher.Hash] bcrypt.GenerateFromPassword")
	}
	return string(bytes), nil
}

func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password+h.pepper)) == nil
}
