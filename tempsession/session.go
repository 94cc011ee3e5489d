package tempsession

import (
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidSession covers unknown, expired and admin-bound tokens alike.
	ErrInvalidSession = errors.New("invalid or expired session")

	// ErrAdminNotAllowed: admins may never authenticate through a token
	// link, only with credentials.
	ErrAdminNotAllowed = errors.New("admin accounts must be claimed before signing in")
)

// Session is a short-lived, password-less access grant bound to an unclaimed
// account. Several can coexist for one account, each with its own expiry.
type Session struct {
	Token     string    `json:"token"`
	AccountID string    `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session's expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Repo is the persistence contract for temporary sessions.
type Repo interface {
	Create(session *Session) error
	GetByToken(token string) (*Session, error)
	Delete(token string) error
	DeleteByAccount(accountID string) error
}
