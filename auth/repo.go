package auth

import "time"

// CredentialSession is a long-lived, server-side login session created by a
// successful password authentication. The token is opaque; everything else
// lives in the store.
type CredentialSession struct {
	Token     string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionRepo is the persistence contract for credential sessions.
type SessionRepo interface {
	Create(session *CredentialSession) error
	GetByToken(token string) (*CredentialSession, error)
	Delete(token string) error
	DeleteByAccount(accountID string) error
}

// LoginGrant is a short-lived, single-use token issued after an account
// claim so the caller can establish a credential session without carrying
// the plaintext password across another request.
type LoginGrant struct {
	Token     string
	AccountID string
	ExpiresAt time.Time
}

// GrantRepo stores login grants. Consume must atomically remove and return
// the grant so it cannot be redeemed twice.
type GrantRepo interface {
	Create(grant *LoginGrant) error
	Consume(token string) (*LoginGrant, error)
}
