package tempsession

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/clientportal/portal-auth/accounts"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	tokenByteLength = 32

	// Bounds for service-requested session durations.
	minServiceTTL = time.Hour
	maxServiceTTL = 24 * time.Hour
)

// ClaimValidator resolves a claim token to its account without consuming it.
// Satisfied by claims.Manager.
type ClaimValidator interface {
	Validate(token string) (*accounts.Account, error)
}

// Manager issues, validates and revokes temporary sessions.
type Manager struct {
	repo     Repo
	accounts accounts.Repo
	claims   ClaimValidator
	ttl      time.Duration
	logger   zerolog.Logger
	nowTime  func() time.Time
}

type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithTTL overrides the default one-hour session duration.
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

func NewManager(repo Repo, accountRepo accounts.Repo, claims ClaimValidator, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[tempsession.NewManager] session repo is required")
	}
	if accountRepo == nil {
		return nil, errors.New("[tempsession.NewManager] accounts repo is required")
	}
	if claims == nil {
		return nil, errors.New("[tempsession.NewManager] claim validator is required")
	}

	m := &Manager{
		repo:     repo,
		accounts: accountRepo,
		claims:   claims,
		ttl:      time.Hour,
		logger:   zerolog.Nop(),
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// CreateFromClaim is the continue-without-claiming path: a valid claim token
// spawns a session without touching the token itself, which stays usable for
// claiming until it expires. Admin invitees are refused outright.
func (m *Manager) CreateFromClaim(claimToken string) (*Session, error) {
	account, err := m.claims.Validate(claimToken)
	if err != nil {
		return nil, err
	}
	if account.IsAdmin() {
		return nil, ErrAdminNotAllowed
	}
	return m.create(account.ID, m.ttl)
}

// CreateForAccount issues a session on behalf of a trusted service caller.
// The duration is clamped to the 1-24h range the service API allows.
func (m *Manager) CreateForAccount(accountID string, ttl time.Duration) (*Session, error) {
	account, err := m.accounts.GetByID(accountID)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.CreateForAccount] accounts.GetByID")
	}
	if account.IsAdmin() {
		return nil, ErrAdminNotAllowed
	}
	if ttl < minServiceTTL {
		ttl = minServiceTTL
	}
	if ttl > maxServiceTTL {
		ttl = maxServiceTTL
	}
	return m.create(account.ID, ttl)
}

func (m *Manager) create(accountID string, ttl time.Duration) (*Session, error) {
	bytes := make([]byte, tokenByteLength)
	if _, err := rand.Read(bytes); err != nil {
		return nil, errors.Wrap(err, "[Manager.create] rand.Read")
	}

	session := &Session{
		Token:     hex.EncodeToString(bytes),
		AccountID: accountID,
		ExpiresAt: m.nowTime().Add(ttl),
		CreatedAt: m.nowTime(),
	}
	if err := m.repo.Create(session); err != nil {
		return nil, errors.Wrap(err, "[Manager.create] repo.Create")
	}

	m.logger.Info().Str("account_id", accountID).Time("expires", session.ExpiresAt).Msg("temporary session created")
	return session, nil
}

// Validate resolves a session token to its account. Expired records are
// deleted on the spot rather than by a background sweep. An account that
// gained the ADMIN role after issuance invalidates the session.
func (m *Manager) Validate(token string) (*accounts.Account, *Session, error) {
	if token == "" {
		return nil, nil, ErrInvalidSession
	}

	session, err := m.repo.GetByToken(token)
	if err != nil {
		return nil, nil, ErrInvalidSession
	}
	if session.Expired(m.nowTime()) {
		_ = m.repo.Delete(token)
		return nil, nil, ErrInvalidSession
	}

	account, err := m.accounts.GetByID(session.AccountID)
	if err != nil {
		_ = m.repo.Delete(token)
		return nil, nil, ErrInvalidSession
	}
	if account.IsAdmin() {
		m.logger.Warn().Str("account_id", account.ID).Msg("temp session rejected for admin account")
		return nil, nil, ErrInvalidSession
	}
	return account, session, nil
}

// Revoke deletes a session. Revoking an absent or already-expired token is
// not an error.
func (m *Manager) Revoke(token string) error {
	if token == "" {
		return nil
	}
	if err := m.repo.Delete(token); err != nil && !errors.Is(err, ErrInvalidSession) {
		return errors.Wrap(err, "[Manager.Revoke] repo.Delete")
	}
	return nil
}

// RevokeAllForAccount drops every session bound to the account. Called when
// the account is claimed, since its trust level changed.
func (m *Manager) RevokeAllForAccount(accountID string) error {
	if err := m.repo.DeleteByAccount(accountID); err != nil {
		return errors.Wrap(err, "[Manager.RevokeAllForAccount] repo.DeleteByAccount")
	}
	return nil
}
