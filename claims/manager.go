package claims

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/clientportal/portal-auth/accounts"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const tokenByteLength = 32 // 256 bits, rendered as hex

var (
	// ErrInvalidClaim is the single outcome for every failed validation:
	// unknown token, expired token, already-claimed account. Callers cannot
	// tell which check failed; the distinction only reaches the server log.
	ErrInvalidClaim = errors.New("invalid or expired claim token")

	ErrEmailExists = errors.New("an account with this email already exists")
)

// SessionRevoker revokes every outstanding temporary session for an account.
// Claiming changes the account's trust level, so sessions issued under the
// weaker token channel are invalidated at that moment.
type SessionRevoker interface {
	RevokeAllForAccount(accountID string) error
}

// Manager owns the claim-token lifecycle: issue at invitation time, validate
// read-only, consume exactly once.
type Manager struct {
	repo     accounts.Repo
	hasher   *accounts.Hasher
	sessions SessionRevoker
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

// WithSessionRevoker wires the temp-session revocation performed on claim.
func WithSessionRevoker(revoker SessionRevoker) ManagerOption {
	return func(m *Manager) {
		m.sessions = revoker
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func NewManager(repo accounts.Repo, hasher *accounts.Hasher, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[claims.NewManager] accounts repo is required")
	}
	if hasher == nil {
		return nil, errors.New("[claims.NewManager] hasher is required")
	}

	m := &Manager{
		repo:    repo,
		hasher:  hasher,
		logger:  zerolog.Nop(),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Issue creates an unclaimed account carrying a fresh claim token that
// expires after ttl. It fails with ErrEmailExists when the email is taken.
// The raw token is returned once for delivery in the invitation link.
func (m *Manager) Issue(name, email, phone string, role accounts.Role, ttl time.Duration) (*accounts.Account, string, error) {
	if _, err := m.repo.GetByEmail(email); err == nil {
		return nil, "", ErrEmailExists
	}

	token, err := generateToken()
	if err != nil {
		return nil, "", errors.Wrap(err, "[Manager.Issue] generateToken")
	}
	expires := m.nowTime().Add(ttl)

	account := &accounts.Account{
		Name:              name,
		Email:             email,
		Phone:             phone,
		Role:              role,
		ClaimToken:        &token,
		ClaimTokenExpires: &expires,
		Claimed:           false,
	}
	if err := m.repo.Create(account); err != nil {
		if errors.Is(err, accounts.ErrDuplicate) {
			return nil, "", ErrEmailExists
		}
		return nil, "", errors.Wrap(err, "[Manager.Issue] repo.Create")
	}

	m.logger.Info().Str("email", email).Time("expires", expires).Msg("claim token issued")
	return account, token, nil
}

// Reissue replaces the claim token on an existing unclaimed account, opening
// a fresh invitation window. Claimed accounts cannot be re-invited.
func (m *Manager) Reissue(email string, ttl time.Duration) (*accounts.Account, string, error) {
	account, err := m.repo.GetByEmail(email)
	if err != nil {
		return nil, "", errors.Wrap(err, "[Manager.Reissue] repo.GetByEmail")
	}
	if account.Claimed {
		return nil, "", ErrEmailExists
	}

	token, err := generateToken()
	if err != nil {
		return nil, "", errors.Wrap(err, "[Manager.Reissue] generateToken")
	}
	expires := m.nowTime().Add(ttl)
	account.ClaimToken = &token
	account.ClaimTokenExpires = &expires

	if err := m.repo.Update(account); err != nil {
		return nil, "", errors.Wrap(err, "[Manager.Reissue] repo.Update")
	}

	m.logger.Info().Str("email", email).Time("expires", expires).Msg("claim token reissued")
	return account, token, nil
}

// Validate resolves a claim token to its account without consuming it.
// Every failure mode collapses to ErrInvalidClaim.
func (m *Manager) Validate(token string) (*accounts.Account, error) {
	if token == "" {
		return nil, ErrInvalidClaim
	}

	account, err := m.repo.GetByClaimToken(token)
	if err != nil {
		m.logger.Debug().Msg("claim validation failed: unknown token")
		return nil, ErrInvalidClaim
	}
	if account.Claimed {
		m.logger.Debug().Str("email", account.Email).Msg("claim validation failed: already claimed")
		return nil, ErrInvalidClaim
	}
	if account.ClaimTokenExpires == nil || !account.ClaimTokenExpires.After(m.nowTime()) {
		m.logger.Debug().Str("email", account.Email).Msg("claim validation failed: token expired")
		return nil, ErrInvalidClaim
	}
	return account, nil
}

// Consume claims the account: re-validates, hashes the new password and
// performs the atomic conditional update. A concurrent consume that loses
// the race gets the same ErrInvalidClaim as any other invalid token.
func (m *Manager) Consume(token, password string) (*accounts.Account, error) {
	account, err := m.Validate(token)
	if err != nil {
		return nil, err
	}

	if err := accounts.ValidatePasswordStrength(password); err != nil {
		return nil, err
	}

	passwordHash, err := m.hasher.Hash(password)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Consume] hasher.Hash")
	}

	claimed, err := m.repo.Claim(account.ID, token, passwordHash)
	if err != nil {
		if errors.Is(err, accounts.ErrClaimConflict) || errors.Is(err, accounts.ErrNotFound) {
			m.logger.Debug().Str("email", account.Email).Msg("claim consume lost the race")
			return nil, ErrInvalidClaim
		}
		return nil, errors.Wrap(err, "[Manager.Consume] repo.Claim")
	}

	if m.sessions != nil {
		if err := m.sessions.RevokeAllForAccount(claimed.ID); err != nil {
			m.logger.Error().Err(err).Str("email", claimed.Email).Msg("failed revoking temp sessions after claim")
		}
	}

	m.logger.Info().Str("email", claimed.Email).Msg("account claimed")
	return claimed, nil
}

func generateToken() (string, error) {
	bytes := make([]byte, tokenByteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
