package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/clientportal/portal-auth/accounts"
	"github.com/clientportal/portal-auth/tempsession"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const tokenByteLength = 32

// TempSessionValidator resolves a temporary session token. Satisfied by
// tempsession.Manager.
type TempSessionValidator interface {
	Validate(token string) (*accounts.Account, *tempsession.Session, error)
}

// Repos holds the persistence dependencies for the auth Service.
type Repos struct {
	Accounts accounts.Repo
	Sessions SessionRepo
	Grants   GrantRepo
}

// Service resolves request credentials to an effective identity and manages
// credential sessions and login grants.
type Service struct {
	repos      Repos
	temp       TempSessionValidator
	hasher     *accounts.Hasher
	sessionTTL time.Duration
	grantTTL   time.Duration
	logger     zerolog.Logger
	nowTime    func() time.Time
}

type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.sessionTTL = ttl
	}
}

func WithGrantTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.grantTTL = ttl
	}
}

func NewService(repos Repos, temp TempSessionValidator, hasher *accounts.Hasher, options ...ServiceOption) (*Service, error) {
	if repos.Accounts == nil {
		return nil, errors.New("[auth.NewService] accounts repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[auth.NewService] sessions repo is required")
	}
	if repos.Grants == nil {
		return nil, errors.New("[auth.NewService] grants repo is required")
	}
	if temp == nil {
		return nil, errors.New("[auth.NewService] temp session validator is required")
	}
	if hasher == nil {
		return nil, errors.New("[auth.NewService] hasher is required")
	}

	s := &Service{
		repos:      repos,
		temp:       temp,
		hasher:     hasher,
		sessionTTL: 30 * 24 * time.Hour,
		grantTTL:   2 * time.Minute,
		logger:     zerolog.Nop(),
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Register creates a claimed account directly from a credential set: public
// self-registration, no invitation involved. Self-registered accounts are
// always USER; elevation is an admin operation.
func (s *Service) Register(name, email, phone, password string) (*accounts.Account, error) {
	if _, err := s.repos.Accounts.GetByEmail(email); err == nil {
		return nil, accounts.ErrDuplicate
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Register] hasher.Hash")
	}

	account := &accounts.Account{
		Name:         name,
		Email:        email,
		Phone:        phone,
		Role:         accounts.RoleUser,
		PasswordHash: passwordHash,
		Claimed:      true,
	}
	if err := s.repos.Accounts.Create(account); err != nil {
		if errors.Is(err, accounts.ErrDuplicate) {
			return nil, accounts.ErrDuplicate
		}
		return nil, errors.Wrap(err, "[Service.Register] accounts.Create")
	}

	s.logger.Info().Str("email", email).Msg("account registered")
	return account, nil
}

// Login verifies credentials and opens a credential session. Unknown email,
// unclaimed account and wrong password are indistinguishable to the caller.
func (s *Service) Login(email, password string) (*CredentialSession, error) {
	account, err := s.repos.Accounts.GetByEmail(email)
	if err != nil {
		return nil, InvalidCredentialsErr
	}
	if account.PasswordHash == "" || !s.hasher.Verify(password, account.PasswordHash) {
		s.logger.Debug().Str("email", email).Msg("login failed")
		return nil, InvalidCredentialsErr
	}
	return s.createSession(account.ID)
}

// Logout tears down a credential session; absent tokens are not an error.
func (s *Service) Logout(token string) error {
	if token == "" {
		return nil
	}
	if err := s.repos.Sessions.Delete(token); err != nil {
		return errors.Wrap(err, "[Service.Logout] sessions.Delete")
	}
	return nil
}

// Resolve determines the effective identity for a request, first match wins:
// valid credential session, then valid temporary session, then nil for
// unauthenticated. Expired records found along the way are deleted lazily.
func (s *Service) Resolve(credentialToken, tempToken string) *AuthSession {
	if session := s.resolveCredential(credentialToken); session != nil {
		return session
	}
	if session := s.resolveTemporary(tempToken); session != nil {
		return session
	}
	return nil
}

func (s *Service) resolveCredential(token string) *AuthSession {
	if token == "" {
		return nil
	}
	session, err := s.repos.Sessions.GetByToken(token)
	if err != nil {
		return nil
	}
	if !session.ExpiresAt.After(s.nowTime()) {
		_ = s.repos.Sessions.Delete(token)
		return nil
	}
	account, err := s.repos.Accounts.GetByID(session.AccountID)
	if err != nil {
		_ = s.repos.Sessions.Delete(token)
		return nil
	}

	status := StatusAuthenticated
	if account.IsAdmin() {
		status = StatusAuthenticatedAdmin
	}
	expires := session.ExpiresAt
	return &AuthSession{
		User: Identity{
			ID:    account.ID,
			Email: account.Email,
			Name:  account.Name,
			Role:  account.Role,
		},
		AuthType:    AuthTypeCredentials,
		Status:      status,
		IsTemporary: false,
		ExpiresAt:   &expires,
	}
}

func (s *Service) resolveTemporary(token string) *AuthSession {
	if token == "" {
		return nil
	}
	account, session, err := s.temp.Validate(token)
	if err != nil {
		return nil
	}

	expires := session.ExpiresAt
	return &AuthSession{
		User: Identity{
			ID:    account.ID,
			Email: account.Email,
			Name:  account.Name,
			// Temp sessions never confer admin capability, whatever the
			// stored role says.
			Role: accounts.RoleUser,
		},
		AuthType:    AuthTypeToken,
		Status:      StatusAuthenticatedTemp,
		IsTemporary: true,
		ExpiresAt:   &expires,
	}
}

// IssueLoginGrant mints a single-use grant for the account, redeemable once
// within the grant TTL for a credential session.
func (s *Service) IssueLoginGrant(accountID string) (*LoginGrant, error) {
	token, err := opaqueToken()
	if err != nil {
		return nil, errors.Wrap(err, "[Service.IssueLoginGrant] opaqueToken")
	}
	grant := &LoginGrant{
		Token:     token,
		AccountID: accountID,
		ExpiresAt: s.nowTime().Add(s.grantTTL),
	}
	if err := s.repos.Grants.Create(grant); err != nil {
		return nil, errors.Wrap(err, "[Service.IssueLoginGrant] grants.Create")
	}
	return grant, nil
}

// RedeemLoginGrant exchanges an unexpired grant for a credential session.
// The grant is consumed whether or not the exchange succeeds.
func (s *Service) RedeemLoginGrant(token string) (*CredentialSession, error) {
	grant, err := s.repos.Grants.Consume(token)
	if err != nil {
		return nil, InvalidGrantErr
	}
	if !grant.ExpiresAt.After(s.nowTime()) {
		return nil, InvalidGrantErr
	}
	return s.createSession(grant.AccountID)
}

func (s *Service) createSession(accountID string) (*CredentialSession, error) {
	token, err := opaqueToken()
	if err != nil {
		return nil, errors.Wrap(err, "[Service.createSession] opaqueToken")
	}
	session := &CredentialSession{
		Token:     token,
		AccountID: accountID,
		ExpiresAt: s.nowTime().Add(s.sessionTTL),
		CreatedAt: s.nowTime(),
	}
	if err := s.repos.Sessions.Create(session); err != nil {
		return nil, errors.Wrap(err, "[Service.createSession] sessions.Create")
	}
	s.logger.Info().Str("account_id", accountID).Msg("credential session created")
	return session, nil
}

func opaqueToken() (string, error) {
	bytes := make([]byte, tokenByteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
