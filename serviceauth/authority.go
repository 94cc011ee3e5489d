package serviceauth

import (
	"time"

	"github.com/clientportal/portal-auth/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Well-known service scopes. Scope checks are allow-list only; nothing is
// ever inferred from a role.
const (
	ScopeUserRead      = "user:read"
	ScopeUserCreate    = "user:create"
	ScopeUserUpdate    = "user:update"
	ScopeUserDelete    = "user:delete"
	ScopeInviteSend    = "invite:send"
	ScopeSessionCreate = "session:create"
)

// ValidScopes lists every scope a token may be issued for.
var ValidScopes = []string{
	ScopeUserRead,
	ScopeUserCreate,
	ScopeUserUpdate,
	ScopeUserDelete,
	ScopeInviteSend,
	ScopeSessionCreate,
}

// Verification failure kinds. They map to distinct server-side log lines
// but all surface to the caller as a 401 with a short reason.
var (
	ErrTokenInvalid     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrAudienceMismatch = errors.New("invalid audience")
)

// Payload is the verified content of a service token.
type Payload struct {
	Issuer    string   `json:"iss"`
	Audience  string   `json:"aud"`
	Scopes    []string `json:"scope"`
	IssuedAt  int64    `json:"iat"`
	ExpiresAt int64    `json:"exp"`
}

// HasScope checks if the token was granted a specific scope.
func (p *Payload) HasScope(scope string) bool {
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Authority issues and verifies signed, stateless service-to-service tokens.
// There is no revocation list; compromise mitigation is short TTLs plus the
// proof-of-possession layer in Verifier.
type Authority struct {
	secret   []byte
	audience string
	nowTime  func() time.Time
}

type AuthorityOption func(*Authority)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthorityOption {
	return func(a *Authority) {
		a.nowTime = nowFunc
	}
}

func NewAuthority(secret, audience string, options ...AuthorityOption) (*Authority, error) {
	if secret == "" {
		return nil, errors.New("[serviceauth.NewAuthority] signing secret is required")
	}
	if audience == "" {
		return nil, errors.New("[serviceauth.NewAuthority] audience is required")
	}

	a := &Authority{
		secret:   []byte(secret),
		audience: audience,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(a)
	}
	return a, nil
}

// Issue produces a signed token asserting issuer, the fixed audience, the
// granted scopes and an expiry of now + ttl.
func (a *Authority) Issue(issuer string, scopes []string, ttl time.Duration) (string, error) {
	now := a.nowTime()
	claims := jwt.MapClaims{
		"iss":   issuer,
		"aud":   a.audience,
		"scope": scopes,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
		"jti":   uuid.New().String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", errors.Wrap(err, "[Authority.Issue] SignedString")
	}
	return signed, nil
}

// Verify checks signature, expiry, audience and structural presence of the
// issuer/audience/scope fields, in that order.
func (a *Authority) Verify(rawToken string) (*Payload, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.nowTime),
	)

	token, err := parser.Parse(rawToken, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	iss, _ := claims["iss"].(string)
	aud, _ := claims["aud"].(string)
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)

	scopeClaim, hasScope := claims["scope"].([]any)
	if iss == "" || aud == "" || !hasScope {
		return nil, ErrTokenInvalid
	}
	if aud != a.audience {
		return nil, ErrAudienceMismatch
	}

	return &Payload{
		Issuer:    iss,
		Audience:  aud,
		Scopes:    utils.ToStringSlice(scopeClaim),
		IssuedAt:  int64(iat),
		ExpiresAt: int64(exp),
	}, nil
}
