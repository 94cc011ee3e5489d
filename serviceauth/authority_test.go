package serviceauth_test

import (
	"testing"
	"time"

	"github.com/clientportal/portal-auth/serviceauth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "service-signing-secret"
	testAudience = "client-portal"
	testIssuer   = "main-app"
)

func newAuthority(t *testing.T, now func() time.Time) *serviceauth.Authority {
	t.Helper()
	options := []serviceauth.AuthorityOption{}
	if now != nil {
		options = append(options, serviceauth.WithNowTime(now))
	}
	authority, err := serviceauth.NewAuthority(testSecret, testAudience, options...)
	require.NoError(t, err)
	return authority
}

func TestNewAuthorityRequiresSecretAndAudience(t *testing.T) {
	_, err := serviceauth.NewAuthority("", testAudience)
	require.Error(t, err)

	_, err = serviceauth.NewAuthority(testSecret, "")
	require.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Now()
	authority := newAuthority(t, func() time.Time { return now })

	scopes := []string{serviceauth.ScopeUserRead, serviceauth.ScopeInviteSend}
	token, err := authority.Issue(testIssuer, scopes, time.Hour)
	require.NoError(t, err)

	payload, err := authority.Verify(token)
	require.NoError(t, err)
	require.Equal(t, testIssuer, payload.Issuer)
	require.Equal(t, testAudience, payload.Audience)
	require.Equal(t, scopes, payload.Scopes)
	require.Equal(t, now.Unix(), payload.IssuedAt)
	require.Equal(t, now.Add(time.Hour).Unix(), payload.ExpiresAt)

	require.True(t, payload.HasScope(serviceauth.ScopeUserRead))
	require.False(t, payload.HasScope(serviceauth.ScopeUserDelete))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	authority := newAuthority(t, nil)

	other, err := serviceauth.NewAuthority("a-different-secret", testAudience)
	require.NoError(t, err)
	token, err := other.Issue(testIssuer, []string{serviceauth.ScopeUserRead}, time.Hour)
	require.NoError(t, err)

	_, err = authority.Verify(token)
	require.ErrorIs(t, err, serviceauth.ErrTokenInvalid)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	now := time.Now()
	clock := now
	authority := newAuthority(t, func() time.Time { return clock })

	token, err := authority.Issue(testIssuer, []string{serviceauth.ScopeUserRead}, time.Hour)
	require.NoError(t, err)

	clock = now.Add(time.Hour + time.Minute)
	_, err = authority.Verify(token)
	require.ErrorIs(t, err, serviceauth.ErrTokenExpired)
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	authority := newAuthority(t, nil)

	other, err := serviceauth.NewAuthority(testSecret, "some-other-portal")
	require.NoError(t, err)
	token, err := other.Issue(testIssuer, []string{serviceauth.ScopeUserRead}, time.Hour)
	require.NoError(t, err)

	_, err = authority.Verify(token)
	require.ErrorIs(t, err, serviceauth.ErrAudienceMismatch)
}

func TestVerifyRejectsMissingClaims(t *testing.T) {
	authority := newAuthority(t, nil)
	now := time.Now()

	sign := func(t *testing.T, claims jwt.MapClaims) string {
		t.Helper()
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return signed
	}

	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"iss":   testIssuer,
			"aud":   testAudience,
			"scope": []string{serviceauth.ScopeUserRead},
			"iat":   now.Unix(),
			"exp":   now.Add(time.Hour).Unix(),
		}
	}

	tests := []struct {
		name   string
		mutate func(jwt.MapClaims)
	}{
		{name: "missing issuer", mutate: func(c jwt.MapClaims) { delete(c, "iss") }},
		{name: "missing audience", mutate: func(c jwt.MapClaims) { delete(c, "aud") }},
		{name: "missing scope", mutate: func(c jwt.MapClaims) { delete(c, "scope") }},
		{name: "scope not a list", mutate: func(c jwt.MapClaims) { c["scope"] = "user:read" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			claims := base()
			tc.mutate(claims)
			_, err := authority.Verify(sign(t, claims))
			require.ErrorIs(t, err, serviceauth.ErrTokenInvalid)
		})
	}
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	authority := newAuthority(t, nil)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"iss":   testIssuer,
		"aud":   testAudience,
		"scope": []string{serviceauth.ScopeUserRead},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = authority.Verify(raw)
	require.ErrorIs(t, err, serviceauth.ErrTokenInvalid)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	authority := newAuthority(t, nil)

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := authority.Verify(raw)
		require.ErrorIs(t, err, serviceauth.ErrTokenInvalid)
	}
}
