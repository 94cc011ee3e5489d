package auth_test

import (
	"testing"
	"time"

	"github.com/clientportal/portal-auth/accounts"
	fakeaccountrepo "github.com/clientportal/portal-auth/accounts/repofake"
	"github.com/clientportal/portal-auth/auth"
	fakeauthrepo "github.com/clientportal/portal-auth/auth/repofake"
	"github.com/clientportal/portal-auth/claims"
	"github.com/clientportal/portal-auth/tempsession"
	fakesessionrepo "github.com/clientportal/portal-auth/tempsession/repofake"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "jane.doe@example.com"
	testPassword = "Password1"
	testTTL      = 24 * time.Hour
)

type testFixture struct {
	accountRepo *fakeaccountrepo.FakeAccountRepo
	sessionRepo *fakeauthrepo.FakeSessionRepo
	grantRepo   *fakeauthrepo.FakeGrantRepo
	tempRepo    *fakesessionrepo.FakeSessionRepo
	claims      *claims.Manager
	temp        *tempsession.Manager
	service     *auth.Service
	now         time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		accountRepo: fakeaccountrepo.NewFakeAccountRepo(),
		sessionRepo: fakeauthrepo.NewFakeSessionRepo(),
		grantRepo:   fakeauthrepo.NewFakeGrantRepo(),
		tempRepo:    fakesessionrepo.NewFakeSessionRepo(),
		now:         time.Now(),
	}
	nowFunc := func() time.Time { return f.now }
	hasher := accounts.NewHasher("test-pepper", 4)

	claimManager, err := claims.NewManager(f.accountRepo, hasher, claims.WithNowTime(nowFunc))
	require.NoError(t, err)
	f.claims = claimManager

	tempManager, err := tempsession.NewManager(f.tempRepo, f.accountRepo, claimManager, tempsession.WithNowTime(nowFunc))
	require.NoError(t, err)
	f.temp = tempManager

	service, err := auth.NewService(
		auth.Repos{Accounts: f.accountRepo, Sessions: f.sessionRepo, Grants: f.grantRepo},
		tempManager,
		hasher,
		auth.WithNowTime(nowFunc),
	)
	require.NoError(t, err)
	f.service = service

	return f
}

// createClaimedAccount invites and immediately claims an account so it can
// log in with credentials.
func (f *testFixture) createClaimedAccount(t *testing.T, email string, role accounts.Role) *accounts.Account {
	t.Helper()
	_, token, err := f.claims.Issue("Test User", email, "", role, testTTL)
	require.NoError(t, err)
	claimed, err := f.claims.Consume(token, testPassword)
	require.NoError(t, err)
	return claimed
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t)

	account, err := f.service.Register("Jane Doe", testEmail, "555-0100", testPassword)
	require.NoError(t, err)
	require.True(t, account.Claimed)
	require.Equal(t, accounts.RoleUser, account.Role)
	require.Nil(t, account.ClaimToken)
	require.NotEmpty(t, account.PasswordHash)

	// the fresh credentials log straight in
	session, err := f.service.Login(testEmail, testPassword)
	require.NoError(t, err)
	require.Equal(t, account.ID, session.AccountID)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Register("Jane Doe", testEmail, "", testPassword)
	require.NoError(t, err)

	_, err = f.service.Register("Someone Else", testEmail, "", "OtherPass1")
	require.ErrorIs(t, err, accounts.ErrDuplicate)

	// an invited-but-unclaimed email is taken too
	_, _, err = f.claims.Issue("Pending User", "pending@example.com", "", accounts.RoleUser, testTTL)
	require.NoError(t, err)
	_, err = f.service.Register("Pending User", "pending@example.com", "", testPassword)
	require.ErrorIs(t, err, accounts.ErrDuplicate)
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)
	account := f.createClaimedAccount(t, testEmail, accounts.RoleUser)

	session, err := f.service.Login(testEmail, testPassword)
	require.NoError(t, err)
	require.Equal(t, account.ID, session.AccountID)
	require.NotEmpty(t, session.Token)
	require.Equal(t, f.now.Add(30*24*time.Hour), session.ExpiresAt)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	f := setupTestFixture(t)
	f.createClaimedAccount(t, testEmail, accounts.RoleUser)

	// an invited but unclaimed account has no password to check
	_, _, err := f.claims.Issue("Pending User", "pending@example.com", "", accounts.RoleUser, testTTL)
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "unknown email", email: "nobody@example.com", password: testPassword},
		{name: "wrong password", email: testEmail, password: "WrongPassword1"},
		{name: "unclaimed account", email: "pending@example.com", password: testPassword},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Login(tc.email, tc.password)
			require.ErrorIs(t, err, auth.InvalidCredentialsErr)
		})
	}
}

func TestLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.createClaimedAccount(t, testEmail, accounts.RoleUser)

	session, err := f.service.Login(testEmail, testPassword)
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(session.Token))
	require.Nil(t, f.service.Resolve(session.Token, ""))

	// logging out an absent token is not an error
	require.NoError(t, f.service.Logout(session.Token))
	require.NoError(t, f.service.Logout(""))
}

func TestResolveCredentialSession(t *testing.T) {
	f := setupTestFixture(t)
	f.createClaimedAccount(t, testEmail, accounts.RoleUser)

	session, err := f.service.Login(testEmail, testPassword)
	require.NoError(t, err)

	resolved := f.service.Resolve(session.Token, "")
	require.NotNil(t, resolved)
	require.Equal(t, auth.StatusAuthenticated, resolved.Status)
	require.Equal(t, auth.AuthTypeCredentials, resolved.AuthType)
	require.False(t, resolved.IsTemporary)
	require.Equal(t, testEmail, resolved.User.Email)
}

func TestResolveAdminStatus(t *testing.T) {
	f := setupTestFixture(t)
	f.createClaimedAccount(t, testEmail, accounts.RoleAdmin)

	session, err := f.service.Login(testEmail, testPassword)
	require.NoError(t, err)

	resolved := f.service.Resolve(session.Token, "")
	require.NotNil(t, resolved)
	require.Equal(t, auth.StatusAuthenticatedAdmin, resolved.Status)
	require.True(t, auth.CheckPermissions(resolved).CanAccessAdmin)
}

func TestResolvePrefersCredentialOverTemp(t *testing.T) {
	f := setupTestFixture(t)
	f.createClaimedAccount(t, testEmail, accounts.RoleUser)

	credSession, err := f.service.Login(testEmail, testPassword)
	require.NoError(t, err)

	invited, _, err := f.claims.Issue("Other User", "other@example.com", "", accounts.RoleUser, testTTL)
	require.NoError(t, err)
	tempSession, err := f.temp.CreateForAccount(invited.ID, time.Hour)
	require.NoError(t, err)

	resolved := f.service.Resolve(credSession.Token, tempSession.Token)
	require.NotNil(t, resolved)
	require.Equal(t, auth.AuthTypeCredentials, resolved.AuthType)
	require.Equal(t, testEmail, resolved.User.Email)
}

func TestResolveTemporarySession(t *testing.T) {
	f := setupTestFixture(t)

	invited, _, err := f.claims.Issue("Pending User", testEmail, "", accounts.RoleUser, testTTL)
	require.NoError(t, err)
	tempSession, err := f.temp.CreateForAccount(invited.ID, time.Hour)
	require.NoError(t, err)

	resolved := f.service.Resolve("", tempSession.Token)
	require.NotNil(t, resolved)
	require.Equal(t, auth.StatusAuthenticatedTemp, resolved.Status)
	require.Equal(t, auth.AuthTypeToken, resolved.AuthType)
	require.True(t, resolved.IsTemporary)
	require.Equal(t, accounts.RoleUser, resolved.User.Role)

	permissions := auth.CheckPermissions(resolved)
	require.True(t, permissions.IsAuthenticated)
	require.True(t, permissions.CanClaimAccount)
	require.False(t, permissions.CanAccessAdmin)
}

func TestResolveUnauthenticated(t *testing.T) {
	f := setupTestFixture(t)

	require.Nil(t, f.service.Resolve("", ""))
	require.Nil(t, f.service.Resolve("bogus", "also-bogus"))

	permissions := auth.CheckPermissions(nil)
	require.False(t, permissions.IsAuthenticated)
	require.Equal(t, auth.AuthTypeNone, permissions.AuthType)
}

func TestResolveExpiredCredentialSessionIsDeleted(t *testing.T) {
	f := setupTestFixture(t)
	f.createClaimedAccount(t, testEmail, accounts.RoleUser)

	session, err := f.service.Login(testEmail, testPassword)
	require.NoError(t, err)

	f.now = f.now.Add(30*24*time.Hour + time.Second)
	require.Nil(t, f.service.Resolve(session.Token, ""))

	// the expired record was removed, not just skipped
	_, err = f.sessionRepo.GetByToken(session.Token)
	require.Error(t, err)
}

func TestLoginGrantSingleUse(t *testing.T) {
	f := setupTestFixture(t)
	account := f.createClaimedAccount(t, testEmail, accounts.RoleUser)

	grant, err := f.service.IssueLoginGrant(account.ID)
	require.NoError(t, err)
	require.Equal(t, f.now.Add(2*time.Minute), grant.ExpiresAt)

	session, err := f.service.RedeemLoginGrant(grant.Token)
	require.NoError(t, err)
	require.Equal(t, account.ID, session.AccountID)

	_, err = f.service.RedeemLoginGrant(grant.Token)
	require.ErrorIs(t, err, auth.InvalidGrantErr)
}

func TestLoginGrantExpires(t *testing.T) {
	f := setupTestFixture(t)
	account := f.createClaimedAccount(t, testEmail, accounts.RoleUser)

	grant, err := f.service.IssueLoginGrant(account.ID)
	require.NoError(t, err)

	f.now = f.now.Add(2*time.Minute + time.Second)
	_, err = f.service.RedeemLoginGrant(grant.Token)
	require.ErrorIs(t, err, auth.InvalidGrantErr)
}
