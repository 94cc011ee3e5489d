package tempsession_test

import (
	"testing"
	"time"

	"github.com/clientportal/portal-auth/accounts"
	fakeaccountrepo "github.com/clientportal/portal-auth/accounts/repofake"
	"github.com/clientportal/portal-auth/claims"
	"github.com/clientportal/portal-auth/tempsession"
	fakesessionrepo "github.com/clientportal/portal-auth/tempsession/repofake"
	"github.com/stretchr/testify/require"
)

const (
	testEmail = "jane.doe@example.com"
	testTTL   = 24 * time.Hour
)

type testFixture struct {
	accountRepo *fakeaccountrepo.FakeAccountRepo
	sessionRepo *fakesessionrepo.FakeSessionRepo
	claims      *claims.Manager
	manager     *tempsession.Manager
	now         time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		accountRepo: fakeaccountrepo.NewFakeAccountRepo(),
		sessionRepo: fakesessionrepo.NewFakeSessionRepo(),
		now:         time.Now(),
	}
	nowFunc := func() time.Time { return f.now }

	claimManager, err := claims.NewManager(
		f.accountRepo,
		accounts.NewHasher("test-pepper", 4),
		claims.WithNowTime(nowFunc),
	)
	require.NoError(t, err)
	f.claims = claimManager

	manager, err := tempsession.NewManager(
		f.sessionRepo,
		f.accountRepo,
		claimManager,
		tempsession.WithNowTime(nowFunc),
	)
	require.NoError(t, err)
	f.manager = manager

	return f
}

func (f *testFixture) invite(t *testing.T, email string, role accounts.Role) (*accounts.Account, string) {
	t.Helper()
	account, token, err := f.claims.Issue("Test User", email, "", role, testTTL)
	require.NoError(t, err)
	return account, token
}

func TestCreateFromClaim(t *testing.T) {
	f := setupTestFixture(t)
	account, token := f.invite(t, testEmail, accounts.RoleUser)

	session, err := f.manager.CreateFromClaim(token)
	require.NoError(t, err)
	require.Equal(t, account.ID, session.AccountID)
	require.Len(t, session.Token, 64)
	require.Equal(t, f.now.Add(time.Hour), session.ExpiresAt)

	// the claim token stays valid for a later real claim
	_, err = f.claims.Validate(token)
	require.NoError(t, err)
}

func TestCreateFromClaimRejectsAdminInvitee(t *testing.T) {
	f := setupTestFixture(t)
	_, token := f.invite(t, testEmail, accounts.RoleAdmin)

	_, err := f.manager.CreateFromClaim(token)
	require.ErrorIs(t, err, tempsession.ErrAdminNotAllowed)
	require.Zero(t, f.sessionRepo.Count())
}

func TestCreateFromClaimRejectsInvalidToken(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.manager.CreateFromClaim("no-such-token")
	require.ErrorIs(t, err, claims.ErrInvalidClaim)
}

func TestCreateForAccountClampsTTL(t *testing.T) {
	f := setupTestFixture(t)
	account, _ := f.invite(t, testEmail, accounts.RoleUser)

	tests := []struct {
		name      string
		requested time.Duration
		want      time.Duration
	}{
		{name: "below minimum", requested: time.Minute, want: time.Hour},
		{name: "zero", requested: 0, want: time.Hour},
		{name: "in range", requested: 6 * time.Hour, want: 6 * time.Hour},
		{name: "above maximum", requested: 48 * time.Hour, want: 24 * time.Hour},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			session, err := f.manager.CreateForAccount(account.ID, tc.requested)
			require.NoError(t, err)
			require.Equal(t, f.now.Add(tc.want), session.ExpiresAt)
		})
	}
}

func TestCreateForAccountRejectsAdmin(t *testing.T) {
	f := setupTestFixture(t)
	admin, _ := f.invite(t, "admin@example.com", accounts.RoleAdmin)

	_, err := f.manager.CreateForAccount(admin.ID, time.Hour)
	require.ErrorIs(t, err, tempsession.ErrAdminNotAllowed)
}

func TestValidateExpiredSessionIsDeleted(t *testing.T) {
	f := setupTestFixture(t)
	_, token := f.invite(t, testEmail, accounts.RoleUser)

	session, err := f.manager.CreateFromClaim(token)
	require.NoError(t, err)
	require.Equal(t, 1, f.sessionRepo.Count())

	f.now = f.now.Add(time.Hour + time.Second)

	_, _, err = f.manager.Validate(session.Token)
	require.ErrorIs(t, err, tempsession.ErrInvalidSession)
	require.Zero(t, f.sessionRepo.Count())
}

func TestValidateRejectsEscalatedAccount(t *testing.T) {
	f := setupTestFixture(t)
	account, token := f.invite(t, testEmail, accounts.RoleUser)

	session, err := f.manager.CreateFromClaim(token)
	require.NoError(t, err)

	// the account gains ADMIN after the session was issued
	stored, err := f.accountRepo.GetByID(account.ID)
	require.NoError(t, err)
	stored.Role = accounts.RoleAdmin
	require.NoError(t, f.accountRepo.Update(stored))

	_, _, err = f.manager.Validate(session.Token)
	require.ErrorIs(t, err, tempsession.ErrInvalidSession)
}

func TestValidateDeletedAccountInvalidatesSession(t *testing.T) {
	f := setupTestFixture(t)
	account, token := f.invite(t, testEmail, accounts.RoleUser)

	session, err := f.manager.CreateFromClaim(token)
	require.NoError(t, err)

	require.NoError(t, f.accountRepo.Delete(account.ID))

	_, _, err = f.manager.Validate(session.Token)
	require.ErrorIs(t, err, tempsession.ErrInvalidSession)
	require.Zero(t, f.sessionRepo.Count())
}

func TestRevokeIsIdempotent(t *testing.T) {
	f := setupTestFixture(t)
	_, token := f.invite(t, testEmail, accounts.RoleUser)

	session, err := f.manager.CreateFromClaim(token)
	require.NoError(t, err)

	require.NoError(t, f.manager.Revoke(session.Token))
	require.NoError(t, f.manager.Revoke(session.Token))
	require.NoError(t, f.manager.Revoke(""))
	require.Zero(t, f.sessionRepo.Count())
}

func TestRevokeAllForAccount(t *testing.T) {
	f := setupTestFixture(t)
	account, token := f.invite(t, testEmail, accounts.RoleUser)
	other, _ := f.invite(t, "other@example.com", accounts.RoleUser)

	_, err := f.manager.CreateFromClaim(token)
	require.NoError(t, err)
	_, err = f.manager.CreateForAccount(account.ID, time.Hour)
	require.NoError(t, err)
	otherSession, err := f.manager.CreateForAccount(other.ID, time.Hour)
	require.NoError(t, err)
	require.Equal(t, 3, f.sessionRepo.Count())

	require.NoError(t, f.manager.RevokeAllForAccount(account.ID))
	require.Equal(t, 1, f.sessionRepo.Count())

	_, _, err = f.manager.Validate(otherSession.Token)
	require.NoError(t, err)
}
