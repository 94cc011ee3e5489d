package accounts_test

import (
	"testing"
	"time"

	"github.com/clientportal/portal-auth/accounts"
	"github.com/clientportal/portal-auth/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{name: "valid password", password: "Password1", wantErr: ""},
		{name: "too short", password: "Pass1", wantErr: "at least 8 characters"},
		{name: "no uppercase", password: "password1", wantErr: "uppercase"},
		{name: "no lowercase", password: "PASSWORD1", wantErr: "lowercase"},
		{name: "no number", password: "Passwords", wantErr: "number"},
		{name: "unicode letters count", password: "Ségur1té", wantErr: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := accounts.ValidatePasswordStrength(tc.password)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestInvitable(t *testing.T) {
	now := time.Now()
	token := "claim-token"

	tests := []struct {
		name    string
		account accounts.Account
		want    bool
	}{
		{
			name: "unclaimed with live token",
			account: accounts.Account{
				ClaimToken:        &token,
				ClaimTokenExpires: utils.Ptr(now.Add(time.Hour)),
			},
			want: true,
		},
		{
			name: "claimed account",
			account: accounts.Account{
				Claimed:           true,
				ClaimToken:        &token,
				ClaimTokenExpires: utils.Ptr(now.Add(time.Hour)),
			},
			want: false,
		},
		{
			name: "expired token",
			account: accounts.Account{
				ClaimToken:        &token,
				ClaimTokenExpires: utils.Ptr(now.Add(-time.Minute)),
			},
			want: false,
		},
		{
			name:    "no token at all",
			account: accounts.Account{},
			want:    false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.account.Invitable(now))
		})
	}
}

func TestIsAdmin(t *testing.T) {
	admin := accounts.Account{Role: accounts.RoleAdmin}
	user := accounts.Account{Role: accounts.RoleUser}
	require.True(t, admin.IsAdmin())
	require.False(t, user.IsAdmin())
}

func TestHasherVerify(t *testing.T) {
	hasher := accounts.NewHasher("test-pepper", 4)

	hash, err := hasher.Hash("Password1")
	require.NoError(t, err)
	require.NotEqual(t, "Password1", hash)

	require.True(t, hasher.Verify("Password1", hash))
	require.False(t, hasher.Verify("Password2", hash))
}

func TestHasherPepperChangesOutcome(t *testing.T) {
	hasher := accounts.NewHasher("pepper-a", 4)
	otherPepper := accounts.NewHasher("pepper-b", 4)

	hash, err := hasher.Hash("Password1")
	require.NoError(t, err)

	// The same password under a different pepper must not verify.
	require.False(t, otherPepper.Verify("Password1", hash))
}

func TestHasherClampsCost(t *testing.T) {
	// An out-of-range cost must not panic or error at hash time.
	hasher := accounts.NewHasher("pepper", 99)
	hash, err := hasher.Hash("Password1")
	require.NoError(t, err)
	require.True(t, hasher.Verify("Password1", hash))
}
