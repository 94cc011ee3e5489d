package auth

import (
	"time"

	"github.com/clientportal/portal-auth/accounts"
)

// AuthType is how the caller proved their identity.
type AuthType string

const (
	AuthTypeCredentials AuthType = "credentials"
	AuthTypeToken       AuthType = "token"
	AuthTypeNone        AuthType = "none"
)

// Status is the resolved authentication state.
type Status string

const (
	StatusAuthenticated      Status = "authenticated"
	StatusAuthenticatedAdmin Status = "authenticated_admin"
	StatusAuthenticatedTemp  Status = "authenticated_temporary"
	StatusUnauthenticated    Status = "unauthenticated"
)

// Identity is the account snapshot exposed to route guards. The role is the
// effective role: temp sessions always surface USER, whatever is stored.
type Identity struct {
	ID    string        `json:"id"`
	Email string        `json:"email"`
	Name  string        `json:"name,omitempty"`
	Role  accounts.Role `json:"role"`
}

// AuthSession is the authorization decision the resolver yields for a
// request.
type AuthSession struct {
	User        Identity   `json:"user"`
	AuthType    AuthType   `json:"auth_type"`
	Status      Status     `json:"status"`
	IsTemporary bool       `json:"is_temporary"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Permissions is the capability bundle derived from a resolved session.
// This is the single source of truth for the "temp sessions never equal
// admin" rule; route guards consult it instead of re-deriving role checks.
type Permissions struct {
	IsAuthenticated    bool     `json:"is_authenticated"`
	IsAdmin            bool     `json:"is_admin"`
	IsTemporary        bool     `json:"is_temporary"`
	CanAccessDashboard bool     `json:"can_access_dashboard"`
	CanAccessAdmin     bool     `json:"can_access_admin"`
	CanModifyUsers     bool     `json:"can_modify_users"`
	CanClaimAccount    bool     `json:"can_claim_account"`
	AuthType           AuthType `json:"auth_type"`
}

// CheckPermissions derives the capability bundle from a resolved session.
// A nil session is unauthenticated.
func CheckPermissions(session *AuthSession) Permissions {
	if session == nil {
		return Permissions{AuthType: AuthTypeNone}
	}
	isAdmin := session.Status == StatusAuthenticatedAdmin
	return Permissions{
		IsAuthenticated:    true,
		IsAdmin:            isAdmin,
		IsTemporary:        session.IsTemporary,
		CanAccessDashboard: true,
		CanAccessAdmin:     isAdmin,
		CanModifyUsers:     isAdmin,
		CanClaimAccount:    session.IsTemporary,
		AuthType:           session.AuthType,
	}
}
