package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// User auth routes
	RouteAuthRegister   = "/api/auth/register"
	RouteAuthLogin      = "/api/auth/login"
	RouteAuthLogout     = "/api/auth/logout"
	RouteAuthGrantLogin = "/api/auth/grant-login"
	RouteAuthSession    = "/api/auth/session"

	// Claim / invitation routes
	RouteAuthClaim      = "/api/auth/claim"
	RouteAuthContinue   = "/api/auth/continue"
	RouteAuthLogoutTemp = "/api/auth/logout-temp"
	RouteAuthLinkLogin  = "/api/auth/link-login"

	// Admin routes
	RouteAdminInvite = "/api/admin/invite"
	RouteUsers       = "/api/users"
	RouteUserByID    = "/api/users/{id}"

	// Service routes (machine callers, no user identity)
	RouteServiceToken       = "/api/service/token"
	RouteServiceUsers       = "/api/service/users"
	RouteServiceInvites     = "/api/service/invites"
	RouteServiceSessions    = "/api/service/sessions"
	RouteServiceSecureUsers = "/api/service/secure/users"
)

// Cookie names
const (
	credSessionCookie = "portal-session"
	tempSessionCookie = "temp-session-token"
)
