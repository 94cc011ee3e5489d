package server

import "github.com/clientportal/portal-auth/serviceauth"

func (s *Server) initRoutes() {
	// User auth
	s.RegisterRouteFunc("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthGrantLogin, ChainMiddleware(s.GrantLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAuthSession, ChainMiddleware(s.SessionCheckHandler(), s.APIMiddleware()...))

	// Claim / invitation flows
	s.RegisterRouteFunc("GET "+RouteAuthClaim, ChainMiddleware(s.ValidateClaimHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthClaim, ChainMiddleware(s.ConsumeClaimHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAuthContinue, ChainMiddleware(s.ContinueHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthLogoutTemp, ChainMiddleware(s.LogoutTempHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAuthLinkLogin, ChainMiddleware(s.LinkLoginHandler(), s.APIMiddleware()...))

	// Admin (credential-authenticated admins only, never temp sessions)
	s.RegisterRouteFunc("POST "+RouteAdminInvite, ChainMiddleware(s.InviteHandler(), s.adminAPI()...))
	s.RegisterRouteFunc("GET "+RouteUsers, ChainMiddleware(s.ListUsersHandler(), s.adminAPI()...))
	s.RegisterRouteFunc("GET "+RouteUserByID, ChainMiddleware(s.GetUserHandler(), s.adminAPI()...))
	s.RegisterRouteFunc("PUT "+RouteUserByID, ChainMiddleware(s.UpdateUserHandler(), s.adminAPI()...))
	s.RegisterRouteFunc("DELETE "+RouteUserByID, ChainMiddleware(s.DeleteUserHandler(), s.adminAPI()...))

	// Service-to-service (bearer token; secure variant adds proof headers)
	s.RegisterRouteFunc("POST "+RouteServiceToken, ChainMiddleware(s.ServiceTokenHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteServiceUsers, ChainMiddleware(s.ServiceListUsersHandler(), s.serviceAPI(serviceauth.ScopeUserRead)...))
	s.RegisterRouteFunc("POST "+RouteServiceUsers, ChainMiddleware(s.ServiceCreateUserHandler(), s.serviceAPI(serviceauth.ScopeUserCreate)...))
	s.RegisterRouteFunc("POST "+RouteServiceInvites, ChainMiddleware(s.ServiceInviteHandler(), s.serviceAPI(serviceauth.ScopeInviteSend)...))
	s.RegisterRouteFunc("POST "+RouteServiceSessions, ChainMiddleware(s.ServiceCreateSessionHandler(), s.serviceAPI(serviceauth.ScopeSessionCreate)...))
	s.RegisterRouteFunc("GET "+RouteServiceSecureUsers, ChainMiddleware(s.ServiceListUsersHandler(), s.enhancedAPI(serviceauth.ScopeUserRead)...))
	s.RegisterRouteFunc("POST "+RouteServiceSecureUsers, ChainMiddleware(s.ServiceCreateUserHandler(), s.enhancedAPI(serviceauth.ScopeUserCreate)...))
}

func (s *Server) adminAPI() []Middleware {
	mw := s.APIMiddleware()
	return append(mw, s.RequireSession(), s.RequireAdmin())
}

func (s *Server) serviceAPI(scope string) []Middleware {
	mw := s.APIMiddleware()
	return append(mw, s.RequireServiceToken(scope))
}

func (s *Server) enhancedAPI(scope string) []Middleware {
	mw := s.APIMiddleware()
	return append(mw, s.RequireServiceToken(scope), s.RequireProof(scope))
}
