package server

import (
	"net/http"

	"github.com/clientportal/portal-auth/accounts"
	"github.com/clientportal/portal-auth/auth"
	"github.com/clientportal/portal-auth/claims"
	"github.com/clientportal/portal-auth/internal/config"
	"github.com/clientportal/portal-auth/serviceauth"
	"github.com/clientportal/portal-auth/serviceclients"
	"github.com/clientportal/portal-auth/tempsession"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Repos bundles every persistence dependency the server wires into the
// domain services. Injected, never global, so tests can substitute fixtures.
type Repos struct {
	Accounts       accounts.Repo
	CredSessions   auth.SessionRepo
	Grants         auth.GrantRepo
	TempSessions   tempsession.Repo
	ServiceClients serviceclients.Repo
}

type Server struct {
	env    string
	mux    *http.ServeMux
	routes []string
	config config.Config
	logger zerolog.Logger

	repos     Repos
	auth      *auth.Service
	claims    *claims.Manager
	temp      *tempsession.Manager
	authority *serviceauth.Authority
	verifier  *serviceauth.Verifier
}

func New(cfg config.Config, repos Repos, nonces serviceauth.NonceStore, logger zerolog.Logger) (*Server, error) {
	if cfg.GetServiceJWTSecret() == "" {
		return nil, errors.New("[server.New] SERVICE_JWT_SECRET is required")
	}

	hasher := accounts.NewHasher(cfg.GetPasswordPepper(), cfg.GetBcryptCost())

	claimManager, err := claims.NewManager(repos.Accounts, hasher, claims.WithLogger(logger))
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] claims.NewManager")
	}

	tempManager, err := tempsession.NewManager(
		repos.TempSessions,
		repos.Accounts,
		claimManager,
		tempsession.WithTTL(cfg.GetTempSessionTTL()),
		tempsession.WithLogger(logger),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] tempsession.NewManager")
	}
	// Claiming changes the account's trust level, so it revokes any temp
	// sessions still outstanding.
	claims.WithSessionRevoker(tempManager)(claimManager)

	authService, err := auth.NewService(
		auth.Repos{Accounts: repos.Accounts, Sessions: repos.CredSessions, Grants: repos.Grants},
		tempManager,
		hasher,
		auth.WithSessionTTL(cfg.GetCredentialSessionTTL()),
		auth.WithGrantTTL(cfg.GetLoginGrantTTL()),
		auth.WithLogger(logger),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] auth.NewService")
	}

	authority, err := serviceauth.NewAuthority(cfg.GetServiceJWTSecret(), cfg.GetServiceAudience())
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] serviceauth.NewAuthority")
	}

	verifier, err := serviceauth.NewVerifier(
		repos.ServiceClients,
		nonces,
		serviceauth.WithTimestampWindow(cfg.GetProofTimestampWindow()),
		serviceauth.WithVerifierLogger(logger),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] serviceauth.NewVerifier")
	}

	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		logger:    logger,
		repos:     repos,
		auth:      authService,
		claims:    claimManager,
		temp:      tempManager,
		authority: authority,
		verifier:  verifier,
	}

	if err := s.InitialiseSystem(cfg); err != nil {
		return nil, errors.Wrap(err, "[server.New] failed to initialise the system")
	}

	s.initRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}
