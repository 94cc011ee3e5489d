package server

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/pkg/errors"

	"github.com/clientportal/portal-auth/accounts"
	"github.com/clientportal/portal-auth/internal/config"
	"github.com/clientportal/portal-auth/serviceauth"
	"github.com/clientportal/portal-auth/serviceclients"
)

const defaultAdminName = "System Administrator"

// InitialiseSystem seeds the admin account and the bootstrap service client
// so a fresh deployment is usable without manual data fixes. Both steps are
// idempotent: existing records are left untouched on restart.
func (s *Server) InitialiseSystem(cfg config.Config) error {
	// Step 1: Create or keep the super admin account
	adminPassword, err := s.initialiseAdminAccount(cfg)
	if err != nil {
		return errors.Wrap(err, "[Server.InitialiseSystem] failed to bootstrap admin account")
	}

	// Step 2: Create or keep the primary backend service client
	clientSecret, err := s.initialiseServiceClient(cfg)
	if err != nil {
		return errors.Wrap(err, "[Server.InitialiseSystem] failed to bootstrap service client")
	}

	if adminPassword != "" {
		s.logger.Info().
			Str("email", cfg.GetBootstrapAdminEmail()).
			Str("password", adminPassword).
			Msg("generated admin credentials, change on first login")
	}
	if clientSecret != "" {
		s.logger.Info().
			Str("clientID", cfg.GetBootstrapServiceClientID()).
			Str("clientSecret", clientSecret).
			Msg("generated service client secret")
	}
	return nil
}

// initialiseAdminAccount seeds a claimed ADMIN account. Returns the
// generated password on first creation, empty when one was configured or
// the account already exists.
func (s *Server) initialiseAdminAccount(cfg config.Config) (string, error) {
	email := cfg.GetBootstrapAdminEmail()
	if _, err := s.repos.Accounts.GetByEmail(email); err == nil {
		return "", nil
	} else if !errors.Is(err, accounts.ErrNotFound) {
		return "", errors.Wrap(err, "[Server.initialiseAdminAccount] repo.GetByEmail")
	}

	password := cfg.GetBootstrapAdminPassword()
	generated := ""
	if password == "" {
		random, err := randomSecret(18)
		if err != nil {
			return "", errors.Wrap(err, "[Server.initialiseAdminAccount] randomSecret")
		}
		password = random
		generated = random
	}

	hasher := accounts.NewHasher(cfg.GetPasswordPepper(), cfg.GetBcryptCost())
	hash, err := hasher.Hash(password)
	if err != nil {
		return "", errors.Wrap(err, "[Server.initialiseAdminAccount] hasher.Hash")
	}

	admin := &accounts.Account{
		Name:         defaultAdminName,
		Email:        email,
		Role:         accounts.RoleAdmin,
		PasswordHash: hash,
		Claimed:      true,
	}
	if err := s.repos.Accounts.Create(admin); err != nil {
		return "", errors.Wrap(err, "[Server.initialiseAdminAccount] repo.Create")
	}
	return generated, nil
}

// initialiseServiceClient registers the main backend caller with the full
// scope set. Returns the generated secret on first creation.
func (s *Server) initialiseServiceClient(cfg config.Config) (string, error) {
	clientID := cfg.GetBootstrapServiceClientID()
	if _, err := s.repos.ServiceClients.Get(clientID); err == nil {
		return "", nil
	} else if !errors.Is(err, serviceclients.ErrNotFound) {
		return "", errors.Wrap(err, "[Server.initialiseServiceClient] repo.Get")
	}

	secret := cfg.GetBootstrapServiceClientSecret()
	generated := ""
	if secret == "" {
		random, err := randomSecret(32)
		if err != nil {
			return "", errors.Wrap(err, "[Server.initialiseServiceClient] randomSecret")
		}
		secret = random
		generated = random
	}

	client := &serviceclients.Client{
		ID:            clientID,
		Name:          "Primary Application Backend",
		Description:   "Bootstrap client for the main application",
		PlainSecret:   secret,
		Active:        true,
		AllowedScopes: append([]string(nil), serviceauth.ValidScopes...),
	}
	if err := s.repos.ServiceClients.Upsert(client); err != nil {
		return "", errors.Wrap(err, "[Server.initialiseServiceClient] repo.Upsert")
	}
	return generated, nil
}

func randomSecret(byteLength int) (string, error) {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
