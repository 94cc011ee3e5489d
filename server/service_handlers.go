package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/clientportal/portal-auth/accounts"
	"github.com/clientportal/portal-auth/serviceauth"
)

const maxListScan = 1000

type serviceTokenRequest struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	Scopes       []string `json:"scopes"`
	ExpiresIn    int      `json:"expiresIn,omitempty"` // seconds
}

func (r serviceTokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ClientID, validation.Required),
		validation.Field(&r.ClientSecret, validation.Required),
		validation.Field(&r.Scopes, validation.Required, validation.Length(1, 1000)),
	)
}

type serviceCreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
}

func (r serviceCreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Role, validation.In("", string(accounts.RoleUser), string(accounts.RoleAdmin))),
	)
}

type serviceInviteRequest struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	Role           string `json:"role,omitempty"`
	ExpiresInHours int    `json:"expiresInHours,omitempty"` // 1 hour to 1 week
}

func (r serviceInviteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Role, validation.In("", string(accounts.RoleUser), string(accounts.RoleAdmin))),
		validation.Field(&r.ExpiresInHours, validation.Min(0), validation.Max(168)),
	)
}

type serviceCreateSessionRequest struct {
	UserID         string `json:"userId,omitempty"`
	Email          string `json:"email,omitempty"`
	ExpiresInHours int    `json:"expiresInHours,omitempty"`
}

func (r serviceCreateSessionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.ExpiresInHours, validation.Min(0), validation.Max(24)),
	)
}

// ServiceTokenHandler exchanges client credentials for a scoped bearer
// token. Scopes must be recognised and individually granted to the client.
func (s *Server) ServiceTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req serviceTokenRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		client, err := s.repos.ServiceClients.Get(req.ClientID)
		if err != nil || !client.Active ||
			subtle.ConstantTimeCompare([]byte(client.PlainSecret), []byte(req.ClientSecret)) != 1 {
			s.logger.Warn().Str("clientID", req.ClientID).Msg("service token request rejected")
			writeError(w, http.StatusUnauthorized, "Invalid client credentials")
			return
		}

		for _, scope := range req.Scopes {
			if !validScope(scope) {
				writeError(w, http.StatusBadRequest, "Unknown scope: "+scope)
				return
			}
			if !client.HasScope(scope) {
				writeError(w, http.StatusForbidden, "Scope not granted to client: "+scope)
				return
			}
		}

		ttl := s.config.GetServiceTokenTTL()
		if req.ExpiresIn > 0 {
			requested := time.Duration(req.ExpiresIn) * time.Second
			if requested < ttl {
				ttl = requested
			}
		}

		token, err := s.authority.Issue(client.ID, req.Scopes, ttl)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		s.logger.Info().Str("clientID", client.ID).Strs("scopes", req.Scopes).Msg("service token issued")
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": token,
			"token_type":   "Bearer",
			"expires_in":   int(ttl.Seconds()),
			"expires_at":   time.Now().Add(ttl).UTC().Format(time.RFC3339),
			"scope":        strings.Join(req.Scopes, " "),
		})
	}
}

// ServiceListUsersHandler pages through accounts on behalf of a backend
// caller, with optional email and role filters.
func (s *Server) ServiceListUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := queryInt(r, "page", 1)
		limit := queryInt(r, "limit", 10)
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 100 {
			limit = 10
		}
		emailFilter := strings.ToLower(r.URL.Query().Get("email"))
		roleFilter := r.URL.Query().Get("role")

		var (
			users []*accounts.Account
			err   error
		)
		if emailFilter == "" && roleFilter == "" {
			users, err = s.repos.Accounts.List((page-1)*limit, limit)
		} else {
			users, err = s.filteredUsers(emailFilter, roleFilter, page, limit)
		}
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		payload := servicePayloadFromContext(r.Context())
		meta := map[string]any{"page": page, "limit": limit}
		if payload != nil {
			meta["requestedBy"] = payload.Issuer
		}
		if client := serviceClientFromContext(r.Context()); client != nil {
			meta["clientId"] = client.ID
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"users": users,
			"meta":  meta,
		})
	}
}

// filteredUsers scans up to maxListScan accounts and pages the matches.
func (s *Server) filteredUsers(email, role string, page, limit int) ([]*accounts.Account, error) {
	all, err := s.repos.Accounts.List(0, maxListScan)
	if err != nil {
		return nil, err
	}
	matched := make([]*accounts.Account, 0, limit)
	skip := (page - 1) * limit
	for _, account := range all {
		if email != "" && !strings.Contains(strings.ToLower(account.Email), email) {
			continue
		}
		if role != "" && string(account.Role) != role {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		matched = append(matched, account)
		if len(matched) == limit {
			break
		}
	}
	return matched, nil
}

// ServiceCreateUserHandler provisions an unclaimed account and returns the
// claim token so the caller can deliver the invitation itself.
func (s *Server) ServiceCreateUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req serviceCreateUserRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		role := accounts.RoleUser
		if req.Role == string(accounts.RoleAdmin) {
			role = accounts.RoleAdmin
		}

		account, token, err := s.claims.Issue(req.Name, req.Email, req.Phone, role, s.config.GetClaimTokenTTL())
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		if client := serviceClientFromContext(r.Context()); client != nil {
			s.logger.Info().
				Str("clientID", client.ID).
				Str("userID", account.ID).
				Msg("service client created user")
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"user": map[string]any{
				"id":    account.ID,
				"name":  account.Name,
				"email": account.Email,
				"role":  account.Role,
			},
			"claim_token":   token,
			"token_expires": account.ClaimTokenExpires,
		})
	}
}

// ServiceInviteHandler sends an invitation on behalf of a backend caller:
// an unclaimed account with a claim token whose window the caller picks,
// up to a week.
func (s *Server) ServiceInviteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req serviceInviteRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		role := accounts.RoleUser
		if req.Role == string(accounts.RoleAdmin) {
			role = accounts.RoleAdmin
		}
		ttl := 24 * time.Hour
		if req.ExpiresInHours > 0 {
			ttl = time.Duration(req.ExpiresInHours) * time.Hour
		}

		account, token, err := s.claims.Issue(req.Name, req.Email, "", role, ttl)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		meta := map[string]any{"timestamp": time.Now().UTC().Format(time.RFC3339)}
		if payload := servicePayloadFromContext(r.Context()); payload != nil {
			meta["invitedBy"] = payload.Issuer
			s.logger.Info().
				Str("clientID", payload.Issuer).
				Str("userID", account.ID).
				Msg("service client sent invitation")
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"user": map[string]any{
				"id":    account.ID,
				"name":  account.Name,
				"email": account.Email,
				"role":  account.Role,
			},
			"invitation": map[string]any{
				"claim_token": token,
				"claim_link":  "/api/auth/link-login?token=" + token,
				"expires_at":  account.ClaimTokenExpires,
			},
			"meta": meta,
		})
	}
}

// ServiceCreateSessionHandler mints a temporary session for an unclaimed
// account, addressed by ID or email.
func (s *Server) ServiceCreateSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req serviceCreateSessionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		if req.UserID == "" && req.Email == "" {
			writeError(w, http.StatusBadRequest, "userId or email is required")
			return
		}

		var (
			account *accounts.Account
			err     error
		)
		if req.UserID != "" {
			account, err = s.repos.Accounts.GetByID(req.UserID)
		} else {
			account, err = s.repos.Accounts.GetByEmail(req.Email)
		}
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		ttl := time.Duration(req.ExpiresInHours) * time.Hour
		session, err := s.temp.CreateForAccount(account.ID, ttl)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"session_token": session.Token,
			"expires_at":    session.ExpiresAt.UTC().Format(time.RFC3339),
			"user": map[string]any{
				"id":    account.ID,
				"name":  account.Name,
				"email": account.Email,
			},
		})
	}
}

func validScope(scope string) bool {
	for _, known := range serviceauth.ValidScopes {
		if known == scope {
			return true
		}
	}
	return false
}
