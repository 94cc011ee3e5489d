package server

import (
	"net/http"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/clientportal/portal-auth/accounts"
	"github.com/clientportal/portal-auth/auth"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

func (r registerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.By(passwordStrength)),
	)
}

func passwordStrength(value interface{}) error {
	password, _ := value.(string)
	return accounts.ValidatePasswordStrength(password)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type grantLoginRequest struct {
	Grant string `json:"grant"`
}

func (r grantLoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Grant, validation.Required),
	)
}

type consumeClaimRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (r consumeClaimRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

// RegisterHandler is public self-registration: a claimed USER account is
// created straight from name/email/password, no invitation involved.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		account, err := s.auth.Register(req.Name, req.Email, req.Phone, req.Password)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "User created successfully",
			"user": map[string]any{
				"id":    account.ID,
				"name":  account.Name,
				"email": account.Email,
				"role":  account.Role,
			},
		})
	}
}

// LoginHandler opens a credential session from an email/password pair.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		session, err := s.auth.Login(req.Email, req.Password)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		s.setSessionCookie(w, credSessionCookie, session.Token, session.ExpiresAt)
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"expires_at": session.ExpiresAt,
		})
	}
}

// LogoutHandler tears down the credential session and clears its cookie.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.Logout(cookieValue(r, credSessionCookie)); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		s.clearSessionCookie(w, credSessionCookie)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// GrantLoginHandler exchanges a single-use login grant, issued when an
// account is claimed, for a credential session.
func (s *Server) GrantLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req grantLoginRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		session, err := s.auth.RedeemLoginGrant(req.Grant)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		s.setSessionCookie(w, credSessionCookie, session.Token, session.ExpiresAt)
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"expires_at": session.ExpiresAt,
		})
	}
}

// SessionCheckHandler reports the resolved identity and its capability
// bundle. Unauthenticated is a normal 200 response, not an error.
func (s *Server) SessionCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := s.resolveRequest(r)
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": session != nil,
			"session":       session,
			"permissions":   auth.CheckPermissions(session),
		})
	}
}

// ValidateClaimHandler returns an account preview for a valid claim token.
func (s *Server) ValidateClaimHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			writeError(w, http.StatusBadRequest, "Token is required")
			return
		}

		account, err := s.claims.Validate(token)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"valid": true,
			"user": map[string]any{
				"id":                  account.ID,
				"name":                account.Name,
				"email":               account.Email,
				"role":                account.Role,
				"claim_token_expires": account.ClaimTokenExpires,
			},
		})
	}
}

// ConsumeClaimHandler claims the account: sets the password, clears the
// token and hands back a single-use login grant so the caller can open a
// credential session without resending the password.
func (s *Server) ConsumeClaimHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req consumeClaimRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		account, err := s.claims.Consume(req.Token, req.Password)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		grant, err := s.auth.IssueLoginGrant(account.ID)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Account claimed successfully",
			"user": map[string]any{
				"id":    account.ID,
				"name":  account.Name,
				"email": account.Email,
				"role":  account.Role,
			},
			"auto_login": map[string]any{
				"grant":      grant.Token,
				"expires_at": grant.ExpiresAt,
			},
		})
	}
}

// ContinueHandler is the continue-without-claiming path: a valid claim
// token yields a one-hour temporary session and its cookie, leaving the
// claim token untouched.
func (s *Server) ContinueHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			writeError(w, http.StatusBadRequest, "Token required")
			return
		}

		session, err := s.temp.CreateFromClaim(token)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		account, err := s.repos.Accounts.GetByID(session.AccountID)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		s.setSessionCookie(w, tempSessionCookie, session.Token, session.ExpiresAt)
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"user": map[string]any{
				"id":    account.ID,
				"email": account.Email,
				"name":  account.Name,
				"role":  account.Role,
			},
			"expires_at":  session.ExpiresAt.Format(time.RFC3339),
			"redirect_to": "/dashboard",
		})
	}
}

// LogoutTempHandler revokes the temporary session and clears its cookie.
// Revoking an absent session still succeeds.
func (s *Server) LogoutTempHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.temp.Revoke(cookieValue(r, tempSessionCookie)); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		s.clearSessionCookie(w, tempSessionCookie)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// LinkLoginHandler is the invitation-link entry point: a valid token
// redirects to the claim page, anything else back to sign-in with a
// generic error.
func (s *Server) LinkLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Redirect(w, r, "/auth/signin?error=missing-token", http.StatusSeeOther)
			return
		}
		if _, err := s.claims.Validate(token); err != nil {
			http.Redirect(w, r, "/auth/signin?error=invalid-token", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/auth/claim?token="+url.QueryEscape(token), http.StatusSeeOther)
	}
}
