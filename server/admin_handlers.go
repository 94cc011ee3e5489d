package server

import (
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/pkg/errors"

	"github.com/clientportal/portal-auth/accounts"
	"github.com/clientportal/portal-auth/claims"
)

type inviteRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
}

func (r inviteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Role, validation.In("", string(accounts.RoleUser), string(accounts.RoleAdmin))),
	)
}

type updateUserRequest struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
}

func (r updateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(0, 200)),
		validation.Field(&r.Role, validation.In("", string(accounts.RoleUser), string(accounts.RoleAdmin))),
	)
}

// InviteHandler creates an unclaimed account and returns the claim link
// material. Admin-gated by middleware.
func (s *Server) InviteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req inviteRequest
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

		ttl := s.config.GetClaimTokenTTL()
		status := http.StatusCreated
		message := "Invitation created"

		account, token, err := s.claims.Issue(req.Name, req.Email, req.Phone, role, ttl)
		if errors.Is(err, claims.ErrEmailExists) {
			// Re-inviting an unclaimed account opens a fresh token window.
			// A claimed account stays a conflict.
			account, token, err = s.claims.Reissue(req.Email, ttl)
			status = http.StatusOK
			message = "Invitation reissued"
		}
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		writeJSON(w, status, map[string]any{
			"message": message,
			"user": map[string]any{
				"id":    account.ID,
				"name":  account.Name,
				"email": account.Email,
				"role":  account.Role,
			},
			"claim_token":   token,
			"claim_link":    "/api/auth/link-login?token=" + token,
			"token_expires": account.ClaimTokenExpires,
		})
	}
}

// ListUsersHandler pages through accounts, newest first.
func (s *Server) ListUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := queryInt(r, "page", 1)
		limit := queryInt(r, "limit", 10)
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 100 {
			limit = 10
		}

		users, err := s.repos.Accounts.List((page-1)*limit, limit)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"users": users,
			"pagination": map[string]any{
				"page":  page,
				"limit": limit,
			},
		})
	}
}

func (s *Server) GetUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := s.repos.Accounts.GetByID(r.PathValue("id"))
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": account})
	}
}

// UpdateUserHandler applies a partial update to name, phone or role.
func (s *Server) UpdateUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateUserRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := req.Validate(); err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		account, err := s.repos.Accounts.GetByID(r.PathValue("id"))
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}

		if req.Name != "" {
			account.Name = req.Name
		}
		if req.Phone != "" {
			account.Phone = req.Phone
		}
		if req.Role != "" {
			account.Role = accounts.Role(req.Role)
		}

		if err := s.repos.Accounts.Update(account); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": account})
	}
}

func (s *Server) DeleteUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.repos.Accounts.Delete(r.PathValue("id")); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func queryInt(r *http.Request, name string, defaultValue int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}
