package accounts

import (
	"fmt"
	"time"
	"unicode"
)

// Role represents an account's privilege level.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Account is the identity record. An account created by invitation starts
// unclaimed: no password hash, a live claim token, Claimed false. Claiming
// sets the hash and clears the token for good, so at every observable point
// Claimed == (PasswordHash != "") == (ClaimToken == nil).
type Account struct {
	ID                string     `json:"id,omitempty"`
	Email             string     `json:"email,omitempty"`
	Name              string     `json:"name,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	Role              Role       `json:"role,omitempty"`
	PasswordHash      string     `json:"-"` // never serialize
	ClaimToken        *string    `json:"-"` // never serialize
	ClaimTokenExpires *time.Time `json:"-"`
	Claimed           bool       `json:"claimed"`
	CreatedAt         time.Time  `json:"created_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at,omitempty"`
}

// IsAdmin reports whether the account carries the ADMIN role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Invitable reports whether the account can still be claimed or continued
// with: unclaimed and holding a claim token that has not expired.
func (a *Account) Invitable(now time.Time) bool {
	return !a.Claimed && a.ClaimToken != nil && a.ClaimTokenExpires != nil && a.ClaimTokenExpires.After(now)
}

// ValidatePasswordStrength checks if a password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}
