package serviceclients

import "time"

// Client is a registered backend caller. The shared secret is deliberately
// kept in plain text server-side: it must be reproduced inside the
// proof-of-possession hash, not merely compared, so a one-way digest would
// not work here.
type Client struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	PlainSecret   string    `json:"-"`
	Active        bool      `json:"active"`
	AllowedScopes []string  `json:"allowed_scopes"`
	RateLimit     int       `json:"rate_limit,omitempty"` // requests per minute, 0 = unlimited
	IPAllowlist   []string  `json:"ip_allowlist,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LastUsed      time.Time `json:"last_used,omitempty"`
}

// HasScope checks if the client is allowed a specific scope.
func (c *Client) HasScope(scope string) bool {
	for _, s := range c.AllowedScopes {
		if s == scope {
			return true
		}
	}
	return false
}

// AllowsIP reports whether the caller IP passes the allowlist. An empty
// allowlist admits every IP.
func (c *Client) AllowsIP(ip string) bool {
	if len(c.IPAllowlist) == 0 {
		return true
	}
	for _, allowed := range c.IPAllowlist {
		if allowed == ip {
			return true
		}
	}
	return false
}
