package config

import (
	"strconv"
	"time"
)

type AuthConfig interface {
	GetPasswordPepper() string
	GetBcryptCost() int
	GetClaimTokenTTL() time.Duration
	GetTempSessionTTL() time.Duration
	GetCredentialSessionTTL() time.Duration
	GetLoginGrantTTL() time.Duration
}

type Auth struct{}

var _ AuthConfig = Auth{}

// GetPasswordPepper returns the process-wide secret appended to every
// password before hashing. A leaked hash database alone is not enough for
// an offline attack without it.
func (Auth) GetPasswordPepper() string {
	return GetEnv("PASSWORD_PEPPER", "default-pepper-change-in-production")
}

// GetBcryptCost returns the bcrypt cost factor. 12 puts a single
// verification in the 100-300ms range on current hardware.
func (Auth) GetBcryptCost() int {
	if v, err := strconv.Atoi(GetEnv("BCRYPT_COST", "")); err == nil && v > 0 {
		return v
	}
	return 12
}

func (Auth) GetClaimTokenTTL() time.Duration {
	return durationEnv("CLAIM_TOKEN_TTL", 24*time.Hour)
}

func (Auth) GetTempSessionTTL() time.Duration {
	return durationEnv("TEMP_SESSION_TTL", time.Hour)
}

func (Auth) GetCredentialSessionTTL() time.Duration {
	return durationEnv("CRED_SESSION_TTL", 30*24*time.Hour)
}

// GetLoginGrantTTL bounds the single-use auto-login grant issued after a
// successful account claim.
func (Auth) GetLoginGrantTTL() time.Duration {
	return durationEnv("LOGIN_GRANT_TTL", 2*time.Minute)
}

func durationEnv(envVar string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(GetEnv(envVar, "")); err == nil && v > 0 {
		return v
	}
	return defaultValue
}
