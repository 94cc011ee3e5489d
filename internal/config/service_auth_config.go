package config

import "time"

type ServiceAuthConfig interface {
	GetServiceJWTSecret() string
	GetServiceAudience() string
	GetServiceTokenTTL() time.Duration
	GetProofTimestampWindow() time.Duration
	GetBootstrapServiceClientID() string
	GetBootstrapServiceClientSecret() string
}

type ServiceAuth struct{}

var _ ServiceAuthConfig = ServiceAuth{}

func (ServiceAuth) GetServiceJWTSecret() string {
	return GetEnv("SERVICE_JWT_SECRET", "")
}

// GetServiceAudience is the fixed audience every inbound service token
// must carry.
func (ServiceAuth) GetServiceAudience() string {
	return GetEnv("SERVICE_AUDIENCE", "client-portal")
}

func (ServiceAuth) GetServiceTokenTTL() time.Duration {
	return durationEnv("SERVICE_TOKEN_TTL", 24*time.Hour)
}

// GetProofTimestampWindow is the replay tolerance for the proof-of-possession
// handshake, applied symmetrically in both directions.
func (ServiceAuth) GetProofTimestampWindow() time.Duration {
	return durationEnv("PROOF_TIMESTAMP_WINDOW", 5*time.Minute)
}

func (ServiceAuth) GetBootstrapServiceClientID() string {
	return GetEnv("BOOTSTRAP_SERVICE_CLIENT_ID", "main-app")
}

func (ServiceAuth) GetBootstrapServiceClientSecret() string {
	return GetEnv("BOOTSTRAP_SERVICE_CLIENT_SECRET", "")
}
