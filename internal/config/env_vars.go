package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar = "PORT"
	appNameVar = "APP_NAME"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetRedisAddr() string
	GetBootstrapAdminEmail() string
	GetBootstrapAdminPassword() string
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Portal Auth")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetRedisAddr returns the Redis address used by the nonce replay store.
// Empty means the in-memory store is used instead.
func (EnvVars) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "")
}

func (EnvVars) GetBootstrapAdminEmail() string {
	return GetEnv("BOOTSTRAP_ADMIN_EMAIL", "admin@example.com")
}

func (EnvVars) GetBootstrapAdminPassword() string {
	return GetEnv("BOOTSTRAP_ADMIN_PASSWORD", "ChangeMe123")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
