package config

type Config interface {
	EnvConfig
	CorsConfig
	AuthConfig
	ServiceAuthConfig
}

type mainConfig struct {
	EnvVars
	Cors
	Auth
	ServiceAuth
}

func New() Config {
	return mainConfig{}
}
