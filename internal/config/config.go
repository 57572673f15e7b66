package config

import "time"

type Config interface {
	EnvConfig
	HTTPConfig
	CacheConfig
	CorsConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetAPIBaseURL() string
	GetMediaURL() string
	GetDataFolder() string
	GetSessionBackend() string
	GetSessionFile() string
	GetSessionSecret() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type HTTPConfig interface {
	GetRequestTimeout() time.Duration
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	HTTP
	Cache
	Cors
	Security
}

func New() Config {
	return mainConfig{}
}
