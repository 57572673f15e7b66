package config

import "time"

type SecurityConfig interface {
	GetJWTSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshSkew() time.Duration
	GetRateLimit() (rps float64, burst int)
	GetMaxUploadSize() int64
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetJWTSecret() string {
	return GetEnv("JWT_SECRET", "dev-secret-change-me")
}

// Lifetimes mirror SimpleJWT's defaults.
func (Security) GetAccessTokenExpiry() time.Duration {
	return GetEnvDuration("ACCESS_TOKEN_EXPIRY", 5*time.Minute)
}

func (Security) GetRefreshTokenExpiry() time.Duration {
	return GetEnvDuration("REFRESH_TOKEN_EXPIRY", 24*time.Hour)
}

// GetRefreshSkew is how long before expiry the client refreshes proactively.
func (Security) GetRefreshSkew() time.Duration {
	return 30 * time.Second
}

func (Security) GetRateLimit() (float64, int) {
	return float64(GetEnvInt("RATE_LIMIT_RPS", 20)), GetEnvInt("RATE_LIMIT_BURST", 40)
}

func (Security) GetMaxUploadSize() int64 {
	return 5 * 1024 * 1024
}
