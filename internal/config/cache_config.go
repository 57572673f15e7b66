package config

import "time"

type CacheConfig interface {
	GetDefaultStaleTime() time.Duration
	GetDashboardStaleTime() time.Duration
	GetDashboardRetries() int
	GetGCTime() time.Duration
	GetDashboardRefreshInterval() time.Duration
}

type Cache struct{}

var _ CacheConfig = Cache{}

// GetDefaultStaleTime of zero means list data is refetched on every access once it has settled.
func (Cache) GetDefaultStaleTime() time.Duration {
	return GetEnvDuration("CACHE_STALE_TIME", 0)
}

func (Cache) GetDashboardStaleTime() time.Duration {
	return 5 * time.Minute
}

func (Cache) GetDashboardRetries() int {
	return 2
}

func (Cache) GetGCTime() time.Duration {
	return GetEnvDuration("CACHE_GC_TIME", 5*time.Minute)
}

func (Cache) GetDashboardRefreshInterval() time.Duration {
	return GetEnvDuration("DASHBOARD_REFRESH_INTERVAL", time.Minute)
}
