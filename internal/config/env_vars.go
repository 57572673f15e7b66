package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	portEnvVar           = "PORT"
	appNameVar           = "APP_NAME"
	folderEnvVar         = "FOLDER"
	apiURLVar            = "MARKETPLACE_API_URL"
	mediaURLVar          = "MEDIA_URL"
	logLevelVar          = "LOG_LEVEL"
	sessionBackendVar    = "SESSION_BACKEND"
	sessionFileVar       = "SESSION_FILE"
	sessionSecretVar     = "SESSION_SECRET"
	redisAddrVar         = "REDIS_ADDR"
	redisPasswordVar     = "REDIS_PASSWORD"
	redisDBVar           = "REDIS_DB"
	DefaultAPIBaseURL    = "http://localhost:8000/api"
	SessionBackendFile   = "file"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

var (
	fileValues     map[string]string
	fileValuesLock sync.RWMutex
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8000")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Marketplace")
}

func (EnvVars) GetEnv() string {
	return GetEnv("ENV", "DEV")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetAPIBaseURL returns the REST backend root, e.g. "http://localhost:8000/api".
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiURLVar, DefaultAPIBaseURL), "/")
}

func (EnvVars) GetMediaURL() string {
	return GetEnv(mediaURLVar, "/media/")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

// GetSessionBackend is one of file, redis or memory.
func (EnvVars) GetSessionBackend() string {
	return strings.ToLower(GetEnv(sessionBackendVar, SessionBackendFile))
}

func (e EnvVars) GetSessionFile() string {
	return GetEnv(sessionFileVar, e.GetDataFolder()+"/session.json")
}

// GetSessionSecret enables sealing of the persisted session when non-empty.
func (EnvVars) GetSessionSecret() string {
	return GetEnv(sessionSecretVar, "")
}

func (EnvVars) GetRedisAddr() string {
	return GetEnv(redisAddrVar, "localhost:6379")
}

func (EnvVars) GetRedisPassword() string {
	return GetEnv(redisPasswordVar, "")
}

func (EnvVars) GetRedisDB() int {
	return GetEnvInt(redisDBVar, 0)
}

// GetEnv resolves a variable from the environment, then from a loaded config file,
// then falls back to defaultValue.
func GetEnv(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	fileValuesLock.RLock()
	value, ok := fileValues[envVar]
	fileValuesLock.RUnlock()
	if ok && value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(envVar string, defaultValue int) int {
	v, err := strconv.Atoi(GetEnv(envVar, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(GetEnv(envVar, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

// LoadFile reads a flat YAML map of variable names to values. Environment variables
// still take precedence over anything in the file.
func LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "[config.LoadFile] read")
	}
	values := make(map[string]string)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return errors.Wrap(err, "[config.LoadFile] parse")
	}
	fileValuesLock.Lock()
	fileValues = values
	fileValuesLock.Unlock()
	return nil
}

// ResetFile drops values loaded by LoadFile.
func ResetFile() {
	fileValuesLock.Lock()
	fileValues = nil
	fileValuesLock.Unlock()
}
