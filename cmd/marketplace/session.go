package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrsteele09/go-marketplace-client/internal/config"
	"github.com/jrsteele09/go-marketplace-client/sessions"
	"github.com/rs/zerolog/log"
)

// openSessionKV picks the session backend and seals it when a secret is configured.
func openSessionKV(cfg config.Config) (*sessions.Store, func() error, error) {
	var (
		kv      sessions.KV
		closeKV = func() error { return nil }
	)
	switch backend := cfg.GetSessionBackend(); backend {
	case config.SessionBackendFile:
		path := cfg.GetSessionFile()
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("creating session folder: %w", err)
		}
		kv = sessions.NewFileKV(path)
	case config.SessionBackendRedis:
		client := sessions.NewRedisClient(cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisDB())
		kv = sessions.NewRedisKV(client)
		closeKV = client.Close
	case config.SessionBackendMemory:
		kv = sessions.NewMemoryKV()
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", backend)
	}

	if secret := cfg.GetSessionSecret(); secret != "" {
		sealed, err := sessions.NewSealedKV(kv, secret)
		if err != nil {
			_ = closeKV()
			return nil, nil, err
		}
		kv = sealed
	} else if cfg.GetSessionBackend() != config.SessionBackendMemory {
		log.Debug().Msg("SESSION_SECRET not set, session stored unsealed")
	}
	return sessions.NewStore(kv), closeKV, nil
}
