package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-marketplace-client/internal/config"
	"github.com/jrsteele09/go-marketplace-client/internal/logging"
	"github.com/jrsteele09/go-marketplace-client/server"
	"github.com/jrsteele09/go-marketplace-client/sessions"
	"github.com/jrsteele09/go-marketplace-client/token"
	"github.com/rs/zerolog/log"
)

func main() {
	configFile := flag.String("config", "", "optional YAML file of configuration values")
	adminPassword := flag.String("admin-password", os.Getenv("ADMIN_PASSWORD"), "password for the seeded admin account; generated when empty")
	redisBlacklist := flag.Bool("redis-blacklist", false, "keep the refresh token blacklist in Redis (REDIS_ADDR)")
	flag.Parse()

	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	for {
		if err := run(*configFile, *adminPassword, *redisBlacklist); err != nil {
			log.Error().Err(err).Msg("Error running mock API")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Mock API stopped")
}

func run(configFile, adminPassword string, redisBlacklist bool) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	if configFile != "" {
		if err := config.LoadFile(configFile); err != nil {
			return err
		}
	}
	c := config.New()
	logging.Setup(c.GetLogLevel(), c.GetEnv())
	displayAppname(c.GetAppName())

	var opts []server.Option
	if redisBlacklist {
		client := sessions.NewRedisClient(c.GetRedisAddr(), c.GetRedisPassword(), c.GetRedisDB())
		defer client.Close()
		opts = append(opts, server.WithIssuer(token.NewIssuer(c, token.WithBlacklist(token.NewRedisBlacklist(client, nil)))))
		log.Info().Str("addr", c.GetRedisAddr()).Msg("Refresh token blacklist in Redis")
	}

	srv, err := server.New(c, opts...)
	if err != nil {
		return err
	}
	if _, err := srv.Seed(context.Background(), adminPassword); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           srv,
		ReadHeaderTimeout: c.GetRequestTimeout(),
	}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(httpServer) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Mock API listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
