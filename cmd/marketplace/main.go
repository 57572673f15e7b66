package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-marketplace-client/apiclient"
	"github.com/jrsteele09/go-marketplace-client/auth"
	"github.com/jrsteele09/go-marketplace-client/hooks"
	"github.com/jrsteele09/go-marketplace-client/internal/config"
	"github.com/jrsteele09/go-marketplace-client/internal/logging"
	"github.com/jrsteele09/go-marketplace-client/query"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const usage = `usage: marketplace [-config file] <command> [args]

commands:
  login <username> <password>
  register <username> <email> <password> [first] [last]
  logout
  whoami
  refresh
  properties [-type t] [-location l] [-featured] [-mine]
  property <id>
  marketplace [-category c] [-search s] [-max-price n]
  movers [-location l] [-verified]
  bookings | quotes | purchases
  book <property-id> <name> <email> <phone> <date>
  dashboard [-admin]
  watch [-metrics-addr :9100]
  upload <file>
  health
  raw <path>
`

// app is what every command gets: the session, the cached hooks and the raw client.
type app struct {
	cfg      config.Config
	api      *apiclient.Client
	manager  *auth.Manager
	hooks    *hooks.Hooks
	registry *prometheus.Registry
	closeKV  func() error
}

func main() {
	configFile := flag.String("config", "", "optional YAML file of configuration values")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	if *configFile != "" {
		if err := config.LoadFile(*configFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, config.New())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() {
		if err := a.closeKV(); err != nil {
			log.Err(err).Msg("closing session storage")
		}
	}()

	if err := a.dispatch(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		stop()
		os.Exit(1)
	}
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	logging.Setup(cfg.GetLogLevel(), cfg.GetEnv())

	kv, closeKV, err := openSessionKV(cfg)
	if err != nil {
		return nil, err
	}

	api := apiclient.New(cfg.GetAPIBaseURL(), apiclient.WithTimeout(cfg.GetRequestTimeout()))
	manager, err := auth.NewManager(api, kv, auth.WithRefreshSkew(cfg.GetRefreshSkew()))
	if err != nil {
		_ = closeKV()
		return nil, err
	}
	if err := manager.Init(ctx); err != nil {
		_ = closeKV()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	metrics, err := query.NewMetrics(registry)
	if err != nil {
		_ = closeKV()
		return nil, err
	}
	cache := query.NewCache(query.WithMetrics(metrics), query.WithGCTime(cfg.GetGCTime()))

	return &app{
		cfg:      cfg,
		api:      api,
		manager:  manager,
		hooks:    hooks.New(api, manager, cache, cfg),
		registry: registry,
		closeKV:  closeKV,
	}, nil
}
