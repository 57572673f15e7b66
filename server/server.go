// Package server is a stand-in for the marketplace's Django REST backend. It serves
// the same routes, payloads and error shapes so the client can be run and tested
// without the real service.
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-marketplace-client/internal/config"
	"github.com/jrsteele09/go-marketplace-client/token"
	"github.com/jrsteele09/go-marketplace-client/users"
	fakeuserrepo "github.com/jrsteele09/go-marketplace-client/users/repofake"
	"github.com/rs/zerolog/log"
)

const apiVersion = "1.0.0"

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	router  *chi.Mux
	routes  []string
	config  config.Config
	users   users.UserRepo
	issuer  *token.Issuer
	store   *Store
	uploads *uploadStore
	limiter *ipLimiter
	nowTime func() time.Time
}

type Option func(*Server)

func WithUserRepo(repo users.UserRepo) Option {
	return func(s *Server) {
		s.users = repo
	}
}

func WithIssuer(issuer *token.Issuer) Option {
	return func(s *Server) {
		s.issuer = issuer
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

func New(cfg config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("[Server New] config is required")
	}
	s := &Server{
		env:     cfg.GetEnv(),
		router:  chi.NewRouter(),
		config:  cfg,
		nowTime: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.users == nil {
		s.users = fakeuserrepo.NewFakeUserRepo()
	}
	if s.issuer == nil {
		s.issuer = token.NewIssuer(cfg, token.WithNowTime(s.nowTime))
	}
	s.store = NewStore(s.nowTime)
	s.uploads = newUploadStore()
	rps, burst := cfg.GetRateLimit()
	s.limiter = newIPLimiter(rps, burst)

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Store exposes the data behind the API, e.g. for seeding.
func (s *Server) Store() *Store {
	return s.store
}

func (s *Server) Users() users.UserRepo {
	return s.users
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	_ = chi.Walk(s.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		s.routes = append(s.routes, method+" "+route)
		return nil
	})
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		logRoute(parts[0], parts[1])
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}
