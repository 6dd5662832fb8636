package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sentinel-desk/api/handlers"
	"sentinel-desk/config"
	"sentinel-desk/core/auth"
	"sentinel-desk/core/notify"
	"sentinel-desk/core/requests"
	"sentinel-desk/core/store"
	"sentinel-desk/core/utils"
)

// BackgroundWorker is anything the bootstrap starts alongside the HTTP
// server and stops on shutdown.
type BackgroundWorker interface {
	Start()
	Stop()
}

type ServerDeps struct {
	RequestsStore store.RequestsStore
	RolesStore    store.RoleRecordsStore
	RequestsSvc   *requests.Service
	Resolver      *auth.Resolver
	Notifier      *notify.Notifier
}

type Server struct {
	cfg    *config.AppConfig
	deps   ServerDeps
	logger *utils.Logger
}

func NewServer(cfg *config.AppConfig, deps ServerDeps, logger *utils.Logger) *Server {
	return &Server{cfg: cfg, deps: deps, logger: logger}
}

type routeHandlers struct {
	health   *handlers.HealthHandler
	auth     *handlers.AuthHandler
	requests *handlers.RequestsHandler
	notify   *handlers.NotifyHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	return routeHandlers{
		health:   handlers.NewHealthHandler(s.cfg),
		auth:     handlers.NewAuthHandler(s.deps.Resolver, s.logger),
		requests: handlers.NewRequestsHandler(s.cfg, s.deps.RequestsSvc, s.deps.Resolver, s.logger),
		notify:   handlers.NewNotifyHandler(s.deps.Notifier, s.logger),
	}
}

func (s *Server) Handler() http.Handler {
	h := s.newRouteHandlers()
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.requestLogger)
	r.Get("/health", h.health.Health)
	r.Post("/test-teams", h.notify.TestTeams)
	r.Route("/api", func(r chi.Router) {
		r.Get("/auth/user-role", h.auth.UserRole)
		r.Route("/requests", func(r chi.Router) {
			r.Get("/", h.requests.List)
			r.Post("/", h.requests.Create)
			r.Get("/stats", h.requests.Stats)
			r.Put("/{id}/status", h.requests.UpdateStatus)
		})
	})
	return r
}
