package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wedosoft/ticketrag/internal/servicecontext"
	"github.com/wedosoft/ticketrag/internal/telemetry"
)

// Server holds the chi router and the shared service context every
// handler closes over.
type Server struct {
	Router    *chi.Mux
	APIRouter chi.Router
	sc        *servicecontext.ServiceContext
	startedAt time.Time
}

// NewServer builds the chi router with its middleware stack, mounts the
// unauthenticated health/metrics endpoints, and opens the tenant-scoped
// API router for RegisterRoutes to attach handlers to.
func NewServer(sc *servicecontext.ServiceContext) *Server {
	s := &Server{
		Router:    chi.NewRouter(),
		sc:        sc,
		startedAt: time.Now(),
	}

	s.Router.Use(RequestID)
	s.Router.Use(Logger(sc.Logger))
	s.Router.Use(Metrics(telemetry.HTTPRequestDuration))
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Tenant-Id", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.Router.Get("/health", s.handleHealth)
	s.Router.Handle("/metrics", promhttp.HandlerFor(sc.Metrics, promhttp.HandlerOpts{}))

	s.Router.Route("/", func(r chi.Router) {
		r.Use(TenantMiddleware)
		s.APIRouter = r
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// healthResponse is /health's body (§6: `{status, deps{vector_db, llm_providers[]}}`).
type healthResponse struct {
	Status string   `json:"status"`
	Deps   depsInfo `json:"deps"`
}

type depsInfo struct {
	VectorDB     string   `json:"vector_db"`
	LLMProviders []string `json:"llm_providers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := healthResponse{Status: "ok", Deps: depsInfo{VectorDB: "ok"}}

	if err := s.sc.Gateway.Healthy(ctx); err != nil {
		s.sc.Logger.Error("health check: vector db unreachable", "error", err)
		resp.Deps.VectorDB = "error"
		resp.Status = "degraded"
	}

	resp.Deps.LLMProviders = s.sc.Router.RegisteredProviders()
	if len(resp.Deps.LLMProviders) == 0 {
		resp.Status = "degraded"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	Respond(w, status, resp)
}
