// Package rest wires the HTTP surface: routing, middleware, and the
// handlers that translate between JSON and the application services.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"flowboard/application/services"
	"flowboard/infrastructure/config"
	"flowboard/interfaces/http/rest/handlers"
	"flowboard/interfaces/http/rest/middleware"
	"flowboard/pkg/auth"
	pkgerrors "flowboard/pkg/errors"
	"flowboard/pkg/observability"
)

// Services bundles the application services the router depends on
type Services struct {
	Sessions  *services.SessionService
	Nodes     *services.NodeService
	Edges     *services.EdgeService
	Lifecycle *services.LifecycleService
	Scoring   *services.ScoringService
	Blitzes   *services.BlitzService
}

// Router creates and configures the HTTP router
type Router struct {
	services    Services
	cfg         *config.Config
	metrics     *observability.Metrics
	tracer      *observability.Tracer
	ipLimiter   *auth.IPRateLimiter
	userLimiter *auth.UserRateLimiter
	logger      *zap.Logger
}

// NewRouter creates a new router instance. metrics and tracer are
// optional; nil disables the corresponding middleware.
func NewRouter(
	svcs Services,
	cfg *config.Config,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	ipLimiter *auth.IPRateLimiter,
	userLimiter *auth.UserRateLimiter,
	logger *zap.Logger,
) *Router {
	return &Router{
		services:    svcs,
		cfg:         cfg,
		metrics:     metrics,
		tracer:      tracer,
		ipLimiter:   ipLimiter,
		userLimiter: userLimiter,
		logger:      logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.APIVersion)
	router.Use(middleware.Logger(rt.logger))
	if rt.cfg.EnableMetrics && rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}
	if rt.cfg.EnableTracing && rt.tracer != nil {
		router.Use(middleware.Tracing(rt.tracer))
	}

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.flowboard.dev"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	errorHandler := pkgerrors.NewErrorHandler(rt.logger, rt.cfg.IsDevelopment())

	validator := auth.NewJWTValidator(auth.JWTConfig{
		Secret:   rt.cfg.JWTSecret,
		Issuer:   rt.cfg.JWTIssuer,
		Audience: rt.cfg.JWTAudience,
		TTL:      rt.cfg.JWTTTL,
	})
	sessionHandler := handlers.NewSessionHandler(rt.services.Sessions, errorHandler, rt.logger)
	nodeHandler := handlers.NewNodeHandler(rt.services.Nodes, rt.services.Lifecycle, errorHandler, rt.logger)
	edgeHandler := handlers.NewEdgeHandler(rt.services.Edges, errorHandler, rt.logger)
	scoreHandler := handlers.NewScoreHandler(rt.services.Scoring, errorHandler, rt.logger)
	blitzHandler := handlers.NewBlitzHandler(rt.services.Blitzes, errorHandler, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(validator, rt.ipLimiter, rt.userLimiter, rt.logger))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.CreateSession)
			r.Get("/", sessionHandler.ListSessions)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", sessionHandler.GetSession)
				r.Patch("/", sessionHandler.UpdateSession)
				r.Delete("/", sessionHandler.DeleteSession)

				r.Route("/nodes", func(r chi.Router) {
					r.Post("/", nodeHandler.CreateNode)
					r.Get("/", nodeHandler.ListNodes)
					r.Get("/{nodeID}", nodeHandler.GetNode)
					r.Patch("/{nodeID}", nodeHandler.UpdateNode)
					r.Delete("/{nodeID}", nodeHandler.DeleteNode)
					r.Put("/{nodeID}/status", nodeHandler.SetNodeStatus)
					r.Get("/{nodeID}/subtree", scoreHandler.GetSubtree)
				})

				r.Route("/edges", func(r chi.Router) {
					r.Post("/", edgeHandler.CreateEdge)
					r.Get("/", edgeHandler.ListEdges)
					r.Get("/{edgeID}", edgeHandler.GetEdge)
					r.Delete("/{edgeID}", edgeHandler.DeleteEdge)
				})

				r.Get("/scores", scoreHandler.ListScores)

				r.Route("/blitzes", func(r chi.Router) {
					r.Post("/", blitzHandler.CreateBlitz)
					r.Get("/", blitzHandler.ListBlitzes)
					r.Get("/{blitzID}", blitzHandler.GetBlitz)
					r.Delete("/{blitzID}", blitzHandler.DeleteBlitz)
					r.Post("/{blitzID}/activate", blitzHandler.ActivateBlitz)
					r.Post("/{blitzID}/finish", blitzHandler.FinishBlitz)
					r.Post("/{blitzID}/members/{nodeID}", blitzHandler.AddMember)
					r.Delete("/{blitzID}/members/{nodeID}", blitzHandler.RemoveMember)
				})
			})
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
