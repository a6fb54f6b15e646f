package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/tradedesk/app"
	"github.com/upb/tradedesk/auth"
	"github.com/upb/tradedesk/handlers"
	"github.com/upb/tradedesk/middleware"
	"github.com/upb/tradedesk/utils"
)

// SetupRoutes configures all application routes and middleware. Dependencies
// left nil (database, cache, storage) are reported by /readyz; routes that
// need them still sit behind authentication.
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	logger := deps.Logger

	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(bridgeRequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))
	}

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := newHealthHandler(deps)
	users := handlers.NewUserHandler(deps.Profiles, logger)
	reqs := handlers.NewRequestHandler(deps.Requests, deps.Analytics, logger)
	assets := handlers.NewAssetHandler(deps.Assets, deps.Analytics, logger)
	var signer handlers.UploadSigner
	if deps.UploadSigner != nil {
		signer = deps.UploadSigner
	}
	uploads := handlers.NewUploadHandler(signer, logger)
	var auditLister handlers.AuditLister
	if deps.Audit != nil {
		uploads.WithAuditor(deps.Audit)
		auditLister = deps.Audit
	}
	auditTrail := handlers.NewAuditHandler(auditLister, logger)

	authMW := deps.Auth()

	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)
	if deps.Metrics != nil && cfg.Observability.MetricsEnabled {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", health.HandleStatus)

		r.Group(func(r chi.Router) {
			r.Use(authMW.RequireAuth)

			r.Get("/users/me", users.HandleMe)
			r.Get("/profile", users.HandleGetProfile)
			r.Put("/profile", users.HandleUpdateProfile)
			r.Post("/kyc", users.HandleSubmitKYC)

			r.Get("/requests", reqs.HandleList)
			r.With(submissionLimit(deps)).Post("/requests", reqs.HandleCreate)

			r.Get("/assets", assets.HandleList)
			r.Post("/uploads", uploads.HandleCreate)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authMW.RequireAuth)
			r.Use(authMW.RequireRole(auth.RoleAdmin))

			r.Get("/analytics", assets.HandleAnalytics)
			r.Put("/requests/{id}/status", reqs.HandleUpdateStatus)
			r.Get("/audit", auditTrail.HandleList)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "endpoint not found"})
	})

	return r
}

// newHealthHandler registers one readiness check per backing service
func newHealthHandler(deps *app.Dependencies) *handlers.HealthHandler {
	h := handlers.NewHealthHandler(deps.Config.Environment, deps.Logger)

	h.AddCheck("database", true, func(ctx context.Context) error {
		if deps.DB == nil {
			return handlers.ErrNotInitialized
		}
		return deps.DB.HealthCheck(ctx)
	})

	if deps.Config.Cache.RedisAddr != "" {
		h.AddCheck("redis", false, func(ctx context.Context) error {
			if deps.Redis == nil {
				return handlers.ErrNotInitialized
			}
			return deps.Redis.Ping(ctx).Err()
		})
	}

	return h
}

// submissionLimit returns the rate limiter for POST /requests, or a
// pass-through when limiting is disabled
func submissionLimit(deps *app.Dependencies) func(http.Handler) http.Handler {
	if deps.RateLimitMiddleware == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return deps.RateLimitMiddleware.LimitSubmissions
}

// bridgeRequestID copies chi's request id into our context key so handlers
// and middleware log the same id
func bridgeRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chimiddleware.GetReqID(r.Context())
		if id != "" {
			w.Header().Set("X-Request-ID", id)
			r = r.WithContext(middleware.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
