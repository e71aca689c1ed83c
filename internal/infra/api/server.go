package api

import (
	"context"
	"net/http"
	"time"

	red "subscriber-payments/internal/infra/redis"
	"subscriber-payments/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HealthCheck reports whether a backing store is reachable.
type HealthCheck func(ctx context.Context) error

type Server struct {
	requests      usecase.PaymentRequestUseCase
	tracking      usecase.TrackingUseCase
	plans         usecase.PlanUseCase
	users         usecase.UserUseCase
	subscriptions usecase.SubscriptionUseCase
	auth          *AuthManager
	cache         red.RedisClient
	limiter       *red.RateLimiter
	health        map[string]HealthCheck
	timeout       time.Duration
	log           *zerolog.Logger
}

type Options struct {
	Cache          red.RedisClient
	Limiter        *red.RateLimiter
	Health         map[string]HealthCheck
	RequestTimeout time.Duration
}

func NewServer(
	requests usecase.PaymentRequestUseCase,
	tracking usecase.TrackingUseCase,
	plans usecase.PlanUseCase,
	users usecase.UserUseCase,
	subscriptions usecase.SubscriptionUseCase,
	auth *AuthManager,
	opts Options,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{
		requests:      requests,
		tracking:      tracking,
		plans:         plans,
		users:         users,
		subscriptions: subscriptions,
		auth:          auth,
		cache:         opts.Cache,
		limiter:       opts.Limiter,
		health:        opts.Health,
		timeout:       opts.RequestTimeout,
		log:           &l,
	}
}

// Routes builds the full HTTP surface. Event streams are exempt from the request timeout.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log))

	timeout := Timeout(s.timeout)
	limited := RateLimit(s.limiter, TrackRateLimit, TrackRateLimitWindow, s.log)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.With(timeout, limited).Get("/track/{code}", s.handleTrackPage)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(timeout, limited).Get("/track/{code}", s.handleTrack)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Require(RoleClient))
			r.Get("/payment-requests/{id}/events", s.handleEvents)

			r.Group(func(r chi.Router) {
				r.Use(timeout, Idempotency(s.cache, s.log))
				r.Get("/plans", s.handleListPlans)
				r.Get("/me/subscription", s.handleMySubscription)
				r.Post("/payment-requests", s.handleCreateRequest)
				r.Get("/payment-requests", s.handleListRequests)
				r.Get("/payment-requests/{id}", s.handleGetRequest)
				r.Post("/payment-requests/{id}/claim", s.handleClaim)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(timeout).Post("/session", s.handleAdminSession)

			r.Group(func(r chi.Router) {
				r.Use(s.auth.Require(RoleAdmin), timeout)
				r.Get("/payment-requests/{id}", s.handleAdminGet)
				r.Get("/payment-requests/by-reference/{code}", s.handleAdminGetByCode)
				r.Post("/payment-requests/{id}/transition", s.handleAdminTransition)
				r.Post("/payment-requests/{id}/activate", s.handleAdminActivate)
				r.Get("/plans", s.handleAdminListPlans)
				r.Post("/plans", s.handleAdminCreatePlan)
			})
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string, len(s.health))
	for name, check := range s.health {
		if err := check(r.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": checks})
}
