package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/valorlife/membercenter/internal/observability"
	"github.com/valorlife/membercenter/pkg/moderation"
)

func NewRouter(d Deps) http.Handler {
	guard := d.Moderation
	if guard == nil {
		guard, _ = moderation.New(moderation.Config{})
	}

	s := &server{
		store:          d.Store,
		chat:           d.Chat,
		conversations:  d.Conversations,
		guard:          guard,
		logger:         d.Logger,
		allowedOrigins: buildOriginSet(d.AllowedOrigins),
	}

	rps := d.RateLimitRPS
	if rps <= 0 {
		rps = 20
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware(s.allowedOrigins))
	r.Use(s.errorLogMiddleware)
	r.Use(metricsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(newIPRateLimiter(rps*60, time.Minute).middleware)
	r.Use(middleware.Heartbeat("/healthz"))

	r.Get("/", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", observability.MetricsHandler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/chat/ws", s.handleChatWS)

		r.Route("/members", func(r chi.Router) {
			r.Post("/", s.handleCreateMember)
			r.Post("/login", s.handleLogin)
			r.Get("/by-email/{email}", s.handleGetMemberByEmail)

			r.Route("/{memberID}", func(r chi.Router) {
				r.Get("/", s.handleGetMember)
				r.Get("/dashboard", s.handleGetDashboard)
				r.Get("/enrollments", s.handleListEnrollments)
				r.Post("/enrollments", s.handleCreateEnrollment)
				r.Delete("/enrollments/{enrollmentID}", s.handleCancelEnrollment)
			})
		})

		r.Route("/benefits", func(r chi.Router) {
			r.Get("/", s.handleListBenefits)
			r.Get("/{benefitID}", s.handleGetBenefit)
		})
	})

	return r
}
