package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-crm/internal/rbac"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

type RouterConfig struct {
	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

type Router struct {
	Config       RouterConfig
	Tokens       middleware.TokenParser
	Log          *logger.Logger
	Health       *HealthHandler
	Auth         *AuthHandler
	Leads        *LeadHandler
	Pipeline     *PipelineHandler
	Inbox        *InboxHandler
	Webhook      *WebhookHandler
	Notification *NotificationHandler
	Users        *UserHandler
	Sync         *SyncHandler
}

func (rt *Router) Handler() http.Handler {
	log := rt.Log
	if log == nil {
		log = logger.Global()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log.Named("http")))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.Config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.CorrelationHeader},
		ExposedHeaders:   []string{middleware.CorrelationHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", rt.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	limit, window := rt.Config.RateLimitRequests, rt.Config.RateLimitWindow
	if limit <= 0 {
		limit = 120
	}
	if window <= 0 {
		window = time.Minute
	}

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(limit, window))
		r.Post("/webhooks/manychat", rt.Webhook.Handle)
		r.Post("/auth/signin", rt.Auth.SignIn)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(rt.Tokens))
		r.Use(httprate.Limit(limit, window, httprate.WithKeyFuncs(userKey)))

		r.Get("/me", rt.Auth.Me)
		r.With(middleware.RequireCapability(rbac.CapInbox)).Get("/notifications/stream", rt.Notification.Stream)

		r.Route("/leads", func(r chi.Router) {
			r.With(middleware.RequireCapability(rbac.CapRead)).Get("/", rt.Leads.List)
			r.With(middleware.RequireCapability(rbac.CapRead)).Get("/duplicity", rt.Leads.CheckDuplicity)
			r.With(middleware.RequireCapability(rbac.CapWriteLeads)).Post("/", rt.Leads.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.With(middleware.RequireCapability(rbac.CapRead)).Get("/", rt.Leads.Get)
				r.With(middleware.RequireCapability(rbac.CapRead)).Get("/history", rt.Pipeline.History)
				r.With(middleware.RequireCapability(rbac.CapMoveStage)).Post("/stage", rt.Pipeline.MoveStage)
				r.With(middleware.RequireCapability(rbac.CapCleanup)).Delete("/", rt.Leads.Delete)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireCapability(rbac.CapWriteLeads))
					r.Patch("/", rt.Leads.Update)
					r.Post("/tags", rt.Leads.AddTag)
					r.Delete("/tags/{tag}", rt.Leads.RemoveTag)
					r.Put("/custom-fields/{field}", rt.Leads.SetCustomField)
				})
			})
		})

		r.With(middleware.RequireCapability(rbac.CapRead)).Get("/reports/pipeline", rt.Pipeline.Report)

		r.Route("/conversations", func(r chi.Router) {
			r.Use(middleware.RequireCapability(rbac.CapInbox))
			r.Get("/", rt.Inbox.List)
			r.Get("/{id}/messages", rt.Inbox.Messages)
			r.Post("/{id}/messages", rt.Inbox.Send)
			r.Post("/{id}/read", rt.Inbox.MarkRead)
			r.Post("/{id}/assign", rt.Inbox.Assign)
			r.Post("/{id}/close", rt.Inbox.Close)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(middleware.RequireCapability(rbac.CapReadUsers)).Get("/", rt.Users.List)
			r.With(middleware.RequireCapability(rbac.CapAdminUsers)).Patch("/{id}", rt.Users.Update)
		})

		r.With(middleware.RequireCapability(rbac.CapSync)).Post("/sync/subscribers", rt.Sync.Subscribers)
	})

	return r
}

func userKey(r *http.Request) (string, error) {
	if id := middleware.GetUserID(r.Context()); id != "" {
		return id, nil
	}
	return httprate.KeyByIP(r)
}
