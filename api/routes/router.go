package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/choppgest/choppgest-backend/api/controllers"
	webhookcontrollers "github.com/choppgest/choppgest-backend/api/controllers/webhooks"
	"github.com/choppgest/choppgest-backend/api/middleware"
	"github.com/choppgest/choppgest-backend/pkg/config"
	"github.com/choppgest/choppgest-backend/pkg/db"
	"github.com/choppgest/choppgest-backend/pkg/logger"
	"github.com/choppgest/choppgest-backend/pkg/metrics"
	"github.com/choppgest/choppgest-backend/pkg/redis"
)

// RouterParams bundles everything the HTTP surface needs.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Redis           redis.Pinger
	RoyaltyService  controllers.RoyaltyService
	WebhookServices map[string]webhookcontrollers.DeliveryService
	WebhookMetrics  *metrics.WebhookMetrics
	Registry        *prometheus.Registry
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	if params.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/api/public/ping", controllers.PublicPing())

	r.Route("/webhooks", func(r chi.Router) {
		for path, svc := range params.WebhookServices {
			r.Post("/"+path, webhookcontrollers.Gateway(svc, params.WebhookMetrics, logg))
		}
	})

	r.Route("/api/v1/royalties", func(r chi.Router) {
		r.Post("/", controllers.RoyaltyCreate(params.RoyaltyService, logg))
		r.Get("/", controllers.RoyaltyList(params.RoyaltyService, logg))
		r.Route("/{royaltyId}", func(r chi.Router) {
			r.Get("/", controllers.RoyaltyDetail(params.RoyaltyService, logg))
			r.Post("/link", controllers.RoyaltyGenerateLink(params.RoyaltyService, logg))
			r.Post("/cancel", controllers.RoyaltyCancel(params.RoyaltyService, logg))
		})
	})

	return r
}
