package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/packfinderz-inventory/api/controllers"
	"github.com/angelmondragon/packfinderz-inventory/api/middleware"
	"github.com/angelmondragon/packfinderz-inventory/internal/units"
	"github.com/angelmondragon/packfinderz-inventory/pkg/auth"
	"github.com/angelmondragon/packfinderz-inventory/pkg/config"
	"github.com/angelmondragon/packfinderz-inventory/pkg/logger"
	pkgredis "github.com/angelmondragon/packfinderz-inventory/pkg/redis"
)

const (
	scanRateWindow        = time.Minute
	scanRateLimitPerIP    = 600
	scanRateLimitOperator = 240
)

// Counters backs both the idempotency cache and the rate limiter.
type Counters interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Deps wires the router. Engine is nil when this process forwards validated
// operations to a remote endpoint instead of hosting it. Redis and Gatherer
// are optional.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        controllers.Pinger
	Redis     controllers.Pinger
	Counters  Counters
	Gatherer  prometheus.Gatherer
	Engine    units.ValidatedUnitOps
	Scans     controllers.ScanRecorder
	Lookup    controllers.UnitResolver
	Registrar controllers.UnitRegistrar
	Converter controllers.UnitConverter
	Portions  controllers.PortionSeller
	Transfers controllers.TransferService
	Ledger    controllers.LedgerBook
}

func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	if deps.Engine != nil {
		r.With(middleware.APIKey(cfg.Engine.APIKey, cfg.JWT, logg)).
			Post(units.ActionsPath, controllers.UnitsActions(deps.Engine, logg))
	}

	r.Route("/api/v1/inventory", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Counters, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireScope(auth.ScopeUnitsRead, logg))
			r.Get("/units/{code}", controllers.LookupUnit(deps.Lookup, logg))
			r.Get("/transfers/{code}", controllers.LookupTransfer(deps.Transfers, logg))
			r.Get("/locations/{locationId}/transfers/incoming", controllers.IncomingTransfers(deps.Transfers, logg))
			r.Get("/locations/{locationId}/ledger/{productId}", controllers.LedgerLevel(deps.Ledger, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireScope(auth.ScopeUnitsWrite, logg))
			r.With(middleware.RateLimit(
				middleware.NewRateLimitPolicy("scans", scanRateWindow, scanRateLimitPerIP, scanRateLimitOperator),
				deps.Counters,
				logg,
			)).Post("/scans", controllers.RecordScan(deps.Scans, logg))
			r.Post("/units", controllers.RegisterUnit(deps.Registrar, logg))
			r.Post("/units/bulk", controllers.RegisterUnitsBulk(deps.Registrar, logg))
			r.Post("/units/{code}/convert", controllers.ConvertUnit(deps.Converter, logg))
			r.Post("/units/{code}/sales", controllers.SellPortion(deps.Portions, logg))
			r.Post("/locations/{locationId}/ledger/{productId}/movements", controllers.RecordLedgerMovement(deps.Ledger, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireScope(auth.ScopeTransfersWrite, logg))
			r.Post("/transfers", controllers.CreateTransfer(deps.Transfers, logg))
			r.Post("/transfers/{transferId}/receive", controllers.ReceiveTransfer(deps.Transfers, logg))
			r.Post("/transfers/{transferId}/cancel", controllers.CancelTransfer(deps.Transfers, logg))
		})
	})

	return r
}
