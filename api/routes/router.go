package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cellar-backend/api/controllers"
	"github.com/angelmondragon/cellar-backend/api/middleware"
	"github.com/angelmondragon/cellar-backend/internal/audit"
	"github.com/angelmondragon/cellar-backend/internal/auth"
	"github.com/angelmondragon/cellar-backend/internal/catalog"
	"github.com/angelmondragon/cellar-backend/internal/ledger"
	"github.com/angelmondragon/cellar-backend/internal/reports"
	"github.com/angelmondragon/cellar-backend/internal/users"
	"github.com/angelmondragon/cellar-backend/pkg/auth/session"
	"github.com/angelmondragon/cellar-backend/pkg/config"
	"github.com/angelmondragon/cellar-backend/pkg/enums"
	"github.com/angelmondragon/cellar-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/cellar-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer needs.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Deps carries everything NewRouter wires. Nil stores disable the middleware that needs them.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    RedisStore
	Sessions session.AccessSessionChecker
	Metrics  prometheus.Gatherer

	Auth    auth.Service
	Ledger  ledger.Service
	Catalog catalog.Service
	Reports reports.Service
	Audit   audit.Service
	Users   users.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	var (
		idempotencyStore pkgredis.IdempotencyStore
		limiter          RedisStore
		ready            = map[string]controllers.Pinger{}
	)
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		limiter = deps.Redis
		ready["redis"] = deps.Redis
	}
	if deps.DB != nil {
		ready["db"] = deps.DB
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterUsernameLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	authenticated := middleware.Auth(cfg.JWT, deps.Sessions, logg)
	managers := middleware.RequireRoles(logg, enums.RoleManager, enums.RoleAdmin)
	admins := middleware.RequireRoles(logg, enums.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.Idempotency(idempotencyStore, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, limiter, logg)).Post("/register", controllers.AuthRegister(deps.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
			r.With(authenticated).Post("/logout", controllers.AuthLogout(deps.Auth, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Use(middleware.Idempotency(idempotencyStore, logg))

			r.Route("/sales", func(r chi.Router) {
				r.Post("/", controllers.RegisterSale(deps.Ledger, logg))
				r.Group(func(r chi.Router) {
					r.Use(managers)
					r.Get("/", controllers.ListSales(deps.Ledger, logg))
					r.Get("/{saleId}", controllers.GetSale(deps.Ledger, logg))
					r.Post("/{saleId}/refund", controllers.RegisterRefund(deps.Ledger, logg))
				})
			})

			r.Route("/items", func(r chi.Router) {
				r.Get("/", controllers.ListItems(deps.Catalog, logg))
				r.Get("/{itemId}", controllers.GetItem(deps.Catalog, logg))
				r.Group(func(r chi.Router) {
					r.Use(managers)
					r.Post("/", controllers.CreateItem(deps.Catalog, logg))
					r.Patch("/{itemId}", controllers.UpdateItem(deps.Catalog, logg))
					r.Delete("/{itemId}", controllers.DeleteItem(deps.Catalog, logg))
					r.Post("/{itemId}/restock", controllers.Restock(deps.Ledger, logg))
				})
			})

			if deps.Catalog != nil {
				r.Route("/catalog", func(r chi.Router) {
					svc := deps.Catalog
					r.Get("/dashboard", controllers.CatalogDashboard(svc, logg))
					r.Group(func(r chi.Router) {
						r.Use(managers)
						r.Get("/regions", controllers.CatalogList(svc.ListRegions, logg))
						r.Post("/regions", controllers.CatalogCreate(svc.CreateRegion, logg))
						r.Get("/types", controllers.CatalogList(svc.ListWineTypes, logg))
						r.Post("/types", controllers.CatalogCreate(svc.CreateWineType, logg))
						r.Get("/styles", controllers.CatalogList(svc.ListWineStyles, logg))
						r.Post("/styles", controllers.CatalogCreate(svc.CreateWineStyle, logg))
						r.Get("/appellations", controllers.CatalogList(svc.ListAppellations, logg))
						r.Post("/appellations", controllers.CatalogCreate(svc.CreateAppellation, logg))
					})
				})
			}

			r.Route("/reports", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(managers)
					r.Get("/top-selling", controllers.TopSellingReport(deps.Reports, logg))
					r.Get("/least-selling", controllers.LeastSellingReport(deps.Reports, logg))
					r.Get("/unsold", controllers.UnsoldReport(deps.Reports, logg))
					r.Get("/low-stock", controllers.LowStockReport(deps.Reports, logg))
					r.Get("/best-employees", controllers.BestEmployeesReport(deps.Reports, logg))
				})
				r.Group(func(r chi.Router) {
					r.Use(admins)
					r.Get("/revenue", controllers.RevenueReport(deps.Reports, logg))
					r.Get("/quarter-trend", controllers.QuarterTrendReport(deps.Reports, logg))
				})
			})

			r.With(managers).Get("/audit", controllers.AuditLog(deps.Audit, logg))

			r.Route("/users", func(r chi.Router) {
				r.Use(admins)
				r.Get("/", controllers.ListUsers(deps.Users, logg))
				r.Patch("/{userId}", controllers.UpdateUser(deps.Users, logg))
				r.Delete("/{userId}", controllers.DeleteUser(deps.Users, logg))
			})
		})
	})

	return r
}
