package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/poslite-backend/api/controllers"
	"github.com/angelmondragon/poslite-backend/api/middleware"
	"github.com/angelmondragon/poslite-backend/internal/auth"
	"github.com/angelmondragon/poslite-backend/internal/backup"
	"github.com/angelmondragon/poslite-backend/internal/export"
	"github.com/angelmondragon/poslite-backend/internal/ledger"
	"github.com/angelmondragon/poslite-backend/internal/reports"
	"github.com/angelmondragon/poslite-backend/pkg/auth/session"
	"github.com/angelmondragon/poslite-backend/pkg/config"
	"github.com/angelmondragon/poslite-backend/pkg/db"
	"github.com/angelmondragon/poslite-backend/pkg/enums"
	"github.com/angelmondragon/poslite-backend/pkg/logger"
	"github.com/angelmondragon/poslite-backend/pkg/metrics"
	"github.com/angelmondragon/poslite-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	revocations session.RevocationChecker,
	authService auth.Service,
	ledgerService ledger.Service,
	reportService *reports.Service,
	exporter *export.Exporter,
	backups *backup.Manager,
	httpMetrics *metrics.HTTPMetrics,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Locale(cfg.App.DefaultLanguage),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, logg))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/labels", controllers.Labels())

		r.Route("/auth", func(r chi.Router) {
			login := r
			if redisClient != nil {
				login = r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg))
			}
			login.Post("/login", controllers.AuthLogin(authService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, revocations, logg))
				r.Post("/logout", controllers.AuthLogout(authService, logg))
				r.Get("/me", controllers.AuthWhoAmI())
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, revocations, logg))

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", controllers.InventoryList(ledgerService, logg))
				r.Get("/low-stock", controllers.InventoryLowStock(ledgerService, logg))
				r.Get("/{id}", controllers.InventoryGet(ledgerService, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(enums.OperatorRoleAdmin, logg))
					r.Post("/", controllers.InventoryCreate(ledgerService, logg))
					r.Put("/{id}", controllers.InventoryUpdate(ledgerService, logg))
					r.Delete("/{id}", controllers.InventoryDelete(ledgerService, logg))
				})
			})

			r.Route("/sales", func(r chi.Router) {
				r.Get("/", controllers.SalesList(ledgerService, logg))
				r.Post("/", controllers.SaleRecord(ledgerService, logg))
				r.Get("/recent", controllers.SalesRecent(ledgerService, logg))
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/sales", controllers.ReportSales(ledgerService, logg))
				r.Get("/chart", controllers.ReportChart(reportService, logg))
			})

			r.Get("/dashboard", controllers.Dashboard(ledgerService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.OperatorRoleAdmin, logg))
				r.Get("/export/inventory.csv", controllers.ExportInventoryCSV(exporter, logg))
				r.Get("/export/sales.csv", controllers.ExportSalesCSV(exporter, logg))
				r.Get("/backups", controllers.BackupList(backups, logg))
				r.Post("/backups", controllers.BackupCreate(backups, logg))
			})
		})
	})

	return r
}
