package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/loanform/loanform/internal/config"
	"github.com/loanform/loanform/internal/encrypt"
	"github.com/loanform/loanform/internal/intake"
	"github.com/loanform/loanform/internal/metrics"
	"github.com/loanform/loanform/internal/middleware"
	"github.com/loanform/loanform/internal/notification"
	"github.com/loanform/loanform/internal/sanitize"
	"github.com/loanform/loanform/internal/storage"
	"github.com/loanform/loanform/internal/validate"
)

// Deps aggregates shared dependencies required to wire routes. Resolver,
// Repo and Metrics may be preset (tests inject deterministic ones); when nil
// they are built from the other dependencies.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Resolver validate.MXResolver
	Repo     intake.Repository
	Metrics  *metrics.Metrics
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	encryptor, err := encrypt.NewFromFile(d.Cfg.KeyPath)
	if err != nil {
		return err
	}

	resolver := d.Resolver
	if resolver == nil {
		resolver = validate.NewNetResolver()
	}
	if d.Cache != nil {
		resolver = validate.NewCachedResolver(resolver, d.Cache, d.Cfg.MXCacheTTL)
	}

	repo := d.Repo
	if repo == nil {
		if d.DB != nil {
			repo = intake.NewPostgresRepository(d.DB)
		} else {
			repo = intake.NewMemoryRepository()
		}
	}

	svc := intake.NewService(
		sanitize.NewRegistry(),
		validate.New(resolver),
		storage.New(encryptor, d.Cfg.UploadDir),
		repo,
		notification.NewLoggerNotifier(d.Logger),
		d.Metrics,
		d.Logger,
	)
	handler := intake.NewHandler(svc, d.Logger)

	RegisterIntakeRoutes(app, handler, d)

	return nil
}
