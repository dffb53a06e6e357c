package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/klimatholod/store-backend/internal/apperror"
	"github.com/klimatholod/store-backend/internal/blog"
	"github.com/klimatholod/store-backend/internal/config"
	"github.com/klimatholod/store-backend/internal/database"
	"github.com/klimatholod/store-backend/internal/logger"
	"github.com/klimatholod/store-backend/internal/mail"
	"github.com/klimatholod/store-backend/internal/notification"
	"github.com/klimatholod/store-backend/internal/order"
	"github.com/klimatholod/store-backend/internal/pricelist"
	"github.com/klimatholod/store-backend/internal/product"
	"github.com/klimatholod/store-backend/internal/ratelimit"
	"github.com/klimatholod/store-backend/internal/storage"
	"github.com/klimatholod/store-backend/internal/user"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Config{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger.Component(log, "database"))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	limiter, err := newLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is empty, session tokens are signed with an empty key")
	}

	app := newApp(deps{
		cfg:     cfg,
		log:     log,
		db:      db,
		store:   store,
		mailer:  mail.NewService(mail.Providers(cfg.Mail), cfg.PublicBaseURL, mail.SMTPTransport{}),
		limiter: limiter,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Addr)
		errCh <- app.Listen(cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	return app.ShutdownWithTimeout(shutdownTimeout)
}

// newStore picks MinIO when an endpoint is configured and the upload
// directory otherwise.
func newStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.Minio.Endpoint == "" {
		return storage.NewDiskStore(cfg.UploadDir, int64(cfg.MaxUploadBytes))
	}
	return storage.NewMinioStore(ctx, storage.MinioConfig{
		Endpoint:  cfg.Minio.Endpoint,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		Bucket:    cfg.Minio.Bucket,
		UseSSL:    cfg.Minio.UseSSL,
		Region:    cfg.Minio.Region,
		MaxBytes:  int64(cfg.MaxUploadBytes),
	})
}

func newLimiter(ctx context.Context, cfg config.Config) (ratelimit.Limiter, error) {
	if cfg.Redis.Addr == "" {
		return ratelimit.NewMemory(ratelimit.DefaultMaxFailures, ratelimit.DefaultCooldown), nil
	}
	rdb, err := ratelimit.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password)
	if err != nil {
		return nil, err
	}
	return ratelimit.NewRedisLimiter(rdb, "login"), nil
}

type deps struct {
	cfg     config.Config
	log     *slog.Logger
	db      *sql.DB
	store   storage.Store
	mailer  mail.Mailer
	limiter ratelimit.Limiter
}

func newApp(d deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: apperror.ErrorHandler(logger.Component(d.log, "http")),
		// room for the three product images plus form fields
		BodyLimit: 4 * d.cfg.MaxUploadBytes,
	})
	setupMiddleware(app)

	if _, ok := d.store.(*storage.DiskStore); ok {
		app.Static("/uploads", d.cfg.UploadDir)
	}
	app.Get("/health", healthHandler(d.db))

	users := user.NewHandler(
		user.NewService(user.NewPostgresRepository(d.db), user.NewPostgresTokenRepository(d.db), user.Options{
			Mailer:    d.mailer,
			Limiter:   d.limiter,
			JWTSecret: d.cfg.JWTSecret,
			Logger:    logger.Component(d.log, "user"),
		}),
		logger.Component(d.log, "user"),
	)
	orders := order.NewHandler(order.NewService(order.NewPostgresRepository(d.db)), logger.Component(d.log, "order"))
	products := product.NewHandler(product.NewService(product.NewPostgresRepository(d.db), d.store), logger.Component(d.log, "product"))
	posts := blog.NewHandler(blog.NewService(blog.NewPostgresRepository(d.db), d.store), logger.Component(d.log, "blog"))
	notifications := notification.NewHandler(notification.NewService(notification.NewPostgresRepository(d.db)), logger.Component(d.log, "notification"))
	prices := pricelist.NewHandler(pricelist.NewFile(d.cfg.PriceListPath), logger.Component(d.log, "pricelist"))

	users.RegisterPublicRoutes(app)
	orders.RegisterPublicRoutes(app)
	products.RegisterPublicRoutes(app)
	posts.RegisterPublicRoutes(app)
	notifications.RegisterPublicRoutes(app)
	prices.RegisterPublicRoutes(app)

	// Admin routes come last: with the guard on, the group middleware also
	// runs for paths no public route answered.
	var admin fiber.Router = app
	if d.cfg.AdminGuard {
		if d.cfg.JWTSecret == "" {
			d.log.Warn("ADMIN_GUARD is set without JWT_SECRET, admin routes stay open")
		} else {
			admin = app.Group("", user.RequireToken(d.cfg.JWTSecret), user.RequireAdmin)
		}
	}
	orders.RegisterAdminRoutes(admin)
	products.RegisterAdminRoutes(admin)
	posts.RegisterAdminRoutes(admin)
	prices.RegisterAdminRoutes(admin)

	return app
}

func setupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

func healthHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := database.Ping(c.UserContext(), db); err != nil {
			status := "down"
			if errors.Is(err, context.DeadlineExceeded) {
				status = "timeout"
			}
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "database": status})
		}
		return c.JSON(fiber.Map{"status": "ok", "database": "up"})
	}
}
