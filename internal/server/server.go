package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"inventory/internal/config"
	"inventory/internal/handlers"
	"inventory/internal/middleware"
	"inventory/internal/observability"
	"inventory/internal/revocation"
	"inventory/internal/services"
)

// Deps are the collaborators the HTTP application is assembled from.
type Deps struct {
	Config         *config.Config
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	AuthService    *services.AuthService
	ProductService *services.ProductService
	// Denylist enables POST /logout and revocation checks when non-nil.
	Denylist     *revocation.Denylist
	HealthChecks map[string]handlers.Pinger
}

// New builds the Fiber application with middleware and routes registered.
func New(d Deps) *fiber.App {
	timeout := d.Config.App.RequestTimeout()
	app := fiber.New(fiber.Config{
		AppName:               "inventory",
		ErrorHandler:          handlers.ErrorHandler(d.Logger),
		ReadTimeout:           timeout,
		WriteTimeout:          timeout,
		DisableStartupMessage: true,
	})

	app.Use(requestid.New())
	app.Use(observability.RequestLogger(d.Logger, d.Metrics))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: d.Config.App.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	if timeout > 0 {
		app.Use(requestDeadline(timeout))
	}

	// A nil *Denylist must not reach the middleware as a non-nil interface.
	var (
		checker middleware.RevocationChecker
		revoker handlers.TokenRevoker
	)
	if d.Denylist != nil {
		checker = d.Denylist
		revoker = d.Denylist
	}
	requireAuth := middleware.AuthRequired(d.AuthService, checker, d.Logger)

	handlers.NewHealthHandler(d.HealthChecks).RegisterRoutes(app)
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	handlers.NewAuthHandler(d.AuthService, revoker).RegisterRoutes(app, requireAuth)
	handlers.NewProductHandler(d.ProductService, d.Config.Pagination).RegisterRoutes(app, requireAuth)

	return app
}

// requestDeadline bounds the context handed to services and repositories.
func requestDeadline(d time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}
