package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"objectvault/internal/config"
	handlers "objectvault/internal/http/handler"
	"objectvault/internal/http/middleware"
	"objectvault/internal/otel"
	"objectvault/internal/service"
	"objectvault/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	ctx := context.Background()

	// Initialize tracing; shutdown flushes pending spans on exit
	shutdownTracing, err := otel.Init(ctx, time.UTC)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	// Build the storage provider eagerly so credential faults fail startup,
	// not the first request.
	factory := storage.NewFactory(cfg.Storage)
	provider, err := factory.Provider(ctx)
	if err != nil {
		log.Fatalf("failed to initialize storage provider: %v", err)
	}

	objSvc, err := service.NewObjectService(factory, cfg.Storage)
	if err != nil {
		log.Fatalf("failed to initialize object service: %v", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// Caller identity from the gateway-asserted X-User-ID header
	app.Use(middleware.UserID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	// Server spans per request
	app.Use(otelfiber.Middleware())

	// Prometheus request metrics plus process/go collectors on a dedicated registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to initialize prometheus middleware: %v", err)
	}
	app.Use(promMiddleware.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, provider, objSvc)

	// The filesystem variant serves its own signed URLs
	if lp, ok := provider.(*storage.LocalProvider); ok {
		handlers.RegisterLocalObjectRoutes(app, lp)
	}

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
