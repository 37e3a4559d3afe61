package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/growthcohq/workflow-healer/pkg/metrics"
	"github.com/growthcohq/workflow-healer/pkg/persistence"
)

const readinessTimeout = 3 * time.Second

type Server struct {
	logger  *slog.Logger
	store   persistence.Store
	metrics *metrics.Metrics
	app     *fiber.App
}

// NewServer builds the status server. m may be nil, in which case /metrics
// is not served.
func NewServer(logger *slog.Logger, store persistence.Store, m *metrics.Metrics) *Server {
	s := &Server{
		logger:  logger.With("module", "web"),
		store:   store,
		metrics: m,
	}
	s.app = s.build()

	return s
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) build() *fiber.App {
	handlers := NewAPIHandlers(s.store)

	app := fiber.New()
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
			defer cancel()

			return s.store.HealthCheck(ctx) == nil
		},
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("workflow-healer")
	})

	app.Get("/status", handlers.GetStatus)
	app.Get("/tasks", handlers.GetTasks)

	b := app.Group("/briefings")
	b.Get("/latest", handlers.GetLatestBriefing)
	b.Get("/latest.txt", handlers.GetLatestBriefingText)

	if s.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
	}

	return app
}

// Start blocks serving on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("Status server listening", "addr", addr)

	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
