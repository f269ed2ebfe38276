package api

import (
	"context"
	"errors"
	"fmt"
	"jarvis/app/config"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
)

// Server exposes liveness endpoints for the deployment environment.
type Server struct {
	cfg *config.Config
	app *fiber.App
}

func New(di *do.Injector) (*Server, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "Jarvis is running",
			"mode":   "polling",
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
		})
	})

	return &Server{
		cfg: do.MustInvoke[*config.Config](di),
		app: app,
	}, nil
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		if err := s.app.Shutdown(); err != nil {
			slog.Error("Failed to shut down API server", "error", err)
		}
	}()

	slog.Info("API server started", "port", s.cfg.API.Port)

	if err := s.app.Listen(fmt.Sprintf(":%d", s.cfg.API.Port)); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("api listen: %w", err)
	}

	return ctx.Err()
}
