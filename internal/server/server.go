// Package server exposes the report pipeline over HTTP.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/naka-gawa/repo-stats/internal/domain"
	"github.com/naka-gawa/repo-stats/internal/profile"
	"github.com/naka-gawa/repo-stats/internal/sink"
)

// Updater runs the report pipeline for one account.
type Updater interface {
	Aggregate(ctx context.Context, account string, out sink.ReportSink) (*domain.Summary, error)
}

// Profiles is the profile store as seen by the HTTP surface.
type Profiles interface {
	Account() (string, error)
	Init() (*profile.Profile, error)
}

// SnapshotReader returns a previously stored report.
type SnapshotReader interface {
	Snapshot(ctx context.Context, account string) ([]domain.ReportRow, error)
}

// Handler serves the trigger endpoints.
type Handler struct {
	log       *zap.SugaredLogger
	updater   Updater
	profiles  Profiles
	snapshots SnapshotReader
	timeout   time.Duration
}

// NewHandler constructs a Handler. snapshots may be nil when no database is configured.
func NewHandler(log *zap.SugaredLogger, updater Updater, profiles Profiles, snapshots SnapshotReader, timeout time.Duration) *Handler {
	return &Handler{
		log:       log.Named("server"),
		updater:   updater,
		profiles:  profiles,
		snapshots: snapshots,
		timeout:   timeout,
	}
}

// NewApp builds the fiber application with middleware and routes.
func NewApp(log *zap.SugaredLogger, h *Handler, requestTimeout time.Duration) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:           requestTimeout,
		WriteTimeout:          requestTimeout,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(RequestLogger(log.Named("http")))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	api := app.Group("/api/v1")
	api.Post("/stats", h.PostStats)
	api.Get("/stats/:account", h.GetStats)
	api.Post("/profile/init", h.PostProfileInit)

	return app
}

// RequestLogger logs HTTP requests with method, path, status and duration.
func RequestLogger(log *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		dur := time.Since(start)
		reqID, _ := c.Locals("requestid").(string)
		if reqID == "" {
			reqID = c.Get(fiber.HeaderXRequestID)
		}
		log.Infow("http",
			"method", c.Method(),
			"path", c.OriginalURL(),
			"status", c.Response().StatusCode(),
			"duration_ms", float64(dur.Microseconds())/1000.0,
			"request_id", reqID,
		)
		return err
	}
}
