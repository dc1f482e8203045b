// Package api exposes the funnel editor and analytics operations over HTTP.
package api

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/meikuraledutech/funnel"
	"github.com/meikuraledutech/funnel/metrics"
	"go.uber.org/zap"
)

// Handler serves the HTTP routes on top of a funnel.Store.
type Handler struct {
	store    funnel.Store
	log      *zap.Logger
	metrics  *metrics.Collector
	validate *validator.Validate
	workers  int
	expose   bool
}

// Option configures a Handler.
type Option func(*Handler)

// ExposeMetrics controls whether Register mounts GET /metrics. Collectors
// record either way. The default is on.
func ExposeMetrics(on bool) Option {
	return func(h *Handler) { h.expose = on }
}

// New creates a Handler. workers bounds the parallelism of report aggregation.
func New(store funnel.Store, logger *zap.Logger, collector *metrics.Collector, workers int, opts ...Option) *Handler {
	h := &Handler{
		store:    store,
		log:      logger,
		metrics:  collector,
		validate: newValidator(),
		workers:  workers,
		expose:   true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewApp builds the fiber app with all routes registered.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New()
	app.Use(h.requestLogger)
	h.Register(app)
	return app
}

// Register mounts the routes on app.
func (h *Handler) Register(app *fiber.App) {
	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", h.createSchema)
	app.Delete("/schema", h.dropSchema)

	// ── Funnels ───────────────────────────────────────────────────────
	app.Post("/funnels", h.createFunnel)
	app.Get("/funnels", h.listFunnels)
	app.Get("/funnels/:id", h.getFunnel)
	app.Delete("/funnels/:id", h.deleteFunnel)

	// ── Stages ────────────────────────────────────────────────────────
	app.Post("/funnels/:id/stages", h.createStage)
	app.Patch("/funnels/:id/stages/:stageId", h.renameStage)
	app.Put("/funnels/:id/stages/:stageId/components", h.setComponents)
	app.Put("/funnels/:id/stages/:stageId/position", h.setPosition)
	app.Post("/funnels/:id/stages/:stageId/connections", h.connect)
	app.Delete("/funnels/:id/stages/:stageId/connections", h.disconnect)
	app.Delete("/funnels/:id/stages/:stageId", h.removeStage)
	app.Put("/funnels/:id/order", h.reorder)

	// ── Graph ─────────────────────────────────────────────────────────
	app.Get("/funnels/:id/graph", h.graph)
	app.Get("/funnels/:id/validation", h.validation)

	// ── Analytics ─────────────────────────────────────────────────────
	app.Post("/funnels/:id/sessions", h.recordSession)
	app.Get("/funnels/:id/report", h.report)

	if h.expose {
		app.Get("/metrics", adaptor.HTTPHandler(h.metrics.Handler()))
	}
}

// bind decodes and validates the request body into v.
func (h *Handler) bind(c fiber.Ctx, v any) error {
	if err := c.Bind().JSON(v); err != nil {
		return errors.New("invalid body")
	}
	if err := h.validate.Struct(v); err != nil {
		return errors.New(describe(err))
	}
	return nil
}

func badRequest(c fiber.Ctx, err error) error {
	return c.Status(400).JSON(fiber.Map{"error": err.Error()})
}

// fail maps domain errors to HTTP responses.
func (h *Handler) fail(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, funnel.ErrStageNotFound), errors.Is(err, funnel.ErrFunnelNotFound):
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, funnel.ErrInvalidReorder):
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	}
	h.log.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(500).JSON(fiber.Map{"error": err.Error()})
}

// loadFunnel fetches the funnel named by the :id param.
func (h *Handler) loadFunnel(c fiber.Ctx) (*funnel.Funnel, error) {
	f, err := h.store.GetFunnel(c.Context(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, funnel.ErrFunnelNotFound
	}
	return f, nil
}
