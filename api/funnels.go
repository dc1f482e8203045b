package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/funnel"
	"go.uber.org/zap"
)

func (h *Handler) createSchema(c fiber.Ctx) error {
	if err := h.store.CreateSchema(c.Context()); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "schema created"})
}

func (h *Handler) dropSchema(c fiber.Ctx) error {
	if err := h.store.DropSchema(c.Context()); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "schema dropped"})
}

func (h *Handler) createFunnel(c fiber.Ctx) error {
	var req createFunnelRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err)
	}
	f := &funnel.Funnel{ID: req.ID, Name: req.Name, Stages: req.Stages}
	if f.Stages == nil {
		f.Stages = []funnel.Stage{}
	}
	if err := h.store.SaveFunnel(c.Context(), f); err != nil {
		return h.fail(c, err)
	}
	h.log.Info("funnel created", zap.String("funnel", f.ID), zap.Int("stages", len(f.Stages)))
	return c.Status(201).JSON(h.snapshot(f, nil))
}

func (h *Handler) listFunnels(c fiber.Ctx) error {
	list, err := h.store.ListFunnels(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(list)
}

func (h *Handler) getFunnel(c fiber.Ctx) error {
	f, err := h.loadFunnel(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(f)
}

func (h *Handler) deleteFunnel(c fiber.Ctx) error {
	if err := h.store.DeleteFunnel(c.Context(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(204)
}

func (h *Handler) graph(c fiber.Ctx) error {
	f, err := h.loadFunnel(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(funnel.Resolve(f.Stages))
}

func (h *Handler) validation(c fiber.Ctx) error {
	f, err := h.loadFunnel(c)
	if err != nil {
		return h.fail(c, err)
	}
	report := funnel.Validate(f.Stages, funnel.Resolve(f.Stages))
	h.metrics.ObserveReport(report)
	return c.JSON(report)
}

func (h *Handler) recordSession(c fiber.Ctx) error {
	var req sessionRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err)
	}
	trace := &funnel.SessionTrace{
		SessionID:       req.SessionID,
		VisitedStageIDs: req.VisitedStageIDs,
		Completed:       req.Completed,
	}
	id, err := h.store.RecordSession(c.Context(), c.Params("id"), trace)
	if err != nil {
		return h.fail(c, err)
	}
	h.metrics.SessionsRecorded.Inc()
	return c.Status(201).JSON(fiber.Map{"id": id})
}

func (h *Handler) report(c fiber.Ctx) error {
	f, err := h.loadFunnel(c)
	if err != nil {
		return h.fail(c, err)
	}
	traces, err := h.store.ListSessions(c.Context(), f.ID)
	if err != nil {
		return h.fail(c, err)
	}
	report, err := funnel.AggregateParallel(c.Context(), funnel.Resolve(f.Stages), traces, h.workers)
	if err != nil {
		return h.fail(c, err)
	}
	h.metrics.ObserveFunnelReport(report)
	if report.UnexplainedTransitions > 0 {
		h.log.Warn("sessions contain transitions the current graph cannot explain",
			zap.String("funnel", f.ID),
			zap.Int("unexplained", report.UnexplainedTransitions),
		)
	}
	return c.JSON(report)
}
