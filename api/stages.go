package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/funnel"
	"go.uber.org/zap"
)

// snapshotResponse is returned by every editor mutation so the canvas can
// redraw and show findings inline.
type snapshotResponse struct {
	Funnel     *funnel.Funnel          `json:"funnel"`
	Stage      *funnel.Stage           `json:"stage,omitempty"`
	Validation funnel.ValidationReport `json:"validation"`
}

func (h *Handler) snapshot(f *funnel.Funnel, st *funnel.Stage) snapshotResponse {
	report := funnel.Validate(f.Stages, funnel.Resolve(f.Stages))
	h.metrics.ObserveReport(report)
	return snapshotResponse{Funnel: f, Stage: st, Validation: report}
}

// mutate loads the funnel, applies fn through a StageStore and saves the
// result. Concurrent editors are last-write-wins.
func (h *Handler) mutate(c fiber.Ctx, op string, fn func(*funnel.StageStore) (*funnel.Stage, error)) error {
	f, err := h.loadFunnel(c)
	if err != nil {
		return h.fail(c, err)
	}
	ss := funnel.NewStageStore(f.Stages)
	st, err := fn(ss)
	if err != nil {
		h.metrics.StageMutations.WithLabelValues(op, "rejected").Inc()
		return h.fail(c, err)
	}
	f.Stages = ss.Snapshot()
	if err := h.store.SaveFunnel(c.Context(), f); err != nil {
		return h.fail(c, err)
	}
	h.metrics.StageMutations.WithLabelValues(op, "ok").Inc()
	h.log.Debug("stage mutation", zap.String("op", op), zap.String("funnel", f.ID))

	status := 200
	if op == "create" {
		status = 201
	}
	return c.Status(status).JSON(h.snapshot(f, st))
}

func (h *Handler) createStage(c fiber.Ctx) error {
	var req createStageRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err)
	}
	return h.mutate(c, "create", func(ss *funnel.StageStore) (*funnel.Stage, error) {
		st := ss.Create(req.Name)
		if req.Index != nil {
			if err := ss.Move(st.ID, *req.Index); err != nil {
				return nil, err
			}
		}
		return &st, nil
	})
}

func (h *Handler) renameStage(c fiber.Ctx) error {
	var req renameStageRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err)
	}
	return h.mutate(c, "rename", func(ss *funnel.StageStore) (*funnel.Stage, error) {
		return nil, ss.Rename(c.Params("stageId"), req.Name)
	})
}

func (h *Handler) setComponents(c fiber.Ctx) error {
	var req componentsRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err)
	}
	return h.mutate(c, "components", func(ss *funnel.StageStore) (*funnel.Stage, error) {
		return nil, ss.SetComponents(c.Params("stageId"), req.Components)
	})
}

func (h *Handler) setPosition(c fiber.Ctx) error {
	var req positionRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err)
	}
	return h.mutate(c, "position", func(ss *funnel.StageStore) (*funnel.Stage, error) {
		return nil, ss.SetPosition(c.Params("stageId"), &funnel.Position{X: *req.X, Y: *req.Y})
	})
}

func (h *Handler) connect(c fiber.Ctx) error {
	var req connectionRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err)
	}
	return h.mutate(c, "connect", func(ss *funnel.StageStore) (*funnel.Stage, error) {
		return nil, ss.Connect(c.Params("stageId"), funnel.Connection{SourceBranchID: req.SourceBranchID, ToStageID: req.ToStageID})
	})
}

func (h *Handler) disconnect(c fiber.Ctx) error {
	var req connectionRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err)
	}
	return h.mutate(c, "disconnect", func(ss *funnel.StageStore) (*funnel.Stage, error) {
		return nil, ss.Disconnect(c.Params("stageId"), funnel.Connection{SourceBranchID: req.SourceBranchID, ToStageID: req.ToStageID})
	})
}

func (h *Handler) removeStage(c fiber.Ctx) error {
	return h.mutate(c, "remove", func(ss *funnel.StageStore) (*funnel.Stage, error) {
		return nil, ss.Remove(c.Params("stageId"))
	})
}

func (h *Handler) reorder(c fiber.Ctx) error {
	var req reorderRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err)
	}
	return h.mutate(c, "reorder", func(ss *funnel.StageStore) (*funnel.Stage, error) {
		return nil, ss.Reorder(req.StageIDs)
	})
}
