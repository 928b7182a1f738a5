package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"b2bcatalog/internal/domain"
	applog "b2bcatalog/internal/log"
	"b2bcatalog/internal/services"
)

type SyncHandler struct {
	Sync *services.SyncService
	// Base outlives the request so a started run keeps going after the
	// response is written. Cancelled on shutdown.
	Base context.Context
}

// GET /api/sync/test
func (h *SyncHandler) Test(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 30*time.Second)
	defer cancel()
	if err := h.Sync.TestConnection(ctx); err != nil {
		applog.Warn(c, "sync.test.fail", err, nil)
		return c.JSON(fiber.Map{"connected": false, "message": err.Error()})
	}
	return c.JSON(fiber.Map{"connected": true, "message": "Supplier connection OK"})
}

// POST /api/sync/start
func (h *SyncHandler) Start(c *fiber.Ctx) error {
	var req services.SyncRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "body", "invalid JSON body")
		}
	}
	if req.MaxPages < 0 {
		return badRequest(c, "max_pages", "max_pages must not be negative")
	}
	run, err := h.Sync.Start(h.Base, req)
	if err != nil {
		return fail(c, "sync.start", err)
	}
	applog.Audit(c, "sync.start", map[string]any{"run_id": run.ID, "strategy": run.Strategy})
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"message": "Sync started",
		"run_id":  run.ID,
		"run":     run,
	})
}

// GET /api/sync/status
func (h *SyncHandler) Status(c *fiber.Ctx) error {
	runs, err := h.Sync.History(c.UserContext(), 10)
	if err != nil {
		return fail(c, "sync.status", err)
	}
	if runs == nil {
		runs = []domain.SyncRun{}
	}
	var last *domain.SyncRun
	if len(runs) > 0 {
		last = &runs[0]
	}
	return c.JSON(fiber.Map{
		"running":      h.Sync.Running(),
		"last_sync":    last,
		"recent_syncs": runs,
	})
}

// GET /api/sync/runs/:id
func (h *SyncHandler) Run(c *fiber.Ctx) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "id", "invalid run id")
	}
	run, err := h.Sync.GetRun(c.UserContext(), id)
	if err != nil {
		return fail(c, "sync.run", err)
	}
	return c.JSON(run)
}
