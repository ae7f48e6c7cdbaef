package patcher

import (
	"errors"

	"compat-merger/core/logger"
	"compat-merger/core/patch"
	"compat-merger/feature/transform"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for patch jobs.
type Handler struct {
	service *Service
	jobs    *Jobs
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, jobs *Jobs) *Handler {
	return &Handler{service: service, jobs: jobs}
}

// RegisterRoutes registers the patch routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/patch")
	group.Get("/status", h.HandleStatus)
	group.Post("/scan", h.HandleScan)
	group.Post("/generate", h.HandleGenerate)
	group.Get("/jobs/:id", h.HandleJob)
	group.Delete("/jobs/:id", h.HandleCancel)
	group.Delete("/", h.HandleRemove)
	group.Post("/publish", h.HandlePublish)
}

// HandleStatus reports the last scan and the installed patch.
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	body := fiber.Map{
		"scanned": false,
		"patch":   h.service.Patch(),
	}
	if snap := h.jobs.Snapshot(); snap != nil {
		body["scanned"] = true
		body["summary"] = snap.Summary
	}
	return c.JSON(body)
}

// HandleScan starts a scan job.
func (h *Handler) HandleScan(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	id, err := h.jobs.StartScan()
	if err != nil {
		return jobError(c, l, err)
	}
	l.Info("Scan queued", zap.String("job_id", id))
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": id})
}

// HandleGenerate starts a generation job for the posted selection.
func (h *Handler) HandleGenerate(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var sel transform.Selection
	if err := c.BodyParser(&sel); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid selection: " + err.Error()})
	}
	sel, err := sel.Canonical()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	id, err := h.jobs.StartGenerate(sel)
	if err != nil {
		return jobError(c, l, err)
	}
	l.Info("Generation queued", zap.String("job_id", id), zap.Bool("boost_heroes", sel.BoostHeroes))
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": id})
}

// HandleJob returns the progress or result of a job.
func (h *Handler) HandleJob(c *fiber.Ctx) error {
	st, ok := h.jobs.Status(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
	}
	return c.JSON(st)
}

// HandleCancel requests cancellation of a job.
func (h *Handler) HandleCancel(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	id := c.Params("id")
	if !h.jobs.Cancel(id) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
	}
	l.Info("Cancellation requested", zap.String("job_id", id))
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": id, "status": "cancelling"})
}

// HandleRemove uninstalls the patch.
func (h *Handler) HandleRemove(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	outcome, p, err := h.service.Remove()
	if err != nil {
		l.Error("Patch removal failed", zap.Error(err))
		status := fiber.StatusInternalServerError
		if errors.Is(err, patch.ErrOutputWriteBlocked) {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"path": p, "status": outcome.String()})
}

// HandlePublish uploads the installed patch to object storage.
func (h *Handler) HandlePublish(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	pub, err := h.service.Publish(c.Context(), "")
	if err != nil {
		l.Error("Publish failed", zap.Error(err))
		status := fiber.StatusInternalServerError
		if errors.Is(err, ErrPatchNotFound) {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(pub)
}

func jobError(c *fiber.Ctx, l *zap.Logger, err error) error {
	switch {
	case errors.Is(err, transform.ErrNoOptionsSelected):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrBusy):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		l.Error("Cannot start job", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
