package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ecolens/backend/internal/pipeline"
	"github.com/ecolens/backend/internal/storage/sqlite"
	"github.com/ecolens/backend/pkg/logger"
)

type HistoryHandler struct {
	orchestrator *pipeline.Orchestrator
	archive      *sqlite.Client
}

func NewHistoryHandler(orchestrator *pipeline.Orchestrator, archive *sqlite.Client) *HistoryHandler {
	return &HistoryHandler{orchestrator: orchestrator, archive: archive}
}

// HandleHistory serves the session history by default; ?archived=true reads
// the durable archive instead.
func (h *HistoryHandler) HandleHistory(c *fiber.Ctx) error {
	if c.QueryBool("archived") {
		return h.handleArchived(c)
	}

	return c.JSON(fiber.Map{
		"history": h.orchestrator.SessionHistory(),
	})
}

func (h *HistoryHandler) handleArchived(c *fiber.Ctx) error {
	if h.archive == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Archive is not configured",
		})
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}

	records, err := h.archive.RecentComparisons(limit)
	if err != nil {
		logger.Error("Failed to read archive", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read archive",
		})
	}

	return c.JSON(fiber.Map{
		"history": records,
	})
}
