package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ecolens/backend/internal/assessment"
	"github.com/ecolens/backend/internal/pipeline"
	"github.com/ecolens/backend/pkg/logger"
)

type CompareHandler struct {
	orchestrator *pipeline.Orchestrator
}

func NewCompareHandler(orchestrator *pipeline.Orchestrator) *CompareHandler {
	return &CompareHandler{orchestrator: orchestrator}
}

func (h *CompareHandler) HandleCompare(c *fiber.Ctx) error {
	var req struct {
		Query  string `json:"query"`
		UserID string `json:"user_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	record, err := h.orchestrator.Run(c.Context(), pipeline.Request{
		Query:  req.Query,
		UserID: req.UserID,
	})
	if err != nil {
		return writePipelineError(c, err)
	}

	return c.JSON(record)
}

// writePipelineError maps the error taxonomy onto HTTP statuses. The stage and
// cause of a live-path failure are surfaced so the caller can distinguish "we
// chose not to attempt a live call" from "a live call failed".
func writePipelineError(c *fiber.Ctx, err error) error {
	var invalidInput *assessment.InvalidInputError
	if errors.As(err, &invalidInput) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": invalidInput.Error(),
		})
	}

	var stageErr *assessment.StageError
	if errors.As(err, &stageErr) {
		logger.Error("Pipeline stage failed",
			zap.String("stage", stageErr.Stage),
			zap.Error(stageErr.Cause),
		)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Pipeline stage failed",
			"stage": stageErr.Stage,
			"cause": stageErr.Cause.Error(),
		})
	}

	logger.Error("Comparison failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to run comparison",
	})
}
