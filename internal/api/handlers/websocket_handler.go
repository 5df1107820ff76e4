package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/ecolens/backend/internal/assessment"
	"github.com/ecolens/backend/internal/pipeline"
	"github.com/ecolens/backend/pkg/logger"
)

type WebSocketHandler struct {
	orchestrator *pipeline.Orchestrator
}

func NewWebSocketHandler(orchestrator *pipeline.Orchestrator) *WebSocketHandler {
	return &WebSocketHandler{orchestrator: orchestrator}
}

// compareTimeout bounds a single streamed comparison. Runs must not outlive
// the socket that asked for them.
const compareTimeout = 2 * time.Minute

// HandleConnection serves one client: compare requests in, stage status
// events, narrative chunks, and the completed record out.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type    string `json:"type"`
			Content string `json:"content"`
			UserID  string `json:"user_id"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "compare" {
			continue
		}

		logger.Info("Processing WebSocket comparison", zap.String("query", msg.Content))

		if err := h.streamComparison(ctx, c, msg.Content, msg.UserID); err != nil {
			logger.Error("Failed to stream comparison", zap.Error(err))
			h.sendError(c, err)
		}
	}
}

// runContext derives the per-run deadline from the connection's context, so
// closing the socket cancels an in-flight run.
func (h *WebSocketHandler) runContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, compareTimeout)
}

func (h *WebSocketHandler) streamComparison(ctx context.Context, c *websocket.Conn, query, userID string) error {
	runCtx, cancel := h.runContext(ctx)
	defer cancel()

	h.sendEvent(c, "status", "Scout: searching for assessment data...")

	record, err := h.orchestrator.Run(runCtx, pipeline.Request{
		Query:  query,
		UserID: userID,
	})
	if err != nil {
		return err
	}

	h.sendEvent(c, "status", "Analyst: decision matrix generated")

	for _, word := range strings.Fields(record.Narrative) {
		if err := h.sendEvent(c, "chunk", word+" "); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":   "complete",
		"record": record,
	})
}

func (h *WebSocketHandler) sendEvent(c *websocket.Conn, eventType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    eventType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, err error) {
	payload := map[string]interface{}{
		"type":  "error",
		"error": "Failed to run comparison",
	}

	var invalidInput *assessment.InvalidInputError
	var stageErr *assessment.StageError
	switch {
	case errors.As(err, &invalidInput):
		payload["error"] = invalidInput.Error()
	case errors.As(err, &stageErr):
		payload["error"] = "Pipeline stage failed"
		payload["stage"] = stageErr.Stage
	}

	if writeErr := c.WriteJSON(payload); writeErr != nil {
		logger.Debug("Failed to write WebSocket error", zap.Error(writeErr))
	}
}
