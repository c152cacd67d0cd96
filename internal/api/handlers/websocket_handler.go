package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sdrf-annotator/backend/internal/analysis"
	"github.com/sdrf-annotator/backend/pkg/logger"
)

// WebSocketHandler streams batch analysis progress. The client sends one
// analyze_batch message and receives a progress event per completed step
// followed by a complete event.
type WebSocketHandler struct {
	analyzer  *analysis.Analyzer
	batchOpts analysis.BatchOptions
}

func NewWebSocketHandler(analyzer *analysis.Analyzer, batchOpts analysis.BatchOptions) *WebSocketHandler {
	return &WebSocketHandler{
		analyzer:  analyzer,
		batchOpts: batchOpts,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type         string  `json:"type"`
			StepIDs      []int64 `json:"step_ids"`
			AnalyzerType string  `json:"analyzer_type"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "analyze_batch" {
			h.sendError(c, "Unknown message type")
			continue
		}

		if len(msg.StepIDs) == 0 {
			h.sendError(c, "step_ids is required")
			continue
		}
		if len(msg.StepIDs) > maxBatchSteps {
			h.sendError(c, "Too many steps in one batch")
			continue
		}

		analyzerType := analysis.AnalyzerType(msg.AnalyzerType)
		if analyzerType == "" {
			analyzerType = analysis.AnalyzerAIAssistedBatch
		}
		if !analyzerType.Valid() {
			h.sendError(c, "Unknown analyzer type")
			continue
		}

		if err := h.streamBatch(c, msg.StepIDs, analyzerType); err != nil {
			logger.Error("Failed to stream batch progress", zap.Error(err))
			break
		}
	}
}

func (h *WebSocketHandler) streamBatch(c *websocket.Conn, stepIDs []int64, analyzerType analysis.AnalyzerType) error {
	batchID := uuid.New().String()

	if err := c.WriteJSON(map[string]interface{}{
		"type":     "started",
		"batch_id": batchID,
		"total":    len(stepIDs),
	}); err != nil {
		return err
	}

	var writeErr error
	results := h.analyzer.AnalyzeBatch(context.Background(), stepIDs, analyzerType, h.batchOpts, func(p analysis.BatchProgress) {
		if writeErr != nil {
			return
		}
		writeErr = c.WriteJSON(map[string]interface{}{
			"type":      "progress",
			"batch_id":  batchID,
			"step_id":   p.StepID,
			"completed": p.Completed,
			"total":     p.Total,
			"result":    p.Result,
		})
	})
	if writeErr != nil {
		return writeErr
	}

	succeeded := 0
	for _, r := range results {
		if r != nil && r.Success {
			succeeded++
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":      "complete",
		"batch_id":  batchID,
		"total":     len(stepIDs),
		"succeeded": succeeded,
		"failed":    len(stepIDs) - succeeded,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
