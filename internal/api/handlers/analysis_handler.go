package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sdrf-annotator/backend/internal/analysis"
	"github.com/sdrf-annotator/backend/pkg/logger"
)

const maxBatchSteps = 100

type AnalysisHandler struct {
	analyzer  *analysis.Analyzer
	batchOpts analysis.BatchOptions
}

func NewAnalysisHandler(analyzer *analysis.Analyzer, batchOpts analysis.BatchOptions) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer:  analyzer,
		batchOpts: batchOpts,
	}
}

// AnalyzeStep runs one step through the pipeline and returns the full
// result envelope. Analysis failures are reported in the envelope with
// status 200; only malformed requests get an error status.
func (h *AnalysisHandler) AnalyzeStep(c *fiber.Ctx) error {
	stepID, err := parseStepID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid step id",
		})
	}

	var req struct {
		AnalyzerType string `json:"analyzer_type"`
	}
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	analyzerType := analysis.AnalyzerType(req.AnalyzerType)
	if analyzerType == "" {
		analyzerType = analysis.AnalyzerStandard
	}
	if !analyzerType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown analyzer type",
		})
	}

	result := h.analyzer.AnalyzeStep(c.Context(), stepID, analyzerType)
	return c.JSON(result)
}

// AnalyzeBatch analyzes a list of steps synchronously and returns all
// results. Clients that want progress events use the websocket endpoint.
func (h *AnalysisHandler) AnalyzeBatch(c *fiber.Ctx) error {
	var req struct {
		StepIDs      []int64 `json:"step_ids"`
		AnalyzerType string  `json:"analyzer_type"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if len(req.StepIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "step_ids is required",
		})
	}
	if len(req.StepIDs) > maxBatchSteps {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Too many steps in one batch",
		})
	}

	analyzerType := analysis.AnalyzerType(req.AnalyzerType)
	if analyzerType == "" {
		analyzerType = analysis.AnalyzerAIAssistedBatch
	}
	if !analyzerType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown analyzer type",
		})
	}

	batchID := uuid.New().String()
	logger.Info("Batch analysis requested",
		zap.String("batch_id", batchID),
		zap.Int("steps", len(req.StepIDs)),
		zap.String("analyzer_type", string(analyzerType)),
	)

	results := h.analyzer.AnalyzeBatch(c.Context(), req.StepIDs, analyzerType, h.batchOpts, nil)

	succeeded := 0
	for _, r := range results {
		if r != nil && r.Success {
			succeeded++
		}
	}

	return c.JSON(fiber.Map{
		"batch_id":  batchID,
		"total":     len(req.StepIDs),
		"succeeded": succeeded,
		"failed":    len(req.StepIDs) - succeeded,
		"results":   results,
	})
}
