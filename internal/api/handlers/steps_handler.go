package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sdrf-annotator/backend/internal/analysis"
	"github.com/sdrf-annotator/backend/internal/storage/sqlite"
	"github.com/sdrf-annotator/backend/pkg/logger"
)

type StepsHandler struct {
	db    *sqlite.Client
	cache *analysis.SuggestionCache
}

func NewStepsHandler(db *sqlite.Client, cache *analysis.SuggestionCache) *StepsHandler {
	return &StepsHandler{
		db:    db,
		cache: cache,
	}
}

func (h *StepsHandler) CreateStep(c *fiber.Ctx) error {
	var req struct {
		Description string `json:"description"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Description) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Description is required",
		})
	}

	step, err := h.db.InsertStep(req.Description)
	if err != nil {
		logger.Error("Failed to create step", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create step",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":          step.ID,
		"description": step.Description,
		"created_at":  step.CreatedAt,
	})
}

func (h *StepsHandler) GetStep(c *fiber.Ctx) error {
	stepID, err := parseStepID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid step id",
		})
	}

	step, err := h.db.GetStep(stepID)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Step not found",
			})
		}
		logger.Error("Failed to load step", zap.Int64("step_id", stepID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load step",
		})
	}

	return c.JSON(fiber.Map{
		"id":          step.ID,
		"description": step.Description,
		"created_at":  step.CreatedAt,
		"updated_at":  step.UpdatedAt,
	})
}

// UpdateStep replaces the step text. Stored suggestion bundles for the step
// are invalidated, not deleted, so stale entries stay inspectable.
func (h *StepsHandler) UpdateStep(c *fiber.Ctx) error {
	stepID, err := parseStepID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid step id",
		})
	}

	var req struct {
		Description string `json:"description"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Description) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Description is required",
		})
	}

	if err := h.db.UpdateStepDescription(stepID, req.Description); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Step not found",
			})
		}
		logger.Error("Failed to update step", zap.Int64("step_id", stepID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update step",
		})
	}

	if err := h.cache.Invalidate(c.Context(), stepID); err != nil {
		logger.Warn("Failed to invalidate suggestion cache", zap.Int64("step_id", stepID), zap.Error(err))
	}

	return c.JSON(fiber.Map{
		"id":      stepID,
		"updated": true,
	})
}

// GetSuggestions serves the cached bundle for a step without triggering
// analysis. analyzer_type defaults to standard.
func (h *StepsHandler) GetSuggestions(c *fiber.Ctx) error {
	stepID, err := parseStepID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid step id",
		})
	}

	analyzerType := analysis.AnalyzerType(c.Query("analyzer_type", string(analysis.AnalyzerStandard)))
	if !analyzerType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown analyzer type",
		})
	}

	step, err := h.db.GetStep(stepID)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Step not found",
			})
		}
		logger.Error("Failed to load step", zap.Int64("step_id", stepID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load step",
		})
	}

	cached, hit, err := h.cache.Get(c.Context(), stepID, analyzerType, step.Description)
	if err != nil {
		logger.Error("Failed to read suggestion cache", zap.Int64("step_id", stepID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read suggestions",
		})
	}
	if !hit {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No cached suggestions for this step",
		})
	}

	return c.JSON(fiber.Map{
		"step_id":           stepID,
		"analyzer_type":     analyzerType,
		"sdrf_suggestions":  cached.Suggestions,
		"extracted_terms":   cached.ExtractedTerms,
		"analysis_metadata": cached.Metadata,
	})
}

func (h *StepsHandler) DeleteSuggestions(c *fiber.Ctx) error {
	stepID, err := parseStepID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid step id",
		})
	}

	analyzerType := analysis.AnalyzerType(c.Query("analyzer_type", string(analysis.AnalyzerStandard)))
	if !analyzerType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown analyzer type",
		})
	}

	if err := h.cache.Delete(c.Context(), stepID, analyzerType); err != nil {
		logger.Error("Failed to delete suggestions", zap.Int64("step_id", stepID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete suggestions",
		})
	}

	return c.JSON(fiber.Map{
		"step_id": stepID,
		"deleted": true,
	})
}

func parseStepID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}
