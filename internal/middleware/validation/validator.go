package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// script payloads are rejected outright; other markup in step text is
// legitimate (rich-text editors emit it) and gets stripped downstream.
var scriptPattern = regexp.MustCompile(`(?i)(<script|javascript:|onerror=|onload=|onclick=)`)

type Config struct {
	MaxDescriptionLength int
	MaxBatchSteps        int
	AllowedContentTypes  []string
	Logger               *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxDescriptionLength == 0 {
		cfg.MaxDescriptionLength = 50000
	}
	if cfg.MaxBatchSteps == 0 {
		cfg.MaxBatchSteps = 100
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" {
			contentType := c.Get("Content-Type")
			if contentType != "" && len(c.Body()) > 0 {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}
		}

		path := c.Path()

		if isStepWrite(c.Method(), path) {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			description, ok := req["description"].(string)
			if !ok || strings.TrimSpace(description) == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Description is required and must be a string",
				})
			}

			if len(description) > cfg.MaxDescriptionLength {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Description exceeds maximum length",
				})
			}

			if scriptPattern.MatchString(description) {
				cfg.Logger.Warn("Script content in step description rejected",
					zap.String("ip", c.IP()),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid description content",
				})
			}
		}

		if strings.HasSuffix(path, "/analyze/batch") && c.Method() == "POST" {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			stepIDs, ok := req["step_ids"].([]interface{})
			if !ok || len(stepIDs) == 0 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "step_ids is required and must be an array",
				})
			}

			if len(stepIDs) > cfg.MaxBatchSteps {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Too many steps in one batch",
				})
			}
		}

		return c.Next()
	}
}

// isStepWrite matches POST /api/v1/steps and PUT /api/v1/steps/:id, but not
// the analyze sub-resource.
func isStepWrite(method, path string) bool {
	if !strings.Contains(path, "/api/v1/steps") {
		return false
	}
	if strings.HasSuffix(path, "/analyze") {
		return false
	}
	return method == "POST" || method == "PUT"
}
