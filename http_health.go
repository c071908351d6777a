package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/uptrace/bun"
)

// HealthController reports process and database liveness.
type HealthController struct {
	db     *bun.DB
	logger Logger
}

func NewHealthController(db *bun.DB, logger Logger) *HealthController {
	if logger == nil {
		logger = defLogger{}
	}
	return &HealthController{db: db, logger: logger}
}

// RegisterHealthRoutes mounts GET /health on the given router group.
func (h *HealthController) RegisterHealthRoutes(router fiber.Router) {
	router.Get("/health", h.Check)
}

func (h *HealthController) Check(c *fiber.Ctx) error {
	app := fiber.Map{"status": "up"}
	database := fiber.Map{"status": "up"}
	status := "ok"
	code := http.StatusOK

	if err := h.db.PingContext(c.UserContext()); err != nil {
		h.logger.Error("database health check failed: %v", err)
		database["status"] = "down"
		status = "error"
		code = http.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"info": fiber.Map{
			"app":      app,
			"database": database,
		},
	})
}
