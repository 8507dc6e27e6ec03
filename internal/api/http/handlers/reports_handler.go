package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fleetops/ops-dashboard/internal/service"
)

// ReportsHandler serves the dashboard summary routes that sit behind the
// authorization gates. The payloads are deliberately thin; the routes exist
// for the role checks, not the reporting logic.
type ReportsHandler struct {
	auth *service.AuthService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(authService *service.AuthService) *ReportsHandler {
	return &ReportsHandler{auth: authService}
}

// Revenue handles GET /api/reports/revenue (admin, executive).
func (h *ReportsHandler) Revenue(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"monthly": fiber.Map{
				"labels": []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun"},
				"values": []int{128000, 135000, 142000, 148000, 152000, 158000},
			},
			"year_to_date": fiber.Map{
				"total":  1857000,
				"growth": 12.5,
			},
		},
	})
}

// Fleet handles GET /api/operations/fleet (admin, operations).
func (h *ReportsHandler) Fleet(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"delivery_time_avg_minutes": 45,
			"success_rate":              95.2,
			"vehicle_utilization":       82,
			"active_routes":             3,
		},
	})
}

// Users handles GET /api/admin/users (admin only).
func (h *ReportsHandler) Users(c *fiber.Ctx) error {
	identities, err := h.auth.ListUsers(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"users": identities}})
}
