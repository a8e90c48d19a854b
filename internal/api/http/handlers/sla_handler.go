package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/dto"
	"github.com/spec-kit/incident-service/internal/service"
)

// SLAHandler serves the SLA report.
type SLAHandler struct {
	monitor *service.SLAMonitor
}

// NewSLAHandler constructs handler.
func NewSLAHandler(monitor *service.SLAMonitor) *SLAHandler {
	return &SLAHandler{monitor: monitor}
}

// Monitor GET /api/incidents/sla-monitor runs a sweep and returns its violations.
func (h *SLAHandler) Monitor(c *fiber.Ctx) error {
	report, err := h.monitor.Sweep(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSLAReportResponse(report)})
}
