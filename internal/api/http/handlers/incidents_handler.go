package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/dto"
	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/internal/service"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// IncidentsHandler exposes incident lifecycle endpoints.
type IncidentsHandler struct {
	service *service.IncidentService
}

// NewIncidentsHandler constructs handler.
func NewIncidentsHandler(incidentService *service.IncidentService) *IncidentsHandler {
	return &IncidentsHandler{service: incidentService}
}

// Submit POST /api/submit and /api/submit_internal.
func (h *IncidentsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	incident, err := h.service.Submit(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Incident submitted successfully!",
		"data":    dto.NewIncidentResponse(incident),
	})
}

// List GET /api/incidents?name=&category=.
func (h *IncidentsHandler) List(c *fiber.Ctx) error {
	var filter repository.IncidentFilter
	if name := strings.TrimSpace(c.Query("name")); name != "" {
		filter.NameContains = &name
	}
	if category := c.Query("category"); category != "" {
		filter.Category = &category
	}

	incidents, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.IncidentResponse, 0, len(incidents))
	for i := range incidents {
		items = append(items, dto.NewIncidentResponse(&incidents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /api/incidents/:id.
func (h *IncidentsHandler) Get(c *fiber.Ctx) error {
	incident, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIncidentResponse(incident)})
}

// Acknowledge POST /api/incidents/:id/acknowledge.
func (h *IncidentsHandler) Acknowledge(c *fiber.Ctx) error {
	caller, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	incident, err := h.service.Acknowledge(c.UserContext(), c.Params("id"), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIncidentResponse(incident)})
}

// Resolve POST /api/incidents/:id/resolve.
func (h *IncidentsHandler) Resolve(c *fiber.Ctx) error {
	caller, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	incident, err := h.service.Resolve(c.UserContext(), c.Params("id"), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewIncidentResponse(incident)})
}

// Dashboard GET /admin-dashboard.
func (h *IncidentsHandler) Dashboard(c *fiber.Ctx) error {
	summary, err := h.service.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DashboardResponse{
		Total:        summary.Total,
		Acknowledged: summary.Acknowledged,
		Resolved:     summary.Resolved,
		Breached:     summary.Breached,
		ByPriority:   summary.ByPriority,
	}})
}
