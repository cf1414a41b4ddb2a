package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
)

// SupportHandler exposes the support-team pick list with current load.
type SupportHandler struct {
	assigner *service.AssignmentService
}

// NewSupportHandler constructs handler.
func NewSupportHandler(assigner *service.AssignmentService) *SupportHandler {
	return &SupportHandler{assigner: assigner}
}

// ListSupportUsers GET /support/users. Admin only (enforced by route guard).
func (h *SupportHandler) ListSupportUsers(c *fiber.Ctx) error {
	loads, err := h.assigner.ListSupportLoad(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.SupportLoadResponse, 0, len(loads))
	for i := range loads {
		items = append(items, dto.SupportLoadResponse{
			SupportUserResponse: supportUserResponse(&loads[i].User),
			ActiveTickets:       loads[i].ActiveTickets,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
