package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		CustomerName:   req.CustomerName,
		CompanyName:    req.CompanyName,
		CompanyAddress: req.CompanyAddress,
		MeetDate:       req.MeetDate.Time,
		MeetTime:       req.MeetTime,
		DocumentIDs:    req.DocumentIDs,
		SupportUserIDs: req.SupportUserIDs,
	}
	ticket, err := h.service.Create(c.Context(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.service.List(c.Context(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, history, err := h.service.Get(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, history)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.Update(c.Context(), actor, c.Params("id"), ticketPatch(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Delete(c.Context(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DeleteResponse{Success: true}})
}

// RescheduleTicket POST /tickets/:id/reschedule.
func (h *TicketsHandler) RescheduleTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RescheduleTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Reschedule(c.Context(), actor, c.Params("id"), req.RescheduledDate.Time, req.RescheduledTime)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

func ticketPatch(req dto.UpdateTicketRequest) domain.TicketPatch {
	patch := domain.TicketPatch{
		CustomerName:         req.CustomerName,
		CompanyName:          req.CompanyName,
		CompanyAddress:       req.CompanyAddress,
		MeetTime:             req.MeetTime,
		DocumentsToAdd:       req.DocumentsToAdd,
		DocumentsToRemove:    req.DocumentsToRemove,
		SupportUsersToAdd:    req.SupportUsersToAdd,
		SupportUsersToRemove: req.SupportUsersToRemove,
	}
	if req.MeetDate != nil {
		date := req.MeetDate.Time
		patch.MeetDate = &date
	}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		patch.Status = &status
	}
	if req.RescheduledDate.Present {
		if req.RescheduledDate.Value == nil {
			patch.RescheduledDate = domain.Null[time.Time]()
		} else {
			patch.RescheduledDate = domain.Set(req.RescheduledDate.Value.Time)
		}
	}
	if req.RescheduledTime.Present {
		if req.RescheduledTime.Value == nil {
			patch.RescheduledTime = domain.Null[string]()
		} else {
			patch.RescheduledTime = domain.Set(*req.RescheduledTime.Value)
		}
	}
	return patch
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	docs := make([]dto.DocumentResponse, 0, len(ticket.Documents))
	for _, doc := range ticket.Documents {
		docs = append(docs, documentResponse(doc))
	}
	users := make([]dto.SupportUserResponse, 0, len(ticket.SupportUsers))
	for i := range ticket.SupportUsers {
		users = append(users, supportUserResponse(&ticket.SupportUsers[i]))
	}
	return dto.TicketResponse{
		ID:              ticket.ID,
		CustomerUserID:  ticket.CustomerUserID,
		CustomerName:    ticket.CustomerName,
		CompanyName:     ticket.CompanyName,
		CompanyAddress:  ticket.CompanyAddress,
		MeetDate:        dto.FormatDate(ticket.MeetDate),
		MeetTime:        ticket.MeetTime,
		Status:          ticket.Status,
		RescheduledDate: dto.FormatDatePtr(ticket.RescheduledDate),
		RescheduledTime: ticket.RescheduledTime,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
		Documents:       docs,
		SupportUsers:    users,
	}
}

func ticketDetail(ticket *domain.Ticket, history []domain.TicketHistory) dto.TicketDetailResponse {
	entries := make([]dto.TicketHistoryResponse, 0, len(history))
	for _, entry := range history {
		entries = append(entries, dto.TicketHistoryResponse{
			ID:          entry.ID,
			ChangeType:  entry.ChangeType,
			ChangedByID: entry.ChangedByID,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return dto.TicketDetailResponse{
		TicketResponse: ticketResponse(ticket),
		History:        entries,
	}
}

func documentResponse(doc domain.Document) dto.DocumentResponse {
	return dto.DocumentResponse{
		ID:        doc.ID,
		Title:     doc.Title,
		FileName:  doc.FileName,
		MimeType:  doc.MimeType,
		SizeBytes: doc.SizeBytes,
		CreatedAt: doc.CreatedAt,
	}
}

func supportUserResponse(user *domain.User) dto.SupportUserResponse {
	return dto.SupportUserResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      user.Role,
	}
}
