package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campaign-support/internal/api/dto"
	"github.com/spec-kit/campaign-support/internal/auth"
	"github.com/spec-kit/campaign-support/internal/domain"
	"github.com/spec-kit/campaign-support/internal/service"
	apperrors "github.com/spec-kit/campaign-support/pkg/util"
)

// AdminTicketsHandler handles admin ticket endpoints.
type AdminTicketsHandler struct {
	tickets *service.TicketService
}

// NewAdminTicketsHandler constructs handler.
func NewAdminTicketsHandler(ticketService *service.TicketService) *AdminTicketsHandler {
	return &AdminTicketsHandler{tickets: ticketService}
}

// ListTickets GET /admin/tickets.
func (h *AdminTicketsHandler) ListTickets(c *fiber.Ctx) error {
	if _, err := adminPrincipal(c); err != nil {
		return err
	}
	tickets, err := h.tickets.ListTicketsForAdmin(c.Context(), parseListFilter(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /admin/tickets/:id.
func (h *AdminTicketsHandler) GetTicket(c *fiber.Ctx) error {
	if _, err := adminPrincipal(c); err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicketForAdmin(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, nil)})
}

// AddMessage POST /admin/tickets/:id/messages.
func (h *AdminTicketsHandler) AddMessage(c *fiber.Ctx) error {
	admin, err := adminPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.tickets.AppendMessage(c.Context(), c.Params("id"), admin.ID,
		domain.RoleAdmin, req.Body, attachmentFromRequest(req.Attachment))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// CloseTicket POST /admin/tickets/:id/close.
func (h *AdminTicketsHandler) CloseTicket(c *fiber.Ctx) error {
	admin, err := adminPrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.CloseTicket(c.Context(), admin.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

func adminPrincipal(c *fiber.Ctx) (*domain.Admin, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Admin == nil {
		return nil, apperrors.NewUnauthorized("admin required")
	}
	return principal.Admin, nil
}
