package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campaign-support/internal/api/dto"
	"github.com/spec-kit/campaign-support/internal/auth"
	"github.com/spec-kit/campaign-support/internal/domain"
	"github.com/spec-kit/campaign-support/internal/service"
	apperrors "github.com/spec-kit/campaign-support/pkg/util"
)

// TicketsHandler manages candidate-facing ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Candidate == nil {
		return apperrors.NewUnauthorized("candidate required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.CreateTicket(c.Context(), principal.Candidate.ID, req.Subject, req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket, nil)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Candidate == nil {
		return apperrors.NewUnauthorized("candidate required")
	}
	views, err := h.tickets.ListTicketsForCandidate(c.Context(), principal.Candidate.ID, parseListFilter(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(views))
	for i := range views {
		summary := ticketSummary(&views[i].Ticket)
		unreadFlag := views[i].Unread
		summary.Unread = &unreadFlag
		items = append(items, summary)
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Candidate == nil {
		return apperrors.NewUnauthorized("candidate required")
	}
	view, err := h.tickets.GetTicketForCandidate(c.Context(), principal.Candidate.ID, c.Params("id"))
	if err != nil {
		return err
	}
	unreadFlag := view.Unread
	return c.JSON(fiber.Map{"data": ticketDetail(&view.Ticket, &unreadFlag)})
}

// AddMessage POST /tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Candidate == nil {
		return apperrors.NewUnauthorized("candidate required")
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.tickets.AppendMessage(c.Context(), c.Params("id"), principal.Candidate.ID,
		domain.RoleCandidate, req.Body, attachmentFromRequest(req.Attachment))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// MarkRead POST /tickets/:id/read.
func (h *TicketsHandler) MarkRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Candidate == nil {
		return apperrors.NewUnauthorized("candidate required")
	}
	if err := h.tickets.MarkRead(c.Context(), principal.Candidate.ID, c.Params("id"), time.Now()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func attachmentFromRequest(req *dto.AttachmentRequest) *domain.Attachment {
	if req == nil {
		return nil
	}
	kind := req.Kind
	if kind == "" {
		kind = domain.AttachmentKindFile
	}
	return &domain.Attachment{URL: req.URL, Kind: kind}
}

func parseListFilter(c *fiber.Ctx) service.ListFilter {
	filter := service.ListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:         ticket.ID,
		OwnerID:    ticket.OwnerID,
		Subject:    ticket.Subject,
		Status:     ticket.Status,
		CreatedAt:  ticket.CreatedAt,
		LastUpdate: ticket.LastUpdate,
	}
}

func ticketDetail(ticket *domain.Ticket, unreadFlag *bool) dto.TicketDetailResponse {
	msgs := make([]dto.MessageResponse, 0, len(ticket.Messages))
	for i := range ticket.Messages {
		msgs = append(msgs, messageResponse(&ticket.Messages[i]))
	}
	return dto.TicketDetailResponse{
		ID:         ticket.ID,
		OwnerID:    ticket.OwnerID,
		Subject:    ticket.Subject,
		Status:     ticket.Status,
		Unread:     unreadFlag,
		CreatedAt:  ticket.CreatedAt,
		LastUpdate: ticket.LastUpdate,
		Messages:   msgs,
	}
}

func messageResponse(msg *domain.Message) dto.MessageResponse {
	resp := dto.MessageResponse{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		SenderRole: msg.SenderRole,
		Body:       msg.Text,
		CreatedAt:  msg.CreatedAt,
	}
	if msg.Attachment != nil {
		resp.Attachment = &dto.AttachmentResponse{
			URL:  msg.Attachment.URL,
			Kind: msg.Attachment.Kind,
		}
	}
	return resp
}
