package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/campaign-support/internal/domain"
	"github.com/spec-kit/campaign-support/internal/events"
	"github.com/spec-kit/campaign-support/internal/repository"
	"github.com/spec-kit/campaign-support/internal/unread"
	apperrors "github.com/spec-kit/campaign-support/pkg/util"
)

// TicketService coordinates the support-ticket workflows: creation, threaded
// replies, role-scoped listing and per-candidate unread markers.
type TicketService struct {
	tickets    repository.TicketRepository
	unread     unread.Store
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	UnreadStore unread.Store
	Dispatcher  events.Dispatcher
}

// TicketView augments a ticket with its viewer-specific unread flag.
type TicketView struct {
	Ticket domain.Ticket
	Unread bool
}

// ListFilter captures listing parameters shared by both roles.
type ListFilter struct {
	Statuses []domain.TicketStatus
	Limit    int
	Offset   int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		unread:     deps.UnreadStore,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket opens a new ticket for a candidate. The opening message is
// always authored by the candidate and the ticket starts OPEN.
func (s *TicketService) CreateTicket(ctx context.Context, ownerID, subject, firstMessageText string) (*domain.Ticket, error) {
	subject = strings.TrimSpace(subject)
	firstMessageText = strings.TrimSpace(firstMessageText)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject required", nil)
	}
	if firstMessageText == "" {
		return nil, apperrors.NewValidationError("opening message required", nil)
	}

	ticket := &domain.Ticket{
		OwnerID: ownerID,
		Subject: subject,
		Status:  domain.TicketStatusOpen,
	}
	opening := &domain.Message{
		SenderID:   ownerID,
		SenderRole: domain.RoleCandidate,
		Text:       firstMessageText,
	}
	if err := s.tickets.Create(ctx, ticket, opening); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{Role: domain.RoleCandidate, ID: ownerID},
		Payload: events.TicketCreatedPayload{
			OwnerID: ticket.OwnerID,
			Subject: ticket.Subject,
		},
	})
	return ticket, nil
}

// AppendMessage appends a reply to a ticket thread and applies the lifecycle
// transition. Candidates may only reply on tickets they own; admins may reply
// anywhere. A reply needs text, an attachment, or both.
func (s *TicketService) AppendMessage(ctx context.Context, ticketID, senderID string, role domain.SenderRole, text string, attachment *domain.Attachment) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && attachment == nil {
		return nil, apperrors.NewValidationError("message needs text or an attachment", nil)
	}
	if attachment != nil && strings.TrimSpace(attachment.URL) == "" {
		return nil, apperrors.NewValidationError("attachment url required", nil)
	}

	existing, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, ticketError(err, ticketID)
	}
	if role == domain.RoleCandidate && existing.OwnerID != senderID {
		return nil, apperrors.NewForbidden("ticket belongs to another candidate")
	}

	msg := &domain.Message{
		SenderID:   senderID,
		SenderRole: role,
		Text:       text,
		Attachment: attachment,
	}
	updated, err := s.tickets.AppendMessage(ctx, ticketID, msg)
	if err != nil {
		return nil, ticketError(err, ticketID)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: updated.ID,
		Actor:    events.Actor{Role: role, ID: senderID},
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			SenderRole:  msg.SenderRole,
			SenderID:    msg.SenderID,
			HasFile:     msg.Attachment != nil,
			NewStatus:   updated.Status,
			BodyPreview: stringPreview(msg.Text, 120),
		},
	})
	return msg, nil
}

// ListTicketsForCandidate returns a candidate's tickets newest-activity first,
// each view annotated with its unread flag.
func (s *TicketService) ListTicketsForCandidate(ctx context.Context, candidateID string, filter ListFilter) ([]TicketView, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		OwnerID:  &candidateID,
		Statuses: filter.Statuses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
	if err != nil {
		return nil, err
	}

	views := make([]TicketView, 0, len(tickets))
	for i := range tickets {
		view := TicketView{Ticket: tickets[i]}
		if s.unread != nil {
			lastReadAt, err := s.unread.LastReadAt(ctx, candidateID, tickets[i].ID)
			if err != nil {
				return nil, err
			}
			view.Unread = unread.IsUnread(&tickets[i], lastReadAt)
		}
		views = append(views, view)
	}
	return views, nil
}

// ListTicketsForAdmin returns tickets across all candidates.
func (s *TicketService) ListTicketsForAdmin(ctx context.Context, filter ListFilter) ([]domain.Ticket, error) {
	return s.tickets.List(ctx, repository.TicketFilter{
		Statuses: filter.Statuses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

// GetTicketForCandidate fetches one ticket with its thread, ensuring
// ownership, and reports its unread flag.
func (s *TicketService) GetTicketForCandidate(ctx context.Context, candidateID, ticketID string) (*TicketView, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, ticketError(err, ticketID)
	}
	if ticket.OwnerID != candidateID {
		return nil, apperrors.NewForbidden("ticket belongs to another candidate")
	}
	view := &TicketView{Ticket: *ticket}
	if s.unread != nil {
		lastReadAt, err := s.unread.LastReadAt(ctx, candidateID, ticket.ID)
		if err != nil {
			return nil, err
		}
		view.Unread = unread.IsUnread(ticket, lastReadAt)
	}
	return view, nil
}

// GetTicketForAdmin fetches any ticket with its thread.
func (s *TicketService) GetTicketForAdmin(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, ticketError(err, ticketID)
	}
	return ticket, nil
}

// MarkRead records that the candidate has seen the thread as of now. It never
// touches ticket status.
func (s *TicketService) MarkRead(ctx context.Context, candidateID, ticketID string, at time.Time) error {
	if s.unread == nil {
		return nil
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return ticketError(err, ticketID)
	}
	if ticket.OwnerID != candidateID {
		return apperrors.NewForbidden("ticket belongs to another candidate")
	}
	return s.unread.MarkRead(ctx, candidateID, ticketID, at)
}

// CloseTicket is the administrative close action. Closing is terminal only
// until the next reply: a later append reopens the thread through the normal
// lifecycle rule.
func (s *TicketService) CloseTicket(ctx context.Context, adminID, ticketID string) (*domain.Ticket, error) {
	existing, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, ticketError(err, ticketID)
	}
	if existing.Status == domain.TicketStatusClosed {
		return existing, nil
	}

	updated, err := s.tickets.SetStatus(ctx, ticketID, domain.TicketStatusClosed)
	if err != nil {
		return nil, ticketError(err, ticketID)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: updated.ID,
		Actor:    events.Actor{Role: domain.RoleAdmin, ID: adminID},
		Payload: events.TicketStatusChangedPayload{
			OldStatus: existing.Status,
			NewStatus: updated.Status,
			Comment:   "admin_closed",
		},
	})
	return updated, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func ticketError(err error, ticketID string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return err
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
