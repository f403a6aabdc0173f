package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/campaign-support/internal/domain"
)

// TicketFilter restricts ticket listings. A nil OwnerID means the admin view
// over all tickets.
type TicketFilter struct {
	OwnerID  *string
	Statuses []domain.TicketStatus
	Limit    int
	Offset   int
}

// TicketRepository is the authoritative store for tickets and their threads.
// AppendMessage is the sole mutator of ticket status and last_update.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket, opening *domain.Message) error
	AppendMessage(ctx context.Context, ticketID string, msg *domain.Message) (*domain.Ticket, error)
	SetStatus(ctx context.Context, ticketID string, status domain.TicketStatus) (*domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

// Create inserts the ticket row and its opening message in one transaction so
// a ticket can never be observed without its first message. last_update is
// set to the opening message's server-assigned timestamp.
func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, opening *domain.Message) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const ticketQuery = `
        INSERT INTO tickets (owner_id, subject, status)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, last_update`
	if err := tx.QueryRow(ctx, ticketQuery,
		ticket.OwnerID,
		ticket.Subject,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.LastUpdate); err != nil {
		return err
	}

	opening.TicketID = ticket.ID
	if err := insertMessage(ctx, tx, opening); err != nil {
		return err
	}

	const syncQuery = `UPDATE tickets SET last_update=$1 WHERE id=$2`
	if _, err := tx.Exec(ctx, syncQuery, opening.CreatedAt, ticket.ID); err != nil {
		return err
	}
	ticket.LastUpdate = opening.CreatedAt
	ticket.Messages = []domain.Message{*opening}

	return tx.Commit(ctx)
}

// AppendMessage appends msg to the ticket's thread and applies the lifecycle
// transition atomically. The ticket row is locked FOR UPDATE for the duration
// of the transaction, serializing concurrent appends on the same ticket while
// leaving other tickets untouched. Returns pgx.ErrNoRows for unknown ids.
func (r *ticketRepository) AppendMessage(ctx context.Context, ticketID string, msg *domain.Message) (*domain.Ticket, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const lockQuery = `
        SELECT id, owner_id, subject, status, created_at, last_update
        FROM tickets WHERE id=$1 FOR UPDATE`
	var ticket domain.Ticket
	if err := tx.QueryRow(ctx, lockQuery, ticketID).Scan(
		&ticket.ID,
		&ticket.OwnerID,
		&ticket.Subject,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.LastUpdate,
	); err != nil {
		return nil, err
	}

	msg.TicketID = ticket.ID
	if err := insertMessage(ctx, tx, msg); err != nil {
		return nil, err
	}

	ticket.Status = domain.NextStatus(ticket.Status, msg.SenderRole)
	ticket.LastUpdate = msg.CreatedAt

	const updateQuery = `UPDATE tickets SET status=$1, last_update=$2 WHERE id=$3`
	if _, err := tx.Exec(ctx, updateQuery, ticket.Status, ticket.LastUpdate, ticket.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// SetStatus forces a status outside the append path. Used only for the
// administrative close action; last_update is left alone so list ordering
// still reflects the newest message.
func (r *ticketRepository) SetStatus(ctx context.Context, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET status=$1 WHERE id=$2
        RETURNING id, owner_id, subject, status, created_at, last_update`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, status, ticketID).Scan(
		&ticket.ID,
		&ticket.OwnerID,
		&ticket.Subject,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.LastUpdate,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, owner_id, subject, status, created_at, last_update
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.OwnerID,
		&ticket.Subject,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.LastUpdate,
	); err != nil {
		return nil, err
	}

	messages, err := r.listMessages(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	ticket.Messages = messages
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT id, owner_id, subject, status, created_at, last_update FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY last_update DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.OwnerID,
			&ticket.Subject,
			&ticket.Status,
			&ticket.CreatedAt,
			&ticket.LastUpdate,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) listMessages(ctx context.Context, ticketID string) ([]domain.Message, error) {
	const query = `
        SELECT id, ticket_id, sender_id, sender_role, body, attachment_url, attachment_kind, created_at
        FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func insertMessage(ctx context.Context, tx pgx.Tx, msg *domain.Message) error {
	var url, kind *string
	if msg.Attachment != nil {
		url = &msg.Attachment.URL
		kindStr := string(msg.Attachment.Kind)
		kind = &kindStr
	}
	const query = `
        INSERT INTO ticket_messages (ticket_id, sender_id, sender_role, body, attachment_url, attachment_kind)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return tx.QueryRow(ctx, query,
		msg.TicketID,
		msg.SenderID,
		msg.SenderRole,
		msg.Text,
		url,
		kind,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func scanMessage(rows pgx.Rows) (domain.Message, error) {
	var (
		msg  domain.Message
		url  *string
		kind *string
	)
	if err := rows.Scan(
		&msg.ID,
		&msg.TicketID,
		&msg.SenderID,
		&msg.SenderRole,
		&msg.Text,
		&url,
		&kind,
		&msg.CreatedAt,
	); err != nil {
		return domain.Message{}, err
	}
	if url != nil {
		attachment := domain.Attachment{URL: *url}
		if kind != nil {
			attachment.Kind = domain.AttachmentKind(*kind)
		}
		msg.Attachment = &attachment
	}
	return msg, nil
}
