package domain

import "time"

// TicketStatus enumerates lifecycle states for support tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusAnswered TicketStatus = "ANSWERED"
	TicketStatusClosed   TicketStatus = "CLOSED"
)

// SenderRole identifies which side of the conversation authored a message.
type SenderRole string

const (
	RoleAdmin     SenderRole = "ADMIN"
	RoleCandidate SenderRole = "CANDIDATE"
)

// Ticket is the aggregate for a candidate support request. Subject and
// OwnerID are fixed at creation; Status and LastUpdate change only when a
// message is appended to the thread.
type Ticket struct {
	ID         string
	OwnerID    string
	Subject    string
	Status     TicketStatus
	CreatedAt  time.Time
	LastUpdate time.Time
	Messages   []Message
}

// LastMessage returns the newest message in the thread, or nil when the
// thread has not been loaded.
func (t *Ticket) LastMessage() *Message {
	if len(t.Messages) == 0 {
		return nil
	}
	return &t.Messages[len(t.Messages)-1]
}
