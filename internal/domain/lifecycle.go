package domain

// NextStatus applies the ticket lifecycle transition for an appended message.
// Status is a strict function of who sent the newest message: an admin reply
// marks the ticket ANSWERED, a candidate reply (re)opens it. The current
// status does not influence the result, so a CLOSED ticket is reopened by
// any new message rather than rejecting it.
func NextStatus(_ TicketStatus, sender SenderRole) TicketStatus {
	if sender == RoleAdmin {
		return TicketStatusAnswered
	}
	return TicketStatusOpen
}
