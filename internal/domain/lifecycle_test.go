package domain

import "testing"

func TestNextStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		current TicketStatus
		sender  SenderRole
		want    TicketStatus
	}{
		{"admin reply answers open ticket", TicketStatusOpen, RoleAdmin, TicketStatusAnswered},
		{"admin reply keeps answered ticket answered", TicketStatusAnswered, RoleAdmin, TicketStatusAnswered},
		{"candidate reply reopens answered ticket", TicketStatusAnswered, RoleCandidate, TicketStatusOpen},
		{"candidate reply keeps open ticket open", TicketStatusOpen, RoleCandidate, TicketStatusOpen},
		{"admin reply reopens closed ticket as answered", TicketStatusClosed, RoleAdmin, TicketStatusAnswered},
		{"candidate reply reopens closed ticket", TicketStatusClosed, RoleCandidate, TicketStatusOpen},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextStatus(tc.current, tc.sender); got != tc.want {
				t.Errorf("NextStatus(%s, %s): got %s, want %s", tc.current, tc.sender, got, tc.want)
			}
		})
	}
}

func TestNextStatusIgnoresCurrentState(t *testing.T) {
	t.Parallel()

	// The resulting status depends only on the sender of the newest message.
	for _, current := range []TicketStatus{TicketStatusOpen, TicketStatusAnswered, TicketStatusClosed} {
		if got := NextStatus(current, RoleAdmin); got != TicketStatusAnswered {
			t.Errorf("NextStatus(%s, ADMIN): got %s, want ANSWERED", current, got)
		}
		if got := NextStatus(current, RoleCandidate); got != TicketStatusOpen {
			t.Errorf("NextStatus(%s, CANDIDATE): got %s, want OPEN", current, got)
		}
	}
}
