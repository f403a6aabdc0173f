package service

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/campaign-support/internal/domain"
	"github.com/spec-kit/campaign-support/internal/events"
	"github.com/spec-kit/campaign-support/internal/repository"
	"github.com/spec-kit/campaign-support/internal/unread"
	apperrors "github.com/spec-kit/campaign-support/pkg/util"
)

// memTicketRepo is an in-memory TicketRepository honoring the same contract
// as the Postgres implementation: appends are atomic per ticket and
// timestamps are store-assigned and strictly increasing.
type memTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	clock   time.Time
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{
		tickets: make(map[string]*domain.Ticket),
		clock:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (r *memTicketRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Millisecond)
	return r.clock
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket, opening *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.tick()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now

	opening.ID = uuid.NewString()
	opening.TicketID = ticket.ID
	opening.CreatedAt = now
	ticket.LastUpdate = now
	ticket.Messages = []domain.Message{*opening}

	stored := copyTicket(ticket)
	r.tickets[ticket.ID] = &stored
	return nil
}

func (r *memTicketRepo) AppendMessage(_ context.Context, ticketID string, msg *domain.Message) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}

	msg.ID = uuid.NewString()
	msg.TicketID = ticket.ID
	msg.CreatedAt = r.tick()

	ticket.Messages = append(ticket.Messages, *msg)
	ticket.Status = domain.NextStatus(ticket.Status, msg.SenderRole)
	ticket.LastUpdate = msg.CreatedAt

	updated := copyTicket(ticket)
	updated.Messages = nil
	return &updated, nil
}

func (r *memTicketRepo) SetStatus(_ context.Context, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ticket.Status = status
	updated := copyTicket(ticket)
	updated.Messages = nil
	return &updated, nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	found := copyTicket(ticket)
	return &found, nil
}

func (r *memTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.OwnerID != nil && ticket.OwnerID != *filter.OwnerID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		listed := copyTicket(ticket)
		listed.Messages = nil
		result = append(result, listed)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastUpdate.After(result[j].LastUpdate)
	})
	return result, nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func copyTicket(t *domain.Ticket) domain.Ticket {
	clone := *t
	clone.Messages = make([]domain.Message, len(t.Messages))
	for i, msg := range t.Messages {
		clone.Messages[i] = msg
		if msg.Attachment != nil {
			attachment := *msg.Attachment
			clone.Messages[i].Attachment = &attachment
		}
	}
	return clone
}

// memUnreadStore is an in-memory unread.Store.
type memUnreadStore struct {
	mu      sync.Mutex
	markers map[string]time.Time
}

func newMemUnreadStore() *memUnreadStore {
	return &memUnreadStore{markers: make(map[string]time.Time)}
}

func (s *memUnreadStore) MarkRead(_ context.Context, viewerID, ticketID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[viewerID+"/"+ticketID] = at
	return nil
}

func (s *memUnreadStore) LastReadAt(_ context.Context, viewerID, ticketID string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markers[viewerID+"/"+ticketID], nil
}

func newTestService() (*TicketService, *memTicketRepo, *memUnreadStore) {
	repo := newMemTicketRepo()
	store := newMemUnreadStore()
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  repo,
		UnreadStore: store,
		Dispatcher:  events.NewInMemoryDispatcher(),
	})
	return svc, repo, store
}

func TestCreateTicket(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, "cand-1", "مشکل", "سلام")
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Errorf("status: got %s, want OPEN", ticket.Status)
	}
	if len(ticket.Messages) != 1 {
		t.Fatalf("messages: got %d, want 1", len(ticket.Messages))
	}
	opening := ticket.Messages[0]
	if opening.SenderRole != domain.RoleCandidate {
		t.Errorf("opening sender role: got %s, want CANDIDATE", opening.SenderRole)
	}
	if opening.Text != "سلام" {
		t.Errorf("opening text: got %q", opening.Text)
	}
	if !ticket.LastUpdate.Equal(opening.CreatedAt) {
		t.Errorf("lastUpdate %v != opening message timestamp %v", ticket.LastUpdate, opening.CreatedAt)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name    string
		subject string
		message string
	}{
		{"empty subject", "", "hello"},
		{"whitespace subject", "   ", "hello"},
		{"empty message", "subject", ""},
		{"whitespace message", "subject", "  \t "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateTicket(ctx, "cand-1", tc.subject, tc.message); !apperrors.IsValidation(err) {
				t.Errorf("got %v, want validation error", err)
			}
		})
	}
}

func TestAdminReplyMarksAnsweredAndUnread(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, "cand-1", "مشکل", "سلام")
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := svc.AppendMessage(ctx, ticket.ID, "admin-1", domain.RoleAdmin, "در حال بررسی", nil); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	view, err := svc.GetTicketForCandidate(ctx, "cand-1", ticket.ID)
	if err != nil {
		t.Fatalf("GetTicketForCandidate: %v", err)
	}
	if view.Ticket.Status != domain.TicketStatusAnswered {
		t.Errorf("status after admin reply: got %s, want ANSWERED", view.Ticket.Status)
	}
	if !view.Unread {
		t.Error("ticket should be unread before candidate reads it")
	}
	if !unread.IsUnread(&view.Ticket, time.Time{}) {
		t.Error("IsUnread with zero lastReadAt should be true for an answered ticket")
	}
}

func TestMarkReadClearsUnreadUntilNextAdminReply(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, "cand-1", "subject", "message")
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := svc.AppendMessage(ctx, ticket.ID, "admin-1", domain.RoleAdmin, "reply", nil); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	view, err := svc.GetTicketForCandidate(ctx, "cand-1", ticket.ID)
	if err != nil {
		t.Fatalf("GetTicketForCandidate: %v", err)
	}
	if !view.Unread {
		t.Fatal("expected unread before MarkRead")
	}

	if err := svc.MarkRead(ctx, "cand-1", ticket.ID, view.Ticket.LastUpdate); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	view, err = svc.GetTicketForCandidate(ctx, "cand-1", ticket.ID)
	if err != nil {
		t.Fatalf("GetTicketForCandidate: %v", err)
	}
	if view.Unread {
		t.Error("expected read after MarkRead")
	}
	if view.Ticket.Status != domain.TicketStatusAnswered {
		t.Errorf("MarkRead must not change status: got %s", view.Ticket.Status)
	}

	// The next admin reply makes it unread again.
	if _, err := svc.AppendMessage(ctx, ticket.ID, "admin-1", domain.RoleAdmin, "another reply", nil); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	view, err = svc.GetTicketForCandidate(ctx, "cand-1", ticket.ID)
	if err != nil {
		t.Fatalf("GetTicketForCandidate: %v", err)
	}
	if !view.Unread {
		t.Error("expected unread after a newer admin reply")
	}
}

func TestCandidateReplyReopens(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, "cand-1", "subject", "message")
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := svc.AppendMessage(ctx, ticket.ID, "admin-1", domain.RoleAdmin, "reply", nil); err != nil {
		t.Fatalf("admin AppendMessage: %v", err)
	}
	if _, err := svc.AppendMessage(ctx, ticket.ID, "cand-1", domain.RoleCandidate, "follow-up", nil); err != nil {
		t.Fatalf("candidate AppendMessage: %v", err)
	}

	got, err := svc.GetTicketForAdmin(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("GetTicketForAdmin: %v", err)
	}
	if got.Status != domain.TicketStatusOpen {
		t.Errorf("status after candidate follow-up: got %s, want OPEN", got.Status)
	}
}

func TestAppendMessageValidation(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, "cand-1", "subject", "message")
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	if _, err := svc.AppendMessage(ctx, ticket.ID, "cand-1", domain.RoleCandidate, "", nil); !apperrors.IsValidation(err) {
		t.Errorf("empty text and nil attachment: got %v, want validation error", err)
	}
	if _, err := svc.AppendMessage(ctx, ticket.ID, "cand-1", domain.RoleCandidate, "   ", nil); !apperrors.IsValidation(err) {
		t.Errorf("whitespace text and nil attachment: got %v, want validation error", err)
	}

	// Attachment-only messages are allowed.
	attachment := &domain.Attachment{URL: "https://cdn.example.com/v/clip.mp4", Kind: domain.AttachmentKindVideo}
	if _, err := svc.AppendMessage(ctx, ticket.ID, "cand-1", domain.RoleCandidate, "", attachment); err != nil {
		t.Errorf("attachment-only message: %v", err)
	}
}

func TestAppendMessageUnknownTicket(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()

	_, err := svc.AppendMessage(context.Background(), uuid.NewString(), "cand-1", domain.RoleCandidate, "hello", nil)
	if !apperrors.IsNotFound(err) {
		t.Errorf("got %v, want not-found error", err)
	}
}

func TestCandidateCannotReplyToForeignTicket(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, "cand-1", "subject", "message")
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	_, err = svc.AppendMessage(ctx, ticket.ID, "cand-2", domain.RoleCandidate, "hi", nil)
	if code := apperrors.ToDomainError(err).Code; code != "FORBIDDEN" {
		t.Errorf("got code %s, want FORBIDDEN", code)
	}
}

func TestAttachmentRoundTrip(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, "cand-1", "subject", "message")
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	kind := domain.KindFromMIME("audio/ogg")
	attachment := &domain.Attachment{URL: "https://cdn.example.com/voice/note.ogg", Kind: kind}
	if _, err := svc.AppendMessage(ctx, ticket.ID, "cand-1", domain.RoleCandidate, "voice note", attachment); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	got, err := svc.GetTicketForAdmin(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("GetTicketForAdmin: %v", err)
	}
	last := got.LastMessage()
	if last == nil || last.Attachment == nil {
		t.Fatal("expected attachment on last message")
	}
	if last.Attachment.URL != attachment.URL {
		t.Errorf("url: got %q, want %q", last.Attachment.URL, attachment.URL)
	}
	if last.Attachment.Kind != domain.AttachmentKindVoice {
		t.Errorf("kind: got %s, want VOICE", last.Attachment.Kind)
	}
}

func TestLastUpdateTracksNewestMessage(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, "cand-1", "subject", "message")
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	appends := []struct {
		sender string
		role   domain.SenderRole
	}{
		{"admin-1", domain.RoleAdmin},
		{"cand-1", domain.RoleCandidate},
		{"admin-1", domain.RoleAdmin},
		{"admin-1", domain.RoleAdmin},
		{"cand-1", domain.RoleCandidate},
	}
	for i, step := range appends {
		if _, err := svc.AppendMessage(ctx, ticket.ID, step.sender, step.role, "msg", nil); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		got, err := svc.GetTicketForAdmin(ctx, ticket.ID)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		last := got.LastMessage()
		if !got.LastUpdate.Equal(last.CreatedAt) {
			t.Errorf("after append %d: lastUpdate %v != last message %v", i, got.LastUpdate, last.CreatedAt)
		}
		want := domain.TicketStatusOpen
		if step.role == domain.RoleAdmin {
			want = domain.TicketStatusAnswered
		}
		if got.Status != want {
			t.Errorf("after append %d: status %s, want %s", i, got.Status, want)
		}
	}
}

func TestGetTicketIdempotent(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, "cand-1", "subject", "message")
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := svc.AppendMessage(ctx, ticket.ID, "admin-1", domain.RoleAdmin, "reply", nil); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	first, err := svc.GetTicketForAdmin(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	second, err := svc.GetTicketForAdmin(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("reads without writes differ:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestConcurrentAppendsBothPersist(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, "cand-1", "subject", "message")
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	errs := make(chan error, 2)
	go func() {
		defer wg.Done()
		_, err := svc.AppendMessage(ctx, ticket.ID, "admin-1", domain.RoleAdmin, "admin racing reply", nil)
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, err := svc.AppendMessage(ctx, ticket.ID, "cand-1", domain.RoleCandidate, "candidate racing reply", nil)
		errs <- err
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("racing append: %v", err)
		}
	}

	got, err := svc.GetTicketForAdmin(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("GetTicketForAdmin: %v", err)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("messages: got %d, want 3 (opening + both racing replies)", len(got.Messages))
	}
	last := got.LastMessage()
	want := domain.NextStatus(domain.TicketStatusOpen, last.SenderRole)
	if got.Status != want {
		t.Errorf("final status %s does not match last applied sender %s", got.Status, last.SenderRole)
	}
	if !got.LastUpdate.Equal(last.CreatedAt) {
		t.Errorf("lastUpdate %v != newest message %v", got.LastUpdate, last.CreatedAt)
	}
}

func TestClosedTicketReopensOnAppend(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, "cand-1", "subject", "message")
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	closed, err := svc.CloseTicket(ctx, "admin-1", ticket.ID)
	if err != nil {
		t.Fatalf("CloseTicket: %v", err)
	}
	if closed.Status != domain.TicketStatusClosed {
		t.Fatalf("status after close: got %s, want CLOSED", closed.Status)
	}

	// A new message is never rejected for being on a closed ticket.
	if _, err := svc.AppendMessage(ctx, ticket.ID, "cand-1", domain.RoleCandidate, "still broken", nil); err != nil {
		t.Fatalf("append on closed ticket: %v", err)
	}
	got, err := svc.GetTicketForAdmin(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("GetTicketForAdmin: %v", err)
	}
	if got.Status != domain.TicketStatusOpen {
		t.Errorf("candidate reply on closed ticket: got %s, want OPEN", got.Status)
	}

	if _, err := svc.CloseTicket(ctx, "admin-1", ticket.ID); err != nil {
		t.Fatalf("re-close: %v", err)
	}
	if _, err := svc.AppendMessage(ctx, ticket.ID, "admin-1", domain.RoleAdmin, "resolved again", nil); err != nil {
		t.Fatalf("admin append on closed ticket: %v", err)
	}
	got, err = svc.GetTicketForAdmin(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("GetTicketForAdmin: %v", err)
	}
	if got.Status != domain.TicketStatusAnswered {
		t.Errorf("admin reply on closed ticket: got %s, want ANSWERED", got.Status)
	}
}

func TestListScopingAndOrdering(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.CreateTicket(ctx, "cand-1", "first", "opening")
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	second, err := svc.CreateTicket(ctx, "cand-1", "second", "opening")
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if _, err := svc.CreateTicket(ctx, "cand-2", "other candidate", "opening"); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	// Touch the first ticket so it has the newest activity.
	if _, err := svc.AppendMessage(ctx, first.ID, "admin-1", domain.RoleAdmin, "reply", nil); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	views, err := svc.ListTicketsForCandidate(ctx, "cand-1", ListFilter{})
	if err != nil {
		t.Fatalf("ListTicketsForCandidate: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("candidate list: got %d tickets, want 2", len(views))
	}
	if views[0].Ticket.ID != first.ID || views[1].Ticket.ID != second.ID {
		t.Errorf("candidate list order: got [%s %s], want [%s %s]",
			views[0].Ticket.ID, views[1].Ticket.ID, first.ID, second.ID)
	}
	if !views[0].Unread {
		t.Error("ticket with fresh admin reply should be unread in list view")
	}
	if views[1].Unread {
		t.Error("ticket without admin reply should not be unread")
	}

	all, err := svc.ListTicketsForAdmin(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("ListTicketsForAdmin: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("admin list: got %d tickets, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].LastUpdate.After(all[i-1].LastUpdate) {
			t.Errorf("admin list not ordered by last_update desc at index %d", i)
		}
	}
}

func TestMarkReadForeignTicketForbidden(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService()
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, "cand-1", "subject", "message")
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	err = svc.MarkRead(ctx, "cand-2", ticket.ID, time.Now())
	if code := apperrors.ToDomainError(err).Code; code != "FORBIDDEN" {
		t.Errorf("got code %s, want FORBIDDEN", code)
	}
}
