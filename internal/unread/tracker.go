// Package unread tracks, per viewer, the last time each ticket thread was
// read. The marker lives outside the ticket itself: it derives the "unread"
// badge candidates see and never influences ticket status.
package unread

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/campaign-support/internal/domain"
)

// Store persists last-read markers per viewer/ticket pair.
type Store interface {
	MarkRead(ctx context.Context, viewerID, ticketID string, at time.Time) error
	LastReadAt(ctx context.Context, viewerID, ticketID string) (time.Time, error)
}

// IsUnread reports whether a ticket should carry an unread badge for a
// candidate viewer: the admin has replied and the viewer has not looked at
// the thread since. Admins have no unread tracking; an OPEN ticket is their
// needs-attention signal.
func IsUnread(ticket *domain.Ticket, lastReadAt time.Time) bool {
	return ticket.Status == domain.TicketStatusAnswered && ticket.LastUpdate.After(lastReadAt)
}

// markerTTL bounds marker lifetime; a marker older than this reads as the
// zero time, which at worst re-shows a badge on a long-dormant ticket.
const markerTTL = 90 * 24 * time.Hour

type redisStore struct {
	client *redis.Client
}

// NewRedisStore builds a Store backed by Redis.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func markerKey(viewerID, ticketID string) string {
	return fmt.Sprintf("unread:%s:%s", viewerID, ticketID)
}

func (s *redisStore) MarkRead(ctx context.Context, viewerID, ticketID string, at time.Time) error {
	return s.client.Set(ctx, markerKey(viewerID, ticketID), at.UTC().Format(time.RFC3339Nano), markerTTL).Err()
}

func (s *redisStore) LastReadAt(ctx context.Context, viewerID, ticketID string) (time.Time, error) {
	val, err := s.client.Get(ctx, markerKey(viewerID, ticketID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse unread marker: %w", err)
	}
	return at, nil
}
