package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/meterkit/pkg/pg"
)

// EventStore remembers which webhook events have been applied.
type EventStore interface {
	// Claim records the event and reports whether this call was the first.
	Claim(ctx context.Context, provider, eventID, eventType string, at time.Time) (bool, error)
	// Release forgets a claimed event so a redelivery is applied again.
	Release(ctx context.Context, provider, eventID string) error
}

type MemoryEventStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{seen: make(map[string]struct{})}
}

func (s *MemoryEventStore) Claim(_ context.Context, provider, eventID, _ string, _ time.Time) (bool, error) {
	key := provider + "/" + eventID
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	return true, nil
}

func (s *MemoryEventStore) Release(_ context.Context, provider, eventID string) error {
	s.mu.Lock()
	delete(s.seen, provider+"/"+eventID)
	s.mu.Unlock()
	return nil
}

// PostgresEventStore uses the processed_events table.
type PostgresEventStore struct {
	db *pgxpool.Pool
}

func NewPostgresEventStore(db *pgxpool.Pool) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

func (s *PostgresEventStore) Claim(ctx context.Context, provider, eventID, eventType string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
INSERT INTO processed_events (provider, event_id, event_type, processed_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (provider, event_id) DO NOTHING`, provider, eventID, eventType, at)
	if err != nil {
		return false, pg.Classify(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresEventStore) Release(ctx context.Context, provider, eventID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM processed_events WHERE provider = $1 AND event_id = $2`, provider, eventID)
	return pg.Classify(err)
}
