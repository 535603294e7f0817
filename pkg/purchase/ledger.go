package purchase

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
)

// Ledger stores purchase records, unique by session id.
type Ledger interface {
	// InsertOrGet stores r unless a record for r.SessionID exists, in which
	// case the existing record is returned with created false.
	InsertOrGet(ctx context.Context, r Record) (stored Record, created bool, err error)
	Get(ctx context.Context, sessionID string) (Record, error)
}

type MemoryLedger struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[string]Record)}
}

func (l *MemoryLedger) InsertOrGet(_ context.Context, r Record) (Record, bool, error) {
	if r.SessionID == "" {
		return Record{}, false, errors.Join(apperr.ErrValidation, ErrMissingSessionID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.records[r.SessionID]; ok {
		return existing, false, nil
	}
	l.records[r.SessionID] = r
	return r, true, nil
}

func (l *MemoryLedger) Get(_ context.Context, sessionID string) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[sessionID]
	if !ok {
		return Record{}, errors.Join(apperr.ErrNotFound, ErrRecordNotFound)
	}
	return r, nil
}

// Len returns the number of records.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
