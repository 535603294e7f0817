package entitlement

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
	"github.com/dmitrymomot/meterkit/pkg/identity"
)

type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]PlanRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]PlanRecord)}
}

func (s *MemoryStore) Get(_ context.Context, id identity.Identity) (PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id.Key()]
	if !ok {
		return PlanRecord{}, errors.Join(apperr.ErrNotFound, ErrPlanNotFound)
	}
	return r, nil
}

func (s *MemoryStore) Upsert(_ context.Context, r PlanRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.records[r.Identity.Key()] = r
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) FindByCustomerID(_ context.Context, customerID string) (PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if customerID != "" {
		for _, r := range s.records {
			if r.StripeCustomerID == customerID {
				return r, nil
			}
		}
	}
	return PlanRecord{}, errors.Join(apperr.ErrNotFound, ErrPlanNotFound)
}
