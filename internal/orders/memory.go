package orders

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with in-process storage, mirroring the
// idempotency guarantees of the Postgres repo under a single mutex.
type MemoryStore struct {
	mu     sync.Mutex
	byID   map[string]*Order
	events map[string]string // eventID -> orderID
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*Order),
		events: make(map[string]string),
	}
}

func (s *MemoryStore) Create(ctx context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	cp.LineItems = append([]LineItem(nil), o.LineItems...)
	now := time.Now().UTC()
	cp.CreatedAt, cp.UpdatedAt = now, now
	s.byID[o.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	cp.LineItems = append([]LineItem(nil), o.LineItems...)
	return &cp, nil
}

func (s *MemoryStore) EventSeen(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, seen := s.events[eventID]
	return seen, nil
}

func (s *MemoryStore) MarkPaid(ctx context.Context, orderID, eventID string, processedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, used := s.events[eventID]; used {
		return false, nil
	}
	o, ok := s.byID[orderID]
	if !ok {
		return false, ErrNotFound
	}
	if o.Paid {
		return false, nil
	}
	at := processedAt
	o.Paid = true
	o.StripeEventID = eventID
	o.ProcessedAt = &at
	o.UpdatedAt = time.Now().UTC()
	s.events[eventID] = orderID
	return true, nil
}
