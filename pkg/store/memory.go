package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-userforms/pkg/model"
)

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithLatency delays every operation by d, imitating a remote round trip.
func WithLatency(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.latency = d
		}
	}
}

// WithRecords seeds the store. Records without an id get one assigned.
func WithRecords(records ...model.Record) MemoryOption {
	return func(s *MemoryStore) {
		for _, rec := range records {
			rec = rec.Clone()
			if rec.ID == "" {
				rec.ID = s.newID()
			}
			if rec.Values == nil {
				rec.Values = map[string]string{}
			}
			s.records = append(s.records, rec)
		}
	}
}

// WithIDGenerator replaces the uuid based id generator.
func WithIDGenerator(fn func() string) MemoryOption {
	return func(s *MemoryStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// MemoryStore keeps records in insertion order in memory. Each instance owns
// its own data; construct one per process (or per test) and inject it.
type MemoryStore struct {
	mu      sync.RWMutex
	records []model.Record
	latency time.Duration
	newID   func() string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store unless seeded through options.
func NewMemoryStore(options ...MemoryOption) *MemoryStore {
	s := &MemoryStore{newID: uuid.NewString}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// SeedUsers returns the demo users the console starts with in mock mode.
func SeedUsers() []model.Record {
	return []model.Record{
		{ID: "1", Values: map[string]string{"firstName": "John", "lastName": "Wick", "email": "john.wick@example.com", "phoneNumber": "9876543298"}},
		{ID: "2", Values: map[string]string{"firstName": "Navin", "lastName": "Joe", "email": "navin.j@example.com", "phoneNumber": "9887767668"}},
		{ID: "3", Values: map[string]string{"firstName": "Suraj", "lastName": "Patel", "email": "suraj.p@example.com", "phoneNumber": "9876543210"}},
	}
}

func (s *MemoryStore) List(ctx context.Context) ([]model.Record, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Record, len(s.records))
	for idx, rec := range s.records {
		out[idx] = rec.Clone()
	}
	return out, nil
}

func (s *MemoryStore) Create(ctx context.Context, payload map[string]string) (model.Record, error) {
	if err := s.wait(ctx); err != nil {
		return model.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := model.Record{ID: s.newID(), Values: withoutID(payload)}
	s.records = append(s.records, rec)
	return rec.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, payload map[string]string) (model.Record, error) {
	if err := s.wait(ctx); err != nil {
		return model.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return model.Record{}, notFound(id)
	}
	for key, value := range withoutID(payload) {
		s.records[idx].Values[key] = value
	}
	return s.records[idx].Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return notFound(id)
	}
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	return nil
}

func (s *MemoryStore) indexOf(id string) int {
	for idx, rec := range s.records {
		if rec.ID == id {
			return idx
		}
	}
	return -1
}

func (s *MemoryStore) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.latency <= 0 {
		return nil
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
