package app_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"airnest/internal/domain"
	"airnest/internal/storage/memory"
)

// ---- fakes ----

func newStore(props ...domain.Property) *memory.Store {
	s := memory.New()
	for _, p := range props {
		s.PutProperty(p)
	}
	return s
}

func countReservations(s *memory.Store, propertyID string) int {
	rs, _ := s.ListForProperty(context.Background(), propertyID)
	return len(rs)
}

// fakeCache stores JSON like the Redis adapter, so cached values never alias
// the caller's.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.ReservationCreated
	err    error
}

func (p *fakePublisher) PublishReservationCreated(ctx context.Context, ev domain.ReservationCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

// ---- helpers ----

var clock = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return clock }

func published(id, tz string, rate float64) domain.Property {
	return domain.Property{ID: id, Title: "Home " + id, Status: domain.StatusPublished, TimeZone: tz, PricePerNight: rate, Guests: 4}
}

func ptr[T any](v T) *T { return &v }
