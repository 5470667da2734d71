// Package memory provides a process-local journal driver. Events live only as
// long as the process, matching the engine's default in-memory deployment.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/jensholdgaard/player-auction/internal/clock"
	"github.com/jensholdgaard/player-auction/internal/config"
	"github.com/jensholdgaard/player-auction/internal/event"
	"github.com/jensholdgaard/player-auction/internal/store"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func init() {
	store.Register("memory", open)
}

func open(_ context.Context, _ config.DatabaseConfig, clk clock.Clock) (*store.Journal, error) {
	es := NewEventStore(clk)
	return &store.Journal{
		Events: es,
		Closer: closerFunc(func() error { return nil }),
		Ping:   func(context.Context) error { return nil },
	}, nil
}

type versionKey struct {
	aggregateID string
	version     int
}

// EventStore implements event.Store in memory.
type EventStore struct {
	mu       sync.RWMutex
	events   []event.Event
	versions map[versionKey]struct{}
	clock    clock.Clock
}

// NewEventStore returns an empty EventStore.
func NewEventStore(clk clock.Clock) *EventStore {
	return &EventStore{
		versions: make(map[versionKey]struct{}),
		clock:    clk,
	}
}

// Append stores events atomically: either all are stored or none.
func (s *EventStore) Append(_ context.Context, events ...event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[versionKey]struct{}, len(events))
	for _, e := range events {
		k := versionKey{e.AggregateID, e.Version}
		if _, ok := s.versions[k]; ok {
			return fmt.Errorf("inserting event (aggregate=%s, version=%d): duplicate version", e.AggregateID, e.Version)
		}
		if _, ok := batch[k]; ok {
			return fmt.Errorf("inserting event (aggregate=%s, version=%d): duplicate version in batch", e.AggregateID, e.Version)
		}
		batch[k] = struct{}{}
	}

	now := s.clock.Now().UTC()
	for _, e := range events {
		e.ID = strconv.Itoa(len(s.events) + 1)
		e.CreatedAt = now
		s.events = append(s.events, e)
		s.versions[versionKey{e.AggregateID, e.Version}] = struct{}{}
	}
	return nil
}

// Load returns the events of one aggregate ordered by version.
func (s *EventStore) Load(_ context.Context, aggregateID string) ([]event.Event, error) {
	return s.filter(func(e event.Event) bool { return e.AggregateID == aggregateID }), nil
}

// LoadByType returns the events of one type in append order.
func (s *EventStore) LoadByType(_ context.Context, eventType event.Type) ([]event.Event, error) {
	return s.filter(func(e event.Event) bool { return e.Type == eventType }), nil
}

// LoadAll returns every event in append order.
func (s *EventStore) LoadAll(_ context.Context) ([]event.Event, error) {
	return s.filter(func(event.Event) bool { return true }), nil
}

// Versions are appended in order per aggregate, so append order is also
// version order within an aggregate.
func (s *EventStore) filter(keep func(event.Event) bool) []event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []event.Event
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
