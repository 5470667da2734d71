package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/player-auction/internal/event"
)

const selectEvents = `SELECT id, aggregate_id, type, data, version, created_at FROM events`

// EventStore implements event.Store backed by Postgres.
type EventStore struct {
	db *sqlx.DB
}

// NewEventStore returns a new EventStore.
func NewEventStore(db *sqlx.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO events (aggregate_id, type, data, version) VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		data := []byte(e.Data)
		if len(data) == 0 {
			data = []byte(`{}`)
		}
		if _, err := stmt.ExecContext(ctx, e.AggregateID, e.Type, data, e.Version); err != nil {
			return fmt.Errorf("inserting event (aggregate=%s, version=%d): %w", e.AggregateID, e.Version, err)
		}
	}

	return tx.Commit()
}

func (s *EventStore) Load(ctx context.Context, aggregateID string) ([]event.Event, error) {
	var events []event.Event
	err := s.db.SelectContext(ctx, &events,
		selectEvents+` WHERE aggregate_id = $1 ORDER BY version ASC`, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}
	return events, nil
}

func (s *EventStore) LoadByType(ctx context.Context, eventType event.Type) ([]event.Event, error) {
	var events []event.Event
	err := s.db.SelectContext(ctx, &events,
		selectEvents+` WHERE type = $1 ORDER BY id ASC`, eventType)
	if err != nil {
		return nil, fmt.Errorf("loading events by type: %w", err)
	}
	return events, nil
}

func (s *EventStore) LoadAll(ctx context.Context) ([]event.Event, error) {
	var events []event.Event
	err := s.db.SelectContext(ctx, &events, selectEvents+` ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("loading all events: %w", err)
	}
	return events, nil
}
