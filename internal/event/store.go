package event

import "context"

// Store persists and retrieves events.
type Store interface {
	// Append persists one or more events atomically. Appending a version
	// that already exists for an aggregate fails.
	Append(ctx context.Context, events ...Event) error
	// Load returns all events for an aggregate, ordered by version.
	Load(ctx context.Context, aggregateID string) ([]Event, error)
	// LoadByType returns events filtered by type, in append order.
	LoadByType(ctx context.Context, eventType Type) ([]Event, error)
	// LoadAll returns every event in append order.
	LoadAll(ctx context.Context) ([]Event, error)
}
