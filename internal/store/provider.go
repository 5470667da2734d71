package store

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/jensholdgaard/player-auction/internal/clock"
	"github.com/jensholdgaard/player-auction/internal/config"
	"github.com/jensholdgaard/player-auction/internal/event"
)

// Journal is an opened event log. Events receives every committed auction,
// team and player change; the in-memory Store is rebuilt from it on startup.
type Journal struct {
	Events event.Store
	// Closer releases the backend, if it holds anything.
	Closer io.Closer
	// Ping reports backend reachability for readiness. Nil means always up.
	Ping func(ctx context.Context) error
}

// Close releases the backend. A journal without a Closer is a no-op.
func (j *Journal) Close() error {
	if j.Closer == nil {
		return nil
	}
	return j.Closer.Close()
}

// Driver opens a journal backend from the database section of the config.
type Driver func(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*Journal, error)

var (
	driversMu sync.RWMutex
	drivers   = map[string]Driver{}
)

// Register makes a journal backend selectable by name as database.driver.
// Backends call it from init; registering a name twice panics, as with
// database/sql.
func Register(name string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if d == nil {
		panic("store: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("store: Register called twice for driver " + name)
	}
	drivers[name] = d
}

// Drivers returns the registered backend names, sorted.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for k := range drivers {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Open opens the journal backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*Journal, error) {
	driversMu.RLock()
	d, ok := drivers[cfg.Driver]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown journal driver %q (registered: %v)", cfg.Driver, Drivers())
	}
	j, err := d(ctx, cfg, clk)
	if err != nil {
		return nil, fmt.Errorf("opening %s journal: %w", cfg.Driver, err)
	}
	return j, nil
}
