package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jensholdgaard/player-auction/internal/clock"
)

// Ping wraps a connectivity probe, such as the journal's database ping.
// A nil ping always passes.
func Ping(name string, ping func(context.Context) error) Checker {
	return Checker{
		Name: name,
		Check: func(ctx context.Context) error {
			if ping == nil {
				return nil
			}
			return ping(ctx)
		},
	}
}

// Freshness fails when a background loop has not reported progress within
// maxAge. last returns the loop's most recent heartbeat.
func Freshness(name string, clk clock.Clock, maxAge time.Duration, last func() time.Time) Checker {
	return Checker{
		Name: name,
		Check: func(context.Context) error {
			t := last()
			if t.IsZero() {
				return fmt.Errorf("%s has not run yet", name)
			}
			if age := clk.Now().Sub(t); age > maxAge {
				return fmt.Errorf("%s last ran %s ago", name, age.Round(time.Millisecond))
			}
			return nil
		},
	}
}
