package auction

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/player-auction/internal/domain"
	"github.com/jensholdgaard/player-auction/internal/event"
	"github.com/jensholdgaard/player-auction/internal/notify"
)

// Controller drives auctions through their lifecycle: it opens them, derives
// the countdown from the start time, and settles them once time runs out.
type Controller struct {
	engine       *Engine
	defaultTimer int

	lastTick atomic.Int64
}

// NewController returns a Controller settling through engine. Auctions
// created without a timer run for defaultTimer seconds.
func NewController(engine *Engine, defaultTimer int) *Controller {
	return &Controller{engine: engine, defaultTimer: defaultTimer}
}

// CreateAuction opens a live auction for an unsold player.
func (c *Controller) CreateAuction(ctx context.Context, playerID string, timerSeconds int) (domain.Auction, error) {
	e := c.engine
	ctx, span := e.tracer.Start(ctx, "Controller.CreateAuction",
		trace.WithAttributes(
			attribute.String("player.id", playerID),
			attribute.Int("timer.seconds", timerSeconds),
		),
	)
	defer span.End()

	if timerSeconds <= 0 {
		timerSeconds = c.defaultTimer
	}

	// Creations share commitMu with settlement, so two of them cannot claim
	// the same player and a player freed by a settlement is only reused
	// after that settlement is journaled.
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	player, ok := e.store.Player(playerID)
	if !ok {
		return domain.Auction{}, ErrPlayerNotFound
	}
	if player.Status != domain.PlayerUnsold {
		return domain.Auction{}, ErrPlayerUnavailable
	}

	player.Status = domain.PlayerLive
	a := domain.Auction{
		ID:            newID(),
		PlayerID:      player.ID,
		Player:        player,
		CurrentBid:    player.BasePrice,
		Bids:          []domain.Bid{},
		Status:        domain.AuctionLive,
		StartTime:     e.clock.Now(),
		TimerDuration: timerSeconds,
		Version:       1,
	}

	// Bids see the auction as busy until its creation is journaled.
	release, ok := e.locks.tryAcquire(a.ID)
	if !ok {
		return domain.Auction{}, ErrBidInProgress
	}
	defer release()

	if err := applyAuctionCreated(e.store, a); err != nil {
		return domain.Auction{}, err
	}
	e.record(ctx, a.ID, event.AuctionCreated, a.Version, event.AuctionCreatedData{
		PlayerID:      a.PlayerID,
		TimerDuration: a.TimerDuration,
		StartTime:     a.StartTime,
	})
	e.pub.Publish(ctx, notify.AuctionUpdate(a, a.TimerDuration))

	span.SetAttributes(attribute.String("auction.id", a.ID))
	e.logger.InfoContext(ctx, "auction created",
		slog.String("auction_id", a.ID),
		slog.String("player_id", a.PlayerID),
		slog.Int("timer_seconds", a.TimerDuration),
	)
	return a, nil
}

// Close settles an auction ahead of its timer.
func (c *Controller) Close(ctx context.Context, auctionID string) (domain.Auction, error) {
	return c.engine.SettleAuction(ctx, auctionID)
}

// SecondsRemaining reports the countdown for an auction, derived from its
// start time and the current clock.
func (c *Controller) SecondsRemaining(auctionID string) (int, error) {
	a, ok := c.engine.store.Auction(auctionID)
	if !ok {
		return 0, ErrAuctionNotFound
	}
	return a.SecondsRemaining(c.engine.clock.Now()), nil
}

// Tick settles every live auction whose countdown has reached zero and
// publishes a timer_update for the rest. It returns the number settled.
func (c *Controller) Tick(ctx context.Context) int {
	e := c.engine
	now := e.clock.Now()
	c.lastTick.Store(now.UnixNano())

	settled := 0
	for _, a := range e.store.LiveAuctions() {
		if !a.Expired(now) {
			e.pub.Publish(ctx, notify.TimerUpdate(a.ID, a.SecondsRemaining(now)))
			continue
		}

		_, err := e.SettleAuction(ctx, a.ID)
		switch {
		case err == nil:
			settled++
		case errors.Is(err, ErrBidInProgress):
			// Retried on the next tick.
			e.logger.DebugContext(ctx, "settlement deferred, auction busy", slog.String("auction_id", a.ID))
		case errors.Is(err, ErrAuctionNotLive):
			// Closed by an operator since the snapshot was taken.
		default:
			e.logger.WarnContext(ctx, "settling expired auction",
				slog.String("auction_id", a.ID),
				slog.Any("error", err),
			)
		}
	}
	return settled
}

// Run calls Tick immediately and then every interval until ctx is done.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.engine.logger.InfoContext(ctx, "countdown loop started", slog.Duration("interval", interval))
	c.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			c.engine.logger.InfoContext(ctx, "countdown loop stopped")
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// LastTick returns when Tick last ran, or the zero time if it never has.
func (c *Controller) LastTick() time.Time {
	n := c.lastTick.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
