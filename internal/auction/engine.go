// Package auction implements the bidding engine and the lifecycle controller
// that drives auctions from live to completed.
package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/player-auction/internal/clock"
	"github.com/jensholdgaard/player-auction/internal/domain"
	"github.com/jensholdgaard/player-auction/internal/event"
	"github.com/jensholdgaard/player-auction/internal/notify"
	"github.com/jensholdgaard/player-auction/internal/store"
)

const instrumentationName = "github.com/jensholdgaard/player-auction/internal/auction"

// Engine is the sole authority for accepting bids and settling auctions.
type Engine struct {
	store   *store.Store
	journal event.Store
	pub     notify.Publisher
	logger  *slog.Logger
	tracer  trace.Tracer
	clock   clock.Clock

	bids        metric.Int64Counter
	settlements metric.Int64Counter

	locks *lockTable
	// commitMu is held from applying a settlement or creation until its
	// event is journaled. Purse check-and-debit runs under it, and player
	// status changes reach the journal in the order they were applied.
	commitMu sync.Mutex
}

// NewEngine creates an Engine over st. Committed changes are appended to
// journal and handed to pub.
func NewEngine(st *store.Store, journal event.Store, pub notify.Publisher, logger *slog.Logger, tp trace.TracerProvider, mp metric.MeterProvider, clk clock.Clock) (*Engine, error) {
	meter := mp.Meter(instrumentationName)
	bids, err := meter.Int64Counter("auction.bids",
		metric.WithDescription("Bid attempts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bids counter: %w", err)
	}
	settlements, err := meter.Int64Counter("auction.settlements",
		metric.WithDescription("Settled auctions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating settlements counter: %w", err)
	}

	return &Engine{
		store:       st,
		journal:     journal,
		pub:         pub,
		logger:      logger,
		tracer:      tp.Tracer(instrumentationName),
		clock:       clk,
		bids:        bids,
		settlements: settlements,
		locks:       newLockTable(),
	}, nil
}

// PlaceBid validates a bid and, if it beats the current bid, makes teamID
// the leader. No purse or roster changes happen until settlement.
func (e *Engine) PlaceBid(ctx context.Context, auctionID, teamID string, amount decimal.Decimal) (domain.Auction, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.PlaceBid",
		trace.WithAttributes(
			attribute.String("auction.id", auctionID),
			attribute.String("team.id", teamID),
			attribute.String("bid.amount", amount.String()),
		),
	)
	defer span.End()

	a, err := e.placeBid(ctx, auctionID, teamID, amount)
	e.bids.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", bidOutcome(err))))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		e.logger.DebugContext(ctx, "bid rejected",
			slog.String("auction_id", auctionID),
			slog.String("team_id", teamID),
			slog.String("amount", amount.String()),
			slog.Any("error", err),
		)
		return domain.Auction{}, err
	}
	return a, nil
}

func (e *Engine) placeBid(ctx context.Context, auctionID, teamID string, amount decimal.Decimal) (domain.Auction, error) {
	// Auctions are never removed, so existence can be settled before taking
	// the lock without giving unknown ids an entry in the lock table.
	if _, ok := e.store.Auction(auctionID); !ok {
		return domain.Auction{}, ErrAuctionNotFound
	}

	release, ok := e.locks.tryAcquire(auctionID)
	if !ok {
		return domain.Auction{}, ErrBidInProgress
	}
	defer release()

	a, _ := e.store.Auction(auctionID)
	if a.Status != domain.AuctionLive {
		return domain.Auction{}, ErrAuctionNotActive
	}
	team, ok := e.store.Team(teamID)
	if !ok {
		return domain.Auction{}, ErrTeamNotFound
	}
	if !amount.GreaterThan(a.CurrentBid) {
		return domain.Auction{}, ErrBidTooLow
	}
	if amount.GreaterThan(team.RemainingPurse) {
		return domain.Auction{}, ErrInsufficientFunds
	}
	if team.RosterFull() {
		return domain.Auction{}, ErrRosterFull
	}

	bid := domain.Bid{
		ID:        newID(),
		AuctionID: a.ID,
		PlayerID:  a.PlayerID,
		TeamID:    team.ID,
		Amount:    amount,
		CreatedAt: e.clock.Now(),
	}
	applyBid(e.store, a, bid)

	updated, _ := e.store.Auction(auctionID)
	e.record(ctx, updated.ID, event.AuctionBidPlaced, updated.Version, event.BidPlacedData{
		BidID:     bid.ID,
		TeamID:    bid.TeamID,
		Amount:    bid.Amount,
		CreatedAt: bid.CreatedAt,
	})
	e.pub.Publish(ctx, notify.AuctionUpdate(updated, updated.SecondsRemaining(e.clock.Now())))

	e.logger.InfoContext(ctx, "bid placed",
		slog.String("auction_id", updated.ID),
		slog.String("team_id", team.ID),
		slog.String("amount", amount.String()),
	)
	return updated, nil
}

// SettleAuction completes a live auction. With a leading bidder the player
// is sold and the purse debited; without one the player returns to unsold.
// Settling an auction that is not live is rejected without side effects.
func (e *Engine) SettleAuction(ctx context.Context, auctionID string) (domain.Auction, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.SettleAuction",
		trace.WithAttributes(attribute.String("auction.id", auctionID)),
	)
	defer span.End()

	if _, ok := e.store.Auction(auctionID); !ok {
		span.SetStatus(codes.Error, ErrAuctionNotFound.Error())
		return domain.Auction{}, ErrAuctionNotFound
	}

	release, ok := e.locks.tryAcquire(auctionID)
	if !ok {
		span.SetStatus(codes.Error, ErrBidInProgress.Error())
		return domain.Auction{}, ErrBidInProgress
	}
	defer release()

	a, _ := e.store.Auction(auctionID)
	if a.Status != domain.AuctionLive {
		span.SetStatus(codes.Error, ErrAuctionNotLive.Error())
		return domain.Auction{}, ErrAuctionNotLive
	}

	e.commitMu.Lock()
	data := e.settle(a, e.clock.Now())
	updated, _ := e.store.Auction(auctionID)
	e.record(ctx, updated.ID, event.AuctionSettled, updated.Version, data)
	e.commitMu.Unlock()

	e.settlements.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", data.Outcome)))
	e.pub.Publish(ctx, notify.AuctionEnd(updated, data.Outcome))

	span.SetAttributes(attribute.String("settlement.outcome", data.Outcome))
	switch data.Outcome {
	case event.OutcomeVoided:
		e.logger.WarnContext(ctx, "sale voided at settlement",
			slog.String("auction_id", updated.ID),
			slog.String("team_id", a.CurrentBidder),
			slog.String("reason", data.Reason),
		)
	default:
		e.logger.InfoContext(ctx, "auction settled",
			slog.String("auction_id", updated.ID),
			slog.String("outcome", data.Outcome),
			slog.String("team_id", data.TeamID),
		)
	}
	return updated, nil
}

// settle applies the outcome of a to the store and describes it for the
// journal. The caller holds the auction lock and commitMu.
func (e *Engine) settle(a domain.Auction, end time.Time) event.AuctionSettledData {
	if a.CurrentBidder == "" {
		applyNoSale(e.store, a, "", end)
		return event.AuctionSettledData{Outcome: event.OutcomeUnsold, EndTime: end}
	}

	reason := fmt.Sprintf("team %s no longer exists", a.CurrentBidder)
	team, ok := e.store.Team(a.CurrentBidder)
	if ok {
		reason = saleBlocker(team, a.CurrentBid)
	}
	if reason != "" {
		applyNoSale(e.store, a, reason, end)
		return event.AuctionSettledData{
			Outcome: event.OutcomeVoided,
			TeamID:  a.CurrentBidder,
			Reason:  reason,
			EndTime: end,
		}
	}

	price := a.CurrentBid
	applySale(e.store, a, team, price, end)
	return event.AuctionSettledData{
		Outcome: event.OutcomeSold,
		TeamID:  team.ID,
		Amount:  &price,
		EndTime: end,
	}
}

// record journals a committed change. Failures are logged and never undo
// the in-memory state.
func (e *Engine) record(ctx context.Context, aggregateID string, t event.Type, version int, data any) {
	ev, err := event.New(aggregateID, t, version, data)
	if err == nil {
		err = e.journal.Append(ctx, ev)
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to journal event",
			slog.String("aggregate_id", aggregateID),
			slog.String("type", string(t)),
			slog.Any("error", err),
		)
	}
}

func bidOutcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrBidInProgress):
		return "busy"
	default:
		return "rejected"
	}
}
