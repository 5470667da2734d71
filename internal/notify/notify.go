// Package notify carries committed auction state to observers. The engine
// calls a Publisher synchronously after each change; implementations here fan
// the update out over WebSockets and Discord.
package notify

import (
	"context"

	"github.com/jensholdgaard/player-auction/internal/domain"
)

// Kind identifies the shape of an Update.
type Kind string

const (
	KindAuctionUpdate Kind = "auction_update"
	KindTimerUpdate   Kind = "timer_update"
	KindAuctionEnd    Kind = "auction_end"
)

// Update is one message on the observation stream. Auction is set for
// auction_update and auction_end; timer_update carries only the countdown.
// Outcome is set on auction_end: "sold", "unsold" or "voided".
type Update struct {
	Kind             Kind            `json:"kind"`
	AuctionID        string          `json:"auction_id"`
	Auction          *domain.Auction `json:"auction,omitempty"`
	SecondsRemaining int             `json:"seconds_remaining"`
	Outcome          string          `json:"outcome,omitempty"`
}

// AuctionUpdate builds an auction_update for a.
func AuctionUpdate(a domain.Auction, secondsRemaining int) Update {
	return Update{Kind: KindAuctionUpdate, AuctionID: a.ID, Auction: &a, SecondsRemaining: secondsRemaining}
}

// AuctionEnd builds an auction_end for a settled with outcome.
func AuctionEnd(a domain.Auction, outcome string) Update {
	return Update{Kind: KindAuctionEnd, AuctionID: a.ID, Auction: &a, Outcome: outcome}
}

// TimerUpdate builds a timer_update.
func TimerUpdate(auctionID string, secondsRemaining int) Update {
	return Update{Kind: KindTimerUpdate, AuctionID: auctionID, SecondsRemaining: secondsRemaining}
}

// Publisher receives every committed state change. Publish must not block
// for long; it runs on the caller's goroutine after the mutation is visible.
type Publisher interface {
	Publish(ctx context.Context, u Update)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, u Update)

func (f PublisherFunc) Publish(ctx context.Context, u Update) { f(ctx, u) }

// Discard drops every update.
var Discard Publisher = PublisherFunc(func(context.Context, Update) {})

// Multi fans each update out to every publisher in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, u Update) {
	for _, p := range m {
		p.Publish(ctx, u)
	}
}
