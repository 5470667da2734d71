// Package domain holds the records the auction engine operates on: teams,
// players, auctions, bids and the activity feed. Types here carry data and
// invariant helpers only; all mutation goes through the store and engine.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PlayerRole is a player's specialism.
type PlayerRole string

const (
	RoleBatsman      PlayerRole = "Batsman"
	RoleBowler       PlayerRole = "Bowler"
	RoleAllRounder   PlayerRole = "All-Rounder"
	RoleWicketKeeper PlayerRole = "Wicket-Keeper"
)

// Valid reports whether r is one of the known roles.
func (r PlayerRole) Valid() bool {
	switch r {
	case RoleBatsman, RoleBowler, RoleAllRounder, RoleWicketKeeper:
		return true
	}
	return false
}

// PlayerStatus tracks where a player is in the auction.
type PlayerStatus string

const (
	PlayerUnsold PlayerStatus = "unsold"
	PlayerLive   PlayerStatus = "live"
	PlayerSold   PlayerStatus = "sold"
)

// Valid reports whether s is a known player status.
func (s PlayerStatus) Valid() bool {
	switch s {
	case PlayerUnsold, PlayerLive, PlayerSold:
		return true
	}
	return false
}

// AuctionStatus is the lifecycle state of an auction.
type AuctionStatus string

const (
	// AuctionUpcoming is reserved; auctions are created live.
	AuctionUpcoming  AuctionStatus = "upcoming"
	AuctionLive      AuctionStatus = "live"
	AuctionCompleted AuctionStatus = "completed"
)

// ActivityKind classifies entries in the activity feed.
type ActivityKind string

const (
	ActivityBid          ActivityKind = "bid"
	ActivityWin          ActivityKind = "win"
	ActivityAuctionStart ActivityKind = "auction_start"
	ActivityAuctionEnd   ActivityKind = "auction_end"
)

// Team is a franchise with a purse to spend on players.
type Team struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	ShortName      string          `json:"short_name"`
	TotalPurse     decimal.Decimal `json:"total_purse"`
	RemainingPurse decimal.Decimal `json:"remaining_purse"`
	MaxPlayers     int             `json:"max_players"`
	Players        []Player        `json:"players"`
}

// Clone returns a deep copy of t.
func (t Team) Clone() Team {
	out := t
	out.Players = make([]Player, len(t.Players))
	for i, p := range t.Players {
		out.Players[i] = p.Clone()
	}
	return out
}

// RosterFull reports whether the team has no room for another player.
func (t Team) RosterFull() bool {
	return len(t.Players) >= t.MaxPlayers
}

// Spent returns the sum of sold prices across the roster.
func (t Team) Spent() decimal.Decimal {
	total := decimal.Zero
	for _, p := range t.Players {
		if p.SoldPrice != nil {
			total = total.Add(*p.SoldPrice)
		}
	}
	return total
}

// Validate checks the invariants a team must hold at all times.
func (t Team) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("team id is required")
	}
	if t.TotalPurse.IsNegative() {
		return fmt.Errorf("team %s: total purse must not be negative", t.ID)
	}
	if t.RemainingPurse.IsNegative() || t.RemainingPurse.GreaterThan(t.TotalPurse) {
		return fmt.Errorf("team %s: remaining purse %s outside [0, %s]", t.ID, t.RemainingPurse, t.TotalPurse)
	}
	if t.MaxPlayers <= 0 {
		return fmt.Errorf("team %s: max players must be positive", t.ID)
	}
	if len(t.Players) > t.MaxPlayers {
		return fmt.Errorf("team %s: roster of %d exceeds max %d", t.ID, len(t.Players), t.MaxPlayers)
	}
	return nil
}

// Player is an auctionable cricketer.
type Player struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Role      PlayerRole       `json:"role"`
	Country   string           `json:"country,omitempty"`
	BasePrice decimal.Decimal  `json:"base_price"`
	Status    PlayerStatus     `json:"status"`
	TeamID    string           `json:"team_id,omitempty"`
	SoldPrice *decimal.Decimal `json:"sold_price,omitempty"`
}

// Clone returns a deep copy of p.
func (p Player) Clone() Player {
	out := p
	if p.SoldPrice != nil {
		price := *p.SoldPrice
		out.SoldPrice = &price
	}
	return out
}

// Validate checks the creation-time invariants of a player.
func (p Player) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("player id is required")
	}
	if !p.Role.Valid() {
		return fmt.Errorf("player %s: unknown role %q", p.ID, p.Role)
	}
	if !p.BasePrice.IsPositive() {
		return fmt.Errorf("player %s: base price must be positive", p.ID)
	}
	if (p.Status == PlayerSold) != (p.SoldPrice != nil) {
		return fmt.Errorf("player %s: sold price must be set iff status is sold", p.ID)
	}
	return nil
}

// Sale carries the outcome applied to a player when it is sold.
type Sale struct {
	TeamID string
	Price  decimal.Decimal
}

// Bid is an immutable offer by a team within an auction.
type Bid struct {
	ID        string          `json:"id"`
	AuctionID string          `json:"auction_id"`
	PlayerID  string          `json:"player_id"`
	TeamID    string          `json:"team_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// Auction is the time-boxed bidding process for one player.
type Auction struct {
	ID            string          `json:"id"`
	PlayerID      string          `json:"player_id"`
	Player        Player          `json:"player"`
	CurrentBid    decimal.Decimal `json:"current_bid"`
	CurrentBidder string          `json:"current_bidder,omitempty"`
	Bids          []Bid           `json:"bids"`
	Status        AuctionStatus   `json:"status"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       *time.Time      `json:"end_time,omitempty"`
	TimerDuration int             `json:"timer_duration"`
	Version       int             `json:"version"`
}

// Clone returns a deep copy of a.
func (a Auction) Clone() Auction {
	out := a
	out.Player = a.Player.Clone()
	out.Bids = make([]Bid, len(a.Bids))
	copy(out.Bids, a.Bids)
	if a.EndTime != nil {
		end := *a.EndTime
		out.EndTime = &end
	}
	return out
}

// LastBid returns the leading bid, or nil if nobody has bid.
func (a Auction) LastBid() *Bid {
	if len(a.Bids) == 0 {
		return nil
	}
	return &a.Bids[len(a.Bids)-1]
}

// Deadline is the instant the countdown reaches zero.
func (a Auction) Deadline() time.Time {
	return a.StartTime.Add(time.Duration(a.TimerDuration) * time.Second)
}

// Expired reports whether the countdown has run out at now.
func (a Auction) Expired(now time.Time) bool {
	return !now.Before(a.Deadline())
}

// SecondsRemaining derives the countdown from the start time and timer.
// Completed auctions always report zero.
func (a Auction) SecondsRemaining(now time.Time) int {
	if a.Status == AuctionCompleted {
		return 0
	}
	elapsed := int(now.Sub(a.StartTime) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := a.TimerDuration - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Activity is one entry of the bounded recent-activity feed.
type Activity struct {
	ID        string           `json:"id"`
	Kind      ActivityKind     `json:"kind"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	TeamID    string           `json:"team_id,omitempty"`
	PlayerID  string           `json:"player_id,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
}

// Clone returns a deep copy of a.
func (a Activity) Clone() Activity {
	out := a
	if a.Amount != nil {
		amt := *a.Amount
		out.Amount = &amt
	}
	return out
}
