package event

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Type identifies an event kind.
type Type string

const (
	TeamRegistered   Type = "team.registered"
	PlayerRegistered Type = "player.registered"

	AuctionCreated   Type = "auction.created"
	AuctionBidPlaced Type = "auction.bid_placed"
	AuctionSettled   Type = "auction.settled"
)

// Teams and players are keyed by caller-chosen ids, so their registration
// events carry a kind prefix to keep the two from sharing an aggregate.
const (
	teamPrefix   = "team:"
	playerPrefix = "player:"
)

// TeamAggregateID returns the journal aggregate id for a team.
func TeamAggregateID(teamID string) string { return teamPrefix + teamID }

// PlayerAggregateID returns the journal aggregate id for a player.
func PlayerAggregateID(playerID string) string { return playerPrefix + playerID }

// TeamID reverses TeamAggregateID.
func TeamID(aggregateID string) string { return strings.TrimPrefix(aggregateID, teamPrefix) }

// PlayerID reverses PlayerAggregateID.
func PlayerID(aggregateID string) string { return strings.TrimPrefix(aggregateID, playerPrefix) }

// Event represents a single domain event.
type Event struct {
	ID          string          `json:"id" db:"id"`
	AggregateID string          `json:"aggregate_id" db:"aggregate_id"`
	Type        Type            `json:"type" db:"type"`
	Data        json.RawMessage `json:"data" db:"data"`
	Version     int             `json:"version" db:"version"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// New marshals data into an Event. Payload types in this package always
// marshal, so the error is only reachable with foreign payloads.
func New(aggregateID string, t Type, version int, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateID: aggregateID,
		Type:        t,
		Data:        raw,
		Version:     version,
	}, nil
}

// TeamRegisteredData is the payload for TeamRegistered events.
type TeamRegisteredData struct {
	Name       string          `json:"name"`
	ShortName  string          `json:"short_name"`
	TotalPurse decimal.Decimal `json:"total_purse"`
	MaxPlayers int             `json:"max_players"`
}

// PlayerRegisteredData is the payload for PlayerRegistered events.
type PlayerRegisteredData struct {
	Name      string          `json:"name"`
	Role      string          `json:"role"`
	Country   string          `json:"country,omitempty"`
	BasePrice decimal.Decimal `json:"base_price"`
}

// AuctionCreatedData is the payload for AuctionCreated events.
type AuctionCreatedData struct {
	PlayerID      string    `json:"player_id"`
	TimerDuration int       `json:"timer_duration"`
	StartTime     time.Time `json:"start_time"`
}

// BidPlacedData is the payload for AuctionBidPlaced events.
type BidPlacedData struct {
	BidID     string          `json:"bid_id"`
	TeamID    string          `json:"team_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// Settlement outcomes recorded in AuctionSettledData.
const (
	OutcomeSold   = "sold"
	OutcomeUnsold = "unsold"
	OutcomeVoided = "voided"
)

// AuctionSettledData is the payload for AuctionSettled events.
type AuctionSettledData struct {
	Outcome string           `json:"outcome"`
	TeamID  string           `json:"team_id,omitempty"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
	Reason  string           `json:"reason,omitempty"`
	EndTime time.Time        `json:"end_time"`
}
