package auction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jensholdgaard/player-auction/internal/domain"
	"github.com/jensholdgaard/player-auction/internal/event"
)

// errStoreNotEmpty is returned by Recover when the store already has state.
var errStoreNotEmpty = errors.New("recover: store is not empty")

// Recover rebuilds an empty store from the journal. Events are re-applied in
// append order through the same transitions live operations use, which also
// regenerates the activity feed. Live auctions whose timer lapsed
// while the process was down are settled by the next Tick. It returns the
// number of events applied.
func (c *Controller) Recover(ctx context.Context) (int, error) {
	e := c.engine
	ctx, span := e.tracer.Start(ctx, "Controller.Recover")
	defer span.End()

	if !e.store.Empty() {
		return 0, errStoreNotEmpty
	}

	events, err := e.journal.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading journal: %w", err)
	}

	for _, ev := range events {
		if err := c.apply(ev); err != nil {
			return 0, fmt.Errorf("replaying %s event %s/%d: %w", ev.Type, ev.AggregateID, ev.Version, err)
		}
	}

	live := len(e.store.LiveAuctions())
	e.logger.InfoContext(ctx, "journal replay complete",
		slog.Int("events", len(events)),
		slog.Int("teams", len(e.store.Teams())),
		slog.Int("players", len(e.store.Players())),
		slog.Int("live_auctions", live),
	)
	return len(events), nil
}

func (c *Controller) apply(ev event.Event) error {
	st := c.engine.store

	switch ev.Type {
	case event.TeamRegistered:
		var d event.TeamRegisteredData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			return err
		}
		return st.AddTeam(domain.Team{
			ID:             event.TeamID(ev.AggregateID),
			Name:           d.Name,
			ShortName:      d.ShortName,
			TotalPurse:     d.TotalPurse,
			RemainingPurse: d.TotalPurse,
			MaxPlayers:     d.MaxPlayers,
			Players:        []domain.Player{},
		})

	case event.PlayerRegistered:
		var d event.PlayerRegisteredData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			return err
		}
		return st.AddPlayer(domain.Player{
			ID:        event.PlayerID(ev.AggregateID),
			Name:      d.Name,
			Role:      domain.PlayerRole(d.Role),
			Country:   d.Country,
			BasePrice: d.BasePrice,
			Status:    domain.PlayerUnsold,
		})

	case event.AuctionCreated:
		var d event.AuctionCreatedData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			return err
		}
		player, ok := st.Player(d.PlayerID)
		if !ok {
			return ErrPlayerNotFound
		}
		player.Status = domain.PlayerLive
		return applyAuctionCreated(st, domain.Auction{
			ID:            ev.AggregateID,
			PlayerID:      player.ID,
			Player:        player,
			CurrentBid:    player.BasePrice,
			Bids:          []domain.Bid{},
			Status:        domain.AuctionLive,
			StartTime:     d.StartTime,
			TimerDuration: d.TimerDuration,
			Version:       ev.Version,
		})

	case event.AuctionBidPlaced:
		var d event.BidPlacedData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			return err
		}
		a, ok := st.Auction(ev.AggregateID)
		if !ok {
			return ErrAuctionNotFound
		}
		applyBid(st, a, domain.Bid{
			ID:        d.BidID,
			AuctionID: a.ID,
			PlayerID:  a.PlayerID,
			TeamID:    d.TeamID,
			Amount:    d.Amount,
			CreatedAt: d.CreatedAt,
		})

	case event.AuctionSettled:
		var d event.AuctionSettledData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			return err
		}
		a, ok := st.Auction(ev.AggregateID)
		if !ok {
			return ErrAuctionNotFound
		}
		if d.Outcome != event.OutcomeSold {
			applyNoSale(st, a, d.Reason, d.EndTime)
			return nil
		}
		team, ok := st.Team(d.TeamID)
		if !ok {
			return ErrTeamNotFound
		}
		if d.Amount == nil {
			return fmt.Errorf("sold without amount")
		}
		applySale(st, a, team, *d.Amount, d.EndTime)

	default:
		c.engine.logger.Warn("skipping unknown event type",
			slog.String("type", string(ev.Type)),
			slog.String("aggregate_id", ev.AggregateID),
		)
	}
	return nil
}
