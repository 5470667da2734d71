package auction

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jensholdgaard/player-auction/internal/domain"
	"github.com/jensholdgaard/player-auction/internal/store"
)

// The apply functions below are the only code that mutates auction state in
// the store. Live operations call them after validation; Recover calls them
// while replaying the journal, so both paths produce identical state and
// activity feeds.

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func applyAuctionCreated(st *store.Store, a domain.Auction) error {
	if err := st.AddAuction(a); err != nil {
		return fmt.Errorf("adding auction %s: %w", a.ID, err)
	}
	st.SetPlayerStatus(a.PlayerID, domain.PlayerLive, nil)

	base := a.Player.BasePrice
	st.AppendActivity(domain.Activity{
		ID:        newID(),
		Kind:      domain.ActivityAuctionStart,
		Message:   fmt.Sprintf("Auction started for %s (base %s)", a.Player.Name, domain.FormatAmount(base)),
		Timestamp: a.StartTime,
		PlayerID:  a.PlayerID,
		Amount:    &base,
	})
	return nil
}

func applyBid(st *store.Store, a domain.Auction, bid domain.Bid) {
	st.RecordBid(a.ID, bid)

	bidder := bid.TeamID
	if t, ok := st.Team(bid.TeamID); ok {
		bidder = t.ShortName
	}
	amount := bid.Amount
	st.AppendActivity(domain.Activity{
		ID:        newID(),
		Kind:      domain.ActivityBid,
		Message:   fmt.Sprintf("%s bid %s for %s", bidder, domain.FormatAmount(amount), a.Player.Name),
		Timestamp: bid.CreatedAt,
		TeamID:    bid.TeamID,
		PlayerID:  a.PlayerID,
		Amount:    &amount,
	})
}

// applySale completes a and moves its player to team at price.
func applySale(st *store.Store, a domain.Auction, team domain.Team, price decimal.Decimal, end time.Time) {
	st.CompleteAuction(a.ID, end)
	st.SetPlayerStatus(a.PlayerID, domain.PlayerSold, &domain.Sale{TeamID: team.ID, Price: price})
	st.UpdateTeamPurse(team.ID, team.RemainingPurse.Sub(price))
	if p, ok := st.Player(a.PlayerID); ok {
		st.AppendPlayerToRoster(team.ID, p)
	}

	st.AppendActivity(domain.Activity{
		ID:        newID(),
		Kind:      domain.ActivityWin,
		Message:   fmt.Sprintf("%s won %s for %s", team.Name, a.Player.Name, domain.FormatAmount(price)),
		Timestamp: end,
		TeamID:    team.ID,
		PlayerID:  a.PlayerID,
		Amount:    &price,
	})
}

// applyNoSale completes a and returns its player to the unsold pool. A
// non-empty reason means a leading bid existed but could not be honoured.
func applyNoSale(st *store.Store, a domain.Auction, reason string, end time.Time) {
	st.CompleteAuction(a.ID, end)
	st.SetPlayerStatus(a.PlayerID, domain.PlayerUnsold, nil)

	msg := fmt.Sprintf("%s went unsold", a.Player.Name)
	if reason != "" {
		msg = fmt.Sprintf("%s went unsold: %s", a.Player.Name, reason)
	}
	st.AppendActivity(domain.Activity{
		ID:        newID(),
		Kind:      domain.ActivityAuctionEnd,
		Message:   msg,
		Timestamp: end,
		TeamID:    a.CurrentBidder,
		PlayerID:  a.PlayerID,
	})
}

// saleBlocker reports why team cannot complete a purchase at price, or ""
// if it can.
func saleBlocker(team domain.Team, price decimal.Decimal) string {
	switch {
	case price.GreaterThan(team.RemainingPurse):
		return fmt.Sprintf("%s cannot cover %s", team.ShortName, domain.FormatAmount(price))
	case team.RosterFull():
		return fmt.Sprintf("%s roster is full", team.ShortName)
	}
	return ""
}
