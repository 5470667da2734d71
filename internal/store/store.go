// Package store owns the authoritative in-memory collections of teams,
// players, auctions and the bounded activity feed, and hosts the registry of
// journal drivers used to persist domain events.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jensholdgaard/player-auction/internal/domain"
)

// DefaultActivityCapacity is the number of activities retained by default.
const DefaultActivityCapacity = 100

// ErrDuplicateID is returned when inserting an entity whose ID is taken.
var ErrDuplicateID = errors.New("duplicate id")

// Store is the entity store. Every read returns a deep copy, so callers
// never share memory with the store. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	teams     map[string]*domain.Team
	teamOrder []string

	players     map[string]*domain.Player
	playerOrder []string

	auctions     map[string]*domain.Auction
	auctionOrder []string

	// activities is newest first.
	activities  []domain.Activity
	activityCap int
}

// New returns an empty Store retaining at most activityCap activities.
// A non-positive capacity selects DefaultActivityCapacity.
func New(activityCap int) *Store {
	if activityCap <= 0 {
		activityCap = DefaultActivityCapacity
	}
	return &Store{
		teams:       make(map[string]*domain.Team),
		players:     make(map[string]*domain.Player),
		auctions:    make(map[string]*domain.Auction),
		activityCap: activityCap,
	}
}

// AddTeam inserts a team.
func (s *Store) AddTeam(t domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[t.ID]; ok {
		return ErrDuplicateID
	}
	c := t.Clone()
	s.teams[t.ID] = &c
	s.teamOrder = append(s.teamOrder, t.ID)
	return nil
}

// AddPlayer inserts a player.
func (s *Store) AddPlayer(p domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[p.ID]; ok {
		return ErrDuplicateID
	}
	c := p.Clone()
	s.players[p.ID] = &c
	s.playerOrder = append(s.playerOrder, p.ID)
	return nil
}

// AddAuction inserts an auction.
func (s *Store) AddAuction(a domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctions[a.ID]; ok {
		return ErrDuplicateID
	}
	c := a.Clone()
	s.auctions[a.ID] = &c
	s.auctionOrder = append(s.auctionOrder, a.ID)
	return nil
}

// Team returns the team with the given id.
func (s *Store) Team(id string) (domain.Team, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return domain.Team{}, false
	}
	return t.Clone(), true
}

// Player returns the player with the given id.
func (s *Store) Player(id string) (domain.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return domain.Player{}, false
	}
	return p.Clone(), true
}

// Auction returns the auction with the given id.
func (s *Store) Auction(id string) (domain.Auction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.auctions[id]
	if !ok {
		return domain.Auction{}, false
	}
	return a.Clone(), true
}

// Teams returns all teams in insertion order.
func (s *Store) Teams() []domain.Team {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Team, 0, len(s.teamOrder))
	for _, id := range s.teamOrder {
		out = append(out, s.teams[id].Clone())
	}
	return out
}

// Players returns all players in insertion order.
func (s *Store) Players() []domain.Player {
	return s.filterPlayers(func(*domain.Player) bool { return true })
}

// PlayersByStatus returns the players with the given status in insertion order.
func (s *Store) PlayersByStatus(status domain.PlayerStatus) []domain.Player {
	return s.filterPlayers(func(p *domain.Player) bool { return p.Status == status })
}

func (s *Store) filterPlayers(keep func(*domain.Player) bool) []domain.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Player, 0, len(s.playerOrder))
	for _, id := range s.playerOrder {
		if p := s.players[id]; keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Auctions returns all auctions in creation order.
func (s *Store) Auctions() []domain.Auction {
	return s.filterAuctions(func(*domain.Auction) bool { return true })
}

// LiveAuctions returns the live auctions in creation order.
func (s *Store) LiveAuctions() []domain.Auction {
	return s.filterAuctions(func(a *domain.Auction) bool { return a.Status == domain.AuctionLive })
}

func (s *Store) filterAuctions(keep func(*domain.Auction) bool) []domain.Auction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Auction, 0, len(s.auctionOrder))
	for _, id := range s.auctionOrder {
		if a := s.auctions[id]; keep(a) {
			out = append(out, a.Clone())
		}
	}
	return out
}

// UpdateTeamPurse sets a team's remaining purse. Unknown ids are ignored.
func (s *Store) UpdateTeamPurse(id string, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.teams[id]; ok {
		t.RemainingPurse = amount
	}
}

// AppendPlayerToRoster adds p to the team's roster. Unknown ids are ignored.
func (s *Store) AppendPlayerToRoster(teamID string, p domain.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.teams[teamID]; ok {
		t.Players = append(t.Players, p.Clone())
	}
}

// SetPlayerStatus moves a player to status. A non-nil sale records the
// buying team and price; otherwise both are cleared. Unknown ids are ignored.
func (s *Store) SetPlayerStatus(id string, status domain.PlayerStatus, sale *domain.Sale) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return
	}
	p.Status = status
	if sale == nil {
		p.TeamID = ""
		p.SoldPrice = nil
		return
	}
	price := sale.Price
	p.TeamID = sale.TeamID
	p.SoldPrice = &price
}

// RecordBid appends bid to the auction and moves the current bid and bidder
// to it in one step. Unknown ids are ignored.
func (s *Store) RecordBid(auctionID string, bid domain.Bid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[auctionID]
	if !ok {
		return
	}
	a.Bids = append(a.Bids, bid)
	a.CurrentBid = bid.Amount
	a.CurrentBidder = bid.TeamID
	a.Version++
}

// CompleteAuction marks an auction completed at end. Unknown ids are ignored.
func (s *Store) CompleteAuction(id string, end time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok {
		return
	}
	a.Status = domain.AuctionCompleted
	a.EndTime = &end
	a.Version++
}

// AppendActivity inserts a at the head of the feed, evicting the oldest
// entry once capacity is exceeded.
func (s *Store) AppendActivity(a domain.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append(s.activities, domain.Activity{})
	copy(s.activities[1:], s.activities)
	s.activities[0] = a.Clone()
	if len(s.activities) > s.activityCap {
		s.activities = s.activities[:s.activityCap]
	}
}

// Activities returns the retained activities, newest first.
func (s *Store) Activities() []domain.Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Activity, len(s.activities))
	for i, a := range s.activities {
		out[i] = a.Clone()
	}
	return out
}

// Empty reports whether no teams or players have been registered.
func (s *Store) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.teams) == 0 && len(s.players) == 0
}
