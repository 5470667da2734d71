package auction_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jensholdgaard/player-auction/internal/auction"
	"github.com/jensholdgaard/player-auction/internal/clock"
	"github.com/jensholdgaard/player-auction/internal/domain"
	"github.com/jensholdgaard/player-auction/internal/event"
	"github.com/jensholdgaard/player-auction/internal/notify"
	"github.com/jensholdgaard/player-auction/internal/store"
	"github.com/jensholdgaard/player-auction/internal/store/memory"
)

var epoch = time.Date(2025, 3, 22, 19, 30, 0, 0, time.UTC)

func cr(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// recorder is a notify.Publisher that keeps every update.
type recorder struct {
	mu      sync.Mutex
	updates []notify.Update
}

func (r *recorder) Publish(_ context.Context, u notify.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Kind, len(r.updates))
	for i, u := range r.updates {
		out[i] = u.Kind
	}
	return out
}

func (r *recorder) last() notify.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[len(r.updates)-1]
}

// failingJournal rejects every append.
type failingJournal struct{ event.Store }

func (failingJournal) Append(context.Context, ...event.Event) error {
	return errors.New("disk on fire")
}

// gatedJournal holds the first append of one event type until release is
// closed. entered is closed once that append is waiting.
type gatedJournal struct {
	event.Store
	typ     event.Type
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedJournal(inner event.Store, typ event.Type) *gatedJournal {
	return &gatedJournal{
		Store:   inner,
		typ:     typ,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedJournal) Append(ctx context.Context, events ...event.Event) error {
	for _, ev := range events {
		if ev.Type != g.typ {
			continue
		}
		gated := false
		g.once.Do(func() {
			gated = true
			close(g.entered)
		})
		if gated {
			<-g.release
		}
		break
	}
	return g.Store.Append(ctx, events...)
}

type fixture struct {
	store   *store.Store
	journal event.Store
	pub     *recorder
	clock   *clock.Mock
	engine  *auction.Engine
	ctrl    *auction.Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewMock(epoch)
	return newFixtureWith(t, memory.NewEventStore(clk), clk)
}

func newFixtureWith(t *testing.T, journal event.Store, clk *clock.Mock) *fixture {
	t.Helper()
	st := store.New(0)
	pub := &recorder{}
	eng, err := auction.NewEngine(st, journal, pub, slog.Default(), noop.NewTracerProvider(), metricnoop.NewMeterProvider(), clk)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return &fixture{
		store:   st,
		journal: journal,
		pub:     pub,
		clock:   clk,
		engine:  eng,
		ctrl:    auction.NewController(eng, 30),
	}
}

// addTeam registers a team in the store and the journal.
func (f *fixture) addTeam(t *testing.T, id, short string, purse string, maxPlayers int) {
	t.Helper()
	total := cr(purse)
	team := domain.Team{
		ID:             id,
		Name:           short + " Franchise",
		ShortName:      short,
		TotalPurse:     total,
		RemainingPurse: total,
		MaxPlayers:     maxPlayers,
		Players:        []domain.Player{},
	}
	if err := f.store.AddTeam(team); err != nil {
		t.Fatalf("AddTeam: %v", err)
	}
	f.journalEvent(t, event.TeamAggregateID(id), event.TeamRegistered, event.TeamRegisteredData{
		Name: team.Name, ShortName: short, TotalPurse: total, MaxPlayers: maxPlayers,
	})
}

// addPlayer registers an unsold player in the store and the journal.
func (f *fixture) addPlayer(t *testing.T, id, name, base string) {
	t.Helper()
	p := domain.Player{
		ID:        id,
		Name:      name,
		Role:      domain.RoleBatsman,
		BasePrice: cr(base),
		Status:    domain.PlayerUnsold,
	}
	if err := f.store.AddPlayer(p); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	f.journalEvent(t, event.PlayerAggregateID(id), event.PlayerRegistered, event.PlayerRegisteredData{
		Name: name, Role: string(p.Role), BasePrice: p.BasePrice,
	})
}

func (f *fixture) journalEvent(t *testing.T, id string, typ event.Type, data any) {
	t.Helper()
	ev, err := event.New(id, typ, 1, data)
	if err != nil {
		t.Fatalf("event.New: %v", err)
	}
	if err := f.journal.Append(context.Background(), ev); err != nil {
		t.Fatalf("Append: %v", err)
	}
}

// standard sets up MI (100), CSK (100), DC (3) and one player with base 5.
func (f *fixture) standard(t *testing.T) domain.Auction {
	t.Helper()
	f.addTeam(t, "mi", "MI", "100", 25)
	f.addTeam(t, "csk", "CSK", "100", 25)
	f.addTeam(t, "dc", "DC", "3", 25)
	f.addPlayer(t, "p1", "Rohit Sharma", "5")

	a, err := f.ctrl.CreateAuction(context.Background(), "p1", 30)
	if err != nil {
		t.Fatalf("CreateAuction: %v", err)
	}
	return a
}

func mustTeam(t *testing.T, st *store.Store, id string) domain.Team {
	t.Helper()
	team, ok := st.Team(id)
	if !ok {
		t.Fatalf("team %s missing", id)
	}
	return team
}

func mustPlayer(t *testing.T, st *store.Store, id string) domain.Player {
	t.Helper()
	p, ok := st.Player(id)
	if !ok {
		t.Fatalf("player %s missing", id)
	}
	return p
}

func countKind(acts []domain.Activity, kind domain.ActivityKind) int {
	n := 0
	for _, a := range acts {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// checkPurse asserts remaining = total - sum of roster sold prices.
func checkPurse(t *testing.T, team domain.Team) {
	t.Helper()
	want := team.TotalPurse.Sub(team.Spent())
	if !team.RemainingPurse.Equal(want) {
		t.Errorf("team %s: remaining purse %s, want %s", team.ID, team.RemainingPurse, want)
	}
	if team.RemainingPurse.IsNegative() {
		t.Errorf("team %s: negative purse %s", team.ID, team.RemainingPurse)
	}
}
