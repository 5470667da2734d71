package roster_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jensholdgaard/player-auction/internal/clock"
	"github.com/jensholdgaard/player-auction/internal/domain"
	"github.com/jensholdgaard/player-auction/internal/event"
	"github.com/jensholdgaard/player-auction/internal/roster"
	"github.com/jensholdgaard/player-auction/internal/store"
	"github.com/jensholdgaard/player-auction/internal/store/memory"
)

var testTP = noop.NewTracerProvider()

func newManager(t *testing.T) (*roster.Manager, *store.Store, event.Store) {
	t.Helper()
	st := store.New(0)
	journal := memory.NewEventStore(clock.NewMock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
	return roster.NewManager(st, journal, slog.Default(), testTP), st, journal
}

func TestManager_RegisterTeam(t *testing.T) {
	m, st, journal := newManager(t)
	ctx := context.Background()

	team, err := m.RegisterTeam(ctx, roster.TeamSpec{Name: "Gujarat Titans", ShortName: "GT", Purse: "95.5", MaxPlayers: 25})
	if err != nil {
		t.Fatalf("RegisterTeam: %v", err)
	}
	check.Equal(t, "gt", team.ID)
	check.Equal(t, "95.5", team.TotalPurse.String())
	check.True(t, team.RemainingPurse.Equal(team.TotalPurse))

	stored, ok := st.Team("gt")
	check.True(t, ok)
	check.Equal(t, "Gujarat Titans", stored.Name)

	events, err := journal.Load(ctx, event.TeamAggregateID("gt"))
	check.NoError(t, err)
	check.Equal(t, 1, len(events))
	check.Equal(t, event.TeamRegistered, events[0].Type)

	_, err = m.RegisterTeam(ctx, roster.TeamSpec{Name: "Gujarat Titans", ShortName: "GT", Purse: "95.5", MaxPlayers: 25})
	check.True(t, errors.Is(err, store.ErrDuplicateID))
}

func TestManager_RegisterTeam_Invalid(t *testing.T) {
	tests := []struct {
		name string
		spec roster.TeamSpec
	}{
		{"missing name", roster.TeamSpec{ShortName: "X", Purse: "10", MaxPlayers: 5}},
		{"bad purse", roster.TeamSpec{Name: "X", ShortName: "X", Purse: "ten", MaxPlayers: 5}},
		{"negative purse", roster.TeamSpec{Name: "X", ShortName: "X", Purse: "-1", MaxPlayers: 5}},
		{"no roster room", roster.TeamSpec{Name: "X", ShortName: "X", Purse: "10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, st, _ := newManager(t)
			_, err := m.RegisterTeam(context.Background(), tt.spec)
			check.True(t, errors.Is(err, roster.ErrInvalid))
			check.True(t, st.Empty())
		})
	}
}

func TestManager_RegisterPlayer(t *testing.T) {
	m, st, _ := newManager(t)
	ctx := context.Background()

	p, err := m.RegisterPlayer(ctx, roster.PlayerSpec{Name: "Mohammed Shami", Role: "Bowler", Country: "India", BasePrice: "1.25"})
	if err != nil {
		t.Fatalf("RegisterPlayer: %v", err)
	}
	check.True(t, p.ID != "")
	check.Equal(t, domain.RoleBowler, p.Role)
	check.Equal(t, domain.PlayerUnsold, p.Status)
	check.Equal(t, 1, len(st.PlayersByStatus(domain.PlayerUnsold)))

	tests := []struct {
		name string
		spec roster.PlayerSpec
	}{
		{"unknown role", roster.PlayerSpec{Name: "A", Role: "Umpire", BasePrice: "1"}},
		{"zero base", roster.PlayerSpec{Name: "A", Role: "Batsman", BasePrice: "0"}},
		{"bad base", roster.PlayerSpec{Name: "A", Role: "Batsman", BasePrice: "lots"}},
		{"missing name", roster.PlayerSpec{Role: "Batsman", BasePrice: "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.RegisterPlayer(ctx, tt.spec)
			check.True(t, errors.Is(err, roster.ErrInvalid))
		})
	}
	check.Equal(t, 1, len(st.Players()))
}

func TestLoadSeed_Default(t *testing.T) {
	s, err := roster.LoadSeed("")
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	check.True(t, len(s.Teams) >= 2)
	check.True(t, len(s.Players) >= 10)

	m, st, journal := newManager(t)
	if err := m.Apply(context.Background(), s); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	check.Equal(t, len(s.Teams), len(st.Teams()))
	check.Equal(t, len(s.Players), len(st.Players()))
	check.Equal(t, s.Teams[0].ID, st.Teams()[0].ID)

	all, err := journal.LoadAll(context.Background())
	check.NoError(t, err)
	check.Equal(t, len(s.Teams)+len(s.Players), len(all))
}

func TestLoadSeed_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.yaml")
	content := `
teams:
  - id: lsg
    name: Lucknow Super Giants
    short_name: LSG
    purse: "80"
    max_players: 18
players:
  - name: Nicholas Pooran
    role: Wicket-Keeper
    country: West Indies
    base_price: "0.75"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := roster.LoadSeed(path)
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	check.Equal(t, 1, len(s.Teams))
	check.Equal(t, "80", s.Teams[0].Purse)
	check.Equal(t, 18, s.Teams[0].MaxPlayers)
	check.Equal(t, "Wicket-Keeper", s.Players[0].Role)
}

func TestLoadSeed_Errors(t *testing.T) {
	_, err := roster.LoadSeed("/nonexistent/roster.yaml")
	check.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("teams: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = roster.LoadSeed(path)
	check.Error(t, err)
}

func TestManager_ApplyStopsAtFirstError(t *testing.T) {
	m, st, _ := newManager(t)
	err := m.Apply(context.Background(), roster.Seed{
		Teams: []roster.TeamSpec{
			{ID: "a", Name: "A", ShortName: "A", Purse: "10", MaxPlayers: 5},
			{ID: "b", Name: "B", ShortName: "B", Purse: "oops", MaxPlayers: 5},
		},
		Players: []roster.PlayerSpec{{Name: "P", Role: "Batsman", BasePrice: "1"}},
	})
	check.True(t, errors.Is(err, roster.ErrInvalid))
	check.Equal(t, 1, len(st.Teams()))
	check.Equal(t, 0, len(st.Players()))
}

func TestManager_TeamAndPlayerMayShareID(t *testing.T) {
	m, st, journal := newManager(t)
	ctx := context.Background()

	if _, err := m.RegisterTeam(ctx, roster.TeamSpec{ID: "gt", Name: "Gujarat Titans", ShortName: "GT", Purse: "100", MaxPlayers: 25}); err != nil {
		t.Fatalf("RegisterTeam: %v", err)
	}
	if _, err := m.RegisterPlayer(ctx, roster.PlayerSpec{ID: "gt", Name: "Gautam Tiwari", Role: "Batsman", BasePrice: "1"}); err != nil {
		t.Fatalf("RegisterPlayer: %v", err)
	}

	_, ok := st.Player("gt")
	check.True(t, ok)

	all, err := journal.LoadAll(ctx)
	check.NoError(t, err)
	check.Equal(t, 2, len(all))

	players, err := journal.Load(ctx, event.PlayerAggregateID("gt"))
	check.NoError(t, err)
	check.Equal(t, 1, len(players))
	check.Equal(t, event.PlayerRegistered, players[0].Type)
	check.Equal(t, "gt", event.PlayerID(players[0].AggregateID))
}

func TestManager_Seeded(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()

	seeded, err := m.Seeded(ctx)
	check.NoError(t, err)
	check.False(t, seeded)

	if _, err := m.RegisterPlayer(ctx, roster.PlayerSpec{Name: "Shubman Gill", Role: "Batsman", BasePrice: "2"}); err != nil {
		t.Fatalf("RegisterPlayer: %v", err)
	}
	seeded, err = m.Seeded(ctx)
	check.NoError(t, err)
	check.False(t, seeded)

	if _, err := m.RegisterTeam(ctx, roster.TeamSpec{Name: "Gujarat Titans", ShortName: "GT", Purse: "100", MaxPlayers: 25}); err != nil {
		t.Fatalf("RegisterTeam: %v", err)
	}
	seeded, err = m.Seeded(ctx)
	check.NoError(t, err)
	check.True(t, seeded)
}
