// Package roster registers the teams and players that take part in an
// auction and seeds them from YAML.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/player-auction/internal/domain"
	"github.com/jensholdgaard/player-auction/internal/event"
	"github.com/jensholdgaard/player-auction/internal/store"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid registration")

// TeamSpec describes a team to register. Amounts are decimal strings.
type TeamSpec struct {
	ID         string `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	ShortName  string `yaml:"short_name" json:"short_name"`
	Purse      string `yaml:"purse" json:"purse"`
	MaxPlayers int    `yaml:"max_players" json:"max_players"`
}

// PlayerSpec describes a player to register. An empty ID is generated.
type PlayerSpec struct {
	ID        string `yaml:"id" json:"id"`
	Name      string `yaml:"name" json:"name"`
	Role      string `yaml:"role" json:"role"`
	Country   string `yaml:"country" json:"country"`
	BasePrice string `yaml:"base_price" json:"base_price"`
}

// Manager handles team and player registration.
type Manager struct {
	store   *store.Store
	journal event.Store
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewManager returns a new roster Manager.
func NewManager(st *store.Store, journal event.Store, logger *slog.Logger, tp trace.TracerProvider) *Manager {
	return &Manager{
		store:   st,
		journal: journal,
		logger:  logger,
		tracer:  tp.Tracer("github.com/jensholdgaard/player-auction/internal/roster"),
	}
}

// RegisterTeam adds a team with a full purse and an empty roster.
func (m *Manager) RegisterTeam(ctx context.Context, spec TeamSpec) (domain.Team, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.RegisterTeam",
		trace.WithAttributes(
			attribute.String("team.id", spec.ID),
			attribute.String("team.short_name", spec.ShortName),
		),
	)
	defer span.End()

	if spec.ID == "" {
		spec.ID = strings.ToLower(spec.ShortName)
	}
	if spec.Name == "" || spec.ShortName == "" {
		return domain.Team{}, fmt.Errorf("%w: team %q needs a name and short name", ErrInvalid, spec.ID)
	}
	purse, err := decimal.NewFromString(spec.Purse)
	if err != nil {
		return domain.Team{}, fmt.Errorf("%w: team %q purse %q: %v", ErrInvalid, spec.ID, spec.Purse, err)
	}

	t := domain.Team{
		ID:             spec.ID,
		Name:           spec.Name,
		ShortName:      spec.ShortName,
		TotalPurse:     purse,
		RemainingPurse: purse,
		MaxPlayers:     spec.MaxPlayers,
		Players:        []domain.Player{},
	}
	if err := t.Validate(); err != nil {
		return domain.Team{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := m.store.AddTeam(t); err != nil {
		return domain.Team{}, fmt.Errorf("adding team %s: %w", t.ID, err)
	}

	m.record(ctx, event.TeamAggregateID(t.ID), event.TeamRegistered, event.TeamRegisteredData{
		Name:       t.Name,
		ShortName:  t.ShortName,
		TotalPurse: t.TotalPurse,
		MaxPlayers: t.MaxPlayers,
	})

	m.logger.InfoContext(ctx, "team registered",
		slog.String("team_id", t.ID),
		slog.String("short_name", t.ShortName),
		slog.String("purse", t.TotalPurse.String()),
	)
	return t, nil
}

// RegisterPlayer adds an unsold player.
func (m *Manager) RegisterPlayer(ctx context.Context, spec PlayerSpec) (domain.Player, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.RegisterPlayer",
		trace.WithAttributes(
			attribute.String("player.name", spec.Name),
			attribute.String("player.role", spec.Role),
		),
	)
	defer span.End()

	if spec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Player{}, fmt.Errorf("generating player id: %w", err)
		}
		spec.ID = id.String()
	}
	if spec.Name == "" {
		return domain.Player{}, fmt.Errorf("%w: player %q needs a name", ErrInvalid, spec.ID)
	}
	base, err := decimal.NewFromString(spec.BasePrice)
	if err != nil {
		return domain.Player{}, fmt.Errorf("%w: player %q base price %q: %v", ErrInvalid, spec.ID, spec.BasePrice, err)
	}

	p := domain.Player{
		ID:        spec.ID,
		Name:      spec.Name,
		Role:      domain.PlayerRole(spec.Role),
		Country:   spec.Country,
		BasePrice: base,
		Status:    domain.PlayerUnsold,
	}
	if err := p.Validate(); err != nil {
		return domain.Player{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := m.store.AddPlayer(p); err != nil {
		return domain.Player{}, fmt.Errorf("adding player %s: %w", p.ID, err)
	}

	m.record(ctx, event.PlayerAggregateID(p.ID), event.PlayerRegistered, event.PlayerRegisteredData{
		Name:      p.Name,
		Role:      string(p.Role),
		Country:   p.Country,
		BasePrice: p.BasePrice,
	})

	span.SetAttributes(attribute.String("player.id", p.ID))
	m.logger.InfoContext(ctx, "player registered",
		slog.String("player_id", p.ID),
		slog.String("name", p.Name),
		slog.String("base_price", p.BasePrice.String()),
	)
	return p, nil
}

// Seeded reports whether the journal already holds team registrations, in
// which case the roster comes from replay and must not be seeded again.
func (m *Manager) Seeded(ctx context.Context) (bool, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Seeded")
	defer span.End()

	teams, err := m.journal.LoadByType(ctx, event.TeamRegistered)
	if err != nil {
		return false, fmt.Errorf("loading team registrations: %w", err)
	}
	span.SetAttributes(attribute.Int("teams", len(teams)))
	return len(teams) > 0, nil
}

func (m *Manager) record(ctx context.Context, aggregateID string, t event.Type, data any) {
	ev, err := event.New(aggregateID, t, 1, data)
	if err == nil {
		err = m.journal.Append(ctx, ev)
	}
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to append registration event",
			slog.String("aggregate_id", aggregateID),
			slog.String("type", string(t)),
			slog.Any("error", err),
		)
	}
}
