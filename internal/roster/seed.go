package roster

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seed is the on-disk roster format.
type Seed struct {
	Teams   []TeamSpec   `yaml:"teams"`
	Players []PlayerSpec `yaml:"players"`
}

// LoadSeed reads a roster file. An empty path selects the built-in roster.
func LoadSeed(path string) (Seed, error) {
	data := defaultSeed
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return Seed{}, fmt.Errorf("reading seed file: %w", err)
		}
	}

	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("parsing seed file: %w", err)
	}
	return s, nil
}

// Apply registers every team and player in s, stopping at the first failure.
func (m *Manager) Apply(ctx context.Context, s Seed) error {
	ctx, span := m.tracer.Start(ctx, "Manager.Apply")
	defer span.End()

	for _, t := range s.Teams {
		if _, err := m.RegisterTeam(ctx, t); err != nil {
			return err
		}
	}
	for _, p := range s.Players {
		if _, err := m.RegisterPlayer(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
