package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override secrets from the YAML file.
const (
	EnvDatabasePassword = "AUCTION_DB_PASSWORD"
	EnvDiscordToken     = "AUCTION_DISCORD_TOKEN"
)

// Config represents the application configuration.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Database       DatabaseConfig       `yaml:"database"`
	Telemetry      TelemetryConfig      `yaml:"telemetry"`
	LeaderElection LeaderElectionConfig `yaml:"leader_election"`
	Auction        AuctionConfig        `yaml:"auction"`
	Notify         NotifyConfig         `yaml:"notify"`
	Discord        DiscordConfig        `yaml:"discord"`
	Roster         RosterConfig         `yaml:"roster"`
}

// DatabaseConfig holds journal backend settings.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "memory" or "postgres"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// AllowedOrigins restricts WebSocket upgrades; empty allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// TelemetryConfig holds OpenTelemetry settings. An empty OTLPEndpoint
// disables export.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	Insecure       bool   `yaml:"insecure"`
}

// LeaderElectionConfig holds Kubernetes leader election settings.
type LeaderElectionConfig struct {
	Enabled        bool          `yaml:"enabled"`
	LeaseName      string        `yaml:"lease_name"`
	LeaseNamespace string        `yaml:"lease_namespace"`
	LeaseDuration  time.Duration `yaml:"lease_duration"`
	RenewDeadline  time.Duration `yaml:"renew_deadline"`
	RetryPeriod    time.Duration `yaml:"retry_period"`
}

// AuctionConfig tunes the bidding engine and countdown loop.
type AuctionConfig struct {
	// DefaultTimer is the countdown in seconds used when a request omits one.
	DefaultTimer     int           `yaml:"default_timer"`
	TickInterval     time.Duration `yaml:"tick_interval"`
	ActivityCapacity int           `yaml:"activity_capacity"`
}

// NotifyConfig tunes observer fan-out.
type NotifyConfig struct {
	BufferSize int `yaml:"buffer_size"`
}

// DiscordConfig holds bot settings. An empty token disables the bot.
type DiscordConfig struct {
	Token string `yaml:"token"`
	// GuildID scopes slash commands; empty registers them globally.
	GuildID   string `yaml:"guild_id"`
	ChannelID string `yaml:"channel_id"`
}

// Enabled reports whether the Discord bot should start.
func (d DiscordConfig) Enabled() bool {
	return d.Token != "" && d.ChannelID != ""
}

// RosterConfig points at the team/player seed. An empty SeedFile uses the
// built-in roster.
type RosterConfig struct {
	SeedFile string `yaml:"seed_file"`
}

// Defaults returns the configuration used for any field the file omits.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:  "memory",
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "auctioneer",
			ServiceVersion: "0.1.0",
		},
		LeaderElection: LeaderElectionConfig{
			Enabled:        false,
			LeaseName:      "auctioneer-leader",
			LeaseNamespace: "default",
			LeaseDuration:  15 * time.Second,
			RenewDeadline:  10 * time.Second,
			RetryPeriod:    2 * time.Second,
		},
		Auction: AuctionConfig{
			DefaultTimer:     30,
			TickInterval:     time.Second,
			ActivityCapacity: 100,
		},
		Notify: NotifyConfig{
			BufferSize: 32,
		},
	}
}

// Load reads a YAML configuration file from the given path, then applies
// secrets from the environment. A .env file next to the process is loaded
// first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabasePassword); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv(EnvDiscordToken); v != "" {
		c.Discord.Token = v
	}
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "memory", "postgres":
		// valid
	default:
		return fmt.Errorf("unsupported database driver %q: must be \"memory\" or \"postgres\"", c.Database.Driver)
	}
	if c.Auction.DefaultTimer <= 0 {
		return fmt.Errorf("auction.default_timer must be positive, got %d", c.Auction.DefaultTimer)
	}
	if c.Auction.TickInterval <= 0 {
		return fmt.Errorf("auction.tick_interval must be positive, got %s", c.Auction.TickInterval)
	}
	if c.Notify.BufferSize <= 0 {
		return fmt.Errorf("notify.buffer_size must be positive, got %d", c.Notify.BufferSize)
	}
	return nil
}
