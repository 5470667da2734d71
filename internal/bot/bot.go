// Package bot exposes the auction over Discord: slash commands to open,
// bid on and close auctions, and a channel announcer fed by the engine.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/jensholdgaard/player-auction/internal/bot/commands"
	"github.com/jensholdgaard/player-auction/internal/config"
)

// Bot wraps the Discord session, the command handlers and the announcer.
type Bot struct {
	session   *discordgo.Session
	cfg       config.DiscordConfig
	logger    *slog.Logger
	announcer *Announcer
	cmds      []*discordgo.ApplicationCommand
}

// New creates a Bot. The session is not opened until Start, but the
// announcer is usable immediately so it can be handed to the engine.
func New(cfg config.DiscordConfig, bufferSize int, logger *slog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}

	return &Bot{
		session:   session,
		cfg:       cfg,
		logger:    logger,
		announcer: NewAnnouncer(session, cfg.ChannelID, bufferSize, logger),
	}, nil
}

// Announcer returns the publisher posting auction news to the channel.
func (b *Bot) Announcer() *Announcer { return b.announcer }

// Start opens the Discord connection and registers slash commands.
func (b *Bot) Start(ctx context.Context, handlers *commands.Handlers) error {
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.logger.InfoContext(ctx, "bot is ready", slog.String("user", s.State.User.Username))
	})

	b.session.AddHandler(handlers.InteractionCreate)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}

	registered, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.cfg.GuildID, commands.SlashCommands())
	if err != nil {
		return fmt.Errorf("registering slash commands: %w", err)
	}
	b.cmds = registered

	b.logger.InfoContext(ctx, "slash commands registered", slog.Int("count", len(registered)))
	return nil
}

// Stop removes the registered commands and closes the connection.
func (b *Bot) Stop() error {
	for _, cmd := range b.cmds {
		if err := b.session.ApplicationCommandDelete(b.session.State.User.ID, b.cfg.GuildID, cmd.ID); err != nil {
			b.logger.Error("failed to delete command", slog.String("command", cmd.Name), slog.Any("error", err))
		}
	}
	return b.session.Close()
}
