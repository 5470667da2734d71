package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/player-auction/internal/auction"
	"github.com/jensholdgaard/player-auction/internal/domain"
	"github.com/jensholdgaard/player-auction/internal/store"
)

// Handlers process Discord interactions.
type Handlers struct {
	engine *auction.Engine
	ctrl   *auction.Controller
	store  *store.Store
	logger *slog.Logger
	tracer trace.Tracer
}

// NewHandlers creates new command handlers.
func NewHandlers(engine *auction.Engine, ctrl *auction.Controller, st *store.Store, logger *slog.Logger, tp trace.TracerProvider) *Handlers {
	return &Handlers{
		engine: engine,
		ctrl:   ctrl,
		store:  st,
		logger: logger,
		tracer: tp.Tracer("github.com/jensholdgaard/player-auction/internal/bot/commands"),
	}
}

// SlashCommands returns the slash command definitions.
func SlashCommands() []*discordgo.ApplicationCommand {
	auctionID := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "auction-id",
		Description: "Auction ID",
		Required:    true,
	}
	return []*discordgo.ApplicationCommand{
		{
			Name:        "auction-start",
			Description: "Open an auction for an unsold player",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "player",
					Description: "Player ID",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "timer",
					Description: "Countdown in seconds (default from config)",
					Required:    false,
				},
			},
		},
		{
			Name:        "bid",
			Description: "Bid on a live auction for a team",
			Options: []*discordgo.ApplicationCommandOption{
				auctionID,
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "team",
					Description: "Team ID",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "amount",
					Description: "Bid in crore, e.g. 10.5",
					Required:    true,
				},
			},
		},
		{
			Name:        "auction-close",
			Description: "Settle an auction before its timer runs out",
			Options:     []*discordgo.ApplicationCommandOption{auctionID},
		},
		{
			Name:        "auction-status",
			Description: "Show the leading bid and time left",
			Options:     []*discordgo.ApplicationCommandOption{auctionID},
		},
		{
			Name:        "teams",
			Description: "List teams with their remaining purse",
		},
	}
}

// InteractionCreate handles incoming slash command interactions.
func (h *Handlers) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	respond(s, i, h.Dispatch(context.Background(), data.Name, data.Options))
}

// Dispatch runs a command and returns the reply text.
func (h *Handlers) Dispatch(ctx context.Context, name string, opts []*discordgo.ApplicationCommandInteractionDataOption) string {
	ctx, span := h.tracer.Start(ctx, "InteractionCreate",
		trace.WithAttributes(attribute.String("command", name)),
	)
	defer span.End()

	o := options(opts)
	switch name {
	case "auction-start":
		return h.handleAuctionStart(ctx, o)
	case "bid":
		return h.handleBid(ctx, o)
	case "auction-close":
		return h.handleAuctionClose(ctx, o)
	case "auction-status":
		return h.handleAuctionStatus(o)
	case "teams":
		return h.handleTeams()
	default:
		return "Unknown command"
	}
}

func (h *Handlers) handleAuctionStart(ctx context.Context, o optionMap) string {
	timer := 0
	if opt, ok := o["timer"]; ok {
		timer = int(opt.IntValue())
	}

	a, err := h.ctrl.CreateAuction(ctx, o.str("player"), timer)
	if err != nil {
		return fmt.Sprintf("Failed to start auction: %s", err)
	}
	return fmt.Sprintf("Auction started for **%s** (ID: `%s`, base %s, %ds)",
		a.Player.Name, a.ID, domain.FormatAmount(a.CurrentBid), a.TimerDuration)
}

func (h *Handlers) handleBid(ctx context.Context, o optionMap) string {
	auctionID, teamID := o.str("auction-id"), o.str("team")
	amount, err := decimal.NewFromString(o.str("amount"))
	if err != nil || !amount.IsPositive() {
		return fmt.Sprintf("Invalid amount %q", o.str("amount"))
	}

	a, err := h.engine.PlaceBid(ctx, auctionID, teamID, amount)
	if err != nil {
		h.logger.DebugContext(ctx, "discord bid rejected", slog.String("auction_id", auctionID), slog.Any("error", err))
		return fmt.Sprintf("Bid failed: %s", err)
	}
	return fmt.Sprintf("**%s** leads `%s` with **%s**", a.CurrentBidder, a.ID, domain.FormatAmount(a.CurrentBid))
}

func (h *Handlers) handleAuctionClose(ctx context.Context, o optionMap) string {
	auctionID := o.str("auction-id")
	a, err := h.ctrl.Close(ctx, auctionID)
	if err != nil {
		return fmt.Sprintf("Failed to close auction: %s", err)
	}
	if p, ok := h.store.Player(a.PlayerID); ok && p.Status == domain.PlayerSold {
		return fmt.Sprintf("Auction `%s` closed! **%s** goes to **%s** for **%s**",
			a.ID, p.Name, p.TeamID, domain.FormatAmount(*p.SoldPrice))
	}
	return fmt.Sprintf("Auction `%s` closed, **%s** went unsold.", a.ID, a.Player.Name)
}

func (h *Handlers) handleAuctionStatus(o optionMap) string {
	auctionID := o.str("auction-id")
	a, ok := h.store.Auction(auctionID)
	if !ok {
		return fmt.Sprintf("Auction `%s` not found", auctionID)
	}
	secs, _ := h.ctrl.SecondsRemaining(auctionID)

	leader := "no bids yet"
	if a.CurrentBidder != "" {
		leader = "led by **" + a.CurrentBidder + "**"
	}
	return fmt.Sprintf("**%s** (%s): %s, %s, %ds left",
		a.Player.Name, a.Status, domain.FormatAmount(a.CurrentBid), leader, secs)
}

func (h *Handlers) handleTeams() string {
	teams := h.store.Teams()
	if len(teams) == 0 {
		return "No teams registered yet."
	}
	var b strings.Builder
	b.WriteString("**Teams:**\n")
	for _, t := range teams {
		fmt.Fprintf(&b, "%s (%s): %s left, %d/%d players\n",
			t.Name, t.ShortName, domain.FormatAmount(t.RemainingPurse), len(t.Players), t.MaxPlayers)
	}
	return b.String()
}

type optionMap map[string]*discordgo.ApplicationCommandInteractionDataOption

func options(opts []*discordgo.ApplicationCommandInteractionDataOption) optionMap {
	m := make(optionMap, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

func (o optionMap) str(name string) string {
	if opt, ok := o[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
		},
	})
}
