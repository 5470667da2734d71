package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/jensholdgaard/player-auction/internal/domain"
	"github.com/jensholdgaard/player-auction/internal/notify"
)

// messageSender is the slice of *discordgo.Session the announcer needs.
type messageSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Announcer posts auction openings and results to a Discord channel. Publish
// only formats and queues; Run does the network I/O so the engine is never
// held up by Discord.
type Announcer struct {
	sender    messageSender
	channelID string
	queue     chan string
	logger    *slog.Logger
}

// NewAnnouncer returns an Announcer queueing up to buffer messages.
func NewAnnouncer(sender messageSender, channelID string, buffer int, logger *slog.Logger) *Announcer {
	if buffer <= 0 {
		buffer = 1
	}
	return &Announcer{
		sender:    sender,
		channelID: channelID,
		queue:     make(chan string, buffer),
		logger:    logger,
	}
}

// Publish implements notify.Publisher.
func (a *Announcer) Publish(ctx context.Context, u notify.Update) {
	msg := announcement(u)
	if msg == "" {
		return
	}
	select {
	case a.queue <- msg:
	default:
		a.logger.WarnContext(ctx, "discord queue full, dropping announcement",
			slog.String("auction_id", u.AuctionID),
		)
	}
}

// Run sends queued messages until ctx is done.
func (a *Announcer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-a.queue:
			if _, err := a.sender.ChannelMessageSend(a.channelID, msg); err != nil {
				a.logger.ErrorContext(ctx, "failed to post announcement", slog.Any("error", err))
			}
		}
	}
}

// announcement renders the updates worth a channel message: a freshly
// opened auction and a settled one. Bids and ticks are left to the live
// stream.
func announcement(u notify.Update) string {
	if u.Auction == nil {
		return ""
	}
	a := u.Auction
	switch u.Kind {
	case notify.KindAuctionUpdate:
		if len(a.Bids) > 0 {
			return ""
		}
		return fmt.Sprintf("Auction open for **%s** (%s), base **%s**, %ds on the clock. ID: `%s`",
			a.Player.Name, a.Player.Role, domain.FormatAmount(a.Player.BasePrice), u.SecondsRemaining, a.ID)
	case notify.KindAuctionEnd:
		if u.Outcome == "sold" {
			return fmt.Sprintf("**%s** sold to **%s** for **%s**",
				a.Player.Name, a.CurrentBidder, domain.FormatAmount(a.CurrentBid))
		}
		return fmt.Sprintf("**%s** went unsold", a.Player.Name)
	}
	return ""
}
