package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Hub fans updates out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the update.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	logger *slog.Logger
}

// NewHub returns a Hub giving each subscriber a buffer of the given size.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscription is one observer's stream. Close it when done.
type Subscription struct {
	hub       *Hub
	auctionID string
	ch        chan Update
	once      sync.Once
}

// Subscribe registers an observer. A non-empty auctionID restricts the
// stream to that auction.
func (h *Hub) Subscribe(auctionID string) *Subscription {
	s := &Subscription{
		hub:       h,
		auctionID: auctionID,
		ch:        make(chan Update, h.buffer),
	}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Updates returns the stream. It is closed by Close.
func (s *Subscription) Updates() <-chan Update { return s.ch }

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		close(s.ch)
		s.hub.mu.Unlock()
	})
}

// Publish implements Publisher.
func (h *Hub) Publish(ctx context.Context, u Update) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs {
		if s.auctionID != "" && s.auctionID != u.AuctionID {
			continue
		}
		select {
		case s.ch <- u:
		default:
			h.logger.WarnContext(ctx, "dropping update for slow subscriber",
				slog.String("kind", string(u.Kind)),
				slog.String("auction_id", u.AuctionID),
			)
		}
	}
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
