package notify

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jensholdgaard/player-auction/internal/clock"
	"github.com/jensholdgaard/player-auction/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Snapshotter reads the current state of an auction.
type Snapshotter interface {
	Auction(id string) (domain.Auction, bool)
}

// WebSocketHandler streams hub updates to WebSocket clients. With
// ?auction=<id> the client first receives the auction's current state and
// countdown, then only updates for that auction.
type WebSocketHandler struct {
	hub      *Hub
	snaps    Snapshotter
	clock    clock.Clock
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler returns a handler. An empty allowedOrigins accepts
// any origin.
func NewWebSocketHandler(hub *Hub, snaps Snapshotter, clk clock.Clock, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:   hub,
		snaps: snaps,
		clock: clk,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
			},
		},
		logger: logger,
	}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	auctionID := r.URL.Query().Get("auction")
	if auctionID != "" {
		if _, ok := h.snaps.Auction(auctionID); !ok {
			http.Error(w, "auction not found", http.StatusNotFound)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", slog.Any("error", err))
		return
	}

	// Subscribe before reading the snapshot so no committed change can fall
	// between the two.
	sub := h.hub.Subscribe(auctionID)
	var initial []Update
	if auctionID != "" {
		if a, ok := h.snaps.Auction(auctionID); ok {
			secs := a.SecondsRemaining(h.clock.Now())
			initial = append(initial, AuctionUpdate(a, secs))
			if a.Status == domain.AuctionLive {
				initial = append(initial, TimerUpdate(a.ID, secs))
			}
		}
	}

	h.logger.InfoContext(r.Context(), "observer connected",
		slog.String("auction_id", auctionID),
		slog.String("remote", r.RemoteAddr),
	)

	c := &client{conn: conn, sub: sub, logger: h.logger}
	go c.writePump(initial)
	c.readPump()
}

type client struct {
	conn   *websocket.Conn
	sub    *Subscription
	logger *slog.Logger
}

// readPump discards client messages and tears the subscription down once the
// peer goes away.
func (c *client) readPump() {
	defer c.sub.Close()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("websocket read error", slog.Any("error", err))
			}
			return
		}
	}
}

func (c *client) writePump(initial []Update) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for _, u := range initial {
		if err := c.write(u); err != nil {
			return
		}
	}

	for {
		select {
		case u, ok := <-c.sub.Updates():
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
			if err := c.write(u); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) write(u Update) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(u); err != nil {
		c.logger.Warn("websocket write error", slog.Any("error", err))
		c.sub.Close()
		return err
	}
	return nil
}
