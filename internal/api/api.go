// Package api exposes the auction over HTTP with gin.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/player-auction/internal/auction"
	"github.com/jensholdgaard/player-auction/internal/domain"
	"github.com/jensholdgaard/player-auction/internal/roster"
	"github.com/jensholdgaard/player-auction/internal/store"
)

// Handler serves the REST endpoints.
type Handler struct {
	engine *auction.Engine
	ctrl   *auction.Controller
	roster *roster.Manager
	store  *store.Store
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(engine *auction.Engine, ctrl *auction.Controller, rm *roster.Manager, st *store.Store, logger *slog.Logger) *Handler {
	return &Handler{
		engine: engine,
		ctrl:   ctrl,
		roster: rm,
		store:  st,
		logger: logger,
	}
}

// Extra mounts a plain net/http handler on the router.
type Extra struct {
	Path    string
	Handler http.Handler
}

// NewRouter builds the gin engine with the REST routes plus any extra
// handlers such as the WebSocket stream and health probes. The REST routes
// answer 503 while ready reports false, so only the replica that owns the
// auction state serves them, and only after it has recovered.
func NewRouter(h *Handler, ready func() bool, tp trace.TracerProvider, logger *slog.Logger, extras ...Extra) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(tp, logger))

	for _, x := range extras {
		r.GET(x.Path, gin.WrapH(x.Handler))
	}

	api := r.Group("/api", requireReady(ready))
	api.GET("/teams", h.listTeams)
	api.POST("/teams", h.registerTeam)
	api.GET("/teams/:id", h.getTeam)

	api.GET("/players", h.listPlayers)
	api.POST("/players", h.registerPlayer)
	api.GET("/players/:id", h.getPlayer)

	api.GET("/auctions", h.listAuctions)
	api.POST("/auctions", h.createAuction)
	api.GET("/auctions/live", h.liveAuctions)
	api.GET("/auctions/:id", h.getAuction)
	api.POST("/auctions/:id/bids", h.placeBid)
	api.POST("/auctions/:id/settle", h.settleAuction)

	api.GET("/activities", h.listActivities)
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

type createAuctionRequest struct {
	PlayerID      string `json:"player_id" binding:"required"`
	TimerDuration int    `json:"timer_duration" binding:"omitempty,min=1,max=3600"`
}

type bidRequest struct {
	TeamID string           `json:"team_id" binding:"required"`
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

type bidResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Auction *domain.Auction `json:"auction,omitempty"`
}

// auctionView adds the derived countdown to an auction.
type auctionView struct {
	domain.Auction
	SecondsRemaining int `json:"seconds_remaining"`
}

func (h *Handler) listTeams(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Teams())
}

func (h *Handler) getTeam(c *gin.Context) {
	t, ok := h.store.Team(c.Param("id"))
	if !ok {
		h.fail(c, auction.ErrTeamNotFound)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) registerTeam(c *gin.Context) {
	var req roster.TeamSpec
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	t, err := h.roster.RegisterTeam(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) listPlayers(c *gin.Context) {
	status := domain.PlayerStatus(c.Query("status"))
	if status == "" {
		c.JSON(http.StatusOK, h.store.Players())
		return
	}
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "status must be one of unsold, live, sold"})
		return
	}
	c.JSON(http.StatusOK, h.store.PlayersByStatus(status))
}

func (h *Handler) getPlayer(c *gin.Context) {
	p, ok := h.store.Player(c.Param("id"))
	if !ok {
		h.fail(c, auction.ErrPlayerNotFound)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) registerPlayer(c *gin.Context) {
	var req roster.PlayerSpec
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	p, err := h.roster.RegisterPlayer(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) listAuctions(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Auctions())
}

func (h *Handler) liveAuctions(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.LiveAuctions())
}

func (h *Handler) getAuction(c *gin.Context) {
	id := c.Param("id")
	a, ok := h.store.Auction(id)
	if !ok {
		h.fail(c, auction.ErrAuctionNotFound)
		return
	}
	secs, err := h.ctrl.SecondsRemaining(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, auctionView{Auction: a, SecondsRemaining: secs})
}

func (h *Handler) createAuction(c *gin.Context) {
	var req createAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	a, err := h.ctrl.CreateAuction(c.Request.Context(), req.PlayerID, req.TimerDuration)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, auctionView{Auction: a, SecondsRemaining: a.TimerDuration})
}

func (h *Handler) placeBid(c *gin.Context) {
	var req bidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, bidResponse{Error: err.Error()})
		return
	}
	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, bidResponse{Error: "amount must be positive"})
		return
	}
	a, err := h.engine.PlaceBid(c.Request.Context(), c.Param("id"), req.TeamID, *req.Amount)
	if err != nil {
		code := statusFor(err)
		msg := err.Error()
		if code == http.StatusInternalServerError {
			msg = http.StatusText(code)
		}
		c.JSON(code, bidResponse{Error: msg})
		return
	}
	c.JSON(http.StatusOK, bidResponse{Success: true, Auction: &a})
}

func (h *Handler) settleAuction(c *gin.Context) {
	a, err := h.ctrl.Close(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) listActivities(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Activities())
}

// fail writes the status mapped from err. Unmapped errors are logged and
// hidden from the client.
func (h *Handler) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request.Context(), "request failed",
			slog.String("path", c.FullPath()),
			slog.Any("error", err),
		)
		c.JSON(code, errorResponse{Error: http.StatusText(code)})
		return
	}
	c.JSON(code, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, auction.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auction.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, auction.ErrBidTooLow),
		errors.Is(err, auction.ErrInsufficientFunds),
		errors.Is(err, auction.ErrRosterFull):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auction.ErrBidInProgress):
		return http.StatusTooManyRequests
	case errors.Is(err, roster.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrDuplicateID):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
