package auction

import (
	"errors"
	"fmt"
)

// Error categories. Every sentinel below wraps one of these (or stands alone)
// so callers can branch with errors.Is at whichever granularity they need.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
)

var (
	ErrAuctionNotFound = fmt.Errorf("auction %w", ErrNotFound)
	ErrTeamNotFound    = fmt.Errorf("team %w", ErrNotFound)
	ErrPlayerNotFound  = fmt.Errorf("player %w", ErrNotFound)

	ErrAuctionNotActive  = fmt.Errorf("auction is not accepting bids: %w", ErrInvalidState)
	ErrAuctionNotLive    = fmt.Errorf("auction is not live: %w", ErrInvalidState)
	ErrPlayerUnavailable = fmt.Errorf("player is not available for auction: %w", ErrInvalidState)

	ErrBidTooLow         = errors.New("bid must be higher than the current bid")
	ErrInsufficientFunds = errors.New("insufficient funds in purse")
	ErrRosterFull        = errors.New("team roster is full")
	ErrBidInProgress     = errors.New("another bid is being processed, retry")
)
