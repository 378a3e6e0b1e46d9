package auctionerrors

import "errors"

// Lookup errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrItemNotFound    = errors.New("item not found")
	ErrBidNotFound     = errors.New("bid not found")
)

// Bid validation errors; all are request-local and recoverable by the caller
var (
	ErrInvalidBid        = errors.New("invalid bid")
	ErrAuctionClosed     = errors.New("auction is not open for bidding")
	ErrSelfBidForbidden  = errors.New("seller cannot bid on their own auction")
	ErrBidTooLow         = errors.New("bid amount below minimum")
	ErrInvalidUpperLimit = errors.New("upper limit below bid amount")
)

// Listing errors
var (
	ErrInvalidListing = errors.New("invalid listing")
)

// Moderation and infrastructure errors
var (
	ErrUnauthorized     = errors.New("caller is not authorized for this action")
	ErrTransientFailure = errors.New("transient storage failure")
)
