package models

import "time"

// Role is the capability level resolved for a caller by the identity layer.
type Role string

const (
	RoleUser  Role = "user"
	RoleRep   Role = "rep"
	RoleAdmin Role = "admin"
)

// CanModerate reports whether the role may perform moderation actions
// such as removing bids.
func (r Role) CanModerate() bool {
	return r == RoleRep || r == RoleAdmin
}

// Caller is the resolved identity of the requesting user. Authentication
// happens outside this service; handlers only ever see a Caller.
type Caller struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// Item represents the thing being sold in an auction
type Item struct {
	ItemID      string `json:"item_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	SellerID    string `json:"seller_id"`
	ImageURL    string `json:"image_url,omitempty"`
}

// AuctionState is the lifecycle phase derived from time and the active flag.
type AuctionState string

const (
	StateScheduled AuctionState = "scheduled"
	StateActive    AuctionState = "active"
	StateClosed    AuctionState = "closed"
)

// Auction represents one timed sale of an item.
//
// CurrentPrice and WinnerID are a materialized cache of the highest surviving
// bid in the ledger; they are 0 / empty until the first bid is accepted and
// are only ever written inside a repository transaction.
type Auction struct {
	AuctionID    string    `json:"auction_id"`
	ItemID       string    `json:"item_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	InitialPrice float64   `json:"initial_price"`
	Increment    float64   `json:"increment"`
	ReservePrice float64   `json:"-"` // seller's hidden floor, informational only
	CurrentPrice float64   `json:"current_price"`
	Active       bool      `json:"is_active"`
	WinnerID     string    `json:"winner_id,omitempty"`
	Participants []string  `json:"participants,omitempty"`
}

// State derives the lifecycle phase at the given instant. Closed is terminal:
// the active flag can force-close early but never reopen a time-expired auction.
func (a Auction) State(now time.Time) AuctionState {
	if !a.Active || now.After(a.EndTime) {
		return StateClosed
	}
	if now.Before(a.StartTime) {
		return StateScheduled
	}
	return StateActive
}

// IsOpen reports whether the auction accepts bids at the given instant.
func (a Auction) IsOpen(now time.Time) bool {
	return a.State(now) == StateActive
}

// Bid is one bidder's offer on one auction at one instant. Bids are
// append-only: never edited, only superseded or removed by a moderator.
// UpperLimit is meaningful only when IsProxy is set.
type Bid struct {
	BidID      string    `json:"bid_id"`
	AuctionID  string    `json:"auction_id"`
	BidderID   string    `json:"bidder_id"`
	Amount     float64   `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
	IsProxy    bool      `json:"is_proxy"`
	UpperLimit float64   `json:"-"` // hidden maximum, never exposed to other bidders
}

// Notification kinds used by the engine.
const (
	NotificationOutbid = "outbid"
	NotificationWon    = "won"
	NotificationInfo   = "info"
)

// Notification is a one-way record appended for a user; delivery and read
// tracking belong to the notification collaborator, not this engine.
type Notification struct {
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	Kind           string    `json:"kind"`
	Read           bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}
