package helpers

import "time"

// Request/Response DTOs

// PlaceBidRequest is the body of POST /auctions/:auction_id/bids. The bidder
// comes from the resolved identity, never from the body. A non-nil upper
// limit turns the bid into a proxy bid.
type PlaceBidRequest struct {
	Amount     float64  `json:"amount" binding:"required,gt=0"`
	UpperLimit *float64 `json:"upper_limit,omitempty" binding:"omitempty,gt=0"`
}

// PlaceBidResponse reports the settled auction state after proxy resolution.
type PlaceBidResponse struct {
	BidID        string  `json:"bid_id"`
	AuctionID    string  `json:"auction_id"`
	BidderID     string  `json:"bidder_id"`
	Amount       float64 `json:"amount"`
	CreatedAt    string  `json:"created_at"`
	CurrentPrice float64 `json:"current_price"`
	WinnerID     string  `json:"winner_id"`
}

// BidView is one ledger entry as exposed to clients. Upper limits are
// deliberately absent: a proxy bidder's maximum stays hidden.
type BidView struct {
	BidID     string  `json:"bid_id"`
	BidderID  string  `json:"bidder_id"`
	Amount    float64 `json:"amount"`
	IsProxy   bool    `json:"is_proxy"`
	CreatedAt string  `json:"created_at"`
}

// CreateAuctionRequest is the body of POST /auctions.
type CreateAuctionRequest struct {
	Name         string     `json:"name" binding:"required"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	ImageURL     string     `json:"image_url"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      time.Time  `json:"end_time" binding:"required"`
	InitialPrice float64    `json:"initial_price" binding:"required,gt=0"`
	Increment    float64    `json:"increment" binding:"omitempty,gt=0"`
	ReservePrice float64    `json:"reserve_price" binding:"omitempty,gte=0"`
}

// CreateAuctionResponse returns the created listing. The reserve price is
// echoed only to the seller who set it.
type CreateAuctionResponse struct {
	AuctionID    string  `json:"auction_id"`
	ItemID       string  `json:"item_id"`
	Name         string  `json:"name"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	InitialPrice float64 `json:"initial_price"`
	Increment    float64 `json:"increment"`
	ReservePrice float64 `json:"reserve_price"`
}

// DeleteBidResponse reports the repaired auction state after a moderator
// removed a bid.
type DeleteBidResponse struct {
	DeletedBidID string  `json:"deleted_bid_id"`
	AuctionID    string  `json:"auction_id"`
	CurrentPrice float64 `json:"current_price"`
	WinnerID     string  `json:"winner_id"`
}
