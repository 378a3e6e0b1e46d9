package handler

import (
	"fmt"
	"net/http"
	"time"

	bidding "buyme/internal/biddingService"
	model "buyme/internal/models"
	"buyme/services/bidding/helpers"
	"buyme/utils"

	"github.com/gin-gonic/gin"
)

// BiddingServiceInterface is the service surface consumed by the HTTP layer.
type BiddingServiceInterface interface {
	PlaceBid(auctionID, bidderID string, amount float64, upperLimit *float64) (bidding.BidOutcome, error)
	DeleteBid(caller model.Caller, bidID string) (bidding.RepairOutcome, error)
	GetAuctionState(auctionID string) (bidding.AuctionStatus, error)
	GetBidsForAuction(auctionID string) ([]model.Bid, error)
	CreateAuction(sellerID string, in bidding.NewListing) (model.Auction, model.Item, error)
	GetNotifications(userID string) ([]model.Notification, error)
}

type AuctionHandler struct {
	service BiddingServiceInterface
}

func NewAuctionHandler(service BiddingServiceInterface) *AuctionHandler {
	return &AuctionHandler{service: service}
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *AuctionHandler) PlaceBidHandler(c *gin.Context) {
	caller, ok := helpers.CallerFrom(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, fmt.Errorf("no resolved identity"), "authentication required")
		return
	}

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	auctionID := c.Param("auction_id")
	outcome, err := h.service.PlaceBid(auctionID, caller.UserID, req.Amount, req.UpperLimit)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, err, message)
		utils.Warn("PlaceBidHandler: bid rejected", map[string]any{
			"auction_id": auctionID,
			"bidder_id":  caller.UserID,
			"amount":     req.Amount,
			"error":      err.Error(),
		})
		return
	}

	resp := helpers.PlaceBidResponse{
		BidID:        outcome.Bid.BidID,
		AuctionID:    outcome.Bid.AuctionID,
		BidderID:     outcome.Bid.BidderID,
		Amount:       outcome.Bid.Amount,
		CreatedAt:    outcome.Bid.CreatedAt.UTC().Format(time.RFC3339),
		CurrentPrice: outcome.CurrentPrice,
		WinnerID:     outcome.WinnerID,
	}

	utils.JSONResponse(c, http.StatusCreated, resp, "bid placed successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid placed successfully", map[string]any{
		"bid_id":        outcome.Bid.BidID,
		"auction_id":    auctionID,
		"bidder_id":     caller.UserID,
		"amount":        outcome.Bid.Amount,
		"current_price": outcome.CurrentPrice,
		"winner_id":     outcome.WinnerID,
	})
}

// GetAuctionStateHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionStateHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	state, err := h.service.GetAuctionState(auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, err, message)
		utils.Warn("GetAuctionStateHandler: error retrieving auction", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	utils.JSONResponse(c, http.StatusOK, state, "auction state retrieved successfully")
}

// GetBidsByAuctionHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) GetBidsByAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.service.GetBidsForAuction(auctionID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, err, message)
		utils.Warn("GetBidsByAuctionHandler: error retrieving bids", map[string]any{"auction_id": auctionID, "error": err.Error()})
		return
	}

	views := make([]helpers.BidView, 0, len(bids))
	for _, b := range bids {
		views = append(views, helpers.BidView{
			BidID:     b.BidID,
			BidderID:  b.BidderID,
			Amount:    b.Amount,
			IsProxy:   b.IsProxy,
			CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	utils.JSONResponse(c, http.StatusOK, views, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByAuctionHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(views),
	})
}

// CreateAuctionHandler handles POST /auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	caller, ok := helpers.CallerFrom(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, fmt.Errorf("no resolved identity"), "authentication required")
		return
	}

	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	listing := bidding.NewListing{
		Name:         req.Name,
		Description:  req.Description,
		Category:     req.Category,
		ImageURL:     req.ImageURL,
		EndTime:      req.EndTime,
		InitialPrice: req.InitialPrice,
		Increment:    req.Increment,
		ReservePrice: req.ReservePrice,
	}
	if req.StartTime != nil {
		listing.StartTime = *req.StartTime
	}

	auction, item, err := h.service.CreateAuction(caller.UserID, listing)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, err, message)
		utils.Warn("CreateAuctionHandler: failed to create auction", map[string]any{
			"seller_id": caller.UserID,
			"error":     err.Error(),
		})
		return
	}

	resp := helpers.CreateAuctionResponse{
		AuctionID:    auction.AuctionID,
		ItemID:       item.ItemID,
		Name:         item.Name,
		StartTime:    auction.StartTime.UTC().Format(time.RFC3339),
		EndTime:      auction.EndTime.UTC().Format(time.RFC3339),
		InitialPrice: auction.InitialPrice,
		Increment:    auction.Increment,
		ReservePrice: auction.ReservePrice,
	}

	utils.JSONResponse(c, http.StatusCreated, resp, "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": auction.AuctionID,
		"item_id":    item.ItemID,
		"seller_id":  caller.UserID,
	})
}

// DeleteBidHandler handles DELETE /bids/:bid_id (moderator/admin only)
func (h *AuctionHandler) DeleteBidHandler(c *gin.Context) {
	caller, ok := helpers.CallerFrom(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, fmt.Errorf("no resolved identity"), "authentication required")
		return
	}

	bidID := c.Param("bid_id")
	outcome, err := h.service.DeleteBid(caller, bidID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, err, message)
		utils.Warn("DeleteBidHandler: failed to delete bid", map[string]any{
			"bid_id":    bidID,
			"caller_id": caller.UserID,
			"role":      string(caller.Role),
			"error":     err.Error(),
		})
		return
	}

	resp := helpers.DeleteBidResponse{
		DeletedBidID: outcome.DeletedBid.BidID,
		AuctionID:    outcome.DeletedBid.AuctionID,
		CurrentPrice: outcome.CurrentPrice,
		WinnerID:     outcome.WinnerID,
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bid removed successfully")
	helpers.LogSuccess("DeleteBidHandler", "bid removed successfully", map[string]any{
		"bid_id":        bidID,
		"auction_id":    outcome.DeletedBid.AuctionID,
		"current_price": outcome.CurrentPrice,
		"caller_id":     caller.UserID,
	})
}

// GetNotificationsHandler handles GET /notifications for the calling user
func (h *AuctionHandler) GetNotificationsHandler(c *gin.Context) {
	caller, ok := helpers.CallerFrom(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, fmt.Errorf("no resolved identity"), "authentication required")
		return
	}

	notes, err := h.service.GetNotifications(caller.UserID)
	if err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, err, message)
		utils.Warn("GetNotificationsHandler: error retrieving notifications", map[string]any{"user_id": caller.UserID, "error": err.Error()})
		return
	}

	if notes == nil {
		notes = []model.Notification{}
	}

	utils.JSONResponse(c, http.StatusOK, notes, "notifications retrieved successfully")
}
