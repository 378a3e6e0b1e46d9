package bidding

import (
	"buyme/internal/auctionerrors"
	"buyme/internal/models"
	"buyme/internal/repository"
	"buyme/utils"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// maxResolutionRounds caps the proxy escalation loop. The loop is provably
// bounded by the competing upper limits; the cap only guards against a data
// bug producing a non-terminating escalation.
const maxResolutionRounds = 1000

// BiddingService implements bid validation, the atomic accept cycle and
// proxy-bid resolution for auctions
type BiddingService struct {
	db repository.AuctionDB
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(db repository.AuctionDB) *BiddingService {
	return &BiddingService{
		db: db,
	}
}

// BidOutcome reports the auction state a bid left behind after proxy
// resolution reached quiescence. The accepted bid may no longer hold the
// lead if an outstanding proxy bid escalated past it.
type BidOutcome struct {
	Bid          models.Bid
	CurrentPrice float64
	WinnerID     string
}

// NewListing is the seller's input for creating an item with its auction.
type NewListing struct {
	Name         string
	Description  string
	Category     string
	ImageURL     string
	StartTime    time.Time
	EndTime      time.Time
	InitialPrice float64
	Increment    float64
	ReservePrice float64
}

// AuctionStatus is the read-only state consumed by browse components.
type AuctionStatus struct {
	AuctionID    string              `json:"auction_id"`
	CurrentPrice float64             `json:"current_price"`
	WinnerID     string              `json:"winner_id,omitempty"`
	IsOpen       bool                `json:"is_open"`
	State        models.AuctionState `json:"state"`
	EndTime      time.Time           `json:"end_time"`
	Participants []string            `json:"participants,omitempty"`
}

// RepairOutcome is the recomputed auction state after a moderator removed a bid.
type RepairOutcome struct {
	DeletedBid   models.Bid
	CurrentPrice float64
	WinnerID     string
}

// PlaceBid validates a bid, applies it atomically and runs proxy resolution
// to quiescence before committing. A non-nil upperLimit marks a proxy bid
// whose hidden maximum the engine may spend on the bidder's behalf.
//
// The whole cycle runs inside one per-auction transaction, so concurrent bids
// on the same auction serialize while other auctions proceed in parallel.
func (s *BiddingService) PlaceBid(auctionID, bidderID string, amount float64, upperLimit *float64) (BidOutcome, error) {
	// Captured once; every time check in this cycle uses the same instant.
	now := time.Now().UTC()

	if auctionID == "" || bidderID == "" {
		return BidOutcome{}, fmt.Errorf("service: %w - missing auctionID or bidderID", auctionerrors.ErrInvalidBid)
	}
	if amount <= 0 {
		return BidOutcome{}, fmt.Errorf("service: %w - non-positive bid amount", auctionerrors.ErrInvalidBid)
	}

	auction, err := s.db.GetAuction(auctionID)
	if err != nil {
		return BidOutcome{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}
	item, err := s.db.GetItem(auction.ItemID)
	if err != nil {
		return BidOutcome{}, fmt.Errorf("service: failed to load item for auction %s: %w", auctionID, err)
	}

	tx, err := s.db.Begin(auctionID)
	if err != nil {
		return BidOutcome{}, fmt.Errorf("service: failed to open transaction for auction %s: %w", auctionID, err)
	}
	defer tx.Rollback()

	// Validate against the state under the lock, not the pre-lock read.
	if err := s.validateBid(tx.Auction(), item, bidderID, amount, upperLimit, now); err != nil {
		return BidOutcome{}, err
	}

	bid := models.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    utils.MoneyValue(utils.Money(amount)),
		CreatedAt: now,
		IsProxy:   upperLimit != nil,
	}
	if upperLimit != nil {
		bid.UpperLimit = utils.MoneyValue(utils.Money(*upperLimit))
	}

	s.applyAccepted(tx, item, bid)
	s.resolveProxyBids(tx, item)

	settled := tx.Auction()
	if err := tx.Commit(); err != nil {
		return BidOutcome{}, fmt.Errorf("service: failed to commit bid for auction %s: %w: %v",
			auctionID, auctionerrors.ErrTransientFailure, err)
	}

	return BidOutcome{
		Bid:          bid,
		CurrentPrice: settled.CurrentPrice,
		WinnerID:     settled.WinnerID,
	}, nil
}

// validateBid checks the rejection rules in order: auction open, bidder not
// the seller, amount clears the floor, proxy limit covers the amount. It is
// a pure decision function with no side effects.
func (s *BiddingService) validateBid(auction models.Auction, item models.Item, bidderID string, amount float64, upperLimit *float64, now time.Time) error {
	if !auction.IsOpen(now) {
		return fmt.Errorf("service: %w", auctionerrors.ErrAuctionClosed)
	}
	if item.SellerID == bidderID {
		return fmt.Errorf("service: %w", auctionerrors.ErrSelfBidForbidden)
	}

	minBid := minAcceptableBid(auction)
	if utils.Money(amount).LessThan(minBid) {
		return fmt.Errorf("service: %w - bid must be at least %s", auctionerrors.ErrBidTooLow, minBid.StringFixed(2))
	}

	if upperLimit != nil && utils.Money(*upperLimit).LessThan(utils.Money(amount)) {
		return fmt.Errorf("service: %w - upper limit %s is below bid amount %s",
			auctionerrors.ErrInvalidUpperLimit, utils.FormatMoney(*upperLimit), utils.FormatMoney(amount))
	}

	return nil
}

// minAcceptableBid computes the floor a new bid must clear: the initial price
// while the auction has no bids, one increment over the current price after.
func minAcceptableBid(auction models.Auction) decimal.Decimal {
	if auction.CurrentPrice == 0 {
		return utils.Money(auction.InitialPrice)
	}
	return utils.Money(auction.CurrentPrice).Add(utils.Money(auction.Increment))
}

// applyAccepted stages one accepted bid: append to the ledger, move the
// price/winner cache, register the bidder as a participant and notify the
// unseated leader. Proxy escalations go through the same path as manual bids.
func (s *BiddingService) applyAccepted(tx repository.Tx, item models.Item, bid models.Bid) {
	previous := tx.Auction()

	tx.AppendBid(bid)
	tx.SetLeader(bid.Amount, bid.BidderID)
	tx.AddParticipant(bid.BidderID)

	if previous.WinnerID != "" && previous.WinnerID != bid.BidderID {
		tx.Notify(models.Notification{
			NotificationID: utils.GenerateID(),
			UserID:         previous.WinnerID,
			Title:          "Outbid Alert",
			Body:           fmt.Sprintf("You have been outbid on %q. The new price is %s.", item.Name, utils.FormatMoney(bid.Amount)),
			Kind:           models.NotificationOutbid,
			CreatedAt:      bid.CreatedAt,
		})
	}
}

// resolveProxyBids escalates outstanding proxy bids until no bidder can
// profitably raise again. Each round looks at the two highest surviving bids:
// if the runner-up is a proxy bid with headroom left, it re-bids
// min(leader + increment, its own limit) and the loop repeats. The visible
// price therefore never climbs beyond one increment above the losing limit,
// which is what keeps each bidder's true maximum hidden.
func (s *BiddingService) resolveProxyBids(tx repository.Tx, item models.Item) {
	auction := tx.Auction()
	increment := utils.Money(auction.Increment)

	for round := 0; round < maxResolutionRounds; round++ {
		top := tx.TopBids(2)
		if len(top) < 2 {
			return
		}
		leader, runnerUp := top[0], top[1]

		// A bidder already holding the lead never escalates against
		// their own earlier bid.
		if leader.BidderID == runnerUp.BidderID {
			return
		}
		if !runnerUp.IsProxy {
			return
		}

		lead := utils.Money(leader.Amount)
		limit := utils.Money(runnerUp.UpperLimit)
		if limit.LessThanOrEqual(lead) {
			return
		}

		next := decimal.Min(lead.Add(increment), limit)
		if next.LessThanOrEqual(lead) {
			return
		}

		auto := models.Bid{
			BidID:      utils.GenerateID(),
			AuctionID:  auction.AuctionID,
			BidderID:   runnerUp.BidderID,
			Amount:     utils.MoneyValue(next),
			CreatedAt:  time.Now().UTC(),
			IsProxy:    true,
			UpperLimit: runnerUp.UpperLimit,
		}
		s.applyAccepted(tx, item, auto)
	}

	utils.Error("proxy resolution hit the round cap, stopping at a consistent state", map[string]any{
		"auction_id": auction.AuctionID,
		"rounds":     maxResolutionRounds,
	})
}

// DeleteBid removes a bid on behalf of a moderator and recomputes the
// price/winner cache from the surviving ledger. Unlike bid acceptance this is
// a non-recursive repair: no proxy escalation runs afterwards.
func (s *BiddingService) DeleteBid(caller models.Caller, bidID string) (RepairOutcome, error) {
	if !caller.Role.CanModerate() {
		return RepairOutcome{}, fmt.Errorf("service: %w - moderator or admin role required", auctionerrors.ErrUnauthorized)
	}
	if bidID == "" {
		return RepairOutcome{}, fmt.Errorf("service: %w", auctionerrors.ErrBidNotFound)
	}

	bid, err := s.db.FindBid(bidID)
	if err != nil {
		return RepairOutcome{}, fmt.Errorf("service: failed to find bid %s: %w", bidID, err)
	}

	tx, err := s.db.Begin(bid.AuctionID)
	if err != nil {
		return RepairOutcome{}, fmt.Errorf("service: failed to open transaction for auction %s: %w", bid.AuctionID, err)
	}
	defer tx.Rollback()

	if !tx.DeleteBid(bidID) {
		return RepairOutcome{}, fmt.Errorf("service: bid %s removed concurrently: %w", bidID, auctionerrors.ErrBidNotFound)
	}

	if top := tx.TopBids(1); len(top) > 0 {
		tx.SetLeader(top[0].Amount, top[0].BidderID)
	} else {
		tx.ClearLeader()
	}

	repaired := tx.Auction()
	if err := tx.Commit(); err != nil {
		return RepairOutcome{}, fmt.Errorf("service: failed to commit bid removal %s: %w: %v",
			bidID, auctionerrors.ErrTransientFailure, err)
	}

	return RepairOutcome{
		DeletedBid:   bid,
		CurrentPrice: repaired.CurrentPrice,
		WinnerID:     repaired.WinnerID,
	}, nil
}

// GetAuctionState returns the read-only projection of an auction.
func (s *BiddingService) GetAuctionState(auctionID string) (AuctionStatus, error) {
	if auctionID == "" {
		return AuctionStatus{}, fmt.Errorf("service: %w", auctionerrors.ErrAuctionNotFound)
	}

	now := time.Now().UTC()
	auction, err := s.db.GetAuction(auctionID)
	if err != nil {
		return AuctionStatus{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}

	return AuctionStatus{
		AuctionID:    auction.AuctionID,
		CurrentPrice: auction.CurrentPrice,
		WinnerID:     auction.WinnerID,
		IsOpen:       auction.IsOpen(now),
		State:        auction.State(now),
		EndTime:      auction.EndTime,
		Participants: auction.Participants,
	}, nil
}

// GetBidsForAuction returns the auction's ledger, newest first.
func (s *BiddingService) GetBidsForAuction(auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w", auctionerrors.ErrAuctionNotFound)
	}

	bids, err := s.db.GetBidsByAuction(auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}
	return bids, nil
}

// CreateAuction lists an item for sale in a new timed auction. The auction
// starts pricing at zero so the first bid is floored at the initial price.
func (s *BiddingService) CreateAuction(sellerID string, in NewListing) (models.Auction, models.Item, error) {
	if sellerID == "" || in.Name == "" {
		return models.Auction{}, models.Item{}, fmt.Errorf("service: %w - missing seller or item name", auctionerrors.ErrInvalidListing)
	}
	if in.InitialPrice <= 0 {
		return models.Auction{}, models.Item{}, fmt.Errorf("service: %w - initial price must be positive", auctionerrors.ErrInvalidListing)
	}
	if in.Increment <= 0 {
		in.Increment = 1
	}
	if in.StartTime.IsZero() {
		in.StartTime = time.Now().UTC()
	}
	if !in.EndTime.After(in.StartTime) {
		return models.Auction{}, models.Item{}, fmt.Errorf("service: %w - end time must be after start time", auctionerrors.ErrInvalidListing)
	}

	item := models.Item{
		ItemID:      utils.GenerateID(),
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		SellerID:    sellerID,
		ImageURL:    in.ImageURL,
	}
	auction := models.Auction{
		AuctionID:    utils.GenerateID(),
		ItemID:       item.ItemID,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
		InitialPrice: utils.MoneyValue(utils.Money(in.InitialPrice)),
		Increment:    utils.MoneyValue(utils.Money(in.Increment)),
		ReservePrice: utils.MoneyValue(utils.Money(in.ReservePrice)),
		CurrentPrice: 0,
		Active:       true,
	}

	if err := s.db.CreateListing(item, auction); err != nil {
		return models.Auction{}, models.Item{}, fmt.Errorf("service: failed to create listing: %w", err)
	}
	return auction, item, nil
}

// GetNotifications returns the user's notification records, newest first.
func (s *BiddingService) GetNotifications(userID string) ([]models.Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: missing user id: %w", auctionerrors.ErrUnauthorized)
	}

	notes, err := s.db.NotificationsForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get notifications for user %s: %w", userID, err)
	}
	return notes, nil
}
