package bidding

import (
	"errors"
	"testing"
	"time"

	"buyme/internal/auctionerrors"
	model "buyme/internal/models"
	"buyme/internal/repository"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func openAuction() model.Auction {
	now := time.Now().UTC()
	return model.Auction{
		AuctionID:    "a1",
		ItemID:       "i1",
		StartTime:    now.Add(-time.Hour),
		EndTime:      now.Add(time.Hour),
		InitialPrice: 500,
		Increment:    10,
		Active:       true,
	}
}

func sampleItem() model.Item {
	return model.Item{
		ItemID:   "i1",
		Name:     "Vintage Watch",
		SellerID: "seller1",
	}
}

func TestPlaceBid_InputValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		auctionID string
		bidderID  string
		amount    float64
	}{
		{"missing auction id", "", "user1", 550},
		{"missing bidder id", "a1", "", 550},
		{"zero amount", "a1", "user1", 0},
		{"negative amount", "a1", "user1", -10},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			svc := NewBiddingService(repository.NewMockAuctionDB(ctrl))
			_, err := svc.PlaceBid(tc.auctionID, tc.bidderID, tc.amount, nil)
			require.ErrorIs(t, err, auctionerrors.ErrInvalidBid)
		})
	}
}

func TestPlaceBid_AuctionNotFound(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := repository.NewMockAuctionDB(ctrl)
	db.EXPECT().GetAuction("missing").Return(model.Auction{}, auctionerrors.ErrAuctionNotFound)

	svc := NewBiddingService(db)
	_, err := svc.PlaceBid("missing", "user1", 550, nil)
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
}

// setupRejection wires GetAuction/GetItem/Begin for a bid that makes it into
// the transaction but fails validation there.
func setupRejection(ctrl *gomock.Controller, auction model.Auction, item model.Item) *repository.MockAuctionDB {
	db := repository.NewMockAuctionDB(ctrl)
	tx := repository.NewMockTx(ctrl)

	db.EXPECT().GetAuction(auction.AuctionID).Return(auction, nil)
	db.EXPECT().GetItem(item.ItemID).Return(item, nil)
	db.EXPECT().Begin(auction.AuctionID).Return(tx, nil)
	tx.EXPECT().Auction().Return(auction).AnyTimes()
	tx.EXPECT().Rollback()
	return db
}

func TestPlaceBid_RejectsClosedAuction(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	auction := openAuction()
	auction.EndTime = time.Now().UTC().Add(-time.Minute)

	svc := NewBiddingService(setupRejection(ctrl, auction, sampleItem()))
	_, err := svc.PlaceBid("a1", "user1", 550, nil)
	require.ErrorIs(t, err, auctionerrors.ErrAuctionClosed)
}

func TestPlaceBid_RejectsSellerBid(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewBiddingService(setupRejection(ctrl, openAuction(), sampleItem()))
	_, err := svc.PlaceBid("a1", "seller1", 550, nil)
	require.ErrorIs(t, err, auctionerrors.ErrSelfBidForbidden)
}

func TestPlaceBid_RejectsBelowFloor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		currentPrice float64
		winnerID     string
		amount       float64
		wantFloor    string
	}{
		{"first bid below initial price", 0, "", 499.99, "500.00"},
		{"raise below current plus increment", 550, "userX", 545, "560.00"},
		{"raise equal to current price", 550, "userX", 550, "560.00"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			auction := openAuction()
			auction.CurrentPrice = tc.currentPrice
			auction.WinnerID = tc.winnerID

			svc := NewBiddingService(setupRejection(ctrl, auction, sampleItem()))
			_, err := svc.PlaceBid("a1", "user1", tc.amount, nil)
			require.ErrorIs(t, err, auctionerrors.ErrBidTooLow)
			require.ErrorContains(t, err, tc.wantFloor)
		})
	}
}

func TestPlaceBid_RejectsUpperLimitBelowAmount(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewBiddingService(setupRejection(ctrl, openAuction(), sampleItem()))
	limit := 540.0
	_, err := svc.PlaceBid("a1", "user1", 550, &limit)
	require.ErrorIs(t, err, auctionerrors.ErrInvalidUpperLimit)
}

func TestPlaceBid_AcceptsFirstBid(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	auction := openAuction()
	item := sampleItem()
	db := repository.NewMockAuctionDB(ctrl)
	tx := repository.NewMockTx(ctrl)

	db.EXPECT().GetAuction("a1").Return(auction, nil)
	db.EXPECT().GetItem("i1").Return(item, nil)
	db.EXPECT().Begin("a1").Return(tx, nil)

	// The snapshot follows SetLeader so the outcome reflects staged state.
	state := auction
	tx.EXPECT().Auction().DoAndReturn(func() model.Auction { return state }).AnyTimes()

	var appended model.Bid
	tx.EXPECT().AppendBid(gomock.Any()).Do(func(b model.Bid) { appended = b })
	tx.EXPECT().SetLeader(550.0, "user1").Do(func(price float64, winnerID string) {
		state.CurrentPrice = price
		state.WinnerID = winnerID
	})
	tx.EXPECT().AddParticipant("user1")
	tx.EXPECT().TopBids(2).DoAndReturn(func(int) []model.Bid { return []model.Bid{appended} })
	tx.EXPECT().Commit().Return(nil)
	tx.EXPECT().Rollback()

	svc := NewBiddingService(db)
	outcome, err := svc.PlaceBid("a1", "user1", 550, nil)
	require.NoError(t, err)
	require.Equal(t, 550.0, outcome.CurrentPrice)
	require.Equal(t, "user1", outcome.WinnerID)
	require.Equal(t, "user1", outcome.Bid.BidderID)
	require.False(t, outcome.Bid.IsProxy)
	require.NotEmpty(t, outcome.Bid.BidID)
}

func TestPlaceBid_NotifiesUnseatedLeader(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	auction := openAuction()
	auction.CurrentPrice = 550
	auction.WinnerID = "userX"
	item := sampleItem()

	db := repository.NewMockAuctionDB(ctrl)
	tx := repository.NewMockTx(ctrl)

	db.EXPECT().GetAuction("a1").Return(auction, nil)
	db.EXPECT().GetItem("i1").Return(item, nil)
	db.EXPECT().Begin("a1").Return(tx, nil)

	state := auction
	tx.EXPECT().Auction().DoAndReturn(func() model.Auction { return state }).AnyTimes()

	var appended model.Bid
	tx.EXPECT().AppendBid(gomock.Any()).Do(func(b model.Bid) { appended = b })
	tx.EXPECT().SetLeader(600.0, "userY").Do(func(price float64, winnerID string) {
		state.CurrentPrice = price
		state.WinnerID = winnerID
	})
	tx.EXPECT().AddParticipant("userY")

	var note model.Notification
	tx.EXPECT().Notify(gomock.Any()).Do(func(n model.Notification) { note = n })

	tx.EXPECT().TopBids(2).DoAndReturn(func(int) []model.Bid { return []model.Bid{appended} })
	tx.EXPECT().Commit().Return(nil)
	tx.EXPECT().Rollback()

	svc := NewBiddingService(db)
	outcome, err := svc.PlaceBid("a1", "userY", 600, nil)
	require.NoError(t, err)
	require.Equal(t, "userY", outcome.WinnerID)
	require.Equal(t, "userX", note.UserID)
	require.Equal(t, model.NotificationOutbid, note.Kind)
	require.Contains(t, note.Body, item.Name)
	require.Contains(t, note.Body, "600.00")
}

func TestPlaceBid_CommitFailureIsTransient(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	auction := openAuction()
	db := repository.NewMockAuctionDB(ctrl)
	tx := repository.NewMockTx(ctrl)

	db.EXPECT().GetAuction("a1").Return(auction, nil)
	db.EXPECT().GetItem("i1").Return(sampleItem(), nil)
	db.EXPECT().Begin("a1").Return(tx, nil)
	tx.EXPECT().Auction().Return(auction).AnyTimes()
	tx.EXPECT().AppendBid(gomock.Any())
	tx.EXPECT().SetLeader(550.0, "user1")
	tx.EXPECT().AddParticipant("user1")
	tx.EXPECT().TopBids(2).Return(nil)
	tx.EXPECT().Commit().Return(errors.New("storage hiccup"))
	tx.EXPECT().Rollback()

	svc := NewBiddingService(db)
	_, err := svc.PlaceBid("a1", "user1", 550, nil)
	require.ErrorIs(t, err, auctionerrors.ErrTransientFailure)
}

func TestDeleteBid_RequiresModerator(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No repository expectations: the role check runs before any lookup.
	svc := NewBiddingService(repository.NewMockAuctionDB(ctrl))
	_, err := svc.DeleteBid(model.Caller{UserID: "user1", Role: model.RoleUser}, "b1")
	require.ErrorIs(t, err, auctionerrors.ErrUnauthorized)
}

func TestDeleteBid_BidNotFound(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := repository.NewMockAuctionDB(ctrl)
	db.EXPECT().FindBid("missing").Return(model.Bid{}, auctionerrors.ErrBidNotFound)

	svc := NewBiddingService(db)
	_, err := svc.DeleteBid(model.Caller{UserID: "rep1", Role: model.RoleRep}, "missing")
	require.ErrorIs(t, err, auctionerrors.ErrBidNotFound)
}

func TestDeleteBid_RecomputesLeaderFromLedger(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	deleted := model.Bid{BidID: "b2", AuctionID: "a1", BidderID: "user2", Amount: 600}
	survivor := model.Bid{BidID: "b1", AuctionID: "a1", BidderID: "user1", Amount: 550}

	db := repository.NewMockAuctionDB(ctrl)
	tx := repository.NewMockTx(ctrl)

	db.EXPECT().FindBid("b2").Return(deleted, nil)
	db.EXPECT().Begin("a1").Return(tx, nil)
	tx.EXPECT().DeleteBid("b2").Return(true)
	tx.EXPECT().TopBids(1).Return([]model.Bid{survivor})
	tx.EXPECT().SetLeader(550.0, "user1")

	repaired := openAuction()
	repaired.CurrentPrice = 550
	repaired.WinnerID = "user1"
	tx.EXPECT().Auction().Return(repaired)
	tx.EXPECT().Commit().Return(nil)
	tx.EXPECT().Rollback()

	svc := NewBiddingService(db)
	outcome, err := svc.DeleteBid(model.Caller{UserID: "admin1", Role: model.RoleAdmin}, "b2")
	require.NoError(t, err)
	require.Equal(t, deleted, outcome.DeletedBid)
	require.Equal(t, 550.0, outcome.CurrentPrice)
	require.Equal(t, "user1", outcome.WinnerID)
}

func TestDeleteBid_EmptyLedgerClearsLeader(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	deleted := model.Bid{BidID: "b1", AuctionID: "a1", BidderID: "user1", Amount: 550}

	db := repository.NewMockAuctionDB(ctrl)
	tx := repository.NewMockTx(ctrl)

	db.EXPECT().FindBid("b1").Return(deleted, nil)
	db.EXPECT().Begin("a1").Return(tx, nil)
	tx.EXPECT().DeleteBid("b1").Return(true)
	tx.EXPECT().TopBids(1).Return(nil)
	tx.EXPECT().ClearLeader()
	tx.EXPECT().Auction().Return(openAuction())
	tx.EXPECT().Commit().Return(nil)
	tx.EXPECT().Rollback()

	svc := NewBiddingService(db)
	outcome, err := svc.DeleteBid(model.Caller{UserID: "rep1", Role: model.RoleRep}, "b1")
	require.NoError(t, err)
	require.Equal(t, 0.0, outcome.CurrentPrice)
	require.Empty(t, outcome.WinnerID)
}

func TestGetAuctionState(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	auction := openAuction()
	auction.CurrentPrice = 600
	auction.WinnerID = "user1"
	auction.Participants = []string{"user1", "user2"}

	db := repository.NewMockAuctionDB(ctrl)
	db.EXPECT().GetAuction("a1").Return(auction, nil)

	svc := NewBiddingService(db)
	status, err := svc.GetAuctionState("a1")
	require.NoError(t, err)
	require.Equal(t, 600.0, status.CurrentPrice)
	require.Equal(t, "user1", status.WinnerID)
	require.True(t, status.IsOpen)
	require.Equal(t, model.StateActive, status.State)
	require.Equal(t, []string{"user1", "user2"}, status.Participants)

	_, err = svc.GetAuctionState("")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
}

func TestCreateAuction_Validation(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	valid := NewListing{
		Name:         "Vintage Watch",
		InitialPrice: 500,
		Increment:    10,
		StartTime:    now,
		EndTime:      now.Add(24 * time.Hour),
	}

	tests := []struct {
		name     string
		sellerID string
		mutate   func(*NewListing)
	}{
		{"missing seller", "", func(in *NewListing) {}},
		{"missing name", "seller1", func(in *NewListing) { in.Name = "" }},
		{"zero initial price", "seller1", func(in *NewListing) { in.InitialPrice = 0 }},
		{"end before start", "seller1", func(in *NewListing) { in.EndTime = now.Add(-time.Hour) }},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			in := valid
			tc.mutate(&in)

			svc := NewBiddingService(repository.NewMockAuctionDB(ctrl))
			_, _, err := svc.CreateAuction(tc.sellerID, in)
			require.ErrorIs(t, err, auctionerrors.ErrInvalidListing)
		})
	}
}

func TestCreateAuction_DefaultsAndPersists(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := repository.NewMockAuctionDB(ctrl)

	var storedItem model.Item
	var storedAuction model.Auction
	db.EXPECT().CreateListing(gomock.Any(), gomock.Any()).
		DoAndReturn(func(item model.Item, auction model.Auction) error {
			storedItem = item
			storedAuction = auction
			return nil
		})

	svc := NewBiddingService(db)
	auction, item, err := svc.CreateAuction("seller1", NewListing{
		Name:         "Vintage Watch",
		InitialPrice: 500,
		EndTime:      time.Now().UTC().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, storedItem, item)
	require.Equal(t, storedAuction, auction)
	require.Equal(t, "seller1", item.SellerID)
	require.Equal(t, item.ItemID, auction.ItemID)
	require.Equal(t, 1.0, auction.Increment)
	require.Equal(t, 0.0, auction.CurrentPrice)
	require.True(t, auction.Active)
	require.False(t, auction.StartTime.IsZero())
}

func TestGetNotifications(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := repository.NewMockAuctionDB(ctrl)
	db.EXPECT().NotificationsForUser("user1").Return([]model.Notification{
		{NotificationID: "n1", UserID: "user1", Kind: model.NotificationOutbid},
	}, nil)

	svc := NewBiddingService(db)
	notes, err := svc.GetNotifications("user1")
	require.NoError(t, err)
	require.Len(t, notes, 1)

	_, err = svc.GetNotifications("")
	require.ErrorIs(t, err, auctionerrors.ErrUnauthorized)
}

func TestGetBidsForAuction(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := repository.NewMockAuctionDB(ctrl)
	db.EXPECT().GetBidsByAuction("a1").Return([]model.Bid{{BidID: "b1"}}, nil)

	svc := NewBiddingService(db)
	bids, err := svc.GetBidsForAuction("a1")
	require.NoError(t, err)
	require.Len(t, bids, 1)

	_, err = svc.GetBidsForAuction("")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)
}
