package bidding

import (
	model "buyme/internal/models"
	"buyme/utils"
	"fmt"
	"time"
)

// CloseDueAuctions force-closes every active auction whose end time has
// passed, notifying the winner and the seller. Each close runs in its own
// per-auction transaction so the sweep never blocks live bidding on other
// auctions. Returns the number of auctions closed.
func (s *BiddingService) CloseDueAuctions(now time.Time) (int, error) {
	auctions, err := s.db.ListAuctions()
	if err != nil {
		return 0, fmt.Errorf("service: failed to list auctions for closing: %w", err)
	}

	closed := 0
	for _, a := range auctions {
		if !a.Active || !now.After(a.EndTime) {
			continue
		}
		if err := s.closeAuction(a.AuctionID, now); err != nil {
			utils.Error("failed to close expired auction", map[string]any{
				"auction_id": a.AuctionID,
				"error":      err.Error(),
			})
			continue
		}
		closed++
	}
	return closed, nil
}

func (s *BiddingService) closeAuction(auctionID string, now time.Time) error {
	auction, err := s.db.GetAuction(auctionID)
	if err != nil {
		return err
	}
	item, err := s.db.GetItem(auction.ItemID)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(auctionID)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Re-check under the lock; a concurrent sweep may have closed it already.
	current := tx.Auction()
	if !current.Active || !now.After(current.EndTime) {
		return nil
	}

	tx.Close()

	if current.WinnerID != "" {
		reserveMet := current.ReservePrice == 0 ||
			utils.Money(current.CurrentPrice).GreaterThanOrEqual(utils.Money(current.ReservePrice))
		if reserveMet {
			tx.Notify(model.Notification{
				NotificationID: utils.GenerateID(),
				UserID:         current.WinnerID,
				Title:          "Auction Won",
				Body:           fmt.Sprintf("You won the auction for %q at %s.", item.Name, utils.FormatMoney(current.CurrentPrice)),
				Kind:           model.NotificationWon,
				CreatedAt:      now,
			})
		} else {
			tx.Notify(model.Notification{
				NotificationID: utils.GenerateID(),
				UserID:         current.WinnerID,
				Title:          "Auction Ended",
				Body:           fmt.Sprintf("The auction for %q ended below the seller's reserve price.", item.Name),
				Kind:           model.NotificationInfo,
				CreatedAt:      now,
			})
		}
		tx.Notify(model.Notification{
			NotificationID: utils.GenerateID(),
			UserID:         item.SellerID,
			Title:          "Auction Ended",
			Body:           fmt.Sprintf("Your auction for %q ended at %s.", item.Name, utils.FormatMoney(current.CurrentPrice)),
			Kind:           model.NotificationInfo,
			CreatedAt:      now,
		})
	} else {
		tx.Notify(model.Notification{
			NotificationID: utils.GenerateID(),
			UserID:         item.SellerID,
			Title:          "Auction Ended",
			Body:           fmt.Sprintf("Your auction for %q ended with no bids.", item.Name),
			Kind:           model.NotificationInfo,
			CreatedAt:      now,
		})
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	utils.Info("auction closed", map[string]any{
		"auction_id":  auctionID,
		"winner_id":   current.WinnerID,
		"final_price": current.CurrentPrice,
	})
	return nil
}
