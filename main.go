package main

import (
	bidding "buyme/internal/biddingService"
	model "buyme/internal/models"
	"buyme/internal/repository"
	"buyme/internal/server"
	"buyme/utils"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultCloseInterval = 30 * time.Second

func main() {
	repo := repository.NewMemoryRepo()

	prepopulateListings(repo)

	biddingSvc := bidding.NewBiddingService(repo)
	router := server.SetupRouter(biddingSvc)

	srv := &http.Server{
		Addr:    getPort(),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		utils.Info("starting auction server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Sweep for expired auctions so winners and sellers get notified without
	// waiting for the next read.
	g.Go(func() error {
		ticker := time.NewTicker(getCloseInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				closed, err := biddingSvc.CloseDueAuctions(time.Now().UTC())
				if err != nil {
					utils.Error("auction close sweep failed", map[string]any{"error": err.Error()})
					continue
				}
				if closed > 0 {
					utils.Info("auction close sweep finished", map[string]any{"closed": closed})
				}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		utils.Fatal("server exited with error", map[string]any{"error": err.Error()})
	}
}

// prepopulateListings seeds the in-memory repo with sample auctions
func prepopulateListings(repo *repository.MemoryRepo) {
	now := time.Now().UTC()
	listings := []struct {
		item    model.Item
		auction model.Auction
	}{
		{
			item: model.Item{ItemID: "item1", Name: "Vintage Camera", Description: "1960s rangefinder in working order", Category: "Electronics", SellerID: "seller1"},
			auction: model.Auction{
				AuctionID: "auction1", ItemID: "item1",
				StartTime: now, EndTime: now.Add(24 * time.Hour),
				InitialPrice: 100, Increment: 10, Active: true,
			},
		},
		{
			item: model.Item{ItemID: "item2", Name: "Mountain Bike", Description: "Hardtail, medium frame", Category: "Sports", SellerID: "seller1"},
			auction: model.Auction{
				AuctionID: "auction2", ItemID: "item2",
				StartTime: now, EndTime: now.Add(48 * time.Hour),
				InitialPrice: 250, Increment: 25, ReservePrice: 400, Active: true,
			},
		},
		{
			item: model.Item{ItemID: "item3", Name: "Oil Painting", Description: "Coastal landscape, signed", Category: "Art", SellerID: "seller2"},
			auction: model.Auction{
				AuctionID: "auction3", ItemID: "item3",
				StartTime: now, EndTime: now.Add(72 * time.Hour),
				InitialPrice: 500, Increment: 50, Active: true,
			},
		},
	}

	for _, l := range listings {
		if err := repo.CreateListing(l.item, l.auction); err != nil {
			utils.Warn("failed to seed listing", map[string]any{"auction_id": l.auction.AuctionID, "error": err.Error()})
		}
	}
}

// getPort returns the server port from env or defaults to ":8080"
func getPort() string {
	if p := os.Getenv("PORT"); p != "" {
		return ":" + p
	}
	return ":8080"
}

// getCloseInterval returns the close-sweep interval from env or the default
func getCloseInterval() time.Duration {
	if raw := os.Getenv("CLOSE_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
	}
	return defaultCloseInterval
}
