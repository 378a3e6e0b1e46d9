package server

import (
	bidding "buyme/internal/biddingService"
	handler "buyme/services/bidding/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(biddingService *bidding.BiddingService) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	auctionHandler := handler.NewAuctionHandler(biddingService)

	auctions := router.Group("/auctions")
	{
		// state reads are public; everything else needs a resolved identity
		auctions.GET("/:auction_id", auctionHandler.GetAuctionStateHandler)
		auctions.GET("/:auction_id/bids", auctionHandler.GetBidsByAuctionHandler)

		auctions.POST("", IdentityMiddleware, auctionHandler.CreateAuctionHandler)
		auctions.POST("/:auction_id/bids", IdentityMiddleware, auctionHandler.PlaceBidHandler)
	}

	bids := router.Group("/bids", IdentityMiddleware)
	{
		bids.DELETE("/:bid_id", auctionHandler.DeleteBidHandler)
	}

	notifications := router.Group("/notifications", IdentityMiddleware)
	{
		notifications.GET("", auctionHandler.GetNotificationsHandler)
	}

	return router
}
