package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"buyme/internal/auctionerrors"
	model "buyme/internal/models"
	"buyme/utils"

	"github.com/gin-gonic/gin"
)

// callerKey is the gin context key the resolved caller identity lives under.
const callerKey = "caller"

// SetCaller stores the resolved identity on the request context. Called by
// the identity middleware only.
func SetCaller(c *gin.Context, caller model.Caller) {
	c.Set(callerKey, caller)
}

// CallerFrom returns the identity the middleware resolved for this request.
func CallerFrom(c *gin.Context) (model.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return model.Caller{}, false
	}
	caller, ok := v.(model.Caller)
	return caller, ok
}

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message.
// Validation rejections carry no partial state change, so they are safe for
// the caller to correct and retry.
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrItemNotFound):
		return http.StatusNotFound, "item not found"
	case errors.Is(err, auctionerrors.ErrBidNotFound):
		return http.StatusNotFound, "bid not found"
	case errors.Is(err, auctionerrors.ErrAuctionClosed):
		return http.StatusConflict, "auction is not open for bidding"
	case errors.Is(err, auctionerrors.ErrSelfBidForbidden):
		return http.StatusForbidden, "seller cannot bid on their own auction"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrInvalidUpperLimit):
		return http.StatusBadRequest, "invalid upper limit"
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, auctionerrors.ErrInvalidListing):
		return http.StatusBadRequest, "invalid listing details"
	case errors.Is(err, auctionerrors.ErrUnauthorized):
		return http.StatusUnauthorized, "not authorized for this action"
	case errors.Is(err, auctionerrors.ErrTransientFailure):
		return http.StatusBadGateway, "temporary failure, no state was changed"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
