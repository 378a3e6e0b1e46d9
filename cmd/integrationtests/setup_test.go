package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	bidding "buyme/internal/biddingService"
	"buyme/internal/repository"
	"buyme/internal/server"

	"github.com/gin-gonic/gin"
)

// SetupTestRouter initializes the full HTTP stack over an in-memory
// repository for integration testing.
func SetupTestRouter() (*gin.Engine, *bidding.BiddingService) {
	gin.SetMode(gin.TestMode)
	repo := repository.NewMemoryRepo()
	service := bidding.NewBiddingService(repo)
	return server.SetupRouter(service), service
}

// ExecuteRequest performs a request as the given user and returns the
// recorder. Identity travels in headers the way the edge proxy sends it;
// empty userID means an unauthenticated request.
func ExecuteRequest(t *testing.T, router *gin.Engine, method, url, userID, role string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if role != "" {
		req.Header.Set("X-User-Role", role)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ExecuteRequestAndParse performs a request and unwraps the data field of
// the JSON envelope.
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url, userID, role string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	w := ExecuteRequest(t, router, method, url, userID, role, body)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if data, ok := resp["data"].(map[string]any); ok {
			return data, w
		}
	}
	return resp, w
}
