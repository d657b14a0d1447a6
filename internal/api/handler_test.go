package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"portmarket/internal/cart"
	"portmarket/internal/clock"
	"portmarket/internal/identity"
	"portmarket/internal/inventory"
	"portmarket/internal/models"
	"portmarket/internal/persist"
	"portmarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *inventory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := inventory.NewStore()
	lifecycle := service.NewLifecycle(
		store,
		cart.New(),
		inventory.NewDeliveredLog(),
		persist.Noop{},
		clock.NewSystem(),
	)

	router := gin.New()
	NewHandler(lifecycle, identity.Disabled{}).SetupRoutes(router)
	return router, store
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createListing(t *testing.T, router *gin.Engine) string {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/api/v1/listings", gin.H{
		"listings": []gin.H{{
			"phone_number":   "(555) 123-4567",
			"account_number": "ACC-9912",
			"pin":            "4321",
			"price":          29.99,
		}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Listings []struct {
			ID string `json:"id"`
		} `json:"listings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Listings, 1)
	return resp.Listings[0].ID
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	assert.Equal(t, http.StatusOK, doJSON(t, router, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, doJSON(t, router, http.MethodGet, "/ready", nil).Code)
}

func TestCreateListingsValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/listings", gin.H{"listings": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/listings", gin.H{
		"listings": []gin.H{{
			"phone_number":   "(555) 123-4567",
			"account_number": "ACC-9912",
			"pin":            "4321",
			"price":          -1,
		}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListingsNeverExposeCredentials(t *testing.T) {
	router, _ := newTestRouter(t)
	createListing(t, router)

	w := doJSON(t, router, http.MethodGet, "/api/v1/listings", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.NotContains(t, body, "ACC-9912")
	assert.NotContains(t, body, "4321")
	assert.Contains(t, body, "(555) 123-4567")
}

func TestListingsStatusFilter(t *testing.T) {
	router, _ := newTestRouter(t)
	createListing(t, router)

	w := doJSON(t, router, http.MethodGet, "/api/v1/listings?status=available", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/listings?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartFlow(t *testing.T) {
	router, _ := newTestRouter(t)
	id := createListing(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"listing_id": id})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []struct {
			Listing struct {
				ID string `json:"id"`
			} `json:"listing"`
		} `json:"items"`
		Total float64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, id, resp.Items[0].Listing.ID)
	assert.InDelta(t, 29.99, resp.Total, 1e-9)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/cart/items/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCartTotalMatchesDisplayedItems(t *testing.T) {
	// a cart entry whose listing was reserved outside the cart flow is
	// dropped from the display; the total must drop with it
	router, store := newTestRouter(t)
	kept := createListing(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/listings", gin.H{
		"listings": []gin.H{{
			"phone_number":   "(555) 999-0000",
			"account_number": "ACC-0001",
			"pin":            "9999",
			"price":          100.00,
		}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var createResp struct {
		Listings []struct {
			ID string `json:"id"`
		} `json:"listings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &createResp))
	stale := createResp.Listings[0].ID

	for _, id := range []string{kept, stale} {
		w = doJSON(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"listing_id": id})
		require.Equal(t, http.StatusOK, w.Code)
	}

	_, err := store.Mutate(stale, func(l *models.Listing) error {
		now := time.Now()
		l.Status = models.StatusReserved
		l.ReservedAt = &now
		return nil
	})
	require.NoError(t, err)

	w = doJSON(t, router, http.MethodGet, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []struct {
			Listing struct {
				ID string `json:"id"`
			} `json:"listing"`
		} `json:"items"`
		Total float64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, kept, resp.Items[0].Listing.ID)
	assert.InDelta(t, 29.99, resp.Total, 1e-9)
}

func TestAddToCartUnknownListing(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"listing_id": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutAndRelease(t *testing.T) {
	router, _ := newTestRouter(t)
	id := createListing(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/cart/items", gin.H{"listing_id": id})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/checkout", gin.H{"listing_ids": []string{id}})
	require.Equal(t, http.StatusOK, w.Code)

	var checkoutResp struct {
		ReservedIDs []string `json:"reserved_ids"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checkoutResp))
	assert.Equal(t, []string{id}, checkoutResp.ReservedIDs)

	// release on a reserved listing succeeds and discloses credentials
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/listings/%s/release", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ACC-9912")

	// sold is terminal
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/listings/%s/release", id), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// the inbox now carries the delivered record with credentials
	w = doJSON(t, router, http.MethodGet, "/api/v1/inbox", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ACC-9912")
	assert.Contains(t, w.Body.String(), "4321")
}

func TestReleaseBeforeCheckoutConflicts(t *testing.T) {
	router, _ := newTestRouter(t)
	id := createListing(t, router)

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/listings/%s/release", id), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/listings/missing/release", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/checkout", gin.H{"listing_ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileWithoutIdentityProvider(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		IdentityConfigured bool `json:"identity_configured"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.IdentityConfigured)
}
