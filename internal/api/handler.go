package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"portmarket/internal/identity"
	"portmarket/internal/models"
	"portmarket/internal/service"
	"portmarket/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	lifecycle *service.Lifecycle
	identity  identity.Provider
}

// NewHandler creates a new HTTP handler
func NewHandler(lifecycle *service.Lifecycle, provider identity.Provider) *Handler {
	return &Handler{
		lifecycle: lifecycle,
		identity:  provider,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/listings", h.listListings)
		v1.POST("/listings", h.createListings)
		v1.POST("/listings/:id/release", h.releaseListing)

		v1.GET("/cart", h.getCart)
		v1.POST("/cart/items", h.addToCart)
		v1.DELETE("/cart/items/:id", h.removeFromCart)
		v1.DELETE("/cart", h.clearCart)

		v1.POST("/checkout", h.checkout)

		v1.GET("/inbox", h.getInbox)
		v1.GET("/profile", h.getProfile)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// listListings returns redacted listings, optionally filtered by status
func (h *Handler) listListings(c *gin.Context) {
	status := c.Query("status")
	if status != "" && status != models.StatusAvailable &&
		status != models.StatusReserved && status != models.StatusSold {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid status filter",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listings": h.lifecycle.Listings(status),
	})
}

type createListingsRequest struct {
	Listings []models.NewListingInput `json:"listings" binding:"required,min=1"`
}

// createListings handles the operator's batch create
func (h *Handler) createListings(c *gin.Context) {
	var req createListingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	created, err := h.lifecycle.CreateListings(c.Request.Context(), req.Listings)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]models.ListingView, 0, len(created))
	for _, l := range created {
		views = append(views, l.View())
	}

	c.JSON(http.StatusCreated, gin.H{
		"listings": views,
	})
}

// releaseListing handles the operator release action
func (h *Handler) releaseListing(c *gin.Context) {
	record, err := h.lifecycle.Release(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"record": record,
	})
}

// getCart returns validated cart contents and the running total. The total
// is summed over the validated items so a stale entry can never inflate it
// past what the buyer sees.
func (h *Handler) getCart(c *gin.Context) {
	items := h.lifecycle.CartContents(c.Request.Context())

	var total float64
	for _, item := range items {
		total += item.Listing.Price
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": total,
	})
}

type addToCartRequest struct {
	ListingID string `json:"listing_id" binding:"required"`
}

// addToCart puts a listing in the cart
func (h *Handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.lifecycle.AddToCart(c.Request.Context(), req.ListingID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": h.lifecycle.CartContents(c.Request.Context()),
	})
}

// removeFromCart drops a listing from the cart
func (h *Handler) removeFromCart(c *gin.Context) {
	h.lifecycle.RemoveFromCart(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

// clearCart empties the cart
func (h *Handler) clearCart(c *gin.Context) {
	h.lifecycle.ClearCart(c.Request.Context())
	c.Status(http.StatusNoContent)
}

type checkoutRequest struct {
	ListingIDs []string `json:"listing_ids" binding:"required,min=1"`
}

// checkout reserves the requested listings, best-effort per item
func (h *Handler) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	reserved, err := h.lifecycle.Checkout(c.Request.Context(), req.ListingIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reserved_ids": reserved,
	})
}

// getInbox returns all delivered records including credentials
func (h *Handler) getInbox(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"records": h.lifecycle.Delivered(),
	})
}

// getProfile returns the signed-in identity, if any, with purchase history
func (h *Handler) getProfile(c *gin.Context) {
	resp := gin.H{
		"identity_configured": h.identity.Configured(),
		"purchases":           h.lifecycle.Delivered(),
	}

	user, err := h.identity.CurrentUser(c.Request.Context())
	if err != nil {
		// Identity is an optional collaborator; history still renders.
		resp["identity_error"] = err.Error()
	} else if user != nil {
		resp["user"] = user
	}

	c.JSON(http.StatusOK, resp)
}

// respondError maps domain errors onto HTTP status codes
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
