package handlers

import (
	"errors"
	"net/http"

	"eventify-payments/internal/logger"
	"eventify-payments/internal/models"
	"eventify-payments/internal/services"
	"eventify-payments/internal/storage"

	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	checkout *services.CheckoutService
	log      *logger.Logger
}

func NewCheckoutHandler(checkout *services.CheckoutService, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, log: log}
}

// identityFromHeaders picks up the purchaser identity forwarded by the auth
// proxy. All three headers are optional; anonymous checkout is permitted.
func identityFromHeaders(c *gin.Context) *models.UserIdentity {
	user := &models.UserIdentity{
		ID:    c.GetHeader("X-User-Id"),
		Email: c.GetHeader("X-User-Email"),
		Name:  c.GetHeader("X-User-Name"),
	}
	if user.ID == "" && user.Email == "" && user.Name == "" {
		return nil
	}
	return user
}

func (h *CheckoutHandler) CreateCheckoutSession(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	sessionID, err := h.checkout.CreateSession(c.Request.Context(), &req, identityFromHeaders(c))
	if err != nil {
		if errors.Is(err, storage.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID})
}

func (h *CheckoutHandler) GetSessionDetails(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID is required"})
		return
	}

	details, err := h.checkout.GetSessionDetails(c.Request.Context(), sessionID, c.GetHeader("X-User-Email"))
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve session details"})
		return
	}

	c.JSON(http.StatusOK, details)
}
