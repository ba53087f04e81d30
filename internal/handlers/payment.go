package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"eventify-payments/internal/logger"
	"eventify-payments/internal/storage"
	"eventify-payments/internal/utils"

	"github.com/gin-gonic/gin"
)

// PaymentHandler serves the read-only payment history behind the user
// dashboard.
type PaymentHandler struct {
	store storage.Store
	log   *logger.Logger
}

func NewPaymentHandler(store storage.Store, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{store: store, log: log}
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	paymentID := c.Param("id")
	if paymentID == "" {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Payment ID is required", ""))
		return
	}

	payment, err := h.store.GetPayment(paymentID)
	if err != nil {
		if errors.Is(err, storage.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Payment not found", err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to retrieve payment", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Payment retrieved", payment))
}

func (h *PaymentHandler) ListPayments(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Email is required", ""))
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	payments, err := h.store.ListPaymentsByEmail(email, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list payments", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Payments retrieved", payments))
}
