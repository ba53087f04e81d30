package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventify-payments/internal/logger"
	"eventify-payments/internal/models"
	"eventify-payments/internal/storage"
	"eventify-payments/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaymentRouter(t *testing.T, store storage.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler := NewPaymentHandler(store, logger.NewLogger())

	router := gin.New()
	router.GET("/api/v1/payments/:id", handler.GetPayment)
	router.GET("/api/v1/payments", handler.ListPayments)
	return router
}

func TestGetPaymentFound(t *testing.T) {
	store := storage.NewInMemoryStore()
	require.NoError(t, store.SavePayment(&models.Payment{
		PaymentID:       "pay_1",
		StripeSessionID: "cs_1",
		Amount:          19.99,
		Currency:        "usd",
		Status:          models.StatusCompleted,
		CustomerEmail:   "jamie@example.com",
		PaymentDate:     time.Now(),
	}))
	router := newPaymentRouter(t, store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/payments/pay_1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestGetPaymentNotFound(t *testing.T) {
	router := newPaymentRouter(t, storage.NewInMemoryStore())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/payments/pay_ghost", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPaymentsRequiresEmail(t *testing.T) {
	router := newPaymentRouter(t, storage.NewInMemoryStore())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPaymentsByEmail(t *testing.T) {
	store := storage.NewInMemoryStore()
	require.NoError(t, store.SavePayment(&models.Payment{
		PaymentID:       "pay_1",
		StripeSessionID: "cs_1",
		Status:          models.StatusCompleted,
		CustomerEmail:   "jamie@example.com",
	}))
	require.NoError(t, store.SavePayment(&models.Payment{
		PaymentID:       "pay_2",
		StripeSessionID: "cs_2",
		Status:          models.StatusFailed,
		CustomerEmail:   "other@example.com",
	}))
	router := newPaymentRouter(t, store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/payments?email=jamie@example.com", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool              `json:"success"`
		Data    []*models.Payment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "pay_1", resp.Data[0].PaymentID)
}
