package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventify-payments/internal/kafka"
	"eventify-payments/internal/logger"
	"eventify-payments/internal/models"
	"eventify-payments/internal/services"
	"eventify-payments/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

type stubGateway struct{}

func (stubGateway) CreateCheckoutSession(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return &stripe.CheckoutSession{ID: "cs_stub"}, nil
}

func (stubGateway) GetCheckoutSession(string, *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return &stripe.CheckoutSession{}, nil
}

func (stubGateway) GetPaymentIntent(string) (*stripe.PaymentIntent, error) {
	return nil, services.ErrStripeAPIError
}

func (stubGateway) CreateRefund(*stripe.RefundParams) (*stripe.Refund, error) {
	return &stripe.Refund{ID: "re_stub"}, nil
}

func newWebhookRouter(t *testing.T, store storage.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewLogger()

	producer, err := kafka.NewProducer(nil, true, log)
	require.NoError(t, err)

	verifier, err := services.NewWebhookVerifier(testWebhookSecret, log)
	require.NoError(t, err)

	reconciler := services.NewReconcilerService(store, stubGateway{}, producer, nil, nil, log)
	handler := NewWebhookHandler(verifier, reconciler, log)

	router := gin.New()
	router.POST("/api/v1/stripe/webhook", handler.HandleStripeWebhook)
	return router
}

// signPayload builds a Stripe-Signature header the same way the provider
// does: HMAC-SHA256 over "<timestamp>.<payload>" with the signing secret.
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func completedSessionPayload(t *testing.T, sessionID, eventID string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":   "evt_1",
		"type": "checkout.session.completed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":           sessionID,
				"amount_total": 2500,
				"currency":     "usd",
				"metadata": map[string]string{
					"eventId":       eventID,
					"userId":        "user_1",
					"userEmail":     "jamie@example.com",
					"userName":      "Jamie Rivera",
					"eventTitle":    "Go Conference",
					"ticketPrice":   "25.00",
					"eventLocation": "Oslo Spektrum",
					"eventDate":     "2026-10-01T18:00:00Z",
				},
				"customer_details": map[string]string{
					"email": "jamie@example.com",
					"name":  "Jamie Rivera",
				},
			},
		},
	})
	require.NoError(t, err)
	return payload
}

func postWebhook(router *gin.Engine, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stripe/webhook", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookValidSignatureProcessesDelivery(t *testing.T) {
	store := storage.NewInMemoryStore()
	available := 5
	require.NoError(t, store.UpsertEvent(&models.Event{
		EventID:          "event_1",
		Title:            "Go Conference",
		TotalTickets:     100,
		AvailableTickets: &available,
	}))
	router := newWebhookRouter(t, store)

	payload := completedSessionPayload(t, "cs_signed_1", "event_1")
	w := postWebhook(router, payload, signPayload(payload, testWebhookSecret, time.Now()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received": true}`, w.Body.String())

	assert.Equal(t, 1, store.BookingCount())
	assert.Equal(t, 1, store.PaymentCount())

	event, err := store.FindEventByID("event_1")
	require.NoError(t, err)
	assert.Equal(t, 4, *event.AvailableTickets)
}

func TestWebhookInvalidSignatureRejectedBeforeProcessing(t *testing.T) {
	store := storage.NewInMemoryStore()
	router := newWebhookRouter(t, store)

	payload := completedSessionPayload(t, "cs_forged", "event_1")
	w := postWebhook(router, payload, signPayload(payload, "whsec_wrong_secret", time.Now()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid signature")
	assert.Equal(t, 0, store.PaymentCount(), "unverified payloads must not touch storage")
}

func TestWebhookMissingSignatureRejected(t *testing.T) {
	store := storage.NewInMemoryStore()
	router := newWebhookRouter(t, store)

	w := postWebhook(router, completedSessionPayload(t, "cs_unsigned", "event_1"), "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, store.PaymentCount())
}

func TestWebhookTamperedPayloadRejected(t *testing.T) {
	store := storage.NewInMemoryStore()
	router := newWebhookRouter(t, store)

	payload := completedSessionPayload(t, "cs_tampered", "event_1")
	signature := signPayload(payload, testWebhookSecret, time.Now())
	tampered := bytes.Replace(payload, []byte("25.00"), []byte("0.01"), 1)

	w := postWebhook(router, tampered, signature)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, store.PaymentCount())
}

func TestWebhookReplayDeliveryAcknowledged(t *testing.T) {
	store := storage.NewInMemoryStore()
	available := 5
	require.NoError(t, store.UpsertEvent(&models.Event{
		EventID:          "event_1",
		Title:            "Go Conference",
		TotalTickets:     100,
		AvailableTickets: &available,
	}))
	router := newWebhookRouter(t, store)

	payload := completedSessionPayload(t, "cs_replay", "event_1")

	first := postWebhook(router, payload, signPayload(payload, testWebhookSecret, time.Now()))
	assert.Equal(t, http.StatusOK, first.Code)

	second := postWebhook(router, payload, signPayload(payload, testWebhookSecret, time.Now()))
	assert.Equal(t, http.StatusOK, second.Code, "replays are acknowledged, not errored")

	assert.Equal(t, 1, store.BookingCount())
	assert.Equal(t, 1, store.PaymentCount())

	event, err := store.FindEventByID("event_1")
	require.NoError(t, err)
	assert.Equal(t, 4, *event.AvailableTickets)
}

func TestWebhookUnhandledEventTypeAcknowledged(t *testing.T) {
	store := storage.NewInMemoryStore()
	router := newWebhookRouter(t, store)

	payload, err := json.Marshal(map[string]interface{}{
		"id":   "evt_2",
		"type": "invoice.paid",
		"data": map[string]interface{}{"object": map[string]interface{}{"id": "in_1"}},
	})
	require.NoError(t, err)

	w := postWebhook(router, payload, signPayload(payload, testWebhookSecret, time.Now()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, store.PaymentCount())
}
