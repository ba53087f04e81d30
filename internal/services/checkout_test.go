package services

import (
	"context"
	"errors"
	"testing"

	"eventify-payments/internal/logger"
	"eventify-payments/internal/models"
	"eventify-payments/internal/storage"

	"github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCheckout(store storage.Store, gw *fakeGateway) *CheckoutService {
	return NewCheckoutService(store, gw, logger.NewLogger(), "http://localhost:3000")
}

func TestDollarsToCents(t *testing.T) {
	cases := []struct {
		amount float64
		want   int64
	}{
		{19.99, 1999},
		{10, 1000},
		{0.1, 10},
		{249.99, 24999},
		{0, 0},
		{129.99, 12999},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DollarsToCents(tc.amount), "amount %v", tc.amount)
	}
}

func TestCreateSessionCarriesCompleteMetadata(t *testing.T) {
	store := storage.NewInMemoryStore()
	seedEvent(t, store, "event_1", intPtr(10))
	gw := &fakeGateway{}
	svc := newTestCheckout(store, gw)

	req := &models.CheckoutRequest{
		Title:       "Go Conference",
		Price:       19.99,
		Description: "One ticket",
		Email:       "jamie@example.com",
		EventID:     "event_1",
	}

	sessionID, err := svc.CreateSession(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_created", sessionID)

	require.NotNil(t, gw.sessionParams)
	params := gw.sessionParams

	// The metadata bundle must be sufficient to rebuild the booking with no
	// further lookup.
	for _, key := range []string{"eventId", "userId", "userEmail", "userName", "eventTitle", "ticketPrice", "eventLocation", "eventDate"} {
		_, ok := params.Metadata[key]
		assert.True(t, ok, "metadata key %s missing", key)
	}
	assert.Equal(t, "event_1", params.Metadata["eventId"])
	assert.Equal(t, "jamie@example.com", params.Metadata["userEmail"])
	assert.Equal(t, "19.99", params.Metadata["ticketPrice"])
	assert.Equal(t, "Oslo Spektrum", params.Metadata["eventLocation"])
	assert.Equal(t, "2026-10-01T18:00:00Z", params.Metadata["eventDate"])

	require.Len(t, params.LineItems, 1)
	assert.Equal(t, int64(1999), *params.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "Go Conference", *params.LineItems[0].PriceData.ProductData.Name)
	assert.Equal(t, string(stripe.CheckoutSessionModePayment), *params.Mode)
	assert.Equal(t, "jamie@example.com", *params.CustomerEmail)
	assert.Contains(t, *params.SuccessURL, "{CHECKOUT_SESSION_ID}")

	// Nothing is written locally at checkout time.
	assert.Equal(t, 0, store.PaymentCount())
	assert.Equal(t, 0, store.BookingCount())
}

func TestCreateSessionAuthenticatedIdentityWins(t *testing.T) {
	store := storage.NewInMemoryStore()
	seedEvent(t, store, "event_1", intPtr(10))
	gw := &fakeGateway{}
	svc := newTestCheckout(store, gw)

	req := &models.CheckoutRequest{
		Title:   "Go Conference",
		Price:   25,
		Email:   "typed@example.com",
		EventID: "event_1",
	}
	user := &models.UserIdentity{ID: "user_9", Email: "jamie@example.com", Name: "Jamie Rivera"}

	_, err := svc.CreateSession(context.Background(), req, user)
	require.NoError(t, err)

	assert.Equal(t, "user_9", gw.sessionParams.Metadata["userId"])
	assert.Equal(t, "jamie@example.com", gw.sessionParams.Metadata["userEmail"])
	assert.Equal(t, "Jamie Rivera", gw.sessionParams.Metadata["userName"])
}

func TestCreateSessionUnknownEvent(t *testing.T) {
	store := storage.NewInMemoryStore()
	svc := newTestCheckout(store, &fakeGateway{})

	_, err := svc.CreateSession(context.Background(), &models.CheckoutRequest{
		Title:   "Ghost Event",
		Price:   10,
		Email:   "jamie@example.com",
		EventID: "event_ghost",
	}, nil)

	assert.ErrorIs(t, err, storage.ErrEventNotFound)
}

func TestCreateSessionGatewayFailure(t *testing.T) {
	store := storage.NewInMemoryStore()
	seedEvent(t, store, "event_1", intPtr(10))
	gw := &fakeGateway{createErr: errors.New("stripe unavailable")}
	svc := newTestCheckout(store, gw)

	_, err := svc.CreateSession(context.Background(), &models.CheckoutRequest{
		Title:   "Go Conference",
		Price:   25,
		Email:   "jamie@example.com",
		EventID: "event_1",
	}, nil)

	assert.Error(t, err)
}

func TestGetSessionDetailsEmailMismatch(t *testing.T) {
	gw := &fakeGateway{getSession: &stripe.CheckoutSession{
		ID:            "cs_1",
		CustomerEmail: "jamie@example.com",
	}}
	svc := newTestCheckout(storage.NewInMemoryStore(), gw)

	_, err := svc.GetSessionDetails(context.Background(), "cs_1", "mallory@example.com")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetSessionDetailsResolvesFields(t *testing.T) {
	gw := &fakeGateway{getSession: &stripe.CheckoutSession{
		ID:            "cs_1",
		CustomerEmail: "jamie@example.com",
		AmountTotal:   1999,
		Currency:      "usd",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:      testMetadata("event_1"),
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{
			Name:  "Jamie Rivera",
			Email: "jamie@example.com",
		},
	}}
	svc := newTestCheckout(storage.NewInMemoryStore(), gw)

	details, err := svc.GetSessionDetails(context.Background(), "cs_1", "jamie@example.com")
	require.NoError(t, err)

	assert.Equal(t, "cs_1", details.ID)
	assert.Equal(t, 19.99, details.Amount)
	assert.Equal(t, "usd", details.Currency)
	assert.Equal(t, "Go Conference", details.EventTitle)
	assert.Equal(t, "Jamie Rivera", details.CustomerName)
	assert.Equal(t, "jamie@example.com", details.CustomerEmail)
	assert.Equal(t, "Oslo Spektrum", details.EventLocation)
	assert.Equal(t, string(stripe.CheckoutSessionPaymentStatusPaid), details.Status)
}

func TestGetSessionDetailsFallbacks(t *testing.T) {
	// A sparse session, nothing expanded and no metadata.
	gw := &fakeGateway{getSession: &stripe.CheckoutSession{ID: "cs_sparse"}}
	svc := newTestCheckout(storage.NewInMemoryStore(), gw)

	details, err := svc.GetSessionDetails(context.Background(), "cs_sparse", "")
	require.NoError(t, err)

	assert.Equal(t, "Event", details.EventTitle)
	assert.Equal(t, "usd", details.Currency)
	assert.Equal(t, "card", details.PaymentMethod)
	assert.Equal(t, "Venue", details.EventLocation)
}
