package storage

import (
	"fmt"
	"testing"
	"time"

	"eventify-payments/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTestEvent(t *testing.T, store *InMemoryStore, eventID string, available *int) {
	t.Helper()
	require.NoError(t, store.UpsertEvent(&models.Event{
		EventID:          eventID,
		Title:            "Go Conference",
		TotalTickets:     100,
		TicketPrice:      25,
		AvailableTickets: available,
	}))
}

func testBookingAndPayment(sessionID, eventID string) (*models.Booking, *models.Payment) {
	booking := &models.Booking{
		BookingID: "bkg_" + sessionID,
		UserID:    "user_1",
		EventID:   eventID,
	}
	payment := &models.Payment{
		PaymentID:       "pay_" + sessionID,
		StripeSessionID: sessionID,
		Amount:          25,
		Currency:        "usd",
		Status:          models.StatusCompleted,
		EventID:         eventID,
		CustomerEmail:   "jamie@example.com",
		BookingID:       "bkg_" + sessionID,
		PaymentDate:     time.Now(),
	}
	return booking, payment
}

func ptr(n int) *int { return &n }

func TestConfirmBookingDecrementsInventory(t *testing.T) {
	store := NewInMemoryStore()
	seedTestEvent(t, store, "event_1", ptr(3))

	booking, payment := testBookingAndPayment("cs_1", "event_1")
	require.NoError(t, store.ConfirmBooking(booking, payment))

	event, err := store.FindEventByID("event_1")
	require.NoError(t, err)
	assert.Equal(t, 2, *event.AvailableTickets)

	got, err := store.FindPaymentBySessionID("cs_1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	_, err = store.GetBooking("bkg_cs_1")
	assert.NoError(t, err)
}

func TestConfirmBookingDuplicateSession(t *testing.T) {
	store := NewInMemoryStore()
	seedTestEvent(t, store, "event_1", ptr(3))

	booking, payment := testBookingAndPayment("cs_1", "event_1")
	require.NoError(t, store.ConfirmBooking(booking, payment))

	again, paymentAgain := testBookingAndPayment("cs_1", "event_1")
	again.BookingID = "bkg_other"
	paymentAgain.PaymentID = "pay_other"

	err := store.ConfirmBooking(again, paymentAgain)
	assert.ErrorIs(t, err, ErrDuplicateSession)

	assert.Equal(t, 1, store.BookingCount())
	assert.Equal(t, 1, store.PaymentCount())

	event, err := store.FindEventByID("event_1")
	require.NoError(t, err)
	assert.Equal(t, 2, *event.AvailableTickets, "the duplicate must not decrement again")
}

func TestConfirmBookingSoldOutLeavesNoPartialState(t *testing.T) {
	store := NewInMemoryStore()
	seedTestEvent(t, store, "event_1", ptr(0))

	booking, payment := testBookingAndPayment("cs_1", "event_1")
	err := store.ConfirmBooking(booking, payment)
	assert.ErrorIs(t, err, ErrSoldOut)

	assert.Equal(t, 0, store.BookingCount())
	assert.Equal(t, 0, store.PaymentCount())

	event, err := store.FindEventByID("event_1")
	require.NoError(t, err)
	assert.Equal(t, 0, *event.AvailableTickets, "inventory never goes negative")
}

func TestConfirmBookingUnknownEvent(t *testing.T) {
	store := NewInMemoryStore()

	booking, payment := testBookingAndPayment("cs_1", "event_ghost")
	err := store.ConfirmBooking(booking, payment)
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.Equal(t, 0, store.PaymentCount())
}

func TestConfirmBookingUntrackedInventory(t *testing.T) {
	store := NewInMemoryStore()
	seedTestEvent(t, store, "event_1", nil)

	booking, payment := testBookingAndPayment("cs_1", "event_1")
	require.NoError(t, store.ConfirmBooking(booking, payment))

	event, err := store.FindEventByID("event_1")
	require.NoError(t, err)
	assert.Nil(t, event.AvailableTickets)
}

func TestSavePaymentRejectsDuplicateSession(t *testing.T) {
	store := NewInMemoryStore()

	_, payment := testBookingAndPayment("cs_1", "event_1")
	require.NoError(t, store.SavePayment(payment))

	_, dup := testBookingAndPayment("cs_1", "event_1")
	dup.PaymentID = "pay_other"
	assert.ErrorIs(t, store.SavePayment(dup), ErrDuplicateSession)
}

func TestResetEventInventoryBounds(t *testing.T) {
	store := NewInMemoryStore()
	seedTestEvent(t, store, "event_1", ptr(10))

	assert.ErrorIs(t, store.ResetEventInventory("event_ghost", 5), ErrEventNotFound)
	assert.ErrorIs(t, store.ResetEventInventory("event_1", -1), ErrInvalidInventory)
	assert.ErrorIs(t, store.ResetEventInventory("event_1", 101), ErrInvalidInventory)

	require.NoError(t, store.ResetEventInventory("event_1", 100))
	event, err := store.FindEventByID("event_1")
	require.NoError(t, err)
	assert.Equal(t, 100, *event.AvailableTickets)
}

func TestListPaymentsByEmailPaging(t *testing.T) {
	store := NewInMemoryStore()
	for i := 0; i < 5; i++ {
		_, payment := testBookingAndPayment(fmt.Sprintf("cs_%d", i), "event_1")
		payment.PaymentID = fmt.Sprintf("pay_%d", i)
		require.NoError(t, store.SavePayment(payment))
	}
	_, other := testBookingAndPayment("cs_other", "event_1")
	other.PaymentID = "pay_other"
	other.CustomerEmail = "other@example.com"
	require.NoError(t, store.SavePayment(other))

	all, err := store.ListPaymentsByEmail("jamie@example.com", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	page, err := store.ListPaymentsByEmail("jamie@example.com", 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	tail, err := store.ListPaymentsByEmail("jamie@example.com", 10, 3)
	require.NoError(t, err)
	assert.Len(t, tail, 2)

	none, err := store.ListPaymentsByEmail("jamie@example.com", 10, 99)
	require.NoError(t, err)
	assert.Empty(t, none)

	missing, err := store.ListPaymentsByEmail("nobody@example.com", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, missing)
}
