package storage

import (
	"eventify-payments/internal/models"
)

// Store is the ledger behind the reconciliation pipeline. ConfirmBooking is
// the single atomic unit of reconciliation: booking insert, payment insert
// and conditional inventory decrement either all commit or all roll back.
type Store interface {
	// Event catalog
	FindEventByID(eventID string) (*models.Event, error)
	UpsertEvent(event *models.Event) error
	ResetEventInventory(eventID string, available int) error

	// Payments
	FindPaymentBySessionID(sessionID string) (*models.Payment, error)
	GetPayment(paymentID string) (*models.Payment, error)
	ListPaymentsByEmail(email string, limit, offset int) ([]*models.Payment, error)
	SavePayment(payment *models.Payment) error

	// Bookings
	ConfirmBooking(booking *models.Booking, payment *models.Payment) error
	GetBooking(bookingID string) (*models.Booking, error)

	HealthCheck() error
	Close() error
}
