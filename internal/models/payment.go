package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "PENDING"
	StatusCompleted PaymentStatus = "COMPLETED"
	StatusFailed    PaymentStatus = "FAILED"
	StatusRefunded  PaymentStatus = "REFUNDED"
)

// Terminal reports whether a status admits no further transitions. The
// ledger is insert-only, so terminal rows can never change status; this is
// used to refuse updates that would violate that.
func (s PaymentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRefunded
}

// Payment is the audit record for one Stripe checkout session.
// StripeSessionID carries a unique constraint in storage and acts as the
// idempotency key for webhook reconciliation. EventTitle and TicketPrice are
// point-in-time snapshots that survive later catalog mutations.
type Payment struct {
	bun.BaseModel `bun:"table:payments"`

	PaymentID             string        `json:"paymentId" bun:"payment_id,pk"`
	StripeSessionID       string        `json:"stripeSessionId" bun:"stripe_session_id"`
	StripePaymentIntentID string        `json:"stripePaymentIntentId,omitempty" bun:"stripe_payment_intent_id"`
	Amount                float64       `json:"amount" bun:"amount"`
	Currency              string        `json:"currency" bun:"currency"`
	Status                PaymentStatus `json:"status" bun:"status"`
	PaymentMethod         string        `json:"paymentMethod" bun:"payment_method"`
	UserID                string        `json:"userId,omitempty" bun:"user_id"`
	CustomerEmail         string        `json:"customerEmail" bun:"customer_email"`
	CustomerName          string        `json:"customerName" bun:"customer_name"`
	EventID               string        `json:"eventId" bun:"event_id"`
	EventTitle            string        `json:"eventTitle" bun:"event_title"`
	TicketPrice           float64       `json:"ticketPrice" bun:"ticket_price"`
	BookingID             string        `json:"bookingId,omitempty" bun:"booking_id"`
	PaymentDate           time.Time     `json:"paymentDate" bun:"payment_date"`
	ErrorMessage          string        `json:"errorMessage,omitempty" bun:"error_message"`
	CreatedAt             time.Time     `json:"createdAt" bun:"created_at"`
	UpdatedAt             time.Time     `json:"updatedAt" bun:"updated_at"`
}

// PaymentEvent is published to Kafka after reconciliation settles a session.
type PaymentEvent struct {
	Type      string    `json:"type"`
	PaymentID string    `json:"payment_id"`
	Payment   *Payment  `json:"payment"`
	Timestamp time.Time `json:"timestamp"`
}

// DeadLetter captures a webhook delivery that was acknowledged but could not
// be processed, so money-related events are never silently dropped.
type DeadLetter struct {
	Reason    string            `json:"reason"`
	EventType string            `json:"event_type"`
	SessionID string            `json:"session_id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
