package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Booking is a confirmed reservation. Rows are created only inside the
// reconciliation transaction, alongside a COMPLETED payment.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	BookingID string    `json:"bookingId" bun:"booking_id,pk"`
	UserID    string    `json:"userId" bun:"user_id"`
	EventID   string    `json:"eventId" bun:"event_id"`
	CreatedAt time.Time `json:"createdAt" bun:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bun:"updated_at"`
}
