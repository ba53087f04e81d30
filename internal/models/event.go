package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Event is the local copy of a catalog event. AvailableTickets is nil when
// the organizer does not track inventory for the event.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	EventID          string    `json:"eventId" bun:"event_id,pk"`
	Title            string    `json:"title" bun:"title"`
	Description      string    `json:"description" bun:"description"`
	Category         string    `json:"category" bun:"category"`
	Location         string    `json:"location" bun:"location"`
	StartDate        time.Time `json:"startDate" bun:"start_date"`
	EndDate          time.Time `json:"endDate" bun:"end_date"`
	CoverImage       string    `json:"coverImage" bun:"cover_image"`
	TotalTickets     int       `json:"totalTickets" bun:"total_tickets"`
	TicketPrice      float64   `json:"ticketPrice" bun:"ticket_price"`
	AvailableTickets *int      `json:"availableTickets" bun:"available_tickets,nullzero"`
	OrganizerID      string    `json:"organizerId" bun:"organizer_id"`
	CreatedAt        time.Time `json:"createdAt" bun:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt" bun:"updated_at"`
}

// Tracked reports whether the event enforces a ticket inventory.
func (e *Event) Tracked() bool {
	return e.AvailableTickets != nil
}

// EventMessage is the payload published by the catalog service on the
// event-catalog topic.
type EventMessage struct {
	Type      string    `json:"type"`
	Event     *Event    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}
