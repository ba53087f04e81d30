package models

import (
	"errors"
	"strconv"
	"time"
)

// ErrMissingEventID marks a metadata bundle that cannot be reconciled.
var ErrMissingEventID = errors.New("no event id in session metadata")

// BookingIntent is the typed schema of the metadata bundle attached to a
// Stripe checkout session. It is the only channel carrying booking intent
// from checkout to the webhook reconciler, so it must reconstruct a complete
// booking without any further lookup.
type BookingIntent struct {
	EventID       string
	UserID        string
	UserEmail     string
	UserName      string
	EventTitle    string
	TicketPrice   float64
	EventLocation string
	EventDate     string
}

func (i *BookingIntent) ToMetadata() map[string]string {
	return map[string]string{
		"eventId":       i.EventID,
		"userId":        i.UserID,
		"userEmail":     i.UserEmail,
		"userName":      i.UserName,
		"eventTitle":    i.EventTitle,
		"ticketPrice":   strconv.FormatFloat(i.TicketPrice, 'f', 2, 64),
		"eventLocation": i.EventLocation,
		"eventDate":     i.EventDate,
	}
}

// BookingIntentFromMetadata validates and parses a provider metadata bag.
// Only eventId is required; the remaining fields degrade to zero values the
// same way the confirmation page tolerates their absence.
func BookingIntentFromMetadata(metadata map[string]string) (*BookingIntent, error) {
	if metadata == nil || metadata["eventId"] == "" {
		return nil, ErrMissingEventID
	}

	price := 0.0
	if raw := metadata["ticketPrice"]; raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			price = parsed
		}
	}

	date := metadata["eventDate"]
	if date == "" {
		date = time.Now().UTC().Format(time.RFC3339)
	}

	return &BookingIntent{
		EventID:       metadata["eventId"],
		UserID:        metadata["userId"],
		UserEmail:     metadata["userEmail"],
		UserName:      metadata["userName"],
		EventTitle:    metadata["eventTitle"],
		TicketPrice:   price,
		EventLocation: metadata["eventLocation"],
		EventDate:     date,
	}, nil
}
