package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingIntentRoundTrip(t *testing.T) {
	intent := &BookingIntent{
		EventID:       "event_1",
		UserID:        "user_1",
		UserEmail:     "jamie@example.com",
		UserName:      "Jamie Rivera",
		EventTitle:    "Go Conference",
		TicketPrice:   19.99,
		EventLocation: "Oslo Spektrum",
		EventDate:     "2026-10-01T18:00:00Z",
	}

	metadata := intent.ToMetadata()
	assert.Equal(t, "19.99", metadata["ticketPrice"])

	parsed, err := BookingIntentFromMetadata(metadata)
	require.NoError(t, err)
	assert.Equal(t, intent, parsed)
}

func TestBookingIntentRequiresEventID(t *testing.T) {
	_, err := BookingIntentFromMetadata(nil)
	assert.ErrorIs(t, err, ErrMissingEventID)

	_, err = BookingIntentFromMetadata(map[string]string{"userEmail": "jamie@example.com"})
	assert.ErrorIs(t, err, ErrMissingEventID)

	_, err = BookingIntentFromMetadata(map[string]string{"eventId": ""})
	assert.ErrorIs(t, err, ErrMissingEventID)
}

func TestBookingIntentToleratesDegradedFields(t *testing.T) {
	parsed, err := BookingIntentFromMetadata(map[string]string{
		"eventId":     "event_1",
		"ticketPrice": "not a price",
	})
	require.NoError(t, err)

	assert.Equal(t, "event_1", parsed.EventID)
	assert.Equal(t, 0.0, parsed.TicketPrice, "unparseable price degrades to zero")
	assert.NotEmpty(t, parsed.EventDate, "missing date gets a default")
	assert.Empty(t, parsed.UserEmail)
}

func TestPaymentStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusRefunded.Terminal())
}
