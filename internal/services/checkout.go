package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"eventify-payments/internal/logger"
	"eventify-payments/internal/models"
	"eventify-payments/internal/storage"

	"github.com/stripe/stripe-go/v82"
)

var ErrUnauthorized = errors.New("session does not belong to requesting user")

// CheckoutService creates Stripe Checkout sessions carrying the booking
// intent as metadata, and resolves settled sessions for the confirmation
// page.
type CheckoutService struct {
	store   storage.Store
	gateway StripeGateway
	log     *logger.Logger
	baseURL string
}

func NewCheckoutService(store storage.Store, gateway StripeGateway, log *logger.Logger, baseURL string) *CheckoutService {
	return &CheckoutService{
		store:   store,
		gateway: gateway,
		log:     log,
		baseURL: baseURL,
	}
}

// DollarsToCents converts a display price into the smallest currency unit
// Stripe expects. Rounding is explicit: a naive int64(amount*100) truncates
// and loses a cent on values like 19.99.
func DollarsToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateSession validates the event, builds the metadata bundle that must be
// sufficient to reconstruct the booking with no further lookup, and creates
// the remote session. Nothing is written locally; state appears only when a
// terminal webhook arrives.
func (s *CheckoutService) CreateSession(ctx context.Context, req *models.CheckoutRequest, user *models.UserIdentity) (string, error) {
	s.log.LogPayment("CHECKOUT_INIT", req.EventID, fmt.Sprintf("Creating checkout session for %s (%s)", req.Title, req.Email))

	event, err := s.store.FindEventByID(req.EventID)
	if err != nil {
		if errors.Is(err, storage.ErrEventNotFound) {
			s.log.Warn("CHECKOUT", fmt.Sprintf("Event %s not found", req.EventID))
			return "", storage.ErrEventNotFound
		}
		return "", fmt.Errorf("failed to look up event: %w", err)
	}

	intent := &models.BookingIntent{
		EventID:       req.EventID,
		UserEmail:     req.Email,
		EventTitle:    req.Title,
		TicketPrice:   req.Price,
		EventLocation: event.Location,
		EventDate:     event.StartDate.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if user != nil {
		intent.UserID = user.ID
		intent.UserName = user.Name
		if user.Email != "" {
			intent.UserEmail = user.Email
		}
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: []*string{stripe.String("card")},
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String("usd"),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.Title),
						Description: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(DollarsToCents(req.Price)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(req.Email),
		SuccessURL:    stripe.String(s.baseURL + "/events/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:     stripe.String(s.baseURL + "/"),
	}
	for k, v := range intent.ToMetadata() {
		params.AddMetadata(k, v)
	}

	sess, err := s.gateway.CreateCheckoutSession(params)
	if err != nil {
		return "", err
	}

	s.log.LogPayment("CHECKOUT_CREATED", sess.ID, fmt.Sprintf("Session created for event %s", req.EventID))
	return sess.ID, nil
}

// GetSessionDetails re-fetches settlement details for the confirmation page.
// Read-only; an authenticated email that does not match the session's
// customer is refused with ErrUnauthorized.
func (s *CheckoutService) GetSessionDetails(ctx context.Context, sessionID, authedEmail string) (*models.SessionDetails, error) {
	s.log.LogPayment("SESSION_LOOKUP", sessionID, "Retrieving session details from Stripe")

	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("line_items")
	params.AddExpand("customer")
	params.AddExpand("payment_intent")

	sess, err := s.gateway.GetCheckoutSession(sessionID, params)
	if err != nil {
		return nil, err
	}

	if authedEmail != "" && sess.CustomerEmail != "" && authedEmail != sess.CustomerEmail {
		s.log.LogSecurity("SESSION_ACCESS_DENIED", fmt.Sprintf("email mismatch for session %s", sessionID))
		return nil, ErrUnauthorized
	}

	details := &models.SessionDetails{
		ID:            sess.ID,
		EventTitle:    sess.Metadata["eventTitle"],
		Currency:      "usd",
		CustomerEmail: sess.CustomerEmail,
		Created:       sess.Created,
		EventDate:     sess.Metadata["eventDate"],
		EventLocation: sess.Metadata["eventLocation"],
		PaymentMethod: "card",
		Status:        string(sess.PaymentStatus),
	}

	if sess.AmountTotal > 0 {
		details.Amount = float64(sess.AmountTotal) / 100.0
	}
	if sess.Currency != "" {
		details.Currency = string(sess.Currency)
	}
	if sess.LineItems != nil && len(sess.LineItems.Data) > 0 && sess.LineItems.Data[0].Description != "" {
		details.EventTitle = sess.LineItems.Data[0].Description
	}
	if details.EventTitle == "" {
		details.EventTitle = "Event"
	}
	if sess.CustomerDetails != nil {
		details.CustomerName = sess.CustomerDetails.Name
		if details.CustomerEmail == "" {
			details.CustomerEmail = sess.CustomerDetails.Email
		}
	}
	if details.CustomerName == "" {
		details.CustomerName = sess.Metadata["userName"]
	}
	if details.CustomerEmail == "" {
		details.CustomerEmail = sess.Metadata["userEmail"]
	}
	if sess.PaymentIntent != nil && len(sess.PaymentIntent.PaymentMethodTypes) > 0 {
		details.PaymentMethod = sess.PaymentIntent.PaymentMethodTypes[0]
	}
	if sess.Metadata["eventLocation"] == "" {
		details.EventLocation = "Venue"
	}

	return details, nil
}
