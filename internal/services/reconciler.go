package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"eventify-payments/internal/logger"
	"eventify-payments/internal/models"
	"eventify-payments/internal/storage"
	"eventify-payments/internal/utils"

	"github.com/stripe/stripe-go/v82"
)

// SessionLock suppresses concurrent processing of the same webhook delivery.
// It is an optimization only; the unique constraint on stripe_session_id in
// storage is the correctness mechanism.
type SessionLock interface {
	Acquire(sessionID string) (bool, error)
	Release(sessionID string) error
}

// ConfirmationMailer sends the post-booking confirmation. Best-effort.
type ConfirmationMailer interface {
	SendBookingConfirmation(to, name, eventTitle string, amount float64, currency string) error
}

// EventPublisher routes reconciliation outcomes to the message bus.
// Satisfied by *kafka.Producer.
type EventPublisher interface {
	PublishPaymentEvent(event *models.PaymentEvent) error
	PublishDeadLetter(dl *models.DeadLetter) error
}

// ReconcilerService converts verified payment-provider events into durable
// ledger records. Per external session the state machine has exactly one
// forward transition (UNSEEN -> COMPLETED or UNSEEN -> FAILED); everything
// else is a replay and must be a no-op.
type ReconcilerService struct {
	store    storage.Store
	gateway  StripeGateway
	producer EventPublisher
	locks    SessionLock
	mailer   ConfirmationMailer
	log      *logger.Logger
}

func NewReconcilerService(store storage.Store, gateway StripeGateway, producer EventPublisher, locks SessionLock, mailer ConfirmationMailer, log *logger.Logger) *ReconcilerService {
	return &ReconcilerService{
		store:    store,
		gateway:  gateway,
		producer: producer,
		locks:    locks,
		mailer:   mailer,
		log:      log,
	}
}

// HandleEvent dispatches one verified webhook event. A nil return
// acknowledges the delivery (200); an error tells the transport to answer
// 5xx so the provider redelivers. Redelivery is safe: every path below is
// idempotent per session id.
func (s *ReconcilerService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	s.log.LogWebhook("PROCESS", event.ID, fmt.Sprintf("Processing event type %s", event.Type))

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return s.deadLetter("malformed checkout session payload", string(event.Type), event.ID, nil)
		}
		return s.handleSessionCompleted(ctx, &sess)

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return s.deadLetter("malformed payment intent payload", string(event.Type), event.ID, nil)
		}
		return s.handlePaymentFailed(ctx, &pi)

	case "checkout.session.expired":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return s.deadLetter("malformed checkout session payload", string(event.Type), event.ID, nil)
		}
		return s.handleSessionExpired(ctx, &sess)

	default:
		s.log.LogWebhook("IGNORED", event.ID, fmt.Sprintf("No handler for event type %s", event.Type))
		return nil
	}
}

func (s *ReconcilerService) handleSessionCompleted(ctx context.Context, sess *stripe.CheckoutSession) error {
	s.log.LogWebhook("COMPLETED", sess.ID, "Handling successful checkout session")

	intent, err := models.BookingIntentFromMetadata(sess.Metadata)
	if err != nil {
		s.log.Error("RECONCILE", fmt.Sprintf("Session %s has no event id in metadata", sess.ID))
		return s.deadLetter("missing event id in metadata", "checkout.session.completed", sess.ID, sess.Metadata)
	}
	if sess.CustomerDetails != nil {
		if intent.UserEmail == "" {
			intent.UserEmail = sess.CustomerDetails.Email
		}
		if intent.UserName == "" {
			intent.UserName = sess.CustomerDetails.Name
		}
	}

	locked := false
	if s.locks != nil {
		ok, err := s.locks.Acquire(sess.ID)
		switch {
		case err != nil:
			s.log.Warn("RECONCILE", fmt.Sprintf("Delivery lock unavailable for session %s: %v", sess.ID, err))
		case !ok:
			if _, err := s.store.FindPaymentBySessionID(sess.ID); err == nil {
				s.log.LogWebhook("REPLAY", sess.ID, "Session already reconciled, skipping")
				return nil
			}
			return fmt.Errorf("delivery for session %s already in flight", sess.ID)
		default:
			locked = true
		}
	}
	release := func() {
		if locked {
			if err := s.locks.Release(sess.ID); err != nil {
				s.log.Warn("RECONCILE", fmt.Sprintf("Failed to release delivery lock for session %s: %v", sess.ID, err))
			}
		}
	}

	// Pre-transaction existence check. An optimization: the insert below is
	// the true idempotency gate.
	if _, err := s.store.FindPaymentBySessionID(sess.ID); err == nil {
		s.log.LogWebhook("REPLAY", sess.ID, "Payment record already exists, skipping")
		return nil
	} else if !errors.Is(err, storage.ErrPaymentNotFound) {
		release()
		return fmt.Errorf("failed to check existing payment for session %s: %w", sess.ID, err)
	}

	piID := ""
	paymentMethod := "card"
	if sess.PaymentIntent != nil {
		piID = sess.PaymentIntent.ID
		if pi, err := s.gateway.GetPaymentIntent(piID); err == nil && len(pi.PaymentMethodTypes) > 0 {
			paymentMethod = pi.PaymentMethodTypes[0]
		}
	}

	amount := intent.TicketPrice
	if sess.AmountTotal > 0 {
		amount = float64(sess.AmountTotal) / 100.0
	}
	currency := "usd"
	if sess.Currency != "" {
		currency = string(sess.Currency)
	}

	now := time.Now()
	booking := &models.Booking{
		BookingID: utils.GenerateBookingID(),
		UserID:    intent.UserID,
		EventID:   intent.EventID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	payment := &models.Payment{
		PaymentID:             utils.GeneratePaymentID(),
		StripeSessionID:       sess.ID,
		StripePaymentIntentID: piID,
		Amount:                amount,
		Currency:              currency,
		Status:                models.StatusCompleted,
		PaymentMethod:         paymentMethod,
		UserID:                intent.UserID,
		CustomerEmail:         intent.UserEmail,
		CustomerName:          intent.UserName,
		EventID:               intent.EventID,
		EventTitle:            intent.EventTitle,
		TicketPrice:           intent.TicketPrice,
		BookingID:             booking.BookingID,
		PaymentDate:           now,
	}

	err = s.store.ConfirmBooking(booking, payment)
	switch {
	case err == nil:
		s.log.LogWebhook("RECONCILED", sess.ID, fmt.Sprintf("Booking %s confirmed, payment %s recorded", booking.BookingID, payment.PaymentID))
		s.publishPaymentEvent("payment.success", payment)
		if s.mailer != nil && payment.CustomerEmail != "" {
			go s.mailer.SendBookingConfirmation(payment.CustomerEmail, payment.CustomerName, payment.EventTitle, payment.Amount, payment.Currency)
		}
		return nil

	case errors.Is(err, storage.ErrDuplicateSession):
		s.log.LogWebhook("REPLAY", sess.ID, "Payment already recorded by concurrent delivery, skipping")
		return nil

	case errors.Is(err, storage.ErrSoldOut):
		return s.handleSoldOut(sess.ID, intent, piID, amount, currency, paymentMethod, release)

	case errors.Is(err, storage.ErrEventNotFound):
		s.log.Error("RECONCILE", fmt.Sprintf("Event %s from session %s metadata does not exist", intent.EventID, sess.ID))
		return s.deadLetter("event not found", "checkout.session.completed", sess.ID, sess.Metadata)

	default:
		release()
		return fmt.Errorf("reconciliation failed for session %s: %w", sess.ID, err)
	}
}

// handleSoldOut runs after the booking transaction rolled back because the
// last ticket went to a concurrent session. The customer's money has
// settled, so a refund is initiated before the delivery is acknowledged; a
// REFUNDED row keeps the audit trail without a booking or a decrement.
func (s *ReconcilerService) handleSoldOut(sessionID string, intent *models.BookingIntent, piID string, amount float64, currency, paymentMethod string, release func()) error {
	s.log.Warn("RECONCILE", fmt.Sprintf("Event %s sold out, session %s lost the last ticket", intent.EventID, sessionID))

	if piID == "" {
		// Settled money with no payment intent to refund against. Needs a
		// human.
		return s.deadLetter("sold out, no payment intent to refund", "checkout.session.completed", sessionID, intent.ToMetadata())
	}

	_, err := s.gateway.CreateRefund(&stripe.RefundParams{
		PaymentIntent: stripe.String(piID),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	})
	if err != nil {
		release()
		return fmt.Errorf("refund initiation failed for session %s: %w", sessionID, err)
	}
	s.log.LogPayment("REFUND_INITIATED", piID, fmt.Sprintf("Refund initiated for sold-out session %s", sessionID))

	now := time.Now()
	audit := &models.Payment{
		PaymentID:             utils.GeneratePaymentID(),
		StripeSessionID:       sessionID,
		StripePaymentIntentID: piID,
		Amount:                amount,
		Currency:              currency,
		Status:                models.StatusRefunded,
		PaymentMethod:         paymentMethod,
		UserID:                intent.UserID,
		CustomerEmail:         intent.UserEmail,
		CustomerName:          intent.UserName,
		EventID:               intent.EventID,
		EventTitle:            intent.EventTitle,
		TicketPrice:           intent.TicketPrice,
		PaymentDate:           now,
		ErrorMessage:          "event sold out - payment refunded",
	}
	if err := s.store.SavePayment(audit); err != nil && !errors.Is(err, storage.ErrDuplicateSession) {
		release()
		return fmt.Errorf("failed to record refunded payment for session %s: %w", sessionID, err)
	}

	s.publishPaymentEvent("payment.refunded", audit)
	return s.deadLetter("event sold out", "checkout.session.completed", sessionID, intent.ToMetadata())
}

func (s *ReconcilerService) handlePaymentFailed(ctx context.Context, pi *stripe.PaymentIntent) error {
	s.log.LogWebhook("FAILED", pi.ID, "Handling failed payment intent")

	intent, err := models.BookingIntentFromMetadata(pi.Metadata)
	if err != nil {
		s.log.Error("RECONCILE", fmt.Sprintf("Payment intent %s has no event id in metadata", pi.ID))
		return s.deadLetter("missing event id in metadata", "payment_intent.payment_failed", pi.ID, pi.Metadata)
	}

	errMsg := "Payment failed"
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		errMsg = pi.LastPaymentError.Msg
	}
	paymentMethod := "card"
	if len(pi.PaymentMethodTypes) > 0 {
		paymentMethod = pi.PaymentMethodTypes[0]
	}
	currency := "usd"
	if pi.Currency != "" {
		currency = string(pi.Currency)
	}

	payment := &models.Payment{
		PaymentID:             utils.GeneratePaymentID(),
		StripeSessionID:       pi.ID,
		StripePaymentIntentID: pi.ID,
		Amount:                float64(pi.Amount) / 100.0,
		Currency:              currency,
		Status:                models.StatusFailed,
		PaymentMethod:         paymentMethod,
		UserID:                intent.UserID,
		CustomerEmail:         intent.UserEmail,
		CustomerName:          intent.UserName,
		EventID:               intent.EventID,
		EventTitle:            intent.EventTitle,
		TicketPrice:           intent.TicketPrice,
		ErrorMessage:          errMsg,
	}

	return s.recordFailure(payment, "payment intent", pi.ID)
}

func (s *ReconcilerService) handleSessionExpired(ctx context.Context, sess *stripe.CheckoutSession) error {
	s.log.LogWebhook("EXPIRED", sess.ID, "Handling expired checkout session")

	intent, err := models.BookingIntentFromMetadata(sess.Metadata)
	if err != nil {
		s.log.Error("RECONCILE", fmt.Sprintf("Expired session %s has no event id in metadata", sess.ID))
		return s.deadLetter("missing event id in metadata", "checkout.session.expired", sess.ID, sess.Metadata)
	}
	if sess.CustomerDetails != nil {
		if intent.UserEmail == "" {
			intent.UserEmail = sess.CustomerDetails.Email
		}
		if intent.UserName == "" {
			intent.UserName = sess.CustomerDetails.Name
		}
	}

	amount := intent.TicketPrice
	if sess.AmountTotal > 0 {
		amount = float64(sess.AmountTotal) / 100.0
	}
	currency := "usd"
	if sess.Currency != "" {
		currency = string(sess.Currency)
	}
	piID := ""
	if sess.PaymentIntent != nil {
		piID = sess.PaymentIntent.ID
	}

	payment := &models.Payment{
		PaymentID:             utils.GeneratePaymentID(),
		StripeSessionID:       sess.ID,
		StripePaymentIntentID: piID,
		Amount:                amount,
		Currency:              currency,
		Status:                models.StatusFailed,
		UserID:                intent.UserID,
		CustomerEmail:         intent.UserEmail,
		CustomerName:          intent.UserName,
		EventID:               intent.EventID,
		EventTitle:            intent.EventTitle,
		TicketPrice:           intent.TicketPrice,
		ErrorMessage:          "checkout session expired",
	}

	return s.recordFailure(payment, "session", sess.ID)
}

// recordFailure persists a terminal FAILED row. No booking, no inventory
// change. A duplicate means an earlier delivery already recorded the
// failure.
func (s *ReconcilerService) recordFailure(payment *models.Payment, kind, id string) error {
	err := s.store.SavePayment(payment)
	switch {
	case err == nil:
		s.log.LogPayment("FAILED_RECORDED", payment.PaymentID, fmt.Sprintf("Failed payment recorded for %s %s", kind, id))
		s.publishPaymentEvent("payment.failed", payment)
		return nil
	case errors.Is(err, storage.ErrDuplicateSession):
		s.log.LogWebhook("REPLAY", id, "Failure already recorded, skipping")
		return nil
	default:
		return fmt.Errorf("failed to record failed payment for %s %s: %w", kind, id, err)
	}
}

func (s *ReconcilerService) publishPaymentEvent(eventType string, payment *models.Payment) {
	event := &models.PaymentEvent{
		Type:      eventType,
		PaymentID: payment.PaymentID,
		Payment:   payment,
		Timestamp: time.Now(),
	}

	if err := s.producer.PublishPaymentEvent(event); err != nil {
		// Reconciliation already committed; a publish failure must not fail
		// the delivery.
		s.log.Error("KAFKA", fmt.Sprintf("Failed to publish %s for payment %s: %v", eventType, payment.PaymentID, err))
	}
}

// deadLetter acknowledges the delivery (nil return) while routing the event
// to the manual reconciliation topic. If even that publish fails, the error
// propagates so the provider redelivers rather than the event being lost.
func (s *ReconcilerService) deadLetter(reason, eventType, sessionID string, metadata map[string]string) error {
	dl := &models.DeadLetter{
		Reason:    reason,
		EventType: eventType,
		SessionID: sessionID,
		Metadata:  metadata,
		Timestamp: time.Now(),
	}
	if err := s.producer.PublishDeadLetter(dl); err != nil {
		return fmt.Errorf("failed to dead-letter event for session %s: %w", sessionID, err)
	}
	s.log.LogWebhook("DEAD_LETTER", sessionID, fmt.Sprintf("Delivery acknowledged but not processed: %s", reason))
	return nil
}
