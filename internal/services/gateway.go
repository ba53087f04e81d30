package services

import (
	"errors"
	"fmt"
	"os"

	"eventify-payments/internal/logger"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

var (
	ErrStripeAPIError         = errors.New("stripe API error")
	ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")
)

// StripeGateway is the narrow surface of the Stripe API this service uses.
// Services depend on it instead of *client.API so tests can substitute fakes.
type StripeGateway interface {
	CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetPaymentIntent(id string) (*stripe.PaymentIntent, error)
	CreateRefund(params *stripe.RefundParams) (*stripe.Refund, error)
}

type stripeGateway struct {
	client *client.API
	log    *logger.Logger
}

func NewStripeGateway(log *logger.Logger) (StripeGateway, error) {
	stripeKey := os.Getenv("STRIPE_SECRET_KEY")
	if stripeKey == "" {
		log.Error("STRIPE", "STRIPE_SECRET_KEY environment variable not set")
		return nil, ErrStripeClientInitFailed
	}

	sc := client.New(stripeKey, nil)
	if sc == nil {
		log.Error("STRIPE", "Failed to initialize Stripe client")
		return nil, ErrStripeClientInitFailed
	}

	log.Info("STRIPE", "Stripe client initialized successfully")
	return &stripeGateway{client: sc, log: log}, nil
}

func (g *stripeGateway) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	sess, err := g.client.CheckoutSessions.New(params)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to create checkout session: %v", err))
		return nil, fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}
	return sess, nil
}

func (g *stripeGateway) GetCheckoutSession(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	sess, err := g.client.CheckoutSessions.Get(id, params)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to retrieve checkout session %s: %v", id, err))
		return nil, fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}
	return sess, nil
}

func (g *stripeGateway) GetPaymentIntent(id string) (*stripe.PaymentIntent, error) {
	pi, err := g.client.PaymentIntents.Get(id, nil)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to retrieve payment intent %s: %v", id, err))
		return nil, fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}
	return pi, nil
}

func (g *stripeGateway) CreateRefund(params *stripe.RefundParams) (*stripe.Refund, error) {
	refund, err := g.client.Refunds.New(params)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Refund failed: %v", err))
		return nil, fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}
	return refund, nil
}
