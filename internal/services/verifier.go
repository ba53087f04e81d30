package services

import (
	"errors"
	"fmt"

	"eventify-payments/internal/logger"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// WebhookVerifier validates inbound webhook payloads against the signing
// secret. Verification runs over the exact raw request bytes; re-serializing
// the body first would break the signature.
type WebhookVerifier struct {
	secret string
	log    *logger.Logger
}

func NewWebhookVerifier(secret string, log *logger.Logger) (*WebhookVerifier, error) {
	if secret == "" {
		log.Error("WEBHOOK", "STRIPE_WEBHOOK_SECRET environment variable not set")
		return nil, errors.New("webhook signing secret not configured")
	}
	return &WebhookVerifier{secret: secret, log: log}, nil
}

// VerifyAndParse is a pure function of (body, signature header, secret).
// Any failure is terminal: the caller must answer 4xx so the provider does
// not retry a payload that can never verify.
func (v *WebhookVerifier) VerifyAndParse(payload []byte, sigHeader string) (*stripe.Event, error) {
	if sigHeader == "" {
		v.log.LogSecurity("WEBHOOK_REJECTED", "missing Stripe-Signature header")
		return nil, ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		v.log.LogSecurity("WEBHOOK_REJECTED", fmt.Sprintf("signature verification failed: %v", err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	v.log.LogWebhook("VERIFIED", event.ID, fmt.Sprintf("Event type %s", event.Type))
	return &event, nil
}
