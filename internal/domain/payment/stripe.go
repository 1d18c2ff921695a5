// internal/domain/payment/stripe.go
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/your-org/storefront/internal/pkg/apperror"
)

// MetadataOrderKey is the metadata key carrying the order's public id on
// both the checkout session and its payment intent.
const MetadataOrderKey = "order_id"

// StripeConfig contains configuration for the Stripe provider
type StripeConfig struct {
	// SecretKey is the Stripe secret key (sk_test_... or sk_live_...)
	SecretKey string

	// Backend overrides the API backend; nil uses the SDK default
	Backend stripe.Backend
}

// StripeProvider creates Checkout Sessions and verifies Stripe webhooks.
// It holds its own key and backend; the SDK's global key is never set.
type StripeProvider struct {
	sessions session.Client
}

// NewStripeProvider creates a new Stripe provider
func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	backend := cfg.Backend
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	return &StripeProvider{
		sessions: session.Client{B: backend, Key: cfg.SecretKey},
	}
}

func (p *StripeProvider) Name() string { return "stripe" }

// CreateSession creates a payment-mode Checkout Session for the order
func (p *StripeProvider) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if req.CorrelationID == "" || len(req.LineItems) == 0 {
		return nil, apperror.Wrap(apperror.CodeProvider, errors.New("correlation id and line items are required"), ErrSessionCreation.Message())
	}

	currency := strings.ToLower(req.Currency)
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		ClientReferenceID:  stripe.String(req.CorrelationID),
		Metadata:           map[string]string{MetadataOrderKey: req.CorrelationID},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{MetadataOrderKey: req.CorrelationID},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	s, err := p.sessions.New(params)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeProvider, describeStripeError(err), ErrSessionCreation.Message())
	}

	return &Session{ID: s.ID, RedirectURL: s.URL}, nil
}

// VerifyAndParseEvent checks the Stripe-Signature header against secret and
// maps the event to a provider-neutral Event.
func (p *StripeProvider) VerifyAndParseEvent(payload []byte, signatureHeader string, secret string) (*Event, error) {
	if signatureHeader == "" || secret == "" {
		return nil, ErrVerification
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeVerification, err, ErrVerification.Message())
	}
	if event.Data == nil {
		return nil, apperror.Wrap(apperror.CodeVerification, errors.New("event has no data"), ErrVerification.Message())
	}

	out := &Event{
		ID:           event.ID,
		Type:         EventIgnored,
		ProviderType: string(event.Type),
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, apperror.Wrap(apperror.CodeVerification, err, "malformed checkout session payload")
		}
		out.CorrelationID = correlationOf(cs.Metadata, cs.ClientReferenceID)
		out.TransactionID = cs.ID
		if cs.PaymentIntent != nil && cs.PaymentIntent.ID != "" {
			out.TransactionID = cs.PaymentIntent.ID
		}

		switch {
		case event.Type == stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
			out.Type = EventPaymentFailed
		case event.Type == stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
			out.Type = EventPaymentSucceeded
		case cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
			out.Type = EventPaymentSucceeded
		default:
			// completed but unpaid: an async method is still settling
			out.Type = EventIgnored
		}

	case stripe.EventTypePaymentIntentPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, apperror.Wrap(apperror.CodeVerification, err, "malformed payment intent payload")
		}
		// a declined attempt inside a session that is still open; the buyer
		// can retry with another method, so the order stays Pending
		out.CorrelationID = correlationOf(pi.Metadata, "")
		out.TransactionID = pi.ID
	}

	if out.Type != EventIgnored && out.CorrelationID == "" {
		// not one of ours; nothing to reconcile
		out.Type = EventIgnored
	}

	return out, nil
}

func correlationOf(metadata map[string]string, fallback string) string {
	if id := metadata[MetadataOrderKey]; id != "" {
		return id
	}
	return fallback
}

func describeStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return fmt.Errorf("stripe: %s (code: %s, status: %d, request: %s): %w",
			stripeErr.Msg, stripeErr.Code, stripeErr.HTTPStatusCode, stripeErr.RequestID, err)
	}
	return err
}
