// internal/domain/payment/provider.go
package payment

import (
	"context"

	"github.com/your-org/storefront/internal/pkg/apperror"
)

var (
	// ErrVerification is returned when an incoming event fails signature
	// verification or cannot be parsed. Nothing may be mutated on this path.
	ErrVerification = apperror.New(apperror.CodeVerification, "payment event verification failed")

	// ErrSessionCreation is returned when the provider refuses or fails to
	// create a payment session.
	ErrSessionCreation = apperror.New(apperror.CodeProvider, "payment session could not be created")
)

// EventType is the provider-neutral classification of an event
type EventType string

const (
	EventPaymentSucceeded EventType = "payment_succeeded"
	EventPaymentFailed    EventType = "payment_failed"
	EventIgnored          EventType = "ignored"
)

// LineItem is one priced line sent to the hosted payment page
type LineItem struct {
	Name       string
	UnitAmount int64 // minor units
	Quantity   int64
}

// SessionRequest asks the provider for a hosted payment session.
// CorrelationID is echoed back on every event about this session.
type SessionRequest struct {
	CorrelationID   string
	LineItems       []LineItem
	TotalMinorUnits int64
	Currency        string
	SuccessURL      string
	CancelURL       string
	CustomerEmail   string
}

// Session is the provider entry point the buyer is redirected to
type Session struct {
	ID          string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// Event is a verified provider event
type Event struct {
	ID            string
	Type          EventType
	ProviderType  string
	CorrelationID string
	TransactionID string
}

// Provider is the hosted payment integration
type Provider interface {
	Name() string
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	VerifyAndParseEvent(payload []byte, signatureHeader string, secret string) (*Event, error)
}
