package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/your-org/storefront/internal/pkg/apperror"
)

const testWebhookSecret = "whsec_test_secret"

func newTestStripe(t *testing.T, handler http.HandlerFunc) *StripeProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
	})
	return NewStripeProvider(StripeConfig{SecretKey: "sk_test_123", Backend: backend})
}

func sign(t *testing.T, payload string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  testWebhookSecret,
	})
	return signed.Header
}

func TestStripeCreateSession(t *testing.T) {
	var form map[string][]string
	provider := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.test/pay/cs_test_1"}`))
	})

	session, err := provider.CreateSession(context.Background(), SessionRequest{
		CorrelationID:   "order-1",
		LineItems:       []LineItem{{Name: "Mug", UnitAmount: 1000, Quantity: 2}, {Name: "Tea", UnitAmount: 500, Quantity: 1}},
		TotalMinorUnits: 2500,
		Currency:        "USD",
		SuccessURL:      "https://shop.test/checkout/success?order=order-1",
		CancelURL:       "https://shop.test/cart",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "https://checkout.stripe.test/pay/cs_test_1", session.RedirectURL)

	assert.Equal(t, []string{"payment"}, form["mode"])
	assert.Equal(t, []string{"order-1"}, form["client_reference_id"])
	assert.Equal(t, []string{"order-1"}, form["metadata[order_id]"])
	assert.Equal(t, []string{"order-1"}, form["payment_intent_data[metadata][order_id]"])
	assert.Equal(t, []string{"usd"}, form["line_items[0][price_data][currency]"])
	assert.Equal(t, []string{"1000"}, form["line_items[0][price_data][unit_amount]"])
	assert.Equal(t, []string{"2"}, form["line_items[0][quantity]"])
}

func TestStripeCreateSessionProviderError(t *testing.T) {
	provider := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad currency"}}`))
	})

	_, err := provider.CreateSession(context.Background(), SessionRequest{
		CorrelationID: "order-1",
		LineItems:     []LineItem{{Name: "Mug", UnitAmount: 1000, Quantity: 1}},
		Currency:      "usd",
	})
	require.Error(t, err)
	assert.Equal(t, apperror.CodeProvider, apperror.CodeOf(err))
}

func TestStripeVerifyAndParseEvent(t *testing.T) {
	provider := NewStripeProvider(StripeConfig{SecretKey: "sk_test_123"})

	tests := []struct {
		name      string
		payload   string
		wantType  EventType
		wantOrder string
		wantTxn   string
	}{
		{
			name:      "paid checkout session",
			payload:   `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","payment_status":"paid","payment_intent":"pi_1","client_reference_id":"order-1","metadata":{"order_id":"order-1"}}}}`,
			wantType:  EventPaymentSucceeded,
			wantOrder: "order-1",
			wantTxn:   "pi_1",
		},
		{
			name:      "completed but unpaid is ignored",
			payload:   `{"id":"evt_2","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_2","object":"checkout.session","payment_status":"unpaid","metadata":{"order_id":"order-2"}}}}`,
			wantType:  EventIgnored,
			wantOrder: "order-2",
			wantTxn:   "cs_2",
		},
		{
			name:      "async success falls back to client reference",
			payload:   `{"id":"evt_3","object":"event","type":"checkout.session.async_payment_succeeded","data":{"object":{"id":"cs_3","object":"checkout.session","payment_status":"paid","client_reference_id":"order-3"}}}`,
			wantType:  EventPaymentSucceeded,
			wantOrder: "order-3",
			wantTxn:   "cs_3",
		},
		{
			name:      "async failure",
			payload:   `{"id":"evt_4","object":"event","type":"checkout.session.async_payment_failed","data":{"object":{"id":"cs_4","object":"checkout.session","payment_intent":"pi_4","metadata":{"order_id":"order-4"}}}}`,
			wantType:  EventPaymentFailed,
			wantOrder: "order-4",
			wantTxn:   "pi_4",
		},
		{
			name:      "declined attempt is ignored",
			payload:   `{"id":"evt_5","object":"event","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_5","object":"payment_intent","metadata":{"order_id":"order-5"}}}}`,
			wantType:  EventIgnored,
			wantOrder: "order-5",
			wantTxn:   "pi_5",
		},
		{
			name:     "expired session is ignored",
			payload:  `{"id":"evt_6","object":"event","type":"checkout.session.expired","data":{"object":{"id":"cs_6","object":"checkout.session","metadata":{"order_id":"order-6"}}}}`,
			wantType: EventIgnored,
		},
		{
			name:     "paid session without correlation is ignored",
			payload:  `{"id":"evt_7","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_7","object":"checkout.session","payment_status":"paid"}}}`,
			wantType: EventIgnored,
			wantTxn:  "cs_7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := provider.VerifyAndParseEvent([]byte(tt.payload), sign(t, tt.payload), testWebhookSecret)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, event.Type)
			assert.Equal(t, tt.wantOrder, event.CorrelationID)
			assert.Equal(t, tt.wantTxn, event.TransactionID)
			assert.NotEmpty(t, event.ID)
		})
	}
}

func TestStripeVerifyRejectsBadSignature(t *testing.T) {
	provider := NewStripeProvider(StripeConfig{SecretKey: "sk_test_123"})
	payload := `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`

	_, err := provider.VerifyAndParseEvent([]byte(payload), sign(t, payload), "whsec_other")
	assert.ErrorIs(t, err, ErrVerification)

	_, err = provider.VerifyAndParseEvent([]byte(payload), "", testWebhookSecret)
	assert.ErrorIs(t, err, ErrVerification)

	tampered := `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_2"}}}`
	_, err = provider.VerifyAndParseEvent([]byte(tampered), sign(t, payload), testWebhookSecret)
	assert.ErrorIs(t, err, ErrVerification)
}

func TestMockProviderSignature(t *testing.T) {
	m := NewMockProvider()

	_, err := m.VerifyAndParseEvent([]byte(`{}`), "wrong", "secret")
	assert.ErrorIs(t, err, ErrVerification)

	event, err := m.VerifyAndParseEvent([]byte(`{"ID":"evt_1","Type":"payment_succeeded","CorrelationID":"o-1","TransactionID":"pi_1"}`), "secret", "secret")
	require.NoError(t, err)
	assert.Equal(t, EventPaymentSucceeded, event.Type)
	assert.Equal(t, "o-1", event.CorrelationID)

	session, err := m.CreateSession(context.Background(), SessionRequest{CorrelationID: "o-1", SuccessURL: "https://shop.test/ok"})
	require.NoError(t, err)
	assert.Equal(t, "https://shop.test/ok", session.RedirectURL)
	assert.Equal(t, 1, m.SessionCount())
}
