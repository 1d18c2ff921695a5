// internal/domain/payment/mock.go
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockProvider is a payment provider for tests and local development.
// Sessions are fabricated in memory; events are JSON-encoded Event values
// whose signature header must equal the secret.
type MockProvider struct {
	// CreateSessionFunc overrides session creation
	CreateSessionFunc func(ctx context.Context, req SessionRequest) (*Session, error)

	// VerifyAndParseEventFunc overrides event verification
	VerifyAndParseEventFunc func(payload []byte, signatureHeader string, secret string) (*Event, error)

	mu       sync.Mutex
	Sessions []SessionRequest
	CallLog  []string
}

// NewMockProvider creates a new mock provider
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Name() string { return "mock" }

// CreateSession records req and returns a session pointing at its success URL
func (m *MockProvider) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateSession(%s, %d)", req.CorrelationID, req.TotalMinorUnits))
	m.Sessions = append(m.Sessions, req)
	m.mu.Unlock()

	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, req)
	}

	return &Session{
		ID:          "cs_mock_" + uuid.New().String(),
		RedirectURL: req.SuccessURL,
	}, nil
}

// VerifyAndParseEvent accepts a payload signed with the secret itself
func (m *MockProvider) VerifyAndParseEvent(payload []byte, signatureHeader string, secret string) (*Event, error) {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, "VerifyAndParseEvent")
	m.mu.Unlock()

	if m.VerifyAndParseEventFunc != nil {
		return m.VerifyAndParseEventFunc(payload, signatureHeader, secret)
	}

	if secret == "" || signatureHeader != secret {
		return nil, ErrVerification
	}
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, ErrVerification
	}
	if event.Type == "" {
		event.Type = EventIgnored
	}
	return &event, nil
}

// SessionCount returns how many sessions were requested
func (m *MockProvider) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sessions)
}

// LastSession returns the most recent session request
func (m *MockProvider) LastSession() (SessionRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sessions) == 0 {
		return SessionRequest{}, false
	}
	return m.Sessions[len(m.Sessions)-1], true
}
