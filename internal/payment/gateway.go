package payment

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrProviderRejected = errors.New("payment provider rejected the request")
	// ErrProviderUnavailable marks failures a later retry may not repeat:
	// transport errors, timeouts, 429 and 5xx answers.
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)

// Gateway is the payment provider collaborator.
type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error)
	Verify(ctx context.Context, reference string) (*Verification, error)
	VerifySignature(payload []byte, signature string) error
}

type InitializeRequest struct {
	Reference   string
	Email       string
	Amount      int64 // minor units
	Currency    string
	CallbackURL string
	Metadata    map[string]any
}

type InitializeResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
	AccessCode       string `json:"accessCode"`
	Reference        string `json:"reference"`
}

// Verification is the provider's view of a transaction. Raw is the provider
// payload kept verbatim as the audit record.
type Verification struct {
	Success   bool
	Status    string
	Reference string
	Amount    int64
	Channel   string
	Raw       json.RawMessage
}
