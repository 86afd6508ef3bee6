package ports

import (
	"context"
	"time"
)

// InitializeRequest carries what the gateway needs to open a checkout
// session for a charge.
type InitializeRequest struct {
	Email       string
	Amount      float64
	Currency    string
	Reference   string
	CallbackURL string
}

// PaymentInitialization is the gateway's answer to a successful
// initialization: where to send the customer and the reference to verify
// later.
type PaymentInitialization struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// GatewayVerification is the classified outcome of a charge lookup.
type GatewayVerification struct {
	Succeeded     bool
	TransactionID string
	Amount        float64
	PaidAt        *time.Time
	FailureReason string
	RawResponse   []byte
}

// PaymentGateway is the outbound contract to the external payment provider.
// All calls are bounded by the context and the implementation's client
// timeout; a timeout surfaces as *errs.UpstreamError and leaves the local
// payment Pending, safe to retry.
type PaymentGateway interface {
	// Initialize opens a checkout session for the given charge.
	Initialize(ctx context.Context, req InitializeRequest) (PaymentInitialization, error)

	// Verify looks up the charge by reference and classifies the outcome.
	Verify(ctx context.Context, reference string) (GatewayVerification, error)

	// Refund asks the gateway to return a settled charge. Acceptance here
	// only means the refund is in flight; the success webhook finalizes it.
	Refund(ctx context.Context, transactionID string, reason string) error
}

// WebhookVerifier authenticates inbound gateway webhooks.
type WebhookVerifier interface {
	// VerifySignature reports whether signature matches the HMAC of the
	// raw payload under the configured secret.
	VerifySignature(payload []byte, signature string) bool
}
