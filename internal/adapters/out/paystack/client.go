// Package paystack implements the payment gateway port against the
// Paystack REST API, plus the HMAC verifier for its webhooks.
package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

const (
	defaultBaseURL = "https://api.paystack.co"
	clientTimeout  = 30 * time.Second
	serviceName    = "paystack"
)

// Client talks to the Paystack API. Amounts cross the wire in subunits
// (kobo for NGN), so every request converts from the major unit.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
	logger    *slog.Logger
}

var _ ports.PaymentGateway = (*Client)(nil)

// NewClient creates a gateway client authenticated with the given secret
// key. An empty baseURL targets the production API.
func NewClient(baseURL, secretKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		http:      &http.Client{Timeout: clientTimeout},
		logger:    logger.With("component", "paystack_client"),
	}
}

// envelope is the common Paystack response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) Initialize(ctx context.Context, req ports.InitializeRequest) (ports.PaymentInitialization, error) {
	body := map[string]any{
		"email":     req.Email,
		"amount":    toSubunits(req.Amount),
		"currency":  req.Currency,
		"reference": req.Reference,
	}
	if req.CallbackURL != "" {
		body["callback_url"] = req.CallbackURL
	}

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if _, err := c.call(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return ports.PaymentInitialization{}, err
	}

	return ports.PaymentInitialization{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

func (c *Client) Verify(ctx context.Context, reference string) (ports.GatewayVerification, error) {
	var data struct {
		ID              int64      `json:"id"`
		Status          string     `json:"status"`
		Amount          int64      `json:"amount"`
		GatewayResponse string     `json:"gateway_response"`
		PaidAt          *time.Time `json:"paid_at"`
	}
	raw, err := c.call(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &data)
	if err != nil {
		return ports.GatewayVerification{}, err
	}

	verification := ports.GatewayVerification{
		Succeeded:     data.Status == "success",
		TransactionID: fmt.Sprintf("%d", data.ID),
		Amount:        fromSubunits(data.Amount),
		PaidAt:        data.PaidAt,
		RawResponse:   raw,
	}
	if !verification.Succeeded {
		verification.FailureReason = data.GatewayResponse
		if verification.FailureReason == "" {
			verification.FailureReason = data.Status
		}
	}
	return verification, nil
}

func (c *Client) Refund(ctx context.Context, transactionID string, reason string) error {
	body := map[string]any{
		"transaction":   transactionID,
		"merchant_note": reason,
	}
	_, err := c.call(ctx, http.MethodPost, "/refund", body, nil)
	return err
}

// call performs one API round trip. A declined envelope (status false) is
// an upstream error too: the caller cannot tell a gateway outage from a
// gateway refusal, and both leave local state untouched.
func (c *Client) call(ctx context.Context, method, path string, body any, out any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errs.NewUpstreamError(serviceName, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errs.NewUpstreamError(serviceName, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.NewUpstreamError(serviceName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.NewUpstreamError(serviceName, err)
	}

	var wrapped envelope
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, errs.NewUpstreamError(serviceName,
			fmt.Errorf("decode response (http %d): %w", resp.StatusCode, err))
	}
	if resp.StatusCode >= http.StatusBadRequest || !wrapped.Status {
		c.logger.Warn("gateway declined request",
			"method", method, "path", path,
			"http_status", resp.StatusCode, "message", wrapped.Message)
		return nil, errs.NewUpstreamError(serviceName,
			fmt.Errorf("http %d: %s", resp.StatusCode, wrapped.Message))
	}

	if out != nil {
		if err := json.Unmarshal(wrapped.Data, out); err != nil {
			return nil, errs.NewUpstreamError(serviceName, err)
		}
	}
	return raw, nil
}

func toSubunits(amount float64) int64 {
	return int64(amount*100 + 0.5)
}

func fromSubunits(amount int64) float64 {
	return float64(amount) / 100
}

// WebhookVerifier checks the x-paystack-signature header: an HMAC-SHA512
// of the raw request body under the account secret key.
type WebhookVerifier struct {
	secretKey []byte
}

var _ ports.WebhookVerifier = WebhookVerifier{}

func NewWebhookVerifier(secretKey string) WebhookVerifier {
	return WebhookVerifier{secretKey: []byte(secretKey)}
}

func (v WebhookVerifier) VerifySignature(payload []byte, signature string) bool {
	mac := hmac.New(sha512.New, v.secretKey)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
