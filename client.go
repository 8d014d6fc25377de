package x402

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultRequestTimeout bounds each facilitator round trip. There are no
// retries; a timed-out call fails the attempt.
const DefaultRequestTimeout = 30 * time.Second

const (
	headerContentType   = "Content-Type"
	mimeApplicationJSON = "application/json"
)

// FacilitatorConfig configures a FacilitatorClient. All fields are
// optional; zero values fall back to the Unibase facilitator with a 30s
// per-call timeout and no logging.
type FacilitatorConfig struct {
	// URL is the facilitator base URL, without the /verify or /settle
	// suffix. Trailing slashes are trimmed.
	URL string

	// HTTPClient overrides the transport. When set, Timeout is ignored.
	HTTPClient *http.Client

	// Timeout applies to each verify/settle call.
	Timeout time.Duration

	// Logger receives protocol milestones. Nil disables logging.
	Logger *slog.Logger
}

// FacilitatorClient drives the two-phase verify/settle exchange with a
// facilitator. It holds no per-payment state; independent attempts may
// share one client concurrently.
type FacilitatorClient struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFacilitatorClient creates a facilitator client. A nil config selects
// all defaults.
func NewFacilitatorClient(config *FacilitatorConfig) *FacilitatorClient {
	if config == nil {
		config = &FacilitatorConfig{}
	}

	url := strings.TrimRight(config.URL, "/")
	if url == "" {
		url = DefaultFacilitatorURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = DefaultRequestTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &FacilitatorClient{
		url:        url,
		httpClient: httpClient,
		logger:     config.Logger,
	}
}

// URL returns the facilitator base URL.
func (c *FacilitatorClient) URL() string { return c.url }

// Verify submits the payment for verification. A facilitator verdict of
// isValid: false is returned in the response, not as an error; Send is
// the helper that treats it as terminal.
func (c *FacilitatorClient) Verify(ctx context.Context, request *PaymentRequest) (*VerifyResponse, error) {
	verifyURL := c.url + "/verify"
	c.log(ctx, "submitting payment for verification", "url", verifyURL)

	raw, err := c.postJSON(ctx, verifyURL, request)
	if err != nil {
		return nil, err
	}

	var response VerifyResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, &FacilitatorError{URL: verifyURL, Status: http.StatusOK, Body: string(raw), Err: err}
	}
	response.Raw = raw
	return &response, nil
}

// Settle submits the payment for on-chain settlement. A settlement that
// the facilitator reports as unsuccessful is a valid terminal outcome,
// returned with Success false and the full response in Raw.
func (c *FacilitatorClient) Settle(ctx context.Context, request *PaymentRequest) (*SettlementResult, error) {
	settleURL := c.url + "/settle"
	c.log(ctx, "submitting payment for settlement", "url", settleURL)

	raw, err := c.postJSON(ctx, settleURL, request)
	if err != nil {
		return nil, err
	}

	var response struct {
		Success     bool   `json:"success"`
		Network     string `json:"network"`
		Transaction string `json:"transaction"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, &FacilitatorError{URL: settleURL, Status: http.StatusOK, Body: string(raw), Err: err}
	}

	return &SettlementResult{
		Success:     response.Success,
		Network:     response.Network,
		Transaction: response.Transaction,
		Raw:         raw,
	}, nil
}

// Send performs the full payment flow: build a fresh authorization,
// verify it, and settle. A rejection during verification returns a
// *RejectionError and /settle is never called. With verifyOnly set the
// flow stops after a successful verification and synthesizes a
// successful result with no transaction, marking Raw with verifyOnly.
func (c *FacilitatorClient) Send(ctx context.Context, cfg *PaymentConfig, verifyOnly bool) (*SettlementResult, error) {
	request, err := BuildPaymentRequest(cfg)
	if err != nil {
		return nil, err
	}

	verifyResponse, err := c.Verify(ctx, request)
	if err != nil {
		return nil, err
	}
	if !verifyResponse.IsValid {
		return nil, &RejectionError{Response: verifyResponse.Raw}
	}
	c.log(ctx, "facilitator accepted payment payload", "payer", verifyResponse.Payer)

	if verifyOnly {
		raw, err := json.Marshal(map[string]any{
			"verifyOnly": true,
			"response":   verifyResponse.Raw,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal verify-only result: %w", err)
		}
		return &SettlementResult{
			Success: true,
			Network: cfg.Network,
			Raw:     raw,
		}, nil
	}

	return c.Settle(ctx, request)
}

// SendPayment builds a client for the config's facilitator and runs the
// verify-then-settle flow once.
func SendPayment(ctx context.Context, cfg *PaymentConfig, verifyOnly bool) (*SettlementResult, error) {
	client := NewFacilitatorClient(&FacilitatorConfig{URL: cfg.FacilitatorURL})
	return client.Send(ctx, cfg, verifyOnly)
}

// postJSON performs one POST round trip and returns the raw response
// body. Any non-2xx status is a FacilitatorError carrying the status and
// body text.
func (c *FacilitatorClient) postJSON(ctx context.Context, url string, body any) (json.RawMessage, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(headerContentType, mimeApplicationJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facilitator request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read facilitator response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &FacilitatorError{URL: url, Status: resp.StatusCode, Body: string(responseBody)}
	}

	return responseBody, nil
}

func (c *FacilitatorClient) log(ctx context.Context, msg string, args ...any) {
	if c.logger != nil {
		c.logger.InfoContext(ctx, msg, args...)
	}
}
