package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PaystackClient talks to the Paystack transaction API.
type PaystackClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewPaystackClient creates a Paystack gateway client with a bounded
// request timeout.
func NewPaystackClient(baseURL, secretKey string, timeout time.Duration) *PaystackClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PaystackClient{
		baseURL:    baseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (p *PaystackClient) Name() string { return "paystack" }

type paystackInitRequest struct {
	Reference   string            `json:"reference"`
	Amount      int64             `json:"amount"` // kobo
	Email       string            `json:"email"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type paystackInitResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status  string    `json:"status"` // "success", "failed", "abandoned"
		Amount  int64     `json:"amount"` // kobo
		PaidAt  time.Time `json:"paid_at"`
		Channel string    `json:"channel"`
	} `json:"data"`
}

// InitializeSession creates a hosted checkout session via
// POST /transaction/initialize.
func (p *PaystackClient) InitializeSession(ctx context.Context, req SessionRequest) (*Session, error) {
	body, err := json.Marshal(paystackInitRequest{
		Reference:   req.Reference,
		Amount:      req.AmountKobo,
		Email:       req.Email,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal initialize request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: initialize: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: initialize returned %d: %s", ErrUnavailable, resp.StatusCode, raw)
	}

	var out paystackInitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode initialize response: %v", ErrUnavailable, err)
	}
	if !out.Status || out.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: initialize rejected: %s", ErrUnavailable, out.Message)
	}

	return &Session{
		AuthorizationURL: out.Data.AuthorizationURL,
		ProviderRef:      out.Data.AccessCode,
	}, nil
}

// VerifyTransaction checks a transaction's outcome via
// GET /transaction/verify/:reference.
func (p *PaystackClient) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.secretKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: verify: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	// Paystack returns 404 for unknown references — a confirmed
	// non-payment, not an outage.
	if resp.StatusCode == http.StatusNotFound {
		return &VerifyResult{Status: StatusFailed}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: verify returned %d: %s", ErrUnavailable, resp.StatusCode, raw)
	}

	var out paystackVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode verify response: %v", ErrUnavailable, err)
	}

	result := &VerifyResult{
		AmountPaidKobo: out.Data.Amount,
		PaidAt:         out.Data.PaidAt,
		Channel:        out.Data.Channel,
	}
	if out.Data.Status == "success" {
		result.Status = StatusSuccess
	} else {
		result.Status = StatusFailed
	}
	return result, nil
}
