package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/example/storefront/pkg/config"
	"go.uber.org/zap"
)

// Provider payment statuses as reported by the card API.
const (
	ProviderStatusSucceeded = "succeeded"
	ProviderStatusPending   = "pending"
	ProviderStatusCanceled  = "canceled"
)

// CardClient talks to the hosted card-payment REST API.
type CardClient struct {
	config     *config.CardAPIConfig
	httpClient *http.Client
	logger     *zap.Logger
}

func NewCardClient(cfg *config.CardAPIConfig, logger *zap.Logger) *CardClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CardClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *CardClient) Enabled() bool {
	return c.config.BaseURL != ""
}

// CreatedPayment is the provider's view of a newly created payment.
type CreatedPayment struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	ConfirmationURL string `json:"confirmation_url"`
}

type createPaymentRequest struct {
	Amount       amountPayload       `json:"amount"`
	Capture      bool                `json:"capture"`
	Description  string              `json:"description"`
	Confirmation confirmationPayload `json:"confirmation"`
	Metadata     map[string]string   `json:"metadata"`
}

type amountPayload struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type confirmationPayload struct {
	Type      string `json:"type"`
	ReturnURL string `json:"return_url"`
}

type paymentResponse struct {
	ID           string        `json:"id"`
	Status       string        `json:"status"`
	Confirmation *confirmation `json:"confirmation,omitempty"`
}

type confirmation struct {
	ConfirmationURL string `json:"confirmation_url"`
}

// CreatePayment registers a payment with the provider and returns the id and
// the confirmation URL the customer is redirected to. The order id doubles
// as the provider-side idempotence key.
func (c *CardClient) CreatePayment(ctx context.Context, orderID string, amount int64, description string) (*CreatedPayment, error) {
	payload := createPaymentRequest{
		Amount: amountPayload{
			Value:    fmt.Sprintf("%d.00", amount),
			Currency: c.config.Currency,
		},
		Capture:     true,
		Description: description,
		Confirmation: confirmationPayload{
			Type:      "redirect",
			ReturnURL: c.config.ReturnURL,
		},
		Metadata: map[string]string{"order_id": orderID},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", orderID)
	req.SetBasicAuth(c.config.ShopID, c.config.SecretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("Payment provider rejected create request",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", data))
		return nil, fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}

	var parsed paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode payment response: %w", err)
	}

	created := &CreatedPayment{
		ID:     parsed.ID,
		Status: parsed.Status,
	}
	if parsed.Confirmation != nil {
		created.ConfirmationURL = parsed.Confirmation.ConfirmationURL
	}

	c.logger.Info("Payment created",
		zap.String("order_id", orderID),
		zap.String("payment_id", created.ID),
		zap.String("status", created.Status))

	return created, nil
}

// FetchStatus asks the provider for the current payment status. Exactly one
// request, no retry; the caller decides what a non-final status means.
func (c *CardClient) FetchStatus(ctx context.Context, paymentID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/payments/"+paymentID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build status request: %w", err)
	}
	req.SetBasicAuth(c.config.ShopID, c.config.SecretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("payment provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}

	var parsed paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode status response: %w", err)
	}

	return parsed.Status, nil
}
