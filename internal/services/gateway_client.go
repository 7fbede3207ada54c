package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GatewayClient talks to the external payment gateway. Charge intents
// carry an idempotency key derived from the milestone id so a retried
// request never double-charges.
type GatewayClient struct {
	baseURL    string
	maxRetries int
	httpClient *http.Client
	log        *zap.Logger
}

func NewGatewayClient(baseURL string, maxRetries int, log *zap.Logger) *GatewayClient {
	return &GatewayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxRetries: maxRetries,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

type ChargeIntentRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Description    string `json:"description,omitempty"`
}

type ChargeIntentResult struct {
	IntentID   string `json:"intent_id"`
	PaymentURL string `json:"payment_url"`
	Status     string `json:"status"`
}

func (c *GatewayClient) CreateChargeIntent(ctx context.Context, milestoneID string, amount decimal.Decimal, currency, description string) (*ChargeIntentResult, error) {
	req := ChargeIntentRequest{
		IdempotencyKey: "milestone:" + milestoneID,
		Amount:         amount.StringFixed(2),
		Currency:       currency,
		Description:    description,
	}
	var result ChargeIntentResult
	if err := c.post(ctx, "/v1/intents", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type RefundRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	IntentID       string `json:"intent_id"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
}

type RefundResult struct {
	RefundTxID string `json:"refund_tx_id"`
	Status     string `json:"status"`
}

func (c *GatewayClient) Refund(ctx context.Context, milestoneID, intentID string, amount decimal.Decimal, currency string) (*RefundResult, error) {
	req := RefundRequest{
		IdempotencyKey: "refund:" + milestoneID,
		IntentID:       intentID,
		Amount:         amount.StringFixed(2),
		Currency:       currency,
	}
	var result RefundResult
	if err := c.post(ctx, "/v1/refunds", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type PayoutRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	RecipientID    string `json:"recipient_id"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
}

type PayoutResult struct {
	PayoutTxID string `json:"payout_tx_id"`
	Status     string `json:"status"`
}

func (c *GatewayClient) Payout(ctx context.Context, milestoneID, recipientID string, amount decimal.Decimal, currency string) (*PayoutResult, error) {
	req := PayoutRequest{
		IdempotencyKey: "payout:" + milestoneID,
		RecipientID:    recipientID,
		Amount:         amount.StringFixed(2),
		Currency:       currency,
	}
	var result PayoutResult
	if err := c.post(ctx, "/v1/payouts", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// post retries transient failures with linear backoff. 4xx responses
// are not retried, the gateway already rejected the request.
func (c *GatewayClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
			c.log.Warn("retrying gateway request",
				zap.String("path", path),
				zap.Int("attempt", attempt),
			)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(string(body)))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("payment gateway unavailable: %w", err)
			continue
		}

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("payment gateway rejected request (%d): %s", resp.StatusCode, string(b))
		}
		if resp.StatusCode >= 500 {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("payment gateway returned %d: %s", resp.StatusCode, string(b))
			continue
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		return err
	}
	return lastErr
}
