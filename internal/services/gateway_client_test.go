package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestCreateChargeIntentRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		var req ChargeIntentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.IdempotencyKey != "milestone:m-1" {
			t.Errorf("idempotency key = %q, want milestone:m-1", req.IdempotencyKey)
		}
		if req.Amount != "1500.00" {
			t.Errorf("amount = %q, want 1500.00", req.Amount)
		}

		json.NewEncoder(w).Encode(ChargeIntentResult{
			IntentID:   "int_123",
			PaymentURL: "https://pay.example/int_123",
			Status:     "requires_payment",
		})
	}))
	defer srv.Close()

	client := NewGatewayClient(srv.URL, 2, zap.NewNop())
	result, err := client.CreateChargeIntent(context.Background(), "m-1", decimal.RequireFromString("1500"), "EUR", "deposit")
	if err != nil {
		t.Fatalf("CreateChargeIntent() = %v", err)
	}
	if result.IntentID != "int_123" {
		t.Errorf("intent id = %q, want int_123", result.IntentID)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("gateway called %d times, want 2", got)
	}
}

func TestCreateChargeIntentDoesNotRetryRejections(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewGatewayClient(srv.URL, 3, zap.NewNop())
	_, err := client.CreateChargeIntent(context.Background(), "m-1", decimal.RequireFromString("10"), "EUR", "")
	if err == nil {
		t.Fatal("CreateChargeIntent() should fail on 422")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("gateway called %d times, want 1", got)
	}
}

func TestRefundIdempotencyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RefundRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.IdempotencyKey != "refund:m-2" {
			t.Errorf("idempotency key = %q, want refund:m-2", req.IdempotencyKey)
		}
		if req.IntentID != "int_9" {
			t.Errorf("intent id = %q, want int_9", req.IntentID)
		}
		json.NewEncoder(w).Encode(RefundResult{RefundTxID: "re_1", Status: "succeeded"})
	}))
	defer srv.Close()

	client := NewGatewayClient(srv.URL, 0, zap.NewNop())
	result, err := client.Refund(context.Background(), "m-2", "int_9", decimal.RequireFromString("250.50"), "EUR")
	if err != nil {
		t.Fatalf("Refund() = %v", err)
	}
	if result.RefundTxID != "re_1" {
		t.Errorf("refund tx = %q, want re_1", result.RefundTxID)
	}
}
