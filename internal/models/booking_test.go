package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestIsValidBookingTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{BookingStatusPendingContract, BookingStatusContractSent, true},
		{BookingStatusContractSent, BookingStatusAwaitingDeposit, true},
		{BookingStatusAwaitingDeposit, BookingStatusDepositPaid, true},
		{BookingStatusDepositPaid, BookingStatusConfirmed, true},
		{BookingStatusConfirmed, BookingStatusInProgress, true},
		{BookingStatusInProgress, BookingStatusCompleted, true},

		// Cancellation and dispute reachable from any non-terminal state
		{BookingStatusPendingContract, BookingStatusCancelled, true},
		{BookingStatusContractSent, BookingStatusCancelled, true},
		{BookingStatusAwaitingDeposit, BookingStatusCancelled, true},
		{BookingStatusDepositPaid, BookingStatusCancelled, true},
		{BookingStatusConfirmed, BookingStatusCancelled, true},
		{BookingStatusInProgress, BookingStatusCancelled, true},
		{BookingStatusPendingContract, BookingStatusDisputed, true},
		{BookingStatusInProgress, BookingStatusDisputed, true},

		// Dispute resolution
		{BookingStatusDisputed, BookingStatusCompleted, true},
		{BookingStatusDisputed, BookingStatusCancelled, true},

		// Invalid jumps
		{BookingStatusPendingContract, BookingStatusConfirmed, false},
		{BookingStatusContractSent, BookingStatusDepositPaid, false},
		{BookingStatusAwaitingDeposit, BookingStatusCompleted, false},
		{BookingStatusCompleted, BookingStatusCancelled, false},
		{BookingStatusCompleted, BookingStatusDisputed, false},
		{BookingStatusCancelled, BookingStatusConfirmed, false},
		{BookingStatusCancelled, BookingStatusDisputed, false},
		{"nonexistent", BookingStatusConfirmed, false},
		{BookingStatusConfirmed, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidBookingTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidBookingTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllBookingStatusesHaveTransitionEntry(t *testing.T) {
	allStatuses := []string{
		BookingStatusPendingContract, BookingStatusContractSent,
		BookingStatusAwaitingDeposit, BookingStatusDepositPaid,
		BookingStatusConfirmed, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusCancelled, BookingStatusDisputed,
	}
	for _, status := range allStatuses {
		if _, ok := ValidBookingTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidBookingTransitions map", status)
		}
	}
}

func TestTerminalBookingStatusesHaveNoTransitions(t *testing.T) {
	for _, status := range []string{BookingStatusCompleted, BookingStatusCancelled} {
		if transitions := ValidBookingTransitions[status]; len(transitions) != 0 {
			t.Errorf("terminal status %q should have no transitions, got %v", status, transitions)
		}
	}
}

func TestCommissionAmount(t *testing.T) {
	b := &Booking{AgreedFee: decimal.RequireFromString("9500"), CommissionBPS: 1200}
	got := b.CommissionAmount()
	if !got.Equal(decimal.RequireFromString("1140")) {
		t.Errorf("CommissionAmount() = %s, want 1140", got)
	}
}

func TestDaysBeforeEvent(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	b := &Booking{EventDate: now.Add(10*24*time.Hour + 6*time.Hour)}
	if d := b.DaysBeforeEvent(now); d != 10 {
		t.Errorf("DaysBeforeEvent = %d, want 10", d)
	}
	past := &Booking{EventDate: now.Add(-48 * time.Hour)}
	if d := past.DaysBeforeEvent(now); d != 0 {
		t.Errorf("DaysBeforeEvent for past event = %d, want 0", d)
	}
}
