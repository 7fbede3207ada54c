package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gigmarket/backend/internal/apperr"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMilestonePlanSumsToAgreedFee(t *testing.T) {
	tests := []struct {
		fee        string
		depositPct int
		deposit    string
		balance    string
	}{
		{"10000", 30, "3000", "7000"},
		{"9500", 30, "2850", "6650"},
		{"101.33", 40, "40.53", "60.80"},
		{"0.01", 50, "0.01", "0"},
	}
	for _, tt := range tests {
		b := &Booking{ID: uuid.New(), AgreedFee: dec(tt.fee), Currency: "EUR", CommissionBPS: 1200}
		plan := MilestonePlan(b, tt.depositPct)
		if len(plan) != 3 {
			t.Fatalf("plan length = %d, want 3", len(plan))
		}
		if !plan[0].Amount.Equal(dec(tt.deposit)) {
			t.Errorf("fee %s: deposit = %s, want %s", tt.fee, plan[0].Amount, tt.deposit)
		}
		if !plan[1].Amount.Equal(dec(tt.balance)) {
			t.Errorf("fee %s: balance = %s, want %s", tt.fee, plan[1].Amount, tt.balance)
		}
		if err := ValidateMilestonePlan(plan, b.AgreedFee); err != nil {
			t.Errorf("fee %s: plan does not reconcile: %v", tt.fee, err)
		}
	}
}

func TestValidateMilestonePlanRejectsDrift(t *testing.T) {
	plan := []PaymentMilestone{
		{Kind: MilestoneKindDeposit, Amount: dec("3000"), EscrowStatus: EscrowStatusPending},
		{Kind: MilestoneKindBalance, Amount: dec("6999"), EscrowStatus: EscrowStatusPending},
	}
	err := ValidateMilestonePlan(plan, dec("10000"))
	if !apperr.IsKind(err, apperr.KindEscrowIntegrity) {
		t.Fatalf("got %v, want escrow integrity error", err)
	}
}

func charge(milestone PaymentMilestone, amount string) PaymentRecord {
	return PaymentRecord{
		MilestoneID: milestone.ID,
		Kind:        PaymentRecordCharge,
		Amount:      dec(amount),
		GatewayTxID: uuid.NewString(),
	}
}

func TestReconcileConservation(t *testing.T) {
	deposit := PaymentMilestone{ID: uuid.New(), Kind: MilestoneKindDeposit, Amount: dec("3000"), EscrowStatus: EscrowStatusHeld}
	balance := PaymentMilestone{ID: uuid.New(), Kind: MilestoneKindBalance, Amount: dec("7000"), EscrowStatus: EscrowStatusPending}
	commission := PaymentMilestone{ID: uuid.New(), Kind: MilestoneKindCommission, Amount: dec("1200"), EscrowStatus: EscrowStatusPending}

	milestones := []PaymentMilestone{deposit, balance, commission}
	payments := []PaymentRecord{charge(deposit, "3000")}

	if err := Reconcile(milestones, payments); err != nil {
		t.Fatalf("held deposit should reconcile: %v", err)
	}

	// Fund the balance too.
	milestones[1].EscrowStatus = EscrowStatusHeld
	payments = append(payments, charge(balance, "7000"))
	if err := Reconcile(milestones, payments); err != nil {
		t.Fatalf("fully funded should reconcile: %v", err)
	}

	// Release everything on completion.
	for i := range milestones[:2] {
		milestones[i].EscrowStatus = EscrowStatusReleased
		milestones[i].ReleasedAmount = milestones[i].Amount
	}
	if err := Reconcile(milestones, payments); err != nil {
		t.Fatalf("released should reconcile: %v", err)
	}
}

func TestReconcileRefundSplit(t *testing.T) {
	deposit := PaymentMilestone{ID: uuid.New(), Kind: MilestoneKindDeposit, Amount: dec("3000"), EscrowStatus: EscrowStatusReturned,
		RefundedAmount: dec("1500"), ReleasedAmount: dec("1500")}
	payments := []PaymentRecord{
		charge(deposit, "3000"),
		{MilestoneID: deposit.ID, Kind: PaymentRecordRefund, Amount: dec("-1500"), GatewayTxID: uuid.NewString()},
	}
	if err := Reconcile([]PaymentMilestone{deposit}, payments); err != nil {
		t.Fatalf("50/50 split should reconcile: %v", err)
	}
}

func TestReconcileDetectsViolations(t *testing.T) {
	m := PaymentMilestone{ID: uuid.New(), Kind: MilestoneKindDeposit, Amount: dec("3000"), EscrowStatus: EscrowStatusHeld}

	// Held with no charge backing it.
	if err := Reconcile([]PaymentMilestone{m}, nil); !apperr.IsKind(err, apperr.KindEscrowIntegrity) {
		t.Errorf("unbacked hold: got %v, want escrow integrity", err)
	}

	// Allocation exceeding the milestone amount.
	over := m
	over.EscrowStatus = EscrowStatusReturned
	over.RefundedAmount = dec("3500")
	payments := []PaymentRecord{
		charge(m, "3000"),
		{MilestoneID: m.ID, Kind: PaymentRecordRefund, Amount: dec("-3500"), GatewayTxID: uuid.NewString()},
	}
	if err := Reconcile([]PaymentMilestone{over}, payments); !apperr.IsKind(err, apperr.KindEscrowIntegrity) {
		t.Errorf("over-refund: got %v, want escrow integrity", err)
	}

	// Refund record without a matching allocation.
	held := m
	payments = []PaymentRecord{
		charge(m, "3000"),
		{MilestoneID: m.ID, Kind: PaymentRecordRefund, Amount: dec("-100"), GatewayTxID: uuid.NewString()},
	}
	if err := Reconcile([]PaymentMilestone{held}, payments); !apperr.IsKind(err, apperr.KindEscrowIntegrity) {
		t.Errorf("phantom refund: got %v, want escrow integrity", err)
	}
}

func TestCommissionExcludedFromEscrowIdentity(t *testing.T) {
	commission := PaymentMilestone{ID: uuid.New(), Kind: MilestoneKindCommission, Amount: dec("1200"), EscrowStatus: EscrowStatusReleased}
	// No charge records at all: the commission record must not demand one.
	if err := Reconcile([]PaymentMilestone{commission}, nil); err != nil {
		t.Fatalf("commission should be outside the identity: %v", err)
	}
}
