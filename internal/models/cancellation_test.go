package models

import (
	"testing"

	"github.com/gigmarket/backend/internal/apperr"
)

func TestOutstandingRefund(t *testing.T) {
	tests := []struct {
		name       string
		milestones []PaymentMilestone
		recorded   string
		want       string
	}{
		{
			name: "nothing returned yet",
			milestones: []PaymentMilestone{
				{Kind: MilestoneKindDeposit, Amount: dec("3000"), EscrowStatus: EscrowStatusHeld, RefundedAmount: dec("0"), ReleasedAmount: dec("0")},
				{Kind: MilestoneKindBalance, Amount: dec("7000"), EscrowStatus: EscrowStatusHeld, RefundedAmount: dec("0"), ReleasedAmount: dec("0")},
			},
			recorded: "7000",
			want:     "7000",
		},
		{
			name: "interrupted settlement already returned part",
			milestones: []PaymentMilestone{
				{Kind: MilestoneKindDeposit, Amount: dec("3000"), EscrowStatus: EscrowStatusReleased, RefundedAmount: dec("0"), ReleasedAmount: dec("3000")},
				{Kind: MilestoneKindBalance, Amount: dec("7000"), EscrowStatus: EscrowStatusReturned, RefundedAmount: dec("4000"), ReleasedAmount: dec("3000")},
			},
			recorded: "7000",
			want:     "3000",
		},
		{
			name: "fully settled leaves nothing owed",
			milestones: []PaymentMilestone{
				{Kind: MilestoneKindDeposit, Amount: dec("3000"), EscrowStatus: EscrowStatusReturned, RefundedAmount: dec("3000"), ReleasedAmount: dec("0")},
				{Kind: MilestoneKindBalance, Amount: dec("7000"), EscrowStatus: EscrowStatusReturned, RefundedAmount: dec("4000"), ReleasedAmount: dec("3000")},
			},
			recorded: "7000",
			want:     "0",
		},
		{
			name: "commission milestone never counts against the refund",
			milestones: []PaymentMilestone{
				{Kind: MilestoneKindDeposit, Amount: dec("3000"), EscrowStatus: EscrowStatusHeld},
				{Kind: MilestoneKindCommission, Amount: dec("1200"), EscrowStatus: EscrowStatusReturned, RefundedAmount: dec("1200")},
			},
			recorded: "3000",
			want:     "3000",
		},
		{
			name: "over-returned ledger clamps at zero",
			milestones: []PaymentMilestone{
				{Kind: MilestoneKindDeposit, Amount: dec("3000"), EscrowStatus: EscrowStatusReturned, RefundedAmount: dec("3000")},
			},
			recorded: "2500",
			want:     "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OutstandingRefund(tt.milestones, dec(tt.recorded))
			if !got.Equal(dec(tt.want)) {
				t.Errorf("OutstandingRefund = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAllocateRefund(t *testing.T) {
	held := func(kind, amount string) PaymentMilestone {
		return PaymentMilestone{Kind: kind, Amount: dec(amount), EscrowStatus: EscrowStatusHeld}
	}

	tests := []struct {
		name       string
		milestones []PaymentMilestone
		total      string
		want       []string
	}{
		{
			name:       "refund fills milestones in order",
			milestones: []PaymentMilestone{held(MilestoneKindDeposit, "3000"), held(MilestoneKindBalance, "7000")},
			total:      "5000",
			want:       []string{"3000", "2000"},
		},
		{
			name:       "full forfeiture allocates nothing",
			milestones: []PaymentMilestone{held(MilestoneKindDeposit, "3000"), held(MilestoneKindBalance, "7000")},
			total:      "0",
			want:       []string{"0", "0"},
		},
		{
			name: "released and commission milestones absorb nothing",
			milestones: []PaymentMilestone{
				{Kind: MilestoneKindDeposit, Amount: dec("3000"), EscrowStatus: EscrowStatusReleased, ReleasedAmount: dec("3000")},
				held(MilestoneKindBalance, "7000"),
				{Kind: MilestoneKindCommission, Amount: dec("1200"), EscrowStatus: EscrowStatusHeld},
			},
			total: "4000",
			want:  []string{"0", "4000", "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := AllocateRefund(tt.milestones, dec(tt.total))
			if err != nil {
				t.Fatalf("AllocateRefund: %v", err)
			}
			for i, want := range tt.want {
				if !shares[i].Equal(dec(want)) {
					t.Errorf("share[%d] = %s, want %s", i, shares[i], want)
				}
			}
		})
	}
}

func TestAllocateRefundRejectsOverEscrow(t *testing.T) {
	milestones := []PaymentMilestone{
		{Kind: MilestoneKindDeposit, Amount: dec("3000"), EscrowStatus: EscrowStatusHeld},
	}
	_, err := AllocateRefund(milestones, dec("3500"))
	if !apperr.IsKind(err, apperr.KindEscrowIntegrity) {
		t.Fatalf("got %v, want escrow integrity error", err)
	}
}
