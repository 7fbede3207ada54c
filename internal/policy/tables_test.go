package policy

import "testing"

func TestTierForScore(t *testing.T) {
	tests := []struct {
		score int
		tier  string
	}{
		{0, TierCritical},
		{30, TierCritical},
		{31, TierHighRisk},
		{50, TierHighRisk},
		{51, TierStandard},
		{70, TierStandard},
		{71, TierTrusted},
		{85, TierTrusted},
		{86, TierPremium},
		{100, TierPremium},
	}
	for _, tt := range tests {
		if got := TierForScore(tt.score); got != tt.tier {
			t.Errorf("TierForScore(%d) = %s, want %s", tt.score, got, tt.tier)
		}
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct{ in, out int }{
		{-50, 0}, {-1, 0}, {0, 0}, {55, 55}, {100, 100}, {101, 100}, {500, 100},
	}
	for _, tt := range tests {
		if got := ClampScore(tt.in); got != tt.out {
			t.Errorf("ClampScore(%d) = %d, want %d", tt.in, got, tt.out)
		}
	}
}

// Better tiers must earn strictly better terms on every axis.
func TestPolicyMonotonicity(t *testing.T) {
	order := []string{TierCritical, TierHighRisk, TierStandard, TierTrusted, TierPremium}
	for i := 1; i < len(order); i++ {
		lower, higher := PolicyFor(order[i-1]), PolicyFor(order[i])
		if higher.CommissionBPS >= lower.CommissionBPS {
			t.Errorf("%s commission %d not below %s's %d", order[i], higher.CommissionBPS, order[i-1], lower.CommissionBPS)
		}
		if higher.MaxPendingApplications <= lower.MaxPendingApplications {
			t.Errorf("%s application limit %d not above %s's %d", order[i], higher.MaxPendingApplications, order[i-1], lower.MaxPendingApplications)
		}
		if higher.DepositPct >= lower.DepositPct {
			t.Errorf("%s deposit %d%% not below %s's %d%%", order[i], higher.DepositPct, order[i-1], lower.DepositPct)
		}
	}
}

func TestPolicyForUnknownTierFallsBackToStandard(t *testing.T) {
	if PolicyFor("bogus") != PolicyFor(TierStandard) {
		t.Error("unknown tier should use standard policy")
	}
}

func TestInactivityDecay(t *testing.T) {
	tests := []struct{ idleDays, want int }{
		{0, 0},
		{90, 0},
		{119, 0},
		{120, 1},
		{150, 2},
		{90 + 30*DecayCap, DecayCap},
		{365 * 10, DecayCap},
	}
	for _, tt := range tests {
		if got := InactivityDecay(tt.idleDays); got != tt.want {
			t.Errorf("InactivityDecay(%d) = %d, want %d", tt.idleDays, got, tt.want)
		}
	}
}
