// Package policy holds the declarative lookup tables that drive trust
// tiers, per-tier platform terms, and cancellation penalty splits. The
// tables are loaded once and injected; engines never branch on raw
// scores or day counts themselves.
package policy

// Trust tiers
const (
	TierCritical = "critical"
	TierHighRisk = "high_risk"
	TierStandard = "standard"
	TierTrusted  = "trusted"
	TierPremium  = "premium"
)

const (
	ScoreMin     = 0
	ScoreMax     = 100
	ScoreInitial = 50
)

type scoreBand struct {
	Max  int // inclusive upper bound
	Tier string
}

// scoreBands maps score ranges to tiers, ascending. First band whose
// Max >= score wins.
var scoreBands = []scoreBand{
	{30, TierCritical},
	{50, TierHighRisk},
	{70, TierStandard},
	{85, TierTrusted},
	{100, TierPremium},
}

func TierForScore(score int) string {
	for _, b := range scoreBands {
		if score <= b.Max {
			return b.Tier
		}
	}
	return TierPremium
}

// ClampScore bounds a score to [ScoreMin, ScoreMax].
func ClampScore(score int) int {
	if score < ScoreMin {
		return ScoreMin
	}
	if score > ScoreMax {
		return ScoreMax
	}
	return score
}

// TierPolicy is the platform terms a tier earns. Better tiers get lower
// commission, more pending applications, and a lower required deposit.
type TierPolicy struct {
	CommissionBPS          int // platform commission in basis points
	MaxPendingApplications int
	DepositPct             int // required deposit, percent of agreed fee
}

var tierPolicies = map[string]TierPolicy{
	TierCritical: {CommissionBPS: 2000, MaxPendingApplications: 1, DepositPct: 50},
	TierHighRisk: {CommissionBPS: 1500, MaxPendingApplications: 3, DepositPct: 40},
	TierStandard: {CommissionBPS: 1200, MaxPendingApplications: 5, DepositPct: 30},
	TierTrusted:  {CommissionBPS: 1000, MaxPendingApplications: 8, DepositPct: 20},
	TierPremium:  {CommissionBPS: 800, MaxPendingApplications: 12, DepositPct: 15},
}

func PolicyFor(tier string) TierPolicy {
	if p, ok := tierPolicies[tier]; ok {
		return p
	}
	return tierPolicies[TierStandard]
}

// Trust score reason codes
const (
	ReasonBookingCompleted  = "booking_completed"
	ReasonCompletionBonus   = "completion_milestone_bonus"
	ReasonCancellation      = "booking_cancelled"
	ReasonInactivityDecay   = "inactivity_decay"
	ReasonDisputeResolution = "dispute_resolution"
)

const (
	CompletionDelta = 3

	// Inactivity decay: one point per idle period after the grace
	// window, capped. Never drives a score below zero (clamped).
	DecayGraceDays  = 90
	DecayPeriodDays = 30
	DecayCap        = 10
)

// CompletionBonuses grants extra trust at completed-booking-count
// milestones.
var CompletionBonuses = map[int]int{
	1:  2,
	10: 5,
	25: 10,
}

// InactivityDecay returns the (non-negative) score decay for a user
// idle for idleDays.
func InactivityDecay(idleDays int) int {
	if idleDays <= DecayGraceDays {
		return 0
	}
	d := (idleDays - DecayGraceDays) / DecayPeriodDays
	if d > DecayCap {
		d = DecayCap
	}
	return d
}
