package policy

// Cancellation reasons
const (
	ReasonArtistInitiated    = "artist_initiated"
	ReasonOrganizerInitiated = "organizer_initiated"
	ReasonForceMajeure       = "force_majeure"
	ReasonMutualAgreement    = "mutual_agreement"
	ReasonContractExpired    = "contract_expired"
)

// Split describes where a cancelled booking's escrowed funds go, in
// whole percent of the total paid in. The three shares always sum
// to 100.
type Split struct {
	OrganizerRefundPct    int
	ArtistCompensationPct int
	PlatformRetainPct     int
	TrustDelta            int // applied to the canceling party; 0 for carve-outs
	PolicyTier            string
}

func (s Split) Total() int {
	return s.OrganizerRefundPct + s.ArtistCompensationPct + s.PlatformRetainPct
}

type dayBand struct {
	MinDays int // inclusive lower bound on days before event
	Split   Split
}

// Organizer-initiated tiers: the closer to the event, the larger the
// share forfeited to the artist.
var organizerBands = []dayBand{
	{31, Split{OrganizerRefundPct: 80, ArtistCompensationPct: 20, TrustDelta: -2, PolicyTier: "organizer_gt30"}},
	{15, Split{OrganizerRefundPct: 50, ArtistCompensationPct: 50, TrustDelta: -5, PolicyTier: "organizer_15_30"}},
	{0, Split{OrganizerRefundPct: 0, ArtistCompensationPct: 100, TrustDelta: -10, PolicyTier: "organizer_lt15"}},
}

// Artist-initiated tiers: escrow is organizer money, so the organizer
// is always made whole; tier severity is carried by the trust penalty.
// The upstream policy documents disagreed on whether the forfeited
// deposit stays with the platform, so we settle on full refund.
var artistBands = []dayBand{
	{91, Split{OrganizerRefundPct: 100, TrustDelta: -2, PolicyTier: "artist_gt90"}},
	{30, Split{OrganizerRefundPct: 100, TrustDelta: -8, PolicyTier: "artist_30_90"}},
	{0, Split{OrganizerRefundPct: 100, TrustDelta: -15, PolicyTier: "artist_lt30"}},
}

// Carve-outs bypass the day tiers entirely and never touch trust.
var carveOutSplits = map[string]Split{
	ReasonForceMajeure:    {OrganizerRefundPct: 98, PlatformRetainPct: 2, PolicyTier: "force_majeure"},
	ReasonMutualAgreement: {OrganizerRefundPct: 98, PlatformRetainPct: 2, PolicyTier: "mutual_agreement"},
	// Contract never executed, no funds moved: zero-penalty terms.
	ReasonContractExpired: {OrganizerRefundPct: 100, PolicyTier: "contract_expired"},
}

// ComputeSplit is the pure cancellation calculator. cancelingParty is
// a models.Party role string ("artist" or "organizer") and is only
// consulted for day-tiered reasons.
func ComputeSplit(cancelingParty, reason string, daysBeforeEvent int) Split {
	if s, ok := carveOutSplits[reason]; ok {
		return s
	}
	if daysBeforeEvent < 0 {
		daysBeforeEvent = 0
	}
	bands := organizerBands
	if cancelingParty == "artist" {
		bands = artistBands
	}
	for _, b := range bands {
		if daysBeforeEvent >= b.MinDays {
			return b.Split
		}
	}
	return bands[len(bands)-1].Split
}
