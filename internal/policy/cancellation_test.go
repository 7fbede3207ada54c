package policy

import "testing"

func TestComputeSplitTiers(t *testing.T) {
	tests := []struct {
		name      string
		party     string
		reason    string
		days      int
		organizer int
		artist    int
		platform  int
		trust     int
	}{
		{"organizer far out", "organizer", ReasonOrganizerInitiated, 60, 80, 20, 0, -2},
		{"organizer boundary 31", "organizer", ReasonOrganizerInitiated, 31, 80, 20, 0, -2},
		{"organizer mid", "organizer", ReasonOrganizerInitiated, 30, 50, 50, 0, -5},
		{"organizer boundary 15", "organizer", ReasonOrganizerInitiated, 15, 50, 50, 0, -5},
		{"organizer late", "organizer", ReasonOrganizerInitiated, 14, 0, 100, 0, -10},
		{"organizer 10 days out", "organizer", ReasonOrganizerInitiated, 10, 0, 100, 0, -10},
		{"organizer day of event", "organizer", ReasonOrganizerInitiated, 0, 0, 100, 0, -10},
		{"artist far out", "artist", ReasonArtistInitiated, 120, 100, 0, 0, -2},
		{"artist boundary 91", "artist", ReasonArtistInitiated, 91, 100, 0, 0, -2},
		{"artist mid", "artist", ReasonArtistInitiated, 60, 100, 0, 0, -8},
		{"artist boundary 30", "artist", ReasonArtistInitiated, 30, 100, 0, 0, -8},
		{"artist late", "artist", ReasonArtistInitiated, 5, 100, 0, 0, -15},
		{"force majeure skips tiers", "organizer", ReasonForceMajeure, 3, 98, 0, 2, 0},
		{"mutual agreement skips tiers", "artist", ReasonMutualAgreement, 3, 98, 0, 2, 0},
		{"contract expiry zero penalty", "organizer", ReasonContractExpired, 200, 100, 0, 0, 0},
		{"negative days clamp", "organizer", ReasonOrganizerInitiated, -4, 0, 100, 0, -10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ComputeSplit(tt.party, tt.reason, tt.days)
			if s.OrganizerRefundPct != tt.organizer || s.ArtistCompensationPct != tt.artist || s.PlatformRetainPct != tt.platform {
				t.Errorf("split = %d/%d/%d, want %d/%d/%d",
					s.OrganizerRefundPct, s.ArtistCompensationPct, s.PlatformRetainPct,
					tt.organizer, tt.artist, tt.platform)
			}
			if s.TrustDelta != tt.trust {
				t.Errorf("trust delta = %d, want %d", s.TrustDelta, tt.trust)
			}
		})
	}
}

// Every reachable split must allocate exactly 100% of the paid funds.
func TestSplitsAlwaysSumTo100(t *testing.T) {
	parties := []string{"artist", "organizer"}
	reasons := []string{ReasonArtistInitiated, ReasonOrganizerInitiated, ReasonForceMajeure, ReasonMutualAgreement, ReasonContractExpired}
	for _, p := range parties {
		for _, r := range reasons {
			for days := 0; days <= 120; days++ {
				if s := ComputeSplit(p, r, days); s.Total() != 100 {
					t.Fatalf("ComputeSplit(%s, %s, %d) sums to %d", p, r, days, s.Total())
				}
			}
		}
	}
}

func TestCarveOutsNeverTouchTrust(t *testing.T) {
	for _, r := range []string{ReasonForceMajeure, ReasonMutualAgreement} {
		for _, p := range []string{"artist", "organizer"} {
			if s := ComputeSplit(p, r, 7); s.TrustDelta != 0 {
				t.Errorf("%s by %s carries trust delta %d", r, p, s.TrustDelta)
			}
		}
	}
}
