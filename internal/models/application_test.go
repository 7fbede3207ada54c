package models

import "testing"

func TestIsValidApplicationTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		{ApplicationStatusPending, ApplicationStatusViewed, true},
		{ApplicationStatusPending, ApplicationStatusAccepted, true},
		{ApplicationStatusViewed, ApplicationStatusShortlisted, true},
		{ApplicationStatusShortlisted, ApplicationStatusCounterOffered, true},
		{ApplicationStatusCounterOffered, ApplicationStatusAccepted, true},
		{ApplicationStatusCounterOffered, ApplicationStatusWithdrawn, true},
		{ApplicationStatusPending, ApplicationStatusExpired, true},

		// Counter-offered applications can no longer be re-shortlisted.
		{ApplicationStatusCounterOffered, ApplicationStatusShortlisted, false},
		{ApplicationStatusViewed, ApplicationStatusPending, false},
		{ApplicationStatusAccepted, ApplicationStatusDeclined, false},
		{ApplicationStatusDeclined, ApplicationStatusAccepted, false},
		{ApplicationStatusWithdrawn, ApplicationStatusPending, false},
		// A withdrawn application must never turn into an acceptance,
		// even when a negotiation on it is still being acted on.
		{ApplicationStatusWithdrawn, ApplicationStatusAccepted, false},
		{ApplicationStatusWithdrawn, ApplicationStatusCounterOffered, false},
		{ApplicationStatusExpired, ApplicationStatusAccepted, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			if got := IsValidApplicationTransition(tt.from, tt.to); got != tt.expected {
				t.Errorf("IsValidApplicationTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestApplicationRespondableAndWithdrawable(t *testing.T) {
	tests := []struct {
		status       string
		respondable  bool
		withdrawable bool
	}{
		{ApplicationStatusPending, true, true},
		{ApplicationStatusViewed, true, true},
		{ApplicationStatusShortlisted, true, true},
		{ApplicationStatusCounterOffered, false, true},
		{ApplicationStatusAccepted, false, false},
		{ApplicationStatusDeclined, false, false},
		{ApplicationStatusWithdrawn, false, false},
		{ApplicationStatusExpired, false, false},
	}

	for _, tt := range tests {
		if got := IsApplicationRespondable(tt.status); got != tt.respondable {
			t.Errorf("IsApplicationRespondable(%q) = %v, want %v", tt.status, got, tt.respondable)
		}
		if got := IsApplicationWithdrawable(tt.status); got != tt.withdrawable {
			t.Errorf("IsApplicationWithdrawable(%q) = %v, want %v", tt.status, got, tt.withdrawable)
		}
	}
}

func TestParseParty(t *testing.T) {
	for _, s := range []string{"artist", "organizer", "venue"} {
		if _, ok := ParseParty(s); !ok {
			t.Errorf("ParseParty(%q) should succeed", s)
		}
	}
	for _, s := range []string{"", "admin", "Artist", "promoter"} {
		if _, ok := ParseParty(s); ok {
			t.Errorf("ParseParty(%q) should fail", s)
		}
	}
}

func TestPartyCapabilities(t *testing.T) {
	if !PartyArtist.CanSign() || !PartyOrganizer.CanSign() {
		t.Error("artist and organizer must both hold signature slots")
	}
	if PartyVenue.CanSign() || PartyVenue.CanCancel() || PartyVenue.CanRespond() {
		t.Error("venue must hold no contract capabilities")
	}
	if PartyArtist.Counterpart() != PartyOrganizer || PartyOrganizer.Counterpart() != PartyArtist {
		t.Error("artist and organizer must be each other's counterpart")
	}
}
