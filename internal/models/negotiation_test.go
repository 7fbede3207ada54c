package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gigmarket/backend/internal/apperr"
)

func testNegotiation(t *testing.T) *Negotiation {
	t.Helper()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	eventDate := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	original := decimal.RequireFromString("10000")
	return &Negotiation{
		Round:       1,
		Status:      NegotiationStatusPendingArtist,
		LastOfferBy: PartyOrganizer,
		OriginalFee: original,
		CurrentTerms: Terms{
			Fee:          decimal.RequireFromString("9000"),
			Currency:     "EUR",
			SlotCategory: SlotEvening,
			EventDate:    eventDate,
		},
		Deadline: now.Add(24 * time.Hour),
	}
}

func TestCheckTurn(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	n := testNegotiation(t)
	if err := n.CheckTurn(PartyArtist, now); err != nil {
		t.Fatalf("artist's turn should pass: %v", err)
	}
	if err := n.CheckTurn(PartyOrganizer, now); !apperr.IsKind(err, apperr.KindState) {
		t.Errorf("organizer out of turn: got %v, want state error", err)
	}
	if err := n.CheckTurn(PartyVenue, now); !apperr.IsKind(err, apperr.KindState) {
		t.Errorf("venue cannot respond: got %v, want state error", err)
	}

	n.Status = NegotiationStatusAccepted
	if err := n.CheckTurn(PartyArtist, now); !apperr.IsKind(err, apperr.KindState) {
		t.Errorf("terminal negotiation: got %v, want state error", err)
	}

	n = testNegotiation(t)
	late := n.Deadline.Add(time.Minute)
	if err := n.CheckTurn(PartyArtist, late); !apperr.IsKind(err, apperr.KindDeadline) {
		t.Errorf("lapsed deadline: got %v, want deadline error", err)
	}
}

func TestValidateCounter(t *testing.T) {
	base := testNegotiation(t)
	okTerms := base.CurrentTerms
	okTerms.Fee = decimal.RequireFromString("9500")

	tests := []struct {
		name   string
		mutate func(n *Negotiation, terms *Terms)
		kind   apperr.Kind
	}{
		{"within bounds", func(n *Negotiation, terms *Terms) {}, ""},
		{"round cap", func(n *Negotiation, terms *Terms) { n.Round = MaxNegotiationRounds }, apperr.KindLimitExceeded},
		{"fee above tolerance", func(n *Negotiation, terms *Terms) {
			terms.Fee = decimal.RequireFromString("12500") // >20% above 10000
		}, apperr.KindValidation},
		{"fee below tolerance", func(n *Negotiation, terms *Terms) {
			terms.Fee = decimal.RequireFromString("7900")
		}, apperr.KindValidation},
		{"fee at exact bound", func(n *Negotiation, terms *Terms) {
			terms.Fee = decimal.RequireFromString("12000")
		}, ""},
		{"non-positive fee", func(n *Negotiation, terms *Terms) {
			terms.Fee = decimal.Zero
		}, apperr.KindValidation},
		{"currency change", func(n *Negotiation, terms *Terms) { terms.Currency = "USD" }, apperr.KindValidation},
		{"adjacent slot", func(n *Negotiation, terms *Terms) { terms.SlotCategory = SlotLateNight }, ""},
		{"non-adjacent slot", func(n *Negotiation, terms *Terms) { terms.SlotCategory = SlotMatinee }, apperr.KindValidation},
		{"event date change", func(n *Negotiation, terms *Terms) {
			terms.EventDate = terms.EventDate.Add(24 * time.Hour)
		}, apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := testNegotiation(t)
			terms := okTerms
			tt.mutate(n, &terms)
			err := n.ValidateCounter(terms)
			if tt.kind == "" {
				if err != nil {
					t.Fatalf("expected valid counter, got %v", err)
				}
				return
			}
			if !apperr.IsKind(err, tt.kind) {
				t.Errorf("got %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestApplyCounterFlipsTurnAndResetsDeadline(t *testing.T) {
	n := testNegotiation(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	terms := n.CurrentTerms
	terms.Fee = decimal.RequireFromString("9500")

	n.ApplyCounter(PartyArtist, terms, nil, now, 24*time.Hour)

	if n.Round != 2 {
		t.Errorf("round = %d, want 2", n.Round)
	}
	if n.Status != NegotiationStatusPendingOrganizer {
		t.Errorf("status = %s, want %s", n.Status, NegotiationStatusPendingOrganizer)
	}
	if n.LastOfferBy != PartyArtist {
		t.Errorf("lastOfferBy = %s, want artist", n.LastOfferBy)
	}
	if !n.Deadline.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("deadline = %s, want %s", n.Deadline, now.Add(24*time.Hour))
	}
	if len(n.History) != 1 || !n.History[0].Terms.Fee.Equal(terms.Fee) {
		t.Errorf("history not appended: %+v", n.History)
	}
}

// The fourth counter-offer in a negotiation must always fail, whoever
// attempts it.
func TestRoundCapAcrossExchange(t *testing.T) {
	n := testNegotiation(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	// Round 1 exists (organizer's opening counter). Artist counters
	// to round 2, organizer to round 3.
	terms := n.CurrentTerms
	terms.Fee = decimal.RequireFromString("9500")
	if err := n.ValidateCounter(terms); err != nil {
		t.Fatalf("round 2 counter: %v", err)
	}
	n.ApplyCounter(PartyArtist, terms, nil, now, 24*time.Hour)

	terms.Fee = decimal.RequireFromString("9200")
	if err := n.ValidateCounter(terms); err != nil {
		t.Fatalf("round 3 counter: %v", err)
	}
	n.ApplyCounter(PartyOrganizer, terms, nil, now, 24*time.Hour)

	terms.Fee = decimal.RequireFromString("9400")
	err := n.ValidateCounter(terms)
	if !apperr.IsKind(err, apperr.KindLimitExceeded) {
		t.Fatalf("4th counter: got %v, want limit exceeded", err)
	}
}
