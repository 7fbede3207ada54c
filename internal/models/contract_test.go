package models

import (
	"testing"
	"time"

	"github.com/gigmarket/backend/internal/apperr"
)

func TestIsValidContractTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		{ContractStatusDraft, ContractStatusPendingArtist, true},
		{ContractStatusPendingArtist, ContractStatusPendingOrganizer, true},
		{ContractStatusPendingOrganizer, ContractStatusFullyExecuted, true},
		{ContractStatusPendingArtist, ContractStatusExpired, true},
		{ContractStatusPendingOrganizer, ContractStatusExpired, true},
		{ContractStatusDraft, ContractStatusVoided, true},
		{ContractStatusPendingArtist, ContractStatusVoided, true},
		{ContractStatusPendingOrganizer, ContractStatusVoided, true},

		{ContractStatusDraft, ContractStatusFullyExecuted, false},
		{ContractStatusPendingArtist, ContractStatusFullyExecuted, false},
		{ContractStatusFullyExecuted, ContractStatusVoided, false},
		{ContractStatusFullyExecuted, ContractStatusExpired, false},
		{ContractStatusExpired, ContractStatusPendingArtist, false},
		{ContractStatusVoided, ContractStatusDraft, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			if got := IsValidContractTransition(tt.from, tt.to); got != tt.expected {
				t.Errorf("IsValidContractTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestAwaitedSigner(t *testing.T) {
	tests := []struct {
		status  string
		party   Party
		awaited bool
	}{
		{ContractStatusPendingArtist, PartyArtist, true},
		{ContractStatusPendingOrganizer, PartyOrganizer, true},
		{ContractStatusDraft, "", false},
		{ContractStatusFullyExecuted, "", false},
		{ContractStatusExpired, "", false},
		{ContractStatusVoided, "", false},
	}

	for _, tt := range tests {
		c := &Contract{Status: tt.status}
		party, ok := c.AwaitedSigner()
		if ok != tt.awaited || party != tt.party {
			t.Errorf("AwaitedSigner() on %q = (%q, %v), want (%q, %v)", tt.status, party, ok, tt.party, tt.awaited)
		}
	}
}

func TestCheckSignable(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(72 * time.Hour)

	tests := []struct {
		name     string
		status   string
		party    Party
		now      time.Time
		wantKind apperr.Kind
	}{
		{"artist signs first", ContractStatusPendingArtist, PartyArtist, now, ""},
		{"organizer signs second", ContractStatusPendingOrganizer, PartyOrganizer, now, ""},
		{"organizer cannot sign first", ContractStatusPendingArtist, PartyOrganizer, now, apperr.KindState},
		{"artist cannot sign twice", ContractStatusPendingOrganizer, PartyArtist, now, apperr.KindState},
		{"venue holds no slot", ContractStatusPendingArtist, PartyVenue, now, apperr.KindState},
		{"expired window", ContractStatusPendingArtist, PartyArtist, deadline.Add(time.Minute), apperr.KindDeadline},
		{"executed contract", ContractStatusFullyExecuted, PartyOrganizer, now, apperr.KindState},
		{"voided contract", ContractStatusVoided, PartyArtist, now, apperr.KindState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Contract{Status: tt.status, SigningDeadline: deadline}
			err := c.CheckSignable(tt.party, tt.now)
			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("CheckSignable() = %v, want nil", err)
				}
				return
			}
			if !apperr.IsKind(err, tt.wantKind) {
				t.Errorf("CheckSignable() = %v, want kind %v", err, tt.wantKind)
			}
		})
	}
}

func TestIsVoidable(t *testing.T) {
	voidable := []string{ContractStatusDraft, ContractStatusPendingArtist, ContractStatusPendingOrganizer}
	for _, status := range voidable {
		if !(&Contract{Status: status}).IsVoidable() {
			t.Errorf("contract in %q should be voidable", status)
		}
	}
	final := []string{ContractStatusFullyExecuted, ContractStatusExpired, ContractStatusVoided}
	for _, status := range final {
		if (&Contract{Status: status}).IsVoidable() {
			t.Errorf("contract in %q should not be voidable", status)
		}
	}
}
