package models

// Party is the closed set of marketplace roles. Capabilities are
// checked structurally through the methods below rather than by
// comparing role strings at call sites.
type Party string

const (
	PartyArtist    Party = "artist"
	PartyOrganizer Party = "organizer"
	PartyVenue     Party = "venue"
)

func ParseParty(s string) (Party, bool) {
	switch Party(s) {
	case PartyArtist, PartyOrganizer, PartyVenue:
		return Party(s), true
	}
	return "", false
}

// CanSign reports whether the party holds a signature slot on a
// contract. Venues host but are not contract parties.
func (p Party) CanSign() bool {
	return p == PartyArtist || p == PartyOrganizer
}

// CanCancel reports whether the party may initiate a booking
// cancellation.
func (p Party) CanCancel() bool {
	return p == PartyArtist || p == PartyOrganizer
}

// CanRespond reports whether the party takes turns in a negotiation.
func (p Party) CanRespond() bool {
	return p == PartyArtist || p == PartyOrganizer
}

// Counterpart returns the other negotiating side.
func (p Party) Counterpart() Party {
	if p == PartyArtist {
		return PartyOrganizer
	}
	return PartyArtist
}
