package deck

import "testing"

func TestCardString(t *testing.T) {
	tests := []struct {
		card Card
		want string
	}{
		{Card{Suit: Spades, Rank: Ace}, "A♠"},
		{Card{Suit: Hearts, Rank: Ten}, "10♥"},
		{Card{Suit: Diamonds, Rank: Queen}, "Q♦"},
		{Card{Suit: Clubs, Rank: Two}, "2♣"},
	}

	for _, tt := range tests {
		if got := tt.card.String(); got != tt.want {
			t.Errorf("Card.String() = %q, want %q", got, tt.want)
		}
	}
}

func TestCardPredicates(t *testing.T) {
	ace := Card{Suit: Spades, Rank: Ace}
	if !ace.IsAce() {
		t.Error("ace not recognised")
	}
	if ace.IsFaceCard() {
		t.Error("ace is not a face card")
	}

	for _, r := range []Rank{Jack, Queen, King} {
		if !(Card{Suit: Clubs, Rank: r}).IsFaceCard() {
			t.Errorf("%s should be a face card", r)
		}
	}

	if (Card{Suit: Spades, Rank: Two}).IsRed() {
		t.Error("spades should not be red")
	}
	if !(Card{Suit: Hearts, Rank: Two}).IsRed() {
		t.Error("hearts should be red")
	}
}
