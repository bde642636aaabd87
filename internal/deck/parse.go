package deck

import (
	"fmt"
	"strings"
)

// ParseCards parses compact card notation like "AsTh9d" into cards. Ranks are
// A23456789TJQK, suits are s/h/d/c, case-insensitive. Mostly used by tests and
// scripted deals.
func ParseCards(s string) ([]Card, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("card string must have even length, got %d", len(s))
	}

	cards := make([]Card, 0, len(s)/2)
	lower := strings.ToLower(s)
	for i := 0; i < len(lower); i += 2 {
		rank, err := parseRank(lower[i])
		if err != nil {
			return nil, err
		}
		suit, err := parseSuit(lower[i+1])
		if err != nil {
			return nil, err
		}
		cards = append(cards, NewCard(suit, rank))
	}
	return cards, nil
}

// MustParseCards is ParseCards that panics on invalid input.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}

func parseRank(b byte) (Rank, error) {
	switch b {
	case 'a':
		return Ace, nil
	case 't':
		return Ten, nil
	case 'j':
		return Jack, nil
	case 'q':
		return Queen, nil
	case 'k':
		return King, nil
	default:
		if b >= '2' && b <= '9' {
			return Rank(b - '0'), nil
		}
		return 0, fmt.Errorf("invalid rank character %q", b)
	}
}

func parseSuit(b byte) (Suit, error) {
	switch b {
	case 's':
		return Spades, nil
	case 'h':
		return Hearts, nil
	case 'd':
		return Diamonds, nil
	case 'c':
		return Clubs, nil
	default:
		return 0, fmt.Errorf("invalid suit character %q", b)
	}
}

// NewStacked creates a deck containing exactly the given cards, drawn in the
// order provided. Used by tests to script deals.
func NewStacked(cards ...Card) *Deck {
	d := &Deck{cards: make([]Card, len(cards))}
	copy(d.cards, cards)
	return d
}
