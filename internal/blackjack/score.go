package blackjack

import "github.com/lox/blackjacktable/internal/deck"

// Bust is the score threshold; a hand above it loses immediately.
const Bust = 21

// dealerStandsAt is the fixed dealer policy: draw below, stand at or above.
const dealerStandsAt = 17

// Score computes the blackjack value of a hand. Numerals count face value,
// J/Q/K count 10, and each ace counts 11 until the total would bust, at which
// point aces drop to 1 one at a time. The result depends only on the multiset
// of ranks, never on card order.
func Score(hand []deck.Card) int {
	total := 0
	aces := 0
	for _, c := range hand {
		switch {
		case c.IsAce():
			aces++
			total += 11
		case c.IsFaceCard():
			total += 10
		default:
			total += int(c.Rank)
		}
	}
	for total > Bust && aces > 0 {
		total -= 10
		aces--
	}
	return total
}
