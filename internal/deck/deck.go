// Package deck provides the shuffled card source the blackjack engine draws
// from. A deck holds 52 unique cards; a drawn card never comes back.
package deck

import (
	"errors"
	rand "math/rand/v2"

	"github.com/lox/blackjacktable/internal/randutil"
)

var (
	// ErrExhausted is returned when a draw requests more cards than remain.
	ErrExhausted = errors.New("deck: exhausted")

	// ErrInvalidCount is returned when a draw requests a non-positive count.
	ErrInvalidCount = errors.New("deck: draw count must be positive")
)

// Deck represents a shuffled deck of playing cards, consumed from the top.
type Deck struct {
	cards []Card
}

// New creates a standard 52-card deck shuffled with the provided rng.
func New(rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Ace; rank <= King; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}
	d.shuffle(rng)
	return d
}

// NewShuffled creates a deck shuffled from OS entropy.
func NewShuffled() *Deck {
	return New(randutil.NewFromEntropy())
}

// shuffle applies a Fisher-Yates permutation.
func (d *Deck) shuffle(rng *rand.Rand) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes count cards from the top of the deck and returns them in the
// order removed. On failure the deck is left unchanged.
func (d *Deck) Draw(count int) ([]Card, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}
	if count > len(d.cards) {
		return nil, ErrExhausted
	}

	cards := make([]Card, count)
	copy(cards, d.cards[:count])
	d.cards = d.cards[count:]
	return cards, nil
}

// Cards returns a copy of the remaining cards, top first. Used when an
// in-progress game is persisted.
func (d *Deck) Cards() []Card {
	cards := make([]Card, len(d.cards))
	copy(cards, d.cards)
	return cards
}

// Remaining returns the number of cards left in the deck.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// IsEmpty returns true if the deck has no cards left.
func (d *Deck) IsEmpty() bool {
	return len(d.cards) == 0
}
