// Package blackjack implements the rules engine for a single blackjack game:
// dealing, hit/stand/surrender transitions, scoring and settlement. The engine
// never touches storage or transport; the service layer owns balances and
// persistence and applies the win amounts this package computes.
package blackjack

import (
	"errors"
	"time"

	"github.com/lox/blackjacktable/internal/deck"
)

var (
	// ErrInvalidBet is returned when a game is started with a non-positive bet.
	ErrInvalidBet = errors.New("blackjack: bet must be positive")

	// ErrGameFinished is returned by any transition on a finished game.
	ErrGameFinished = errors.New("blackjack: game already finished")
)

// Outcome messages surfaced to players on terminal transitions.
const (
	OutcomePlayerBust    = "Bust! Dealer wins!"
	OutcomeDealerBust    = "The cards are busted! The player wins!"
	OutcomeDealerWins    = "Dealer win!"
	OutcomePlayerWins    = "Player win!"
	OutcomeTie           = "Tie!"
	OutcomeSurrendered   = "Player surrendered"
	OutcomeAbandoned     = "Game abandoned"
	OutcomeDeckExhausted = "Deck exhausted, stake returned"
)

// Status is the lifecycle state of a game.
type Status int

const (
	StatusInProgress Status = iota
	StatusFinished
)

// String returns the string representation of a status
func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "in_progress"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Game is a single blackjack game between one player and the dealer. The ID is
// assigned by the session store, not the engine. A finished game never mutates
// again; every transition checks status before touching any state.
type Game struct {
	ID         string
	PlayerID   string
	PlayerHand []deck.Card
	DealerHand []deck.Card
	BetAmount  int
	WinAmount  int
	Status     Status
	Outcome    string
	CreatedAt  time.Time
	UpdatedAt  time.Time // advanced by the service on every transition

	deck *deck.Deck
}

// Clone returns a deep copy of the game, hands and remaining deck included, so
// a store can hand out snapshots without sharing mutable state with callers.
func (g *Game) Clone() *Game {
	c := *g
	c.PlayerHand = append([]deck.Card(nil), g.PlayerHand...)
	c.DealerHand = append([]deck.Card(nil), g.DealerHand...)
	if g.deck != nil {
		c.deck = deck.NewStacked(g.deck.Cards()...)
	}
	return &c
}

// Start deals a new game from the given deck: two cards each, interleaved in
// conventional order (player, dealer, player, dealer). The caller has already
// verified the player can cover the bet; the engine only validates the bet
// itself.
func Start(bet int, d *deck.Deck) (*Game, error) {
	if bet <= 0 {
		return nil, ErrInvalidBet
	}

	g := &Game{
		PlayerHand: make([]deck.Card, 0, 2),
		DealerHand: make([]deck.Card, 0, 2),
		BetAmount:  bet,
		Status:     StatusInProgress,
		deck:       d,
	}

	for i := 0; i < 2; i++ {
		playerCard, err := d.Draw(1)
		if err != nil {
			return nil, err
		}
		dealerCard, err := d.Draw(1)
		if err != nil {
			return nil, err
		}
		g.PlayerHand = append(g.PlayerHand, playerCard[0])
		g.DealerHand = append(g.DealerHand, dealerCard[0])
	}

	return g, nil
}

// Hit draws one card into the player's hand. If the player busts the game
// finishes with nothing returned; otherwise it stays in progress. A two-card
// 21 is not auto-resolved: the player keeps acting until they stand or bust.
func (g *Game) Hit() error {
	if g.Status == StatusFinished {
		return ErrGameFinished
	}

	cards, err := g.deck.Draw(1)
	if err != nil {
		if errors.Is(err, deck.ErrExhausted) {
			g.finish(g.BetAmount, OutcomeDeckExhausted)
			return nil
		}
		return err
	}
	g.PlayerHand = append(g.PlayerHand, cards[0])

	if Score(g.PlayerHand) > Bust {
		g.finish(0, OutcomePlayerBust)
	}
	return nil
}

// Stand ends the player's turn. The dealer draws until reaching 17 or better,
// then the game settles: dealer bust or lower score pays double the stake,
// higher score pays nothing, a push returns the stake. The game always
// finishes.
func (g *Game) Stand() error {
	if g.Status == StatusFinished {
		return ErrGameFinished
	}

	dealerScore := Score(g.DealerHand)
	playerScore := Score(g.PlayerHand)

	for dealerScore < dealerStandsAt {
		cards, err := g.deck.Draw(1)
		if err != nil {
			if errors.Is(err, deck.ErrExhausted) {
				// Cannot happen with a fresh 52-card deck, but a session must
				// never be left in progress with nothing left to draw.
				g.finish(g.BetAmount, OutcomeDeckExhausted)
				return nil
			}
			return err
		}
		g.DealerHand = append(g.DealerHand, cards[0])
		dealerScore = Score(g.DealerHand)
	}

	switch {
	case dealerScore > Bust:
		g.finish(g.BetAmount*2, OutcomeDealerBust)
	case dealerScore > playerScore:
		g.finish(0, OutcomeDealerWins)
	case dealerScore < playerScore:
		g.finish(g.BetAmount*2, OutcomePlayerWins)
	default:
		g.finish(g.BetAmount, OutcomeTie)
	}
	return nil
}

// Surrender ends the game immediately, returning half the stake rounded down.
func (g *Game) Surrender() error {
	if g.Status == StatusFinished {
		return ErrGameFinished
	}
	g.finish(g.BetAmount/2, OutcomeSurrendered)
	return nil
}

// Abandon settles a stale in-progress game on surrender terms: half the stake
// comes back and no win is recorded. Used when a player starts a new game over
// an unfinished one, or when the idle janitor reaps a session.
func (g *Game) Abandon() error {
	if g.Status == StatusFinished {
		return ErrGameFinished
	}
	g.finish(g.BetAmount/2, OutcomeAbandoned)
	return nil
}

// PlayerScore returns the current score of the player's hand.
func (g *Game) PlayerScore() int {
	return Score(g.PlayerHand)
}

// DealerScore returns the current score of the dealer's hand.
func (g *Game) DealerScore() int {
	return Score(g.DealerHand)
}

// DeckCards returns the cards remaining in the game's deck, top first, so a
// store can persist an in-progress game.
func (g *Game) DeckCards() []deck.Card {
	if g.deck == nil {
		return nil
	}
	return g.deck.Cards()
}

// SetDeck reattaches a deck to a game loaded from storage.
func (g *Game) SetDeck(cards []deck.Card) {
	g.deck = deck.NewStacked(cards...)
}

// Won reports whether the game paid out more than the stake. Pushes and
// surrenders return part of the stake but do not count as wins.
func (g *Game) Won() bool {
	return g.Status == StatusFinished && g.WinAmount > g.BetAmount
}

// Finished reports whether the game has reached its terminal state.
func (g *Game) Finished() bool {
	return g.Status == StatusFinished
}

func (g *Game) finish(winAmount int, outcome string) {
	g.Status = StatusFinished
	g.WinAmount = winAmount
	g.Outcome = outcome
}
