// Package account holds the player account model and credential handling. The
// game engine never sees accounts; the service layer debits and credits
// balances around engine transitions.
package account

import (
	"errors"
	"time"
)

// StartingBalance is credited to every new account.
const StartingBalance = 1000

var (
	// ErrNotFound indicates no account matches the given id or username.
	ErrNotFound = errors.New("account: not found")

	// ErrUsernameTaken indicates the username is already registered.
	ErrUsernameTaken = errors.New("account: username already exists")

	// ErrInvalidCredentials indicates a failed username/password check.
	ErrInvalidCredentials = errors.New("account: invalid credentials")

	// ErrInsufficientBalance indicates the balance cannot cover a bet.
	ErrInsufficientBalance = errors.New("account: insufficient balance")
)

// Account is a registered player with a balance and lifetime stats.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Balance      int       `json:"balance"`
	Wins         int       `json:"wins"`
	TotalGames   int       `json:"totalGames"`
	HighestWin   int       `json:"highestWin"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RecordGame updates lifetime stats for a finished game. Wins and highest win
// only move when the payout beat the stake; pushes and surrenders just count
// toward games played (which happened at game start).
func (a *Account) RecordGame(betAmount, winAmount int) {
	if winAmount > betAmount {
		a.Wins++
		if winAmount > a.HighestWin {
			a.HighestWin = winAmount
		}
	}
}
