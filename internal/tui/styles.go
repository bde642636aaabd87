package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/lox/blackjacktable/internal/deck"
)

// Static styles for content elements
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#1B5E20")).
			Bold(true).
			Padding(0, 1)

	HandLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	RedCardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	BlackCardStyle = lipgloss.NewStyle().
			Bold(true)

	HiddenCardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFEAA7")).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	cardBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

func init() {
	// Black card pips are unreadable on dark terminals; keep them at the
	// default foreground there and force black only on light backgrounds.
	if !termenv.HasDarkBackground() {
		BlackCardStyle = BlackCardStyle.Foreground(lipgloss.Color("#000000"))
	}
}

// renderCard draws a single card as a small bordered box.
func renderCard(c deck.Card) string {
	style := BlackCardStyle
	if c.IsRed() {
		style = RedCardStyle
	}
	return cardBorderStyle.Render(style.Render(c.String()))
}

// renderHiddenCard draws the dealer's face-down hole card.
func renderHiddenCard() string {
	return cardBorderStyle.Render(HiddenCardStyle.Render("??"))
}

// renderHand draws a hand as a row of card boxes. When holeHidden is set a
// face-down card is appended after the visible cards.
func renderHand(cards []deck.Card, holeHidden bool) string {
	if len(cards) == 0 && !holeHidden {
		return ""
	}

	boxes := make([]string, 0, len(cards)+1)
	for _, c := range cards {
		boxes = append(boxes, renderCard(c))
	}
	if holeHidden {
		boxes = append(boxes, renderHiddenCard())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

// formatCardsInline formats a hand as inline text for the log.
func formatCardsInline(cards []deck.Card) string {
	if len(cards) == 0 {
		return ""
	}

	formatted := make([]string, 0, len(cards))
	for _, c := range cards {
		if c.IsRed() {
			formatted = append(formatted, RedCardStyle.Render(c.String()))
		} else {
			formatted = append(formatted, BlackCardStyle.Render(c.String()))
		}
	}
	return "[" + strings.Join(formatted, " ") + "]"
}
