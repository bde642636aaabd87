package tui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/blackjacktable/internal/server"
)

// Model is the Bubble Tea model for the blackjack table client. Before
// authentication the player registers or logs in; afterwards commands drive
// the game at the table.
type Model struct {
	client *Client
	logger *log.Logger

	logViewport viewport.Model
	input       textinput.Model

	gameLog  []string
	quitting bool

	// Session state, updated from server messages
	username      string
	balance       int
	authenticated bool
	game          *server.GameStateData

	width       int
	height      int
	initialized bool
}

// serverMsg wraps a message received from the server.
type serverMsg struct {
	msg *server.Message
}

// connClosedMsg signals that the server connection dropped.
type connClosedMsg struct{}

// NewModel creates the client model over an established connection.
func NewModel(client *Client, logger *log.Logger) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "register <name> <password> or login <name> <password>"
	ti.Focus()
	ti.CharLimit = 100
	ti.Width = 80
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.Prompt = "> "

	return &Model{
		client:      client,
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		input:       ti,
		gameLog:     []string{"Welcome to the blackjack table.", "Register or login to play."},
	}
}

// Init starts listening for server messages.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForServer())
}

// waitForServer returns a command that delivers the next server message.
func (m *Model) waitForServer() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.client.Incoming()
		if !ok {
			return connClosedMsg{}
		}
		return serverMsg{msg: msg}
	}
}

// Update handles terminal and server events.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case connClosedMsg:
		m.addLog(ErrorStyle.Render("Connection to server lost."))
		m.quitting = true
		return m, tea.Sequence(tea.ClearScreen, tea.Quit)

	case serverMsg:
		m.handleServerMessage(msg.msg)
		cmds = append(cmds, m.waitForServer())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line != "" {
				if quit := m.processCommand(line); quit {
					m.quitting = true
					return m, tea.Sequence(tea.ClearScreen, tea.Quit)
				}
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleServerMessage updates the model from a server message.
func (m *Model) handleServerMessage(msg *server.Message) {
	switch msg.Type {
	case server.MessageTypeAuthResponse:
		var data server.AuthResponseData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			m.logger.Error("Bad auth response", "error", err)
			return
		}
		m.authenticated = true
		m.username = data.Username
		m.balance = data.Balance
		m.input.Placeholder = "bet <amount> | hit | stand | surrender | balance | top | history | quit"
		m.addLog(SuccessStyle.Render(fmt.Sprintf("Welcome %s! Balance: $%d", data.Username, data.Balance)))
		m.addLog("Type 'bet <amount>' to start a game.")

	case server.MessageTypeGameState:
		var data server.GameStateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			m.logger.Error("Bad game state", "error", err)
			return
		}
		m.game = &data
		m.balance = data.Balance
		m.logGameState(&data)

	case server.MessageTypeBalance:
		var data server.BalanceData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.balance = data.Balance
		m.addLog(fmt.Sprintf("Balance: $%d  Wins: %d/%d  Highest win: $%d",
			data.Balance, data.Wins, data.TotalGames, data.HighestWin))

	case server.MessageTypeLeaderboardResult:
		var data server.LeaderboardResultData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.addLog(HandLabelStyle.Render("Leaderboard:"))
		for _, e := range data.Entries {
			m.addLog(fmt.Sprintf("  %2d. %-16s $%-6d (%d wins / %d games)",
				e.Rank, e.Username, e.Balance, e.Wins, e.TotalGames))
		}

	case server.MessageTypeHistoryResult:
		var data server.HistoryResultData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		if len(data.Games) == 0 {
			m.addLog("No games played yet.")
			return
		}
		m.addLog(HandLabelStyle.Render("Recent games:"))
		for _, g := range data.Games {
			m.addLog(fmt.Sprintf("  %s  bet $%-5d won $%-5d  %s",
				g.CreatedAt.Format("Jan 02 15:04"), g.BetAmount, g.WinAmount, g.Outcome))
		}

	case server.MessageTypeError:
		var data server.ErrorData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.addLog(ErrorStyle.Render("Error: " + data.Message))

	default:
		m.logger.Debug("Unhandled message", "type", msg.Type)
	}
}

// logGameState appends a readable summary of a game state to the log.
func (m *Model) logGameState(g *server.GameStateData) {
	m.addLog(fmt.Sprintf("Your hand %s (%d)  Dealer %s (%d%s)",
		formatCardsInline(g.PlayerHand), g.PlayerScore,
		formatCardsInline(g.DealerHand), g.DealerScore,
		map[bool]string{true: "+?", false: ""}[g.HoleHidden]))

	if g.Status == "finished" {
		style := ErrorStyle
		if g.WinAmount > g.BetAmount {
			style = SuccessStyle
		} else if g.WinAmount == g.BetAmount {
			style = WarningStyle
		}
		m.addLog(style.Render(fmt.Sprintf("%s  (bet $%d, returned $%d)", g.Outcome, g.BetAmount, g.WinAmount)))
		m.addLog(fmt.Sprintf("Balance: $%d", g.Balance))
	}
}

// processCommand parses and executes a user command, returning true to quit.
func (m *Model) processCommand(line string) bool {
	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "quit", "exit":
		return true

	case "register", "login":
		if len(args) != 2 {
			m.addLog(WarningStyle.Render("Usage: " + cmd + " <name> <password>"))
			return false
		}
		mt := server.MessageTypeRegister
		if cmd == "login" {
			mt = server.MessageTypeLogin
		}
		m.send(mt, server.CredentialsData{Username: args[0], Password: args[1]})

	case "bet", "deal":
		if !m.requireAuth() {
			return false
		}
		if len(args) != 1 {
			m.addLog(WarningStyle.Render("Usage: bet <amount>"))
			return false
		}
		amount, err := strconv.Atoi(args[0])
		if err != nil {
			m.addLog(WarningStyle.Render("Bet amount must be a number"))
			return false
		}
		m.send(server.MessageTypeStartGame, server.StartGameData{BetAmount: amount})

	case "hit", "h":
		m.sendAction(server.MessageTypeHit)
	case "stand", "s":
		m.sendAction(server.MessageTypeStand)
	case "surrender":
		m.sendAction(server.MessageTypeSurrender)

	case "balance":
		if m.requireAuth() {
			m.send(server.MessageTypeGetBalance, nil)
		}
	case "top", "leaderboard":
		m.send(server.MessageTypeLeaderboard, nil)
	case "history":
		if m.requireAuth() {
			m.send(server.MessageTypeHistory, server.HistoryData{})
		}

	case "help":
		m.addLog("Commands: register/login <name> <password>, bet <amount>, hit, stand, surrender, balance, top, history, quit")

	default:
		m.addLog(WarningStyle.Render("Unknown command: " + cmd + " (try 'help')"))
	}

	return false
}

// requireAuth logs a hint when the player has not authenticated yet.
func (m *Model) requireAuth() bool {
	if !m.authenticated {
		m.addLog(WarningStyle.Render("Register or login first."))
		return false
	}
	return true
}

// sendAction sends a hit/stand/surrender for the current game.
func (m *Model) sendAction(mt server.MessageType) {
	if !m.requireAuth() {
		return
	}
	if m.game == nil || m.game.Status != "in_progress" {
		m.addLog(WarningStyle.Render("No game in progress. Type 'bet <amount>' to start one."))
		return
	}
	m.send(mt, server.SessionData{SessionID: m.game.SessionID})
}

func (m *Model) send(mt server.MessageType, data interface{}) {
	if err := m.client.Send(mt, data); err != nil {
		m.addLog(ErrorStyle.Render("Failed to send: " + err.Error()))
	}
}

// addLog appends to the game log and scrolls to the bottom.
func (m *Model) addLog(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// View renders the TUI.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	header := HeaderStyle.Render(m.headerLine())

	tableContent := m.renderTable()
	tableHeight := lipgloss.Height(tableContent)

	inputContent := m.input.View() + "\n" +
		InfoStyle.Render("Enter to submit • Ctrl+C to quit")
	inputHeight := lipgloss.Height(inputContent)

	logHeight := m.height - lipgloss.Height(header) - tableHeight - inputHeight - 4
	logWidth := m.width - 2
	if logHeight < 1 {
		logHeight = 1
	}
	if logWidth < 1 {
		logWidth = 1
	}

	m.logViewport.Width = logWidth
	m.logViewport.Height = logHeight
	if !m.initialized && logWidth > 1 && logHeight > 1 {
		m.logViewport.GotoBottom()
		m.initialized = true
	}

	logPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(logWidth).
		Height(logHeight).
		Render(m.logViewport.View())

	return lipgloss.JoinVertical(lipgloss.Top, header, tableContent, logPane, inputContent)
}

// headerLine summarises the session for the header bar.
func (m *Model) headerLine() string {
	if !m.authenticated {
		return "Blackjack Table"
	}
	return fmt.Sprintf("Blackjack Table - %s  $%d", m.username, m.balance)
}

// renderTable draws the dealer and player hands as card boxes.
func (m *Model) renderTable() string {
	if m.game == nil {
		return ""
	}
	g := m.game

	dealerScore := strconv.Itoa(g.DealerScore)
	if g.HoleHidden {
		dealerScore += "+?"
	}
	dealer := lipgloss.JoinVertical(lipgloss.Left,
		HandLabelStyle.Render(fmt.Sprintf("Dealer (%s)", dealerScore)),
		renderHand(g.DealerHand, g.HoleHidden),
	)
	player := lipgloss.JoinVertical(lipgloss.Left,
		HandLabelStyle.Render(fmt.Sprintf("You (%d)", g.PlayerScore)),
		renderHand(g.PlayerHand, false),
	)

	return lipgloss.JoinVertical(lipgloss.Left, dealer, player)
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(client *Client, logger *log.Logger) error {
	model := NewModel(client, logger)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
