package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tatianab/werewolf/internal/models"
	"github.com/tatianab/werewolf/internal/session"
)

type sessionState int

const (
	statePlaying sessionState = iota
	stateFinished
)

type model struct {
	state     sessionState
	session   *session.Session
	role      models.Role
	notices   <-chan models.Notice
	textInput textinput.Model
	viewport  viewport.Model
	gameLog   string
	width     int
	height    int

	prompt   *models.Notice
	day      int
	phase    models.Phase
	alive    []int
	speech   string
	feedback string
	winner   models.Winner
	saved    string
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87AFFF")).
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	deadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5F5F5F")).
			Strikethrough(true)
)

func newModel(sess *session.Session, notices <-chan models.Notice) model {
	ti := textinput.New()
	ti.Placeholder = "Waiting for the game..."
	ti.Focus()
	ti.CharLimit = 400
	ti.Width = 60

	return model{
		state:     statePlaying,
		session:   sess,
		role:      sess.HumanRole(),
		notices:   notices,
		textInput: ti,
		alive:     []int{1, 2, 3, 4, 5, 6},
		day:       1,
		phase:     models.PhaseNight,
	}
}

type noticeMsg struct {
	notice models.Notice
}

type streamClosedMsg struct{}

type respondedMsg struct {
	err error
}

func waitForNotice(ch <-chan models.Notice) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return noticeMsg{n}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForNotice(m.notices))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}
			m.textInput.Reset()

			switch input {
			case "/quit":
				return m, tea.Quit
			case "/review":
				m.appendReview()
				return m, nil
			case "/saved":
				m.appendSaved()
				return m, nil
			}
			if m.state != statePlaying {
				return m, nil
			}

			resp, err := parseCommand(input, m.prompt)
			if err != nil {
				m.feedback = err.Error()
				return m, nil
			}
			m.appendLog(userStyle.Width(m.logWidth()).Render("> " + input))
			return m, m.respond(resp)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.viewport.Width == 0 {
			m.viewport = viewport.New(m.logWidth(), msg.Height-7)
		}
		m.viewport.Width = m.logWidth()
		m.viewport.Height = msg.Height - 7
		m.refresh()

	case noticeMsg:
		m.handleNotice(msg.notice)
		return m, waitForNotice(m.notices)

	case streamClosedMsg:
		if m.state == statePlaying {
			m.state = stateFinished
		}
		return m, nil

	case respondedMsg:
		if msg.err != nil {
			m.feedback = msg.err.Error()
			return m, nil
		}
		m.feedback = ""
		m.prompt = nil
		m.textInput.Placeholder = "Waiting for the game..."
		return m, nil
	}

	m.textInput, cmd = m.textInput.Update(msg)
	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(cmd, vpCmd)
}

func (m *model) handleNotice(n models.Notice) {
	if n.Day > 0 {
		m.day = n.Day
	}
	if n.Phase != "" {
		m.phase = n.Phase
	}
	if n.Alive != nil {
		m.alive = n.Alive
	}

	if n.Type == models.NoticeSpeak {
		if n.MessageID != m.speech {
			m.speech = n.MessageID
			m.gameLog += "\n\n" + speakerStyle.Render(models.SeatName(n.Seat)+":") + " "
		}
		m.gameLog += n.Content
		m.refresh()
		return
	}
	m.speech = ""

	switch n.Type {
	case models.NoticeAct, models.NoticeConversation, models.NoticeUserSpeak, models.NoticeVoting:
		m.prompt = &n
		m.appendLog(promptStyle.Render(n.Content))
		m.textInput.Placeholder = usage(m.prompt)
	case models.NoticeFinish:
		m.state = stateFinished
		m.winner = n.Winner
		m.prompt = nil
		m.appendLog(promptStyle.Render(n.Content))
		m.saveReview()
	default:
		m.appendLog(gameStyle.Render(n.Content))
	}
}

func (m *model) saveReview() {
	review := m.session.Review()
	if err := review.Save(review.ID); err != nil {
		m.feedback = fmt.Sprintf("saving review: %v", err)
		return
	}
	m.saved = review.ID
}

func (m *model) appendReview() {
	review := m.session.Review()
	var b strings.Builder
	b.WriteString(titleStyle.Render("REVIEW"))
	for _, e := range review.Entries {
		fmt.Fprintf(&b, "\nDay %d (%s): %s", e.Day, e.Phase, e.Content)
	}
	m.appendLog(b.String())
}

func (m *model) appendSaved() {
	names, err := models.ListReviews()
	if err != nil {
		m.feedback = fmt.Sprintf("listing reviews: %v", err)
		return
	}
	if len(names) == 0 {
		m.appendLog(helpStyle.Render("No saved games in " + models.SaveDir))
		return
	}
	m.appendLog(titleStyle.Render("SAVED GAMES") + "\n" + strings.Join(names, "\n"))
}

func (m *model) appendLog(s string) {
	if m.gameLog != "" {
		s = "\n\n" + s
	}
	m.gameLog += s
	m.refresh()
}

func (m *model) refresh() {
	m.viewport.SetContent(m.renderLog())
	m.viewport.GotoBottom()
}

func (m model) logWidth() int {
	return int(float64(m.width) * 0.72)
}

func (m model) View() string {
	mainView := lipgloss.JoinHorizontal(lipgloss.Top,
		m.viewport.View(),
		m.renderState(),
	)

	help := "Commands: kill N, poison N, save N, check N, vote N, talk <msg>, none, /review, /saved, /quit"
	if m.state == stateFinished {
		help = "The game is over. /review shows the full record, /saved lists past games, /quit leaves."
	}
	feedback := ""
	if m.feedback != "" {
		feedback = "\n" + errorStyle.Render(m.feedback)
	}

	return "\n" + lipgloss.JoinVertical(lipgloss.Left,
		mainView,
		"\n"+m.textInput.View(),
		feedback,
		helpStyle.Render(help),
	) + "\n"
}

func (m model) renderState() string {
	you := titleStyle.Render("YOU") + "\n" +
		fmt.Sprintf("%s, the %s\n\n", models.SeatName(models.HumanSeat), m.role)

	clock := titleStyle.Render("DAY") + "\n" +
		fmt.Sprintf("Day %d, %s\n\n", m.day, m.phase)

	var players strings.Builder
	players.WriteString(titleStyle.Render("PLAYERS") + "\n")
	var seats []models.Seat
	if m.state == stateFinished {
		seats = m.session.Review().Seats
	}
	for id := 1; id <= models.SeatCount; id++ {
		line := models.SeatName(id)
		if id <= len(seats) {
			line += fmt.Sprintf(" (%s)", seats[id-1].Role)
		}
		if !slices.Contains(m.alive, id) {
			line = deadStyle.Render(line)
		}
		players.WriteString(line + "\n")
	}

	result := ""
	if m.state == stateFinished {
		result = "\n" + titleStyle.Render("RESULT") + "\n"
		if m.winner == models.NoWinner {
			result += "No winner\n"
		} else {
			result += fmt.Sprintf("The %s win\n", m.winner)
		}
		if m.saved != "" {
			result += fmt.Sprintf("Saved as %s\n", m.saved)
		}
	}

	content := you + clock + players.String() + result
	stateWidth := int(float64(m.width) * 0.25)
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(content)
}

func (m model) renderLog() string {
	return gameStyle.Width(m.logWidth()).Render(m.gameLog)
}

func (m model) respond(resp models.Response) tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		return respondedMsg{sess.Respond(resp)}
	}
}

// Run plays sess in the terminal until the player quits. The game loop runs
// in the background and stops when Run returns.
func Run(ctx context.Context, sess *session.Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	notices := make(chan models.Notice, 64)
	streamErr := make(chan error, 1)
	go func() {
		defer close(notices)
		streamErr <- sess.Stream(ctx, func(n models.Notice) error {
			select {
			case notices <- n:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	p := tea.NewProgram(newModel(sess, notices), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	cancel()
	if serr := <-streamErr; serr != nil && err == nil {
		err = serr
	}
	return err
}
