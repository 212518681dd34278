// Package tui is the terminal chat client: a login view and a chat view
// driven by a client.SessionManager.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"realtime_chat/internal/client"
	"realtime_chat/internal/models"
	"realtime_chat/internal/protocol"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const requestTimeout = 15 * time.Second

// Authenticator is the REST side of the server.
type Authenticator interface {
	SignUp(ctx context.Context, username, password string) (client.Session, error)
	Login(ctx context.Context, username, password string) (client.Session, error)
	MintGuest(ctx context.Context, username string) (models.Identity, error)
}

// Conversation is the realtime side of the server.
type Conversation interface {
	Connect(ctx context.Context, h client.Handshake) error
	Events() <-chan client.Event
	Send(text string) error
	Close() error
}

type view int

const (
	viewLoading view = iota
	viewLogin
	viewChat
)

type restoredMsg struct{}

type authDoneMsg struct {
	session client.Session
	err     error
}

type guestDoneMsg struct {
	guest models.Identity
	err   error
}

type connectedMsg struct{ err error }

type sendDoneMsg struct{ err error }

type chatEventMsg client.Event

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	nameStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	selfStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type Model struct {
	auth    Authenticator
	chat    Conversation
	session *client.SessionManager

	view     view
	busy     bool
	status   string
	username textinput.Model
	password textinput.Model
	focus    int

	input     textinput.Model
	history   viewport.Model
	messages  []protocol.Message
	connected bool

	width, height int
}

func NewModel(auth Authenticator, chat Conversation, session *client.SessionManager) Model {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 64
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	input := textinput.New()
	input.Placeholder = "Type a message"
	input.CharLimit = 1000

	return Model{
		auth:     auth,
		chat:     chat,
		session:  session,
		view:     viewLoading,
		username: username,
		password: password,
		input:    input,
		history:  viewport.New(80, 20),
	}
}

func (m Model) Init() tea.Cmd {
	session := m.session
	return tea.Batch(textinput.Blink, func() tea.Msg {
		session.Restore()
		return restoredMsg{}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.history.Width = msg.Width
		m.history.Height = max(msg.Height-4, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.renderHistory()
		return m, nil

	case restoredMsg:
		return m.route(true)

	case authDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = errorText(msg.err)
			return m, nil
		}
		if err := m.session.SignIn(msg.session); err != nil {
			m.status = err.Error()
			return m, nil
		}
		return m.route(true)

	case guestDoneMsg:
		m.busy = false
		var err error
		if msg.err != nil {
			// older servers have no guest endpoint
			err = m.session.ContinueAsGuest()
		} else {
			err = m.session.AdoptGuest(msg.guest)
		}
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		return m.route(true)

	case connectedMsg:
		if msg.err != nil {
			m.status = msg.err.Error() + " (ctrl+r to retry)"
			return m, nil
		}
		m.connected = true
		m.status = ""
		return m, m.waitForEvent()

	case chatEventMsg:
		if m.view != viewChat {
			return m, nil
		}
		if msg.Kind == client.EventClosed {
			m.connected = false
			if errors.Is(msg.Err, client.ErrAuthentication) {
				return m.signOut(protocol.AuthErrorReason)
			}
			m.status = "disconnected (ctrl+r to reconnect)"
			return m, nil
		}
		m.messages = msg.Messages
		m.renderHistory()
		return m, m.waitForEvent()

	case sendDoneMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.connected {
				_ = m.chat.Close()
			}
			return m, tea.Quit
		}
		switch m.view {
		case viewLogin:
			return m.updateLogin(msg)
		case viewChat:
			return m.updateChat(msg)
		}
	}
	return m, nil
}

// route moves between views as the session manager decides.
func (m Model) route(inAuth bool) (tea.Model, tea.Cmd) {
	switch m.session.Route(inAuth) {
	case client.RouteChat:
		m.view = viewChat
		m.status = ""
		m.messages = nil
		m.renderHistory()
		return m, tea.Batch(m.input.Focus(), m.connect())
	case client.RouteStay:
		if m.session.State() == client.Unauthenticated {
			m.view = viewLogin
		}
	case client.RouteAuth:
		m.view = viewLogin
	}
	return m, nil
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		m.focus = 1 - m.focus
		if m.focus == 0 {
			m.password.Blur()
			return m, m.username.Focus()
		}
		m.username.Blur()
		return m, m.password.Focus()
	case "enter", "ctrl+s":
		username, password := strings.TrimSpace(m.username.Value()), m.password.Value()
		if username == "" || password == "" {
			m.status = "Username and password are required"
			return m, nil
		}
		m.busy = true
		m.status = ""
		if msg.String() == "ctrl+s" {
			return m, m.authCmd(m.auth.SignUp, username, password)
		}
		return m, m.authCmd(m.auth.Login, username, password)
	case "ctrl+g":
		m.busy = true
		m.status = ""
		auth := m.auth
		name := strings.TrimSpace(m.username.Value())
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			g, err := auth.MintGuest(ctx, name)
			return guestDoneMsg{guest: g, err: err}
		}
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := m.input.Value()
		m.input.Reset()
		if strings.TrimSpace(text) == "" || !m.connected {
			return m, nil
		}
		chat := m.chat
		return m, func() tea.Msg { return sendDoneMsg{err: chat.Send(text)} }
	case "ctrl+o":
		if m.connected {
			_ = m.chat.Close()
			m.connected = false
		}
		return m.signOut("")
	case "ctrl+r":
		if m.connected {
			return m, nil
		}
		m.status = "connecting..."
		return m, m.connect()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) signOut(status string) (tea.Model, tea.Cmd) {
	if err := m.session.SignOut(); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.view = viewLogin
	m.status = status
	m.messages = nil
	m.password.Reset()
	m.password.Blur()
	m.input.Blur()
	m.focus = 0
	return m, m.username.Focus()
}

type authFunc func(ctx context.Context, username, password string) (client.Session, error)

func (m Model) authCmd(fn authFunc, username, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		s, err := fn(ctx, username, password)
		return authDoneMsg{session: s, err: err}
	}
}

func (m Model) connect() tea.Cmd {
	chat, handshake := m.chat, m.session.Handshake()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return connectedMsg{err: chat.Connect(ctx, handshake)}
	}
}

func (m Model) waitForEvent() tea.Cmd {
	events := m.chat.Events()
	return func() tea.Msg { return chatEventMsg(<-events) }
}

func (m *Model) renderHistory() {
	self := m.session.Identity().UserID
	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		style := nameStyle
		if msg.UserID == self {
			style = selfStyle
		}
		fmt.Fprintf(&b, "%s %s %s",
			timeStyle.Render(msg.Timestamp.Local().Format("15:04")),
			style.Render(msg.Username+":"),
			msg.Text)
	}
	m.history.SetContent(b.String())
	m.history.GotoBottom()
}

func (m Model) View() string {
	switch m.view {
	case viewLogin:
		return m.loginView()
	case viewChat:
		return m.chatView()
	default:
		return "Loading..."
	}
}

func (m Model) loginView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Realtime Chat") + "\n\n")
	b.WriteString(m.username.View() + "\n")
	b.WriteString(m.password.View() + "\n\n")
	if m.busy {
		b.WriteString("working...\n")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}
	b.WriteString(helpStyle.Render("enter: log in • ctrl+s: sign up • ctrl+g: continue as guest • ctrl+c: quit"))
	return b.String()
}

func (m Model) chatView() string {
	who := m.session.Identity()
	header := titleStyle.Render("Chat") + " " + helpStyle.Render("as "+who.Username)
	if who.IsGuest {
		header += helpStyle.Render(" (guest)")
	}
	footer := helpStyle.Render("enter: send • pgup/pgdown: scroll • ctrl+o: sign out • ctrl+c: quit")
	if m.status != "" {
		footer = statusStyle.Render(m.status)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, m.history.View(), m.input.View(), footer)
}

// errorText is what the login view shows for a failed request: the server's
// own message when there is one.
func errorText(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
