package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/strategycontent/contentdesk/pkg/auth"
)

type authURLMsg string

// LoginModel gates the application until a token is obtained, either by
// the browser flow or by pasting one.
type LoginModel struct {
	provider auth.Provider
	urls     <-chan string
	prompt   *PromptModel
	spinner  spinner.Model
	waiting  bool
	authURL  string
	cancel   context.CancelFunc
	width    int
	height   int
}

func NewLoginModel(provider auth.Provider, urls <-chan string) *LoginModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorActive))
	return &LoginModel{
		provider: provider,
		urls:     urls,
		prompt:   NewPrompt(),
		spinner:  s,
	}
}

func (m *LoginModel) Init() tea.Cmd {
	return nil
}

func (m *LoginModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Done stops waiting for a running login.
func (m *LoginModel) Done() {
	m.waiting = false
	m.authURL = ""
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *LoginModel) Update(msg tea.Msg) tea.Cmd {
	if m.prompt.Active() {
		return m.prompt.Update(msg)
	}
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.waiting {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd
	case authURLMsg:
		if m.waiting {
			m.authURL = string(msg)
		}
		return nil
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if m.waiting {
				return nil
			}
			return m.start()
		case "t":
			if m.waiting {
				return nil
			}
			return m.prompt.AskSecret("Paste a GitHub access token", func(token string) tea.Cmd {
				token = strings.TrimSpace(token)
				if token == "" {
					return nil
				}
				return func() tea.Msg { return loginResultMsg{token: token} }
			}, nil)
		case "esc":
			if m.waiting {
				m.Done()
				return func() tea.Msg { return StatusMsg("Login cancelled.") }
			}
		case "q":
			if !m.waiting {
				return tea.Quit
			}
		}
	}
	return nil
}

func (m *LoginModel) start() tea.Cmd {
	if m.provider == nil {
		return func() tea.Msg { return errMsg{context: "Login failed", err: auth.ErrNotConfigured} }
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.waiting = true
	provider := m.provider
	login := func() tea.Msg {
		token, err := provider.Login(ctx)
		return loginResultMsg{token: token, err: err}
	}
	return tea.Batch(login, m.spinner.Tick, waitForAuthURL(m.urls))
}

func waitForAuthURL(urls <-chan string) tea.Cmd {
	if urls == nil {
		return nil
	}
	return func() tea.Msg {
		u, ok := <-urls
		if !ok {
			return nil
		}
		return authURLMsg(u)
	}
}

func (m *LoginModel) View() string {
	var b strings.Builder
	b.WriteString(TypeHeaderStyle.Render("Log in to GitHub"))
	b.WriteString("\n\n")

	switch {
	case m.prompt.Active():
		b.WriteString(m.prompt.View())
	case m.waiting:
		b.WriteString(m.spinner.View() + " Waiting for authorization in your browser...")
		if m.authURL != "" {
			b.WriteString("\n\n")
			b.WriteString(DescriptionStyle.Render("If no browser opened, visit:"))
			b.WriteString("\n")
			b.WriteString(NormalStyle.Render(m.authURL))
		}
		b.WriteString("\n\n")
		b.WriteString(HelpStyle.Render("esc cancel"))
	default:
		b.WriteString(NormalStyle.Render("You need to log in before browsing content."))
		b.WriteString("\n\n")
		b.WriteString(HelpStyle.Render("enter log in with browser • t paste token • q quit"))
	}
	return ContentPaddingStyle.Render(b.String())
}
