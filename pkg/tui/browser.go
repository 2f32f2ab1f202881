package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/strategycontent/contentdesk/pkg/models"
	"github.com/strategycontent/contentdesk/pkg/session"
)

// BrowserModel lists the current directory of the repository.
type BrowserModel struct {
	ctrl    *session.Controller
	ctx     context.Context
	cursor  int
	offset  int
	loading bool
	failed  bool
	spinner spinner.Model
	confirm *ConfirmationModel
	prompt  *PromptModel
	width   int
	height  int
}

func NewBrowserModel(ctrl *session.Controller) *BrowserModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorActive))
	return &BrowserModel{
		ctrl:    ctrl,
		ctx:     context.Background(),
		spinner: s,
		confirm: NewConfirmation(),
		prompt:  NewPrompt(),
	}
}

func (m *BrowserModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Load navigates to p. The open file is closed when the listing arrives.
func (m *BrowserModel) Load(p string) tea.Cmd {
	m.loading = true
	return tea.Batch(fetchListing(m.ctx, m.ctrl, p, false), m.spinner.Tick)
}

// Reload lists p again without closing the open file.
func (m *BrowserModel) Reload(p string) tea.Cmd {
	return fetchListing(m.ctx, m.ctrl, p, true)
}

// Listed is called once a listing has been applied.
func (m *BrowserModel) Listed(keepCursor bool) {
	m.failed = false
	if !keepCursor {
		m.cursor = 0
		m.offset = 0
	}
	if m.cursor >= len(m.ctrl.Listing) {
		m.cursor = max(len(m.ctrl.Listing)-1, 0)
	}
}

func (m *BrowserModel) Reset() {
	m.cursor = 0
	m.offset = 0
	m.loading = false
	m.failed = false
	m.confirm.Hide()
}

func (m *BrowserModel) Update(msg tea.Msg) tea.Cmd {
	if m.prompt.Active() {
		return m.prompt.Update(msg)
	}
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.loading {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		if m.confirm.Active() {
			return m.confirm.Update(msg)
		}
		return m.handleKey(msg)
	}
	return nil
}

func (m *BrowserModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	entries := m.ctrl.Listing
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(entries)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(len(entries)-1, 0)
	case "enter", "right", "l":
		if m.loading || m.cursor >= len(entries) {
			return nil
		}
		e := entries[m.cursor]
		if e.IsDir() {
			return m.Load(e.Path)
		}
		m.loading = true
		return tea.Batch(fetchFile(m.ctx, m.ctrl, e.Path), m.spinner.Tick)
	case "backspace", "left", "h":
		if m.ctrl.Session.CurrentPath == "" {
			return nil
		}
		return m.Load(models.ParentPath(m.ctrl.Session.CurrentPath))
	case "r":
		return m.Load(m.ctrl.Session.CurrentPath)
	case "n":
		return m.newFile()
	case "L":
		m.confirm.ShowDialog("Log out", "Log out and forget the stored token?",
			"You will need to log in again to edit content.", true, min(m.width-4, 60),
			func() tea.Cmd { return func() tea.Msg { return logoutMsg{} } }, nil)
	case "q":
		return tea.Quit
	}
	return nil
}

// newFile asks for a collection, unless the current directory belongs to
// one, and then for a file name.
func (m *BrowserModel) newFile() tea.Cmd {
	if m.ctrl.Config == nil {
		return nil
	}
	askName := func(collection string) tea.Cmd {
		return m.prompt.Ask(fmt.Sprintf("New file in %s", collection), "", func(name string) tea.Cmd {
			if err := m.ctrl.CreateNew(collection, name); err != nil {
				return func() tea.Msg { return errMsg{context: "Cannot create file", err: err} }
			}
			return func() tea.Msg { return SwitchViewMsg{view: editorView} }
		}, nil)
	}
	if col := models.CollectionOf(m.ctrl.Session.CurrentPath); col != "" {
		if _, ok := m.ctrl.Config.Collection(col); ok {
			return askName(col)
		}
	}
	m.prompt.Choose("Collection", m.ctrl.Config.CollectionNames(), askName, nil)
	return nil
}

func (m *BrowserModel) View() string {
	var b strings.Builder
	b.WriteString(GetActiveHeaderStyle(true).Render("/" + m.ctrl.Session.CurrentPath))
	if m.loading {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n\n")

	if m.prompt.Active() {
		b.WriteString(m.prompt.View())
		return ContentPaddingStyle.Render(b.String())
	}

	entries := m.ctrl.Listing
	switch {
	case m.failed:
		b.WriteString(ErrorStyle.Render("Error loading content."))
	case len(entries) == 0 && !m.loading:
		b.WriteString(EmptyInactiveStyle.Render("No files in this directory."))
	default:
		m.renderEntries(&b, entries)
	}

	b.WriteString("\n\n")
	if m.confirm.Active() {
		b.WriteString(m.confirm.View())
	} else {
		b.WriteString(HelpStyle.Render("↑/↓ move • enter open • ← back • n new • r refresh • L logout • q quit"))
	}
	return ContentPaddingStyle.Render(b.String())
}

func (m *BrowserModel) renderEntries(b *strings.Builder, entries []models.DirEntry) {
	// title, blank line, help
	visible := m.height - 5
	if visible < 1 {
		visible = len(entries)
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	end := min(m.offset+visible, len(entries))
	for i := m.offset; i < end; i++ {
		e := entries[i]
		name := e.Name
		if e.IsDir() {
			name += "/"
		}
		line := "  " + name
		if i == m.cursor {
			line = SelectedStyle.Render("▸ " + name)
		} else if e.IsDir() {
			line = TypeHeaderStyle.Render(line)
		} else {
			line = NormalStyle.Render(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
}
