package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// PromptModel asks for one line of input, or for one of a fixed set of
// choices when choices are given.
type PromptModel struct {
	active   bool
	title    string
	input    textinput.Model
	choices  []string
	cursor   int
	onSubmit func(string) tea.Cmd
	onCancel func() tea.Cmd
}

func NewPrompt() *PromptModel {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50
	return &PromptModel{input: ti}
}

// Ask shows a free-text prompt prefilled with initial.
func (p *PromptModel) Ask(title, initial string, onSubmit func(string) tea.Cmd, onCancel func() tea.Cmd) tea.Cmd {
	p.reset(title, onSubmit, onCancel)
	p.input.EchoMode = textinput.EchoNormal
	p.input.SetValue(initial)
	p.input.CursorEnd()
	return p.input.Focus()
}

// AskSecret is Ask with the input masked.
func (p *PromptModel) AskSecret(title string, onSubmit func(string) tea.Cmd, onCancel func() tea.Cmd) tea.Cmd {
	p.reset(title, onSubmit, onCancel)
	p.input.EchoMode = textinput.EchoPassword
	p.input.EchoCharacter = '•'
	p.input.SetValue("")
	return p.input.Focus()
}

// Choose shows choices and submits the selected one.
func (p *PromptModel) Choose(title string, choices []string, onSubmit func(string) tea.Cmd, onCancel func() tea.Cmd) {
	p.reset(title, onSubmit, onCancel)
	p.choices = choices
	p.input.Blur()
}

func (p *PromptModel) reset(title string, onSubmit func(string) tea.Cmd, onCancel func() tea.Cmd) {
	p.active = true
	p.title = title
	p.choices = nil
	p.cursor = 0
	p.onSubmit = onSubmit
	p.onCancel = onCancel
}

func (p *PromptModel) Active() bool {
	return p.active
}

func (p *PromptModel) Update(msg tea.Msg) tea.Cmd {
	if !p.active {
		return nil
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEsc:
			p.close()
			if p.onCancel != nil {
				return p.onCancel()
			}
			return nil
		case tea.KeyEnter:
			value := p.input.Value()
			if p.choices != nil {
				if len(p.choices) == 0 {
					return nil
				}
				value = p.choices[p.cursor]
			}
			p.close()
			if p.onSubmit != nil {
				return p.onSubmit(value)
			}
			return nil
		}
		if p.choices != nil {
			switch key.String() {
			case "up", "k":
				if p.cursor > 0 {
					p.cursor--
				}
			case "down", "j":
				if p.cursor < len(p.choices)-1 {
					p.cursor++
				}
			}
			return nil
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

func (p *PromptModel) close() {
	p.active = false
	p.input.Blur()
}

func (p *PromptModel) View() string {
	if !p.active {
		return ""
	}
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(p.title))
	b.WriteString("\n")
	if p.choices == nil {
		b.WriteString(p.input.View())
		return InputStyle.Render(b.String())
	}
	for i, c := range p.choices {
		if i == p.cursor {
			b.WriteString(SelectedStyle.Render("▸ " + c))
		} else {
			b.WriteString(NormalStyle.Render("  " + c))
		}
		b.WriteString("\n")
	}
	return InputStyle.Render(strings.TrimSuffix(b.String(), "\n"))
}
