package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"gopkg.in/yaml.v3"

	"github.com/strategycontent/contentdesk/pkg/commit"
	"github.com/strategycontent/contentdesk/pkg/form"
	"github.com/strategycontent/contentdesk/pkg/frontmatter"
	"github.com/strategycontent/contentdesk/pkg/models"
	"github.com/strategycontent/contentdesk/pkg/session"
)

type editMode int

const (
	editNone editMode = iota
	editInline
	editArea
	editMarkdown
)

// EditorModel shows the form of the open file.
type EditorModel struct {
	ctrl *session.Controller
	wf   *commit.Workflow
	pool *TextareaPool
	ctx  context.Context

	rows   []form.Row
	cursor int
	offset int

	mode    editMode
	control *form.ControlNode
	input   textinput.Model
	area    textarea.Model
	md      *textarea.Model

	showBody bool
	body     viewport.Model

	confirm  *ConfirmationModel
	prompt   *PromptModel
	spinner  spinner.Model
	saving   bool
	baseline string

	width  int
	height int
}

func NewEditorModel(ctrl *session.Controller, wf *commit.Workflow, pool *TextareaPool) *EditorModel {
	ti := textinput.New()
	ti.CharLimit = 0
	ti.Width = 60
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorActive))
	return &EditorModel{
		ctrl:    ctrl,
		wf:      wf,
		pool:    pool,
		ctx:     context.Background(),
		input:   ti,
		area:    newTextarea(),
		body:    viewport.New(80, 20),
		confirm: NewConfirmation(),
		prompt:  NewPrompt(),
		spinner: s,
	}
}

func (m *EditorModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.body.Width = max(width-4, 20)
	m.body.Height = max(height-4, 5)
	m.input.Width = max(width-10, 20)
	m.area.SetWidth(max(width-8, 20))
}

// Load shows the file the controller just opened.
func (m *EditorModel) Load() {
	m.mode = editNone
	m.control = nil
	m.md = nil
	m.showBody = false
	m.offset = 0
	m.confirm.Hide()
	m.rebuild()
	m.cursor = m.nextFocusable(-1, 1)
	m.baseline = m.raw()
}

func (m *EditorModel) Reset() {
	m.mode = editNone
	m.control = nil
	m.md = nil
	m.rows = nil
	m.showBody = false
	m.confirm.Hide()
}

func (m *EditorModel) rebuild() {
	m.rows = nil
	if m.ctrl.Form != nil {
		m.rows = m.ctrl.Form.Rows()
	}
	if m.cursor >= len(m.rows) {
		m.cursor = m.nextFocusable(len(m.rows), -1)
	}
}

// nextFocusable returns the first focusable row after from in direction
// dir, or from itself when there is none.
func (m *EditorModel) nextFocusable(from, dir int) int {
	for i := from + dir; i >= 0 && i < len(m.rows); i += dir {
		if m.rows[i].Focusable() {
			return i
		}
	}
	if from < 0 || from >= len(m.rows) {
		return 0
	}
	return from
}

func (m *EditorModel) focusPath(p string) {
	for i, r := range m.rows {
		if r.Path == p && r.Focusable() {
			m.cursor = i
			return
		}
	}
}

func (m *EditorModel) current() (form.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return form.Row{}, false
	}
	return m.rows[m.cursor], true
}

// data is what a save would commit as metadata.
func (m *EditorModel) data() map[string]interface{} {
	if m.ctrl.Form != nil {
		return m.ctrl.Form.Read()
	}
	return m.ctrl.File.Metadata
}

func (m *EditorModel) raw() string {
	raw, err := frontmatter.Join(m.data(), m.ctrl.File.BodyText())
	if err != nil {
		return ""
	}
	return raw
}

// Dirty reports unsaved changes. A file never committed is always dirty.
func (m *EditorModel) Dirty() bool {
	return m.ctrl.File.IsNew() || m.raw() != m.baseline
}

// SaveFinished re-enables saving once a commit has returned.
func (m *EditorModel) SaveFinished(msg savedMsg) {
	m.saving = false
	if msg.err == nil && msg.result.Path == m.ctrl.File.Path {
		m.baseline = msg.raw
	}
}

func (m *EditorModel) Update(msg tea.Msg) tea.Cmd {
	if m.prompt.Active() {
		return m.prompt.Update(msg)
	}
	if tick, ok := msg.(spinner.TickMsg); ok {
		if !m.saving {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(tick)
		return cmd
	}
	if m.mode != editNone {
		return m.updateEditing(msg)
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	if m.confirm.Active() {
		return m.confirm.Update(key)
	}
	if m.showBody {
		switch key.String() {
		case "b", "esc", "q":
			m.showBody = false
			return nil
		}
		var cmd tea.Cmd
		m.body, cmd = m.body.Update(msg)
		return cmd
	}
	return m.handleKey(key)
}

func (m *EditorModel) handleKey(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "up", "k":
		m.cursor = m.nextFocusable(m.cursor, -1)
	case "down", "j":
		m.cursor = m.nextFocusable(m.cursor, 1)
	case "enter":
		return m.activate()
	case "K":
		return m.moveItem(session.MoveUp)
	case "J":
		return m.moveItem(session.MoveDown)
	case "d":
		return m.removeItem()
	case "ctrl+s":
		return m.askSave()
	case "b":
		m.showBody = true
		m.body.SetContent(wordwrap.String(m.ctrl.File.BodyText(), m.body.Width))
		m.body.GotoTop()
	case "y":
		return m.copy()
	case "esc":
		return m.leave()
	}
	return nil
}

func (m *EditorModel) activate() tea.Cmd {
	row, ok := m.current()
	if !ok {
		return nil
	}
	switch row.Kind {
	case form.RowControl:
		return m.startEdit(row.Control)
	case form.RowAdd:
		return m.addItem(row)
	case form.RowMismatch:
		return m.resetValue(row)
	}
	return nil
}

// resetValue offers to replace a value whose shape does not match its
// widget with an empty one.
func (m *EditorModel) resetValue(row form.Row) tea.Cmd {
	shape := "object"
	if row.Mismatch.Schema().Widget == models.WidgetList {
		shape = "list"
	}
	var details []string
	for i, line := range strings.Split(formatStored(row.Mismatch.Raw), "\n") {
		if i == 3 {
			details = append(details, "…")
			break
		}
		details = append(details, preview(line, 48))
	}
	m.confirm.Show(ConfirmationConfig{
		Title:       "Reset " + row.Label,
		Message:     fmt.Sprintf("Replace the stored %s with an empty %s?", row.Mismatch.Describe(), shape),
		Warning:     "The stored value is lost once you save.",
		Details:     details,
		Destructive: true,
		Type:        ConfirmTypeDialog,
		Width:       min(m.width-4, 64),
	}, func() tea.Cmd {
		if !m.ctrl.Form.Reset(row.Mismatch) {
			return nil
		}
		m.rebuild()
		m.focusPath(row.Path)
		return nil
	}, nil)
	return nil
}

func (m *EditorModel) startEdit(c *form.ControlNode) tea.Cmd {
	m.control = c
	switch c.Schema().Widget {
	case models.WidgetMarkdown:
		if ta, ok := m.pool.Textarea(c.EditorID); ok {
			m.mode = editMarkdown
			m.md = ta
			m.md.SetWidth(max(m.width-8, 20))
			return m.md.Focus()
		}
		fallthrough
	case models.WidgetText, models.WidgetCode:
		m.mode = editArea
		m.area.SetValue(c.Text())
		m.area.SetHeight(c.Schema().Widget.Rows())
		return m.area.Focus()
	}
	m.mode = editInline
	m.input.SetValue(c.Text())
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *EditorModel) updateEditing(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Type == tea.KeyEsc && m.mode == editInline:
			m.stopEdit()
			return nil
		case key.Type == tea.KeyEsc:
			m.finishEdit()
			return nil
		case key.Type == tea.KeyEnter && m.mode == editInline:
			m.finishEdit()
			return nil
		}
	}
	var cmd tea.Cmd
	switch m.mode {
	case editInline:
		m.input, cmd = m.input.Update(msg)
	case editArea:
		m.area, cmd = m.area.Update(msg)
	case editMarkdown:
		*m.md, cmd = m.md.Update(msg)
	}
	return cmd
}

func (m *EditorModel) finishEdit() {
	switch m.mode {
	case editInline:
		m.control.SetText(m.input.Value())
	case editArea:
		m.control.SetText(m.area.Value())
	case editMarkdown:
		m.control.SetText(m.md.Value())
	}
	m.stopEdit()
}

func (m *EditorModel) stopEdit() {
	m.input.Blur()
	m.area.Blur()
	if m.md != nil {
		m.md.Blur()
	}
	m.mode = editNone
	m.control = nil
	m.md = nil
}

func listPathOf(row form.Row) string {
	if row.Kind == form.RowAdd {
		return row.Path
	}
	if i := strings.LastIndex(row.Path, "."); i >= 0 {
		return row.Path[:i]
	}
	return row.Path
}

func (m *EditorModel) moveItem(op session.ListOp) tea.Cmd {
	row, ok := m.current()
	if !ok || (row.Kind != form.RowItem && row.Kind != form.RowUnknownItem) {
		return nil
	}
	target := row.Index - 1
	if op == session.MoveDown {
		target = row.Index + 1
	}
	listPath := listPathOf(row)
	if err := m.ctrl.MutateList(listPath, op, row.Index, ""); err != nil {
		// already at the edge
		return nil
	}
	m.rebuild()
	m.focusPath(fmt.Sprintf("%s.%d", listPath, target))
	return nil
}

func (m *EditorModel) removeItem() tea.Cmd {
	row, ok := m.current()
	if !ok || (row.Kind != form.RowItem && row.Kind != form.RowUnknownItem) {
		return nil
	}
	listPath := listPathOf(row)
	m.confirm.ShowInline(fmt.Sprintf("Remove %s?", row.Label), true, func() tea.Cmd {
		if err := m.ctrl.MutateList(listPath, session.Remove, row.Index, ""); err != nil {
			return func() tea.Msg { return errMsg{context: "Cannot remove item", err: err} }
		}
		m.rebuild()
		if n := row.List.Len(); n > 0 {
			m.focusPath(fmt.Sprintf("%s.%d", listPath, min(row.Index, n-1)))
		} else {
			m.focusPath(listPath)
		}
		return nil
	}, nil)
	return nil
}

func (m *EditorModel) addItem(row form.Row) tea.Cmd {
	variants := row.List.VariantNames()
	add := func(variant string) tea.Cmd {
		if err := m.ctrl.MutateList(row.Path, session.Add, 0, variant); err != nil {
			return func() tea.Msg { return errMsg{context: "Cannot add item", err: err} }
		}
		m.rebuild()
		m.focusPath(fmt.Sprintf("%s.%d", row.Path, row.List.Len()-1))
		return nil
	}
	switch len(variants) {
	case 0:
		return nil
	case 1:
		return add(variants[0])
	}
	m.prompt.Choose("Add "+row.Label, variants, add, nil)
	return nil
}

func (m *EditorModel) askSave() tea.Cmd {
	if m.saving || m.wf.State() == commit.Saving {
		return func() tea.Msg { return StatusMsg("A save is already in progress.") }
	}
	return m.prompt.Ask("Commit message", commit.DefaultMessage(&m.ctrl.File), m.save, func() tea.Cmd {
		return func() tea.Msg { return StatusMsg("Save cancelled.") }
	})
}

// save commits a copy of the open file; the controller takes the new
// revision token when the result arrives.
func (m *EditorModel) save(message string) tea.Cmd {
	file := m.ctrl.File
	var data map[string]interface{}
	if m.ctrl.Form != nil {
		data = m.ctrl.Form.Read()
	}
	raw := m.raw()
	m.saving = true
	wf, ctx := m.wf, m.ctx
	do := func() tea.Msg {
		res, err := wf.Save(ctx, commit.Request{File: &file, Data: data, Message: message})
		return savedMsg{result: res, data: data, raw: raw, err: err}
	}
	return tea.Batch(do, m.spinner.Tick)
}

func (m *EditorModel) copy() tea.Cmd {
	raw, err := frontmatter.Join(m.data(), m.ctrl.File.BodyText())
	if err != nil {
		return func() tea.Msg { return errMsg{context: "Cannot copy", err: err} }
	}
	if err := clipboard.WriteAll(raw); err != nil {
		return func() tea.Msg { return errMsg{context: "Failed to copy to clipboard", err: err} }
	}
	path := m.ctrl.File.Path
	return func() tea.Msg { return successMsg("Copied " + path + " to clipboard") }
}

func (m *EditorModel) leave() tea.Cmd {
	back := func() tea.Cmd {
		m.ctrl.CloseFile()
		m.Reset()
		return func() tea.Msg { return SwitchViewMsg{view: browserView} }
	}
	if m.Dirty() {
		m.confirm.ShowInline("Discard unsaved changes?", true, back, nil)
		return nil
	}
	return back()
}

func (m *EditorModel) View() string {
	var b strings.Builder
	title := m.ctrl.File.Path
	switch {
	case m.ctrl.File.IsNew():
		title += " [new]"
	case m.Dirty():
		title += " [modified]"
	}
	b.WriteString(GetActiveHeaderStyle(true).Render(title))
	if token := m.ctrl.File.RevisionToken; token != "" && !m.Dirty() {
		b.WriteString(" " + SuccessStyle.Render("✓ "+token[:min(len(token), 7)]))
	}
	if m.saving {
		b.WriteString(" " + m.spinner.View() + " saving")
	}
	b.WriteString("\n\n")

	switch {
	case m.prompt.Active():
		b.WriteString(m.prompt.View())
	case m.showBody:
		b.WriteString(HeaderStyle.Render("Body"))
		b.WriteString("\n")
		b.WriteString(InactiveBorderStyle.Render(m.body.View()))
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render("↑/↓ scroll • b close"))
	case m.ctrl.FormErr != nil:
		b.WriteString(PlaceholderStyle.Render("Could not find collection configuration."))
		b.WriteString("\n")
		b.WriteString(DescriptionStyle.Render(m.ctrl.FormErr.Error()))
		b.WriteString("\n\n")
		b.WriteString(HelpStyle.Render("b body • y copy • esc back"))
	default:
		b.WriteString(m.renderRows())
		b.WriteString("\n\n")
		if m.confirm.Active() {
			b.WriteString(m.confirm.View())
		} else {
			b.WriteString(HelpStyle.Render(m.help()))
		}
	}
	return ContentPaddingStyle.Render(b.String())
}

func (m *EditorModel) help() string {
	if m.mode == editInline {
		return "enter apply • esc cancel"
	}
	if m.mode != editNone {
		return "esc done"
	}
	return "↑/↓ move • enter edit • K/J reorder • d remove • ctrl+s save • b body • y copy • esc back"
}

func (m *EditorModel) renderRows() string {
	if len(m.rows) == 0 {
		return EmptyInactiveStyle.Render("This collection declares no fields.")
	}
	var lines []string
	cursorLine := 0
	for i, row := range m.rows {
		if i == m.cursor {
			cursorLine = len(lines)
		}
		lines = append(lines, m.renderRow(row, i == m.cursor))
		if i == m.cursor && m.mode != editNone {
			lines = append(lines, strings.Split(m.editorView(row.Depth), "\n")...)
		}
	}

	// title, blank, blank, help
	visible := m.height - 5
	if visible < 1 || len(lines) <= visible {
		return strings.Join(lines, "\n")
	}
	if cursorLine < m.offset {
		m.offset = cursorLine
	}
	if cursorLine >= m.offset+visible {
		m.offset = cursorLine - visible + 1
	}
	end := min(m.offset+visible, len(lines))
	return strings.Join(lines[m.offset:end], "\n")
}

func (m *EditorModel) renderRow(row form.Row, selected bool) string {
	indent := strings.Repeat("  ", row.Depth)
	var text string
	switch row.Kind {
	case form.RowGroup:
		return indent + "  " + TypeHeaderStyle.Render(row.Label)
	case form.RowList:
		return indent + "  " + TypeHeaderStyle.Render(fmt.Sprintf("%s (%d)", row.Label, row.List.Len()))
	case form.RowItem:
		text = "• " + row.Label
	case form.RowUnknownItem:
		line := indent + "  " + GreyedStyle.Render(row.Label+" (unknown type, kept as is)")
		if selected {
			line = indent + CursorStyle.Render("▸ ") + GreyedStyle.Render(row.Label+" (unknown type, kept as is)")
		}
		return line
	case form.RowMismatch:
		text = fmt.Sprintf("%s: stored %s does not match the schema, kept as is", row.Label, row.Mismatch.Describe())
		if selected {
			return indent + CursorStyle.Render("▸ ") + GreyedStyle.Render(text)
		}
		return indent + "  " + GreyedStyle.Render(text)
	case form.RowAdd:
		text = "+ " + row.Label
	case form.RowControl:
		text = row.Label + ": " + m.valuePreview(row.Control)
	}
	if selected {
		return indent + SelectedStyle.Render("▸ "+text)
	}
	if row.Kind == form.RowAdd {
		return indent + "  " + DescriptionStyle.Render(text)
	}
	return indent + "  " + NormalStyle.Render(text)
}

func (m *EditorModel) editorView(depth int) string {
	var view string
	switch m.mode {
	case editInline:
		view = m.input.View()
	case editArea:
		view = m.area.View()
	case editMarkdown:
		view = m.md.View()
	}
	return lipgloss.NewStyle().MarginLeft(depth*2 + 4).Render(InputStyle.Render(view))
}

// valuePreview shows multi-line values as a line count when previews are
// turned off in the settings.
func (m *EditorModel) valuePreview(c *form.ControlNode) string {
	settings := m.ctrl.Settings()
	if settings == nil || settings.UI.ShowPreview || c.Schema().Widget == models.WidgetScalar {
		return preview(c.Text(), 60)
	}
	if c.Text() == "" {
		return "(empty)"
	}
	n := strings.Count(c.Text(), "\n") + 1
	if n == 1 {
		return "(1 line)"
	}
	return fmt.Sprintf("(%d lines)", n)
}

func formatStored(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(string(out), "\n")
}

// preview is the first line of s cut to width runes.
func preview(s string, width int) string {
	first, _, multi := strings.Cut(s, "\n")
	r := []rune(first)
	if len(r) > width {
		return string(r[:width-1]) + "…"
	}
	if multi {
		return first + " …"
	}
	return first
}
