// Package tui is the terminal front end: a login view, a repository
// browser and a schema-driven form editor over one session.Controller.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/strategycontent/contentdesk/pkg/auth"
	"github.com/strategycontent/contentdesk/pkg/commit"
	"github.com/strategycontent/contentdesk/pkg/models"
	"github.com/strategycontent/contentdesk/pkg/remote"
	"github.com/strategycontent/contentdesk/pkg/session"
)

type sessionState int

const (
	loginView sessionState = iota
	browserView
	editorView
	schemaErrorView
)

const statusTimeout = 5 * time.Second

type statusKind int

const (
	statusInfo statusKind = iota
	statusError
	statusSuccess
)

// Deps are the collaborators the App drives.
type Deps struct {
	Controller *session.Controller
	Workflow   *commit.Workflow
	Auth       auth.Provider
	// AuthURLs delivers the authorize URL of a running login so the login
	// view can show it.
	AuthURLs <-chan string
	Pool     *TextareaPool
	// SchemaErr disables the browser and editor.
	SchemaErr error
	// LoadConfig fetches the field schema after login when it could not be
	// read before, e.g. because it lives in the repository.
	LoadConfig func(ctx context.Context) (*models.EditorConfig, error)
	Repo       string
	Log        *zap.SugaredLogger
}

type App struct {
	deps    Deps
	ctrl    *session.Controller
	ctx     context.Context
	state   sessionState
	login   *LoginModel
	browser *BrowserModel
	editor  *EditorModel
	width   int
	height  int

	statusMsg  string
	statusKind statusKind
	statusSeq  int
}

func NewApp(deps Deps) *App {
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}
	if deps.Pool == nil {
		deps.Pool = NewTextareaPool()
	}
	a := &App{
		deps: deps,
		ctrl: deps.Controller,
		ctx:  context.Background(),
	}
	a.login = NewLoginModel(deps.Auth, deps.AuthURLs)
	a.browser = NewBrowserModel(deps.Controller)
	a.editor = NewEditorModel(deps.Controller, deps.Workflow, deps.Pool)
	a.state = a.homeState()
	return a
}

func (a *App) homeState() sessionState {
	switch {
	case !a.ctrl.Authenticated():
		return loginView
	case a.deps.SchemaErr != nil:
		return schemaErrorView
	}
	return browserView
}

func (a *App) Init() tea.Cmd {
	switch a.state {
	case loginView:
		return a.login.Init()
	case browserView:
		return a.browser.Load("")
	}
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// header and status bar
		bodyHeight := msg.Height - 3
		a.login.SetSize(msg.Width, bodyHeight)
		a.browser.SetSize(msg.Width, bodyHeight)
		a.editor.SetSize(msg.Width, bodyHeight)
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
		if a.state == schemaErrorView {
			switch msg.String() {
			case "q":
				return a, tea.Quit
			case "L":
				return a, a.logout("Logged out.")
			}
			return a, nil
		}

	case StatusMsg:
		return a, a.setStatus(string(msg), statusInfo)
	case successMsg:
		return a, a.setStatus(string(msg), statusSuccess)
	case errMsg:
		return a, a.fail(msg.context, msg.err)
	case clearStatusMsg:
		if msg.seq == a.statusSeq {
			a.statusMsg = ""
		}
		return a, nil

	case SwitchViewMsg:
		return a, a.switchTo(msg.view)

	case logoutMsg:
		return a, a.logout("Logged out.")

	case loginResultMsg:
		a.login.Done()
		if errors.Is(msg.err, context.Canceled) {
			return a, nil
		}
		if msg.err != nil {
			return a, a.setStatus("Login failed: "+msg.err.Error(), statusError)
		}
		if err := a.ctrl.Login(a.ctx, msg.token); err != nil {
			return a, a.setStatus("Login failed: "+err.Error(), statusError)
		}
		status := a.setStatus("Logged in.", statusSuccess)
		if a.ctrl.Config == nil && a.deps.LoadConfig != nil {
			return a, tea.Batch(status, a.loadConfig())
		}
		return a, tea.Batch(status, a.enter())

	case configLoadedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, remote.ErrUnauthenticated) {
				return a, a.fail("", msg.err)
			}
			a.deps.SchemaErr = msg.err
		} else {
			a.ctrl.Config = msg.cfg
			a.deps.SchemaErr = nil
		}
		return a, a.enter()

	case listingLoadedMsg:
		a.browser.loading = false
		if msg.err != nil {
			a.browser.failed = a.ctrl.Listing == nil
			return a, a.fail("Error loading content", msg.err)
		}
		if err := a.ctrl.ApplyListing(msg.ticket, msg.entries, msg.keepFile); err != nil {
			// superseded
			return a, nil
		}
		a.browser.Listed(msg.keepFile)
		return a, nil

	case fileLoadedMsg:
		a.browser.loading = false
		if msg.err != nil {
			return a, a.fail("Failed to open file", msg.err)
		}
		if err := a.ctrl.ApplyFile(msg.ticket, msg.file); err != nil {
			return a, nil
		}
		return a, a.switchTo(editorView)

	case savedMsg:
		return a, a.saved(msg)
	}

	var cmd tea.Cmd
	switch a.state {
	case loginView:
		cmd = a.login.Update(msg)
	case browserView:
		cmd = a.browser.Update(msg)
	case editorView:
		cmd = a.editor.Update(msg)
	}
	return a, cmd
}

// enter leaves the login view for the first view of a session.
func (a *App) enter() tea.Cmd {
	a.state = a.homeState()
	if a.state == browserView {
		return a.browser.Load("")
	}
	return nil
}

func (a *App) loadConfig() tea.Cmd {
	load, ctx := a.deps.LoadConfig, a.ctx
	return func() tea.Msg {
		cfg, err := load(ctx)
		return configLoadedMsg{cfg: cfg, err: err}
	}
}

func (a *App) switchTo(view sessionState) tea.Cmd {
	switch view {
	case editorView:
		a.state = editorView
		a.editor.Load()
	case browserView:
		a.state = browserView
		a.browser.Listed(true)
	case loginView:
		a.state = loginView
		return a.login.Init()
	}
	return nil
}

func (a *App) saved(msg savedMsg) tea.Cmd {
	a.editor.SaveFinished(msg)
	if msg.err != nil {
		if errors.Is(msg.err, commit.ErrAborted) {
			return a.setStatus("Save cancelled: no commit message.", statusInfo)
		}
		return a.fail("Save failed", msg.err)
	}
	a.ctrl.MarkSaved(msg.result.Path, msg.result.RevisionToken, msg.data)
	verb := "Updated"
	if msg.result.Created {
		verb = "Created"
	}
	return tea.Batch(
		a.setStatus(fmt.Sprintf("%s %s", verb, msg.result.Path), statusSuccess),
		a.browser.Reload(msg.result.Parent),
	)
}

// fail surfaces err. A rejected credential ends the session.
func (a *App) fail(what string, err error) tea.Cmd {
	if errors.Is(err, remote.ErrUnauthenticated) {
		a.deps.Log.Warnw("credential rejected, logging out", "error", err)
		return a.logout("Session expired, please log in again.")
	}
	text := err.Error()
	if what != "" {
		text = what + ": " + text
	}
	return a.setStatus(text, statusError)
}

func (a *App) logout(status string) tea.Cmd {
	if err := a.ctrl.Logout(a.ctx); err != nil {
		a.deps.Log.Errorw("failed to clear stored token", "error", err)
	}
	a.editor.Reset()
	a.browser.Reset()
	a.state = loginView
	return tea.Batch(a.setStatus(status, statusInfo), a.login.Init())
}

func (a *App) setStatus(text string, kind statusKind) tea.Cmd {
	a.statusSeq++
	a.statusMsg = text
	a.statusKind = kind
	seq := a.statusSeq
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Loading..."
	}

	var title, content string
	switch a.state {
	case loginView:
		title = "login"
		content = a.login.View()
	case browserView:
		title = "/" + a.ctrl.Session.CurrentPath
		content = a.browser.View()
	case editorView:
		title = a.ctrl.File.Path
		content = a.editor.View()
	case schemaErrorView:
		title = "unavailable"
		content = ContentPaddingStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			ErrorStyle.Render("The editor is unavailable: the field schema configuration could not be loaded."),
			"",
			DescriptionStyle.Render(a.deps.SchemaErr.Error()),
			"",
			HelpStyle.Render("L logout • q quit"),
		))
	}

	view := lipgloss.JoinVertical(lipgloss.Left, renderHeader(a.width, title, a.deps.Repo), content)
	if a.statusMsg != "" {
		view = lipgloss.JoinVertical(lipgloss.Left, view, statusStyle(a.statusKind).Render(a.statusMsg))
	}
	return view
}

// Messages for communication between views
type StatusMsg string

type successMsg string

type errMsg struct {
	context string
	err     error
}

type clearStatusMsg struct {
	seq int
}

type SwitchViewMsg struct {
	view sessionState
}

type logoutMsg struct{}

type loginResultMsg struct {
	token string
	err   error
}

type configLoadedMsg struct {
	cfg *models.EditorConfig
	err error
}

type listingLoadedMsg struct {
	ticket   session.Ticket
	entries  []models.DirEntry
	keepFile bool
	err      error
}

type fileLoadedMsg struct {
	ticket session.Ticket
	file   models.StoredFile
	err    error
}

type savedMsg struct {
	result commit.Result
	data   map[string]interface{}
	raw    string
	err    error
}

// fetchListing issues a ticket now and lists p off the UI goroutine.
func fetchListing(ctx context.Context, ctrl *session.Controller, p string, keepFile bool) tea.Cmd {
	var t session.Ticket
	if keepFile {
		t = ctrl.Begin(session.ViewBrowser, p)
	} else {
		t = ctrl.BeginNavigation(p)
	}
	return func() tea.Msg {
		entries, err := ctrl.FetchListing(ctx, p)
		return listingLoadedMsg{ticket: t, entries: entries, keepFile: keepFile, err: err}
	}
}

func fetchFile(ctx context.Context, ctrl *session.Controller, p string) tea.Cmd {
	t := ctrl.Begin(session.ViewEditor, p)
	return func() tea.Msg {
		file, err := ctrl.FetchFile(ctx, p)
		return fileLoadedMsg{ticket: t, file: file, err: err}
	}
}
