package cli

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"go.uber.org/zap"

	"github.com/strategycontent/contentdesk/pkg/auth"
	"github.com/strategycontent/contentdesk/pkg/commit"
	"github.com/strategycontent/contentdesk/pkg/config"
	"github.com/strategycontent/contentdesk/pkg/credentials"
	"github.com/strategycontent/contentdesk/pkg/files"
	"github.com/strategycontent/contentdesk/pkg/logging"
	"github.com/strategycontent/contentdesk/pkg/models"
	"github.com/strategycontent/contentdesk/pkg/remote"
	"github.com/strategycontent/contentdesk/pkg/richtext"
	"github.com/strategycontent/contentdesk/pkg/session"
)

// ErrNotLoggedIn is returned by commands that need a token when none is
// stored or given in the environment.
var ErrNotLoggedIn = errors.New("not logged in. Run 'contentdesk login' or set " + config.EnvToken)

// localToken fills the session slot when serving a local directory, which
// needs no credential.
const localToken = "local"

// CommandContext manages project validation and the collaborators shared
// by the commands.
type CommandContext struct {
	ProjectPath string
	LocalDir    string
	// Verbose logs to stderr instead of the log file.
	Verbose     bool
	Settings    *models.Settings
	Config      *config.Config
	Log         *zap.SugaredLogger
	Session     *models.Session
	Store       remote.Store
	Credentials *credentials.Store

	validated bool
	closers   []func()
}

// NewCommandContext creates a context; localDir, when set, serves content
// from that directory instead of GitHub.
func NewCommandContext(localDir string) (*CommandContext, error) {
	return &CommandContext{
		ProjectPath: files.ProjectDir,
		LocalDir:    localDir,
		Session:     &models.Session{},
	}, nil
}

// ValidateProject ensures the project is initialized
func (c *CommandContext) ValidateProject() error {
	if c.validated {
		return nil
	}
	if !files.ProjectExists() {
		return files.ErrNotInitialized
	}
	c.validated = true
	return nil
}

// LoadSettingsWithDefault loads settings or returns default if error
func (c *CommandContext) LoadSettingsWithDefault() *models.Settings {
	if c.Settings != nil {
		return c.Settings
	}
	settings, err := files.ReadSettings()
	if err != nil {
		settings = models.DefaultSettings()
	}
	c.Settings = settings
	return settings
}

// Open loads configuration, starts logging, opens the credential store and
// builds the content store. The stored token, or CONTENTDESK_TOKEN, fills
// the session slot.
func (c *CommandContext) Open(ctx context.Context) error {
	if err := c.ValidateProject(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.LocalDir = c.LocalDir
	c.Config = cfg
	c.Settings = cfg.Settings

	if err := c.openLog(); err != nil {
		return err
	}

	creds, err := credentials.Open(ctx, files.StatePath())
	if err != nil {
		return err
	}
	c.Credentials = creds
	c.closers = append(c.closers, func() { _ = creds.Close() })

	switch {
	case !cfg.Remote():
		c.Session.AccessToken = localToken
	case cfg.Token != "":
		c.Session.AccessToken = cfg.Token
	default:
		token, err := creds.Token(ctx)
		if err != nil {
			return err
		}
		c.Session.AccessToken = token
	}

	store, err := c.newStore()
	if err != nil {
		return err
	}
	c.Store = store
	return nil
}

func (c *CommandContext) openLog() error {
	if c.Verbose {
		log, err := logging.Development()
		if err != nil {
			return err
		}
		c.Log = log
		c.closers = append(c.closers, func() { _ = log.Sync() })
		return nil
	}
	log, closeLog, err := logging.New(files.LogsPath(), c.Settings.Log.Level)
	if err != nil {
		return err
	}
	c.Log = log
	c.closers = append(c.closers, closeLog)
	return nil
}

func (c *CommandContext) newStore() (remote.Store, error) {
	tokens := func() string { return c.Session.AccessToken }
	if !c.Config.Remote() {
		return remote.NewLocal(c.Config.LocalDir, tokens)
	}
	if err := c.Config.ValidateRemote(); err != nil {
		return nil, err
	}
	return remote.NewGitHub(c.Settings.Repository, tokens, c.Settings.Editor.RequestTimeout, c.Log), nil
}

// RequireToken fails when the session holds no credential.
func (c *CommandContext) RequireToken() error {
	if !c.Session.Authenticated() {
		return ErrNotLoggedIn
	}
	return nil
}

// Controller loads the field schema and returns a session controller over
// the store. pool may be nil for headless use.
func (c *CommandContext) Controller(ctx context.Context, pool richtext.Pool) (*session.Controller, error) {
	cfg, err := c.EditorConfig(ctx)
	if err != nil {
		return nil, err
	}
	return c.controller(cfg, pool), nil
}

// EditorConfig loads the field schema.
func (c *CommandContext) EditorConfig(ctx context.Context) (*models.EditorConfig, error) {
	cfg, err := session.LoadEditorConfig(ctx, c.Settings.Schema, c.Store)
	if err != nil {
		c.Log.Errorw("failed to load field schema", "path", c.Settings.Schema.Path, "error", err)
		return nil, fmt.Errorf("failed to load field schema: %w", err)
	}
	return cfg, nil
}

// UnconfiguredController is a controller without a schema, used when the
// schema fails to load so the session can still log in and out.
func (c *CommandContext) UnconfiguredController(pool richtext.Pool) *session.Controller {
	return c.controller(nil, pool)
}

func (c *CommandContext) controller(cfg *models.EditorConfig, pool richtext.Pool) *session.Controller {
	if pool == nil {
		pool = richtext.NewMemoryPool()
	}
	return session.New(c.Session, c.Store, cfg, c.Settings, session.Options{
		Tokens: c.Credentials,
		Pool:   pool,
		Log:    c.Log,
	})
}

// Workflow returns a commit workflow bounded by the configured timeout.
func (c *CommandContext) Workflow() *commit.Workflow {
	return commit.New(c.Store, c.Settings.Editor.CommitTimeout, c.Log)
}

// AuthProvider picks how a token is obtained: the environment, nothing for
// a local directory, or the browser code exchange.
func (c *CommandContext) AuthProvider(open func(string) error) auth.Provider {
	switch {
	case !c.Config.Remote():
		return auth.Static{Token: localToken}
	case c.Config.Token != "":
		return auth.Static{Token: c.Config.Token}
	}
	return auth.NewCodeExchange(c.Settings.Auth, open, c.Log)
}

// Close releases everything Open acquired, in reverse order.
func (c *CommandContext) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// OpenBrowser asks the desktop to open url.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// PrintAuthURL is an opener for the login command: it prints url and
// tries the browser.
func PrintAuthURL(url string) error {
	PrintInfo("Opening your browser to authorize contentdesk.")
	fmt.Fprintf(stderr, "If it does not open, visit:\n\n  %s\n\n", url)
	if err := OpenBrowser(url); err != nil {
		PrintWarning("%v", err)
	}
	return nil
}
