// Package session owns the application state of one editing session: the
// credential slot, the browsing position, the listing, the open file and
// its form. All mutations go through the Controller's named operations.
package session

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/strategycontent/contentdesk/pkg/form"
	"github.com/strategycontent/contentdesk/pkg/frontmatter"
	"github.com/strategycontent/contentdesk/pkg/models"
	"github.com/strategycontent/contentdesk/pkg/remote"
	"github.com/strategycontent/contentdesk/pkg/richtext"
	"github.com/strategycontent/contentdesk/pkg/schema"
)

var (
	ErrNoFileOpen      = errors.New("session: no file open")
	ErrInvalidFileName = errors.New("session: invalid file name")
	ErrStale           = errors.New("session: response superseded by a newer request")
)

// View names the part of the UI a request feeds.
type View int

const (
	ViewBrowser View = iota
	ViewEditor
)

// Ticket tags an in-flight request. Only the most recent ticket per view
// may apply its response.
type Ticket struct {
	View View
	Seq  uint64
	Path string
}

// ListOp is a list mutation.
type ListOp int

const (
	MoveUp ListOp = iota
	MoveDown
	Remove
	Add
)

func (op ListOp) String() string {
	switch op {
	case MoveUp:
		return "move up"
	case MoveDown:
		return "move down"
	case Remove:
		return "remove"
	case Add:
		return "add"
	}
	return fmt.Sprintf("ListOp(%d)", int(op))
}

// TokenStore persists the credential between runs.
type TokenStore interface {
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Controller is the single owner of session state.
type Controller struct {
	Session *models.Session
	File    models.StoredFile
	Listing []models.DirEntry
	Config  *models.EditorConfig

	// Collection and Form describe the open file. FormErr is set instead
	// when the file's collection is not configured.
	Collection *models.CollectionSchema
	Form       *form.Form
	FormErr    error

	store    remote.Store
	tokens   TokenStore
	pool     richtext.Pool
	settings *models.Settings
	log      *zap.SugaredLogger
	seq      map[View]uint64
}

// Options carries the optional collaborators of a Controller.
type Options struct {
	Tokens TokenStore
	Pool   richtext.Pool
	Log    *zap.SugaredLogger
}

// New creates a controller. sess is the process-wide credential slot the
// store reads its token from.
func New(sess *models.Session, store remote.Store, cfg *models.EditorConfig, settings *models.Settings, opts Options) *Controller {
	if settings == nil {
		settings = models.DefaultSettings()
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Controller{
		Session:  sess,
		Config:   cfg,
		store:    store,
		tokens:   opts.Tokens,
		pool:     opts.Pool,
		settings: settings,
		log:      log,
		seq:      map[View]uint64{},
	}
}

// Store returns the remote store the controller reads from.
func (c *Controller) Store() remote.Store { return c.store }

// Settings returns the active settings.
func (c *Controller) Settings() *models.Settings { return c.settings }

// Authenticated gates every view but login.
func (c *Controller) Authenticated() bool {
	return c.Session.Authenticated()
}

// Login fills the credential slot and persists it.
func (c *Controller) Login(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return remote.ErrUnauthenticated
	}
	c.Session.AccessToken = token
	if c.tokens != nil {
		if err := c.tokens.SetToken(ctx, token); err != nil {
			return err
		}
	}
	c.log.Infow("logged in")
	return nil
}

// Logout clears the credential and everything read with it.
func (c *Controller) Logout(ctx context.Context) error {
	c.Session.AccessToken = ""
	c.Session.CurrentPath = ""
	c.Listing = nil
	c.closeFile()
	c.invalidate()
	c.log.Infow("logged out")
	if c.tokens != nil {
		return c.tokens.Clear(ctx)
	}
	return nil
}

// Begin issues a ticket for a request feeding view.
func (c *Controller) Begin(view View, p string) Ticket {
	c.seq[view]++
	return Ticket{View: view, Seq: c.seq[view], Path: p}
}

// BeginNavigation issues a listing ticket for a move that will close the
// open file. File fetches issued before it can no longer land.
func (c *Controller) BeginNavigation(p string) Ticket {
	c.seq[ViewEditor]++
	return c.Begin(ViewBrowser, p)
}

// Accept reports whether t is still the latest ticket for its view.
func (c *Controller) Accept(t Ticket) bool {
	return c.seq[t.View] == t.Seq
}

func (c *Controller) invalidate() {
	c.seq[ViewBrowser]++
	c.seq[ViewEditor]++
}

// FetchListing lists p, keeping only configured collections at the root,
// directories first and then by name. It does not touch state.
func (c *Controller) FetchListing(ctx context.Context, p string) ([]models.DirEntry, error) {
	p = strings.Trim(p, "/")
	entries, err := c.store.ListDirectory(ctx, p)
	if err != nil {
		c.log.Warnw("list directory failed", "path", p, "error", err)
		return nil, err
	}
	if p == "" && c.Config != nil {
		allowed := map[string]bool{}
		for _, name := range c.Config.CollectionNames() {
			allowed[name] = true
		}
		kept := entries[:0:0]
		for _, e := range entries {
			if e.IsDir() && allowed[e.Name] {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	SortEntries(entries)
	return entries, nil
}

// SortEntries orders directories before files, then by name ignoring case.
func SortEntries(entries []models.DirEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if la != lb {
			return la < lb
		}
		return a.Name < b.Name
	})
}

// ApplyListing installs a fetched listing. Navigation closes the open file;
// a refresh after saving keeps it.
func (c *Controller) ApplyListing(t Ticket, entries []models.DirEntry, keepFile bool) error {
	if !c.Accept(t) {
		return ErrStale
	}
	if !keepFile {
		c.closeFile()
		// a pending file fetch belongs to the old directory
		c.seq[ViewEditor]++
	}
	c.Session.CurrentPath = strings.Trim(t.Path, "/")
	c.Listing = entries
	return nil
}

// Navigate lists p and makes it the current directory. On failure state
// is left unchanged.
func (c *Controller) Navigate(ctx context.Context, p string) error {
	t := c.BeginNavigation(p)
	entries, err := c.FetchListing(ctx, p)
	if err != nil {
		return err
	}
	return c.ApplyListing(t, entries, false)
}

// Refresh re-lists p without closing the open file.
func (c *Controller) Refresh(ctx context.Context, p string) error {
	t := c.Begin(ViewBrowser, p)
	entries, err := c.FetchListing(ctx, p)
	if err != nil {
		return err
	}
	return c.ApplyListing(t, entries, true)
}

// Back navigates to the parent of the current directory.
func (c *Controller) Back(ctx context.Context) error {
	return c.Navigate(ctx, models.ParentPath(c.Session.CurrentPath))
}

// FetchFile loads p and splits it into metadata and body. Malformed
// metadata degrades to an empty map with the raw text as body.
func (c *Controller) FetchFile(ctx context.Context, p string) (models.StoredFile, error) {
	p = strings.Trim(p, "/")
	fc, err := c.store.GetFile(ctx, p)
	if err != nil {
		c.log.Warnw("get file failed", "path", p, "error", err)
		return models.StoredFile{}, err
	}
	raw, err := fc.Decode()
	if err != nil {
		return models.StoredFile{}, err
	}
	meta, body, err := frontmatter.SplitStrict(raw)
	if err != nil {
		c.log.Warnw("malformed front matter, editing as plain body", "path", p, "error", err)
	}
	if err == nil && !frontmatter.HasFrontMatter(raw) {
		c.log.Debugw("no front matter block; one is added on save", "path", p)
	}
	return models.StoredFile{Path: p, Metadata: meta, Body: &body, RevisionToken: fc.RevisionToken}, nil
}

// ApplyFile makes file the open file and renders its form.
func (c *Controller) ApplyFile(t Ticket, file models.StoredFile) error {
	if !c.Accept(t) {
		return ErrStale
	}
	c.open(file)
	return nil
}

// OpenFile fetches p and opens it in the editor.
func (c *Controller) OpenFile(ctx context.Context, p string) error {
	t := c.Begin(ViewEditor, p)
	file, err := c.FetchFile(ctx, p)
	if err != nil {
		return err
	}
	return c.ApplyFile(t, file)
}

// CreateNew opens an uncommitted file in collection with the collection's
// defaults and the default body.
func (c *Controller) CreateNew(collection, fileName string) error {
	if c.Config == nil {
		return fmt.Errorf("%w: no schema loaded", schema.ErrUnknownCollection)
	}
	if _, ok := c.Config.Collection(collection); !ok {
		return fmt.Errorf("%w: %q", schema.ErrUnknownCollection, collection)
	}
	name := strings.Trim(strings.TrimSpace(fileName), "/")
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidFileName)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidFileName, fileName)
		}
	}
	if ext := c.settings.Editor.NewFileExtension; ext != "" && !strings.HasSuffix(name, ext) {
		name += ext
	}

	col, _ := c.Config.Collection(collection)
	body := c.settings.Editor.DefaultBody
	c.Begin(ViewEditor, "")
	c.open(models.StoredFile{
		Path:     path.Join(collection, name),
		Metadata: schema.CollectionDefaults(col),
		Body:     &body,
	})
	c.log.Infow("created new file", "path", c.File.Path)
	return nil
}

// MutateList applies op to the list at listPath of the open form. index
// is ignored by Add; variant is used only by Add.
func (c *Controller) MutateList(listPath string, op ListOp, index int, variant string) error {
	if c.Form == nil {
		return ErrNoFileOpen
	}
	l, err := c.Form.List(listPath)
	if err != nil {
		return err
	}
	ok := true
	switch op {
	case MoveUp:
		ok = l.MoveUp(index)
	case MoveDown:
		ok = l.MoveDown(index)
	case Remove:
		ok = l.Remove(index)
	case Add:
		return l.Add(variant)
	default:
		return fmt.Errorf("unknown list operation %v", op)
	}
	if !ok {
		return fmt.Errorf("%w: cannot %s item %d of %s", form.ErrIndexOutOfRange, op, index, listPath)
	}
	return nil
}

// MarkSaved records a successful commit of path: the open file takes the
// new revision token and the committed metadata. It reports false when a
// different file has been opened since.
func (c *Controller) MarkSaved(p, token string, data map[string]interface{}) bool {
	if c.File.Path != p || !c.File.Loaded() {
		return false
	}
	c.File.RevisionToken = token
	if data != nil {
		c.File.Metadata = data
	}
	return true
}

// CloseFile discards the open file and its form.
func (c *Controller) CloseFile() {
	c.seq[ViewEditor]++
	c.closeFile()
}

func (c *Controller) open(file models.StoredFile) {
	c.closeFile()
	c.File = file
	col, err := c.resolve(file.Path)
	if err != nil {
		c.FormErr = err
		c.log.Warnw("no collection for file", "path", file.Path, "error", err)
		return
	}
	c.Collection = col
	c.Form = form.Render(col.Fields, file.Metadata, c.pool)
}

func (c *Controller) resolve(p string) (*models.CollectionSchema, error) {
	if c.Config == nil {
		return nil, fmt.Errorf("%w: no schema loaded", schema.ErrUnknownCollection)
	}
	return schema.ResolveCollection(c.Config, p)
}

func (c *Controller) closeFile() {
	c.Form.Release()
	c.Form = nil
	c.FormErr = nil
	c.Collection = nil
	c.File.Reset()
}
