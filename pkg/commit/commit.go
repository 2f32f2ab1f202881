// Package commit saves the open file back to the store: it joins the form
// data with the untouched body and commits with the file's revision token.
package commit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/strategycontent/contentdesk/pkg/frontmatter"
	"github.com/strategycontent/contentdesk/pkg/models"
	"github.com/strategycontent/contentdesk/pkg/remote"
)

var (
	ErrSaveInProgress = errors.New("commit: a save is already in progress")
	ErrAborted        = errors.New("commit: no commit message, save aborted")
	ErrNothingToSave  = errors.New("commit: no file open")
	ErrTimeout        = errors.New("commit: timed out waiting for the store")
)

// State is the workflow state.
type State int

const (
	Idle State = iota
	Saving
)

func (s State) String() string {
	if s == Saving {
		return "saving"
	}
	return "idle"
}

// Request describes one save.
type Request struct {
	File *models.StoredFile
	// Data is the metadata read from the form.
	Data    map[string]interface{}
	Message string
}

// Result is what a successful save reports back.
type Result struct {
	Path          string
	RevisionToken string
	Created       bool
	// Parent is the directory whose listing should be refreshed.
	Parent string
}

// Workflow runs saves one at a time.
type Workflow struct {
	store   remote.Store
	timeout time.Duration
	log     *zap.SugaredLogger

	mu    sync.Mutex
	state State
}

// New creates a workflow. A non-positive timeout disables the bound.
func New(store remote.Store, timeout time.Duration, log *zap.SugaredLogger) *Workflow {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Workflow{store: store, timeout: timeout, log: log}
}

// State reports whether a save is in flight.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// DefaultMessage is the prefilled commit message for file.
func DefaultMessage(file *models.StoredFile) string {
	return fmt.Sprintf("feat: %s %s", Verb(file), file.Path)
}

// Verb is "create" for a file never committed and "update" otherwise.
func Verb(file *models.StoredFile) string {
	if file.IsNew() {
		return "create"
	}
	return "update"
}

// Save commits req. On success the file's revision token and metadata are
// replaced; on any failure the file is left as it was.
func (w *Workflow) Save(ctx context.Context, req Request) (Result, error) {
	if !w.begin() {
		return Result{}, ErrSaveInProgress
	}
	defer w.end()

	if req.File == nil || req.File.Path == "" {
		return Result{}, ErrNothingToSave
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		w.log.Infow("save aborted without commit message", "path", req.File.Path)
		return Result{}, ErrAborted
	}

	data := req.Data
	if data == nil {
		data = req.File.Metadata
	}
	raw, err := frontmatter.Join(data, req.File.BodyText())
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode %s: %w", req.File.Path, err)
	}

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	created := req.File.IsNew()
	start := time.Now()
	token, err := w.store.CommitFile(ctx, req.File.Path, raw, message, req.File.RevisionToken)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %v", ErrTimeout, w.timeout, err)
		}
		w.log.Errorw("commit failed", "path", req.File.Path, "created", created, "error", err)
		return Result{}, err
	}

	req.File.RevisionToken = token
	req.File.Metadata = data
	w.log.Infow("committed", "path", req.File.Path, "created", created, "duration", time.Since(start))
	return Result{
		Path:          req.File.Path,
		RevisionToken: token,
		Created:       created,
		Parent:        models.ParentPath(req.File.Path),
	}, nil
}

func (w *Workflow) begin() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == Saving {
		return false
	}
	w.state = Saving
	return true
}

func (w *Workflow) end() {
	w.mu.Lock()
	w.state = Idle
	w.mu.Unlock()
}
