package commit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strategycontent/contentdesk/pkg/frontmatter"
	"github.com/strategycontent/contentdesk/pkg/models"
	"github.com/strategycontent/contentdesk/pkg/remote"
)

// recordingStore captures commits and can block until released.
type recordingStore struct {
	remote.Store
	calls   []string
	tokens  []string
	release chan struct{}
	started chan struct{}
	err     error
}

func (s *recordingStore) CommitFile(ctx context.Context, path, rawText, message, revisionToken string) (string, error) {
	s.calls = append(s.calls, rawText)
	s.tokens = append(s.tokens, revisionToken)
	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return "new-token", nil
}

func body(s string) *string { return &s }

func TestSave_CreateThenUpdate(t *testing.T) {
	dir := t.TempDir()
	store, err := remote.NewLocal(dir, nil)
	require.NoError(t, err)
	w := New(store, time.Second, nil)
	ctx := context.Background()

	file := &models.StoredFile{
		Path:     "pages/new.astro",
		Metadata: map[string]interface{}{"title": "Untitled"},
		Body:     body("\nHello"),
	}
	assert.Equal(t, "feat: create pages/new.astro", DefaultMessage(file))

	res, err := w.Save(ctx, Request{File: file, Data: map[string]interface{}{"title": "First"}, Message: DefaultMessage(file)})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "pages", res.Parent)
	assert.Equal(t, res.RevisionToken, file.RevisionToken)
	assert.Equal(t, map[string]interface{}{"title": "First"}, file.Metadata)

	raw, err := os.ReadFile(filepath.Join(dir, "pages", "new.astro"))
	require.NoError(t, err)
	assert.Equal(t, "---\ntitle: First\n---\n\nHello", string(raw))

	assert.Equal(t, "feat: update pages/new.astro", DefaultMessage(file))
	res, err = w.Save(ctx, Request{File: file, Data: map[string]interface{}{"title": "Second"}, Message: "edit"})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, remote.BlobToken([]byte("---\ntitle: Second\n---\n\nHello")), file.RevisionToken)
	assert.Equal(t, Idle, w.State())
}

func TestSave_EmptyMessageAborts(t *testing.T) {
	store := &recordingStore{}
	w := New(store, time.Second, nil)
	file := &models.StoredFile{Path: "pages/a.astro", Metadata: map[string]interface{}{}, RevisionToken: "old"}

	for _, msg := range []string{"", "   \n"} {
		_, err := w.Save(context.Background(), Request{File: file, Message: msg})
		assert.ErrorIs(t, err, ErrAborted)
	}
	assert.Empty(t, store.calls, "store must not be contacted")
	assert.Equal(t, "old", file.RevisionToken)
	assert.Equal(t, Idle, w.State())
}

func TestSave_NothingOpen(t *testing.T) {
	w := New(&recordingStore{}, time.Second, nil)
	_, err := w.Save(context.Background(), Request{Message: "m"})
	assert.ErrorIs(t, err, ErrNothingToSave)
}

func TestSave_FailureLeavesStateUnchanged(t *testing.T) {
	store := &recordingStore{err: &remote.RemoteError{Status: 409, Message: "does not match"}}
	w := New(store, time.Second, nil)
	file := &models.StoredFile{Path: "pages/a.astro", Metadata: map[string]interface{}{"title": "A"}, RevisionToken: "stale"}

	_, err := w.Save(context.Background(), Request{File: file, Data: map[string]interface{}{"title": "B"}, Message: "m"})
	require.Error(t, err)
	assert.True(t, remote.IsConflict(err))
	assert.Equal(t, "stale", file.RevisionToken)
	assert.Equal(t, map[string]interface{}{"title": "A"}, file.Metadata)
	assert.Equal(t, []string{"stale"}, store.tokens)
	assert.Equal(t, Idle, w.State())

	// the user may retry
	store.err = nil
	_, err = w.Save(context.Background(), Request{File: file, Data: map[string]interface{}{"title": "B"}, Message: "m"})
	require.NoError(t, err)
	assert.Equal(t, "new-token", file.RevisionToken)
}

func TestSave_StaleTokenAgainstLocalStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pages"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pages", "a.astro"), []byte("---\ntitle: A\n---\n"), 0o644))
	store, err := remote.NewLocal(dir, nil)
	require.NoError(t, err)
	fc, err := store.GetFile(context.Background(), "pages/a.astro")
	require.NoError(t, err)

	w := New(store, time.Second, nil)
	one := &models.StoredFile{Path: "pages/a.astro", Metadata: map[string]interface{}{"title": "A"}, RevisionToken: fc.RevisionToken}
	two := &models.StoredFile{Path: "pages/a.astro", Metadata: map[string]interface{}{"title": "A"}, RevisionToken: fc.RevisionToken}

	_, err = w.Save(context.Background(), Request{File: one, Data: map[string]interface{}{"title": "One"}, Message: "one"})
	require.NoError(t, err)
	_, err = w.Save(context.Background(), Request{File: two, Data: map[string]interface{}{"title": "Two"}, Message: "two"})
	assert.True(t, remote.IsConflict(err))

	raw, err := os.ReadFile(filepath.Join(dir, "pages", "a.astro"))
	require.NoError(t, err)
	meta, _ := frontmatter.Split(string(raw))
	assert.Equal(t, "One", meta["title"])
}

func TestSave_RejectsOverlappingSave(t *testing.T) {
	store := &recordingStore{release: make(chan struct{}), started: make(chan struct{})}
	w := New(store, 5*time.Second, nil)
	file := &models.StoredFile{Path: "pages/a.astro", Metadata: map[string]interface{}{}}

	done := make(chan error, 1)
	go func() {
		_, err := w.Save(context.Background(), Request{File: &models.StoredFile{Path: "pages/a.astro", Metadata: map[string]interface{}{}}, Message: "first"})
		done <- err
	}()
	<-store.started
	assert.Equal(t, Saving, w.State())

	_, err := w.Save(context.Background(), Request{File: file, Message: "second"})
	assert.ErrorIs(t, err, ErrSaveInProgress)

	close(store.release)
	require.NoError(t, <-done)
	assert.Equal(t, Idle, w.State())
	assert.Len(t, store.calls, 1)
}

func TestSave_Timeout(t *testing.T) {
	store := &recordingStore{release: make(chan struct{})}
	w := New(store, 20*time.Millisecond, nil)
	file := &models.StoredFile{Path: "pages/a.astro", Metadata: map[string]interface{}{}, RevisionToken: "t0"}

	_, err := w.Save(context.Background(), Request{File: file, Message: "m"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, "t0", file.RevisionToken)
	assert.Equal(t, Idle, w.State())
}

func TestSave_NilBodyAndDataFallback(t *testing.T) {
	store := &recordingStore{}
	w := New(store, 0, nil)
	file := &models.StoredFile{Path: "a.md", Metadata: map[string]interface{}{"k": "v"}}

	res, err := w.Save(context.Background(), Request{File: file, Message: "m"})
	require.NoError(t, err)
	assert.Equal(t, "", res.Parent)
	assert.Equal(t, []string{"---\nk: v\n---\n"}, store.calls)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "saving", Saving.String())
}
