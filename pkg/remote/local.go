package remote

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/strategycontent/contentdesk/pkg/models"
)

// ErrOutsideRoot is returned for paths that escape the local root.
var ErrOutsideRoot = errors.New("remote: path outside root")

// Local is a Store over a directory on disk. Revision tokens are git blob
// hashes of the file content, so a token taken from a GitHub checkout of the
// same file matches.
type Local struct {
	root   string
	tokens TokenSource
	mu     sync.Mutex
}

// NewLocal opens a store rooted at dir. When tokens is non-nil every call
// requires it to yield a non-empty token.
func NewLocal(dir string, tokens TokenSource) (*Local, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	root, err = filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("local store root %s is not a directory", root)
	}
	return &Local{root: root, tokens: tokens}, nil
}

// Root returns the absolute root directory.
func (l *Local) Root() string { return l.root }

// BlobToken computes the revision token for data.
func BlobToken(data []byte) string {
	h := sha1.New()
	h.Write([]byte("blob " + strconv.Itoa(len(data)) + "\x00"))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func (l *Local) ListDirectory(ctx context.Context, path string) ([]models.DirEntry, error) {
	if err := l.authorize(); err != nil {
		return nil, err
	}
	rel := cleanPath(path)
	abs, err := l.cleanAbs(rel)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &RemoteError{Status: http.StatusNotFound, Message: "Not Found"}
		}
		return nil, fmt.Errorf("failed to list %s: %w", rel, err)
	}
	out := make([]models.DirEntry, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		kind := models.EntryFile
		if e.IsDir() {
			kind = models.EntryDirectory
		}
		p := e.Name()
		if rel != "" {
			p = rel + "/" + e.Name()
		}
		out = append(out, models.DirEntry{Name: e.Name(), Path: p, Kind: kind})
	}
	return out, nil
}

func (l *Local) GetFile(ctx context.Context, path string) (*FileContent, error) {
	if err := l.authorize(); err != nil {
		return nil, err
	}
	rel := cleanPath(path)
	data, err := l.read(rel)
	if err != nil {
		return nil, err
	}
	return &FileContent{
		Path:          rel,
		ContentBase64: base64.StdEncoding.EncodeToString(data),
		RevisionToken: BlobToken(data),
	}, nil
}

// CommitFile follows the contents API preconditions: updates must carry the
// current token and creates must not target an existing file.
func (l *Local) CommitFile(ctx context.Context, path, rawText, message, revisionToken string) (string, error) {
	if err := l.authorize(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel := cleanPath(path)
	if rel == "" {
		return "", &RemoteError{Status: http.StatusUnprocessableEntity, Message: "path is required"}
	}
	if strings.TrimSpace(message) == "" {
		return "", &RemoteError{Status: http.StatusUnprocessableEntity, Message: "message is required"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := l.read(rel)
	switch {
	case err == nil:
		if revisionToken == "" {
			return "", &RemoteError{Status: http.StatusUnprocessableEntity, Message: `"sha" wasn't supplied.`}
		}
		if BlobToken(current) != revisionToken {
			return "", &RemoteError{Status: http.StatusConflict, Message: fmt.Sprintf("%s does not match %s", rel, revisionToken)}
		}
	case IsNotFound(err):
		if revisionToken != "" {
			return "", &RemoteError{Status: http.StatusConflict, Message: fmt.Sprintf("%s does not exist", rel)}
		}
	default:
		return "", err
	}

	data := []byte(rawText)
	if err := l.writeAtomic(rel, data); err != nil {
		return "", err
	}
	return BlobToken(data), nil
}

func (l *Local) authorize() error {
	if l.tokens != nil && l.tokens() == "" {
		return ErrUnauthenticated
	}
	return nil
}

func (l *Local) read(rel string) ([]byte, error) {
	abs, err := l.cleanAbs(rel)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &RemoteError{Status: http.StatusNotFound, Message: "Not Found"}
		}
		return nil, fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a dir, not a file", rel)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return data, nil
}

func (l *Local) writeAtomic(rel string, data []byte) error {
	abs, err := l.cleanAbs(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}

	f, err := os.CreateTemp(dir, ".contentdesk-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	if err := os.Rename(tmp, abs); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", rel, err)
	}
	return nil
}

func (l *Local) cleanAbs(rel string) (string, error) {
	abs := filepath.Clean(filepath.Join(l.root, filepath.FromSlash(rel)))
	prefix := l.root + string(filepath.Separator)
	if abs != l.root && !strings.HasPrefix(abs, prefix) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	if p, err := filepath.EvalSymlinks(abs); err == nil {
		if p != l.root && !strings.HasPrefix(p, prefix) {
			return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
		}
	}
	return abs, nil
}
