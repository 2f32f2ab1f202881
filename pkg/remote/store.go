// Package remote talks to the store holding the content files: the GitHub
// contents API, or a local directory with the same concurrency rules.
package remote

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/strategycontent/contentdesk/pkg/models"
)

// ErrUnauthenticated is returned when no credential is available or the
// store rejects the one supplied.
var ErrUnauthenticated = errors.New("remote: not authenticated")

// RemoteError is any non-success response from the store.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: request failed with status %d", e.Status)
	}
	return fmt.Sprintf("remote: request failed with status %d: %s", e.Status, e.Message)
}

// IsConflict reports whether the store refused a write because the
// revision token did not match the current file.
func (e *RemoteError) IsConflict() bool {
	return e.Status == http.StatusConflict || e.Status == http.StatusUnprocessableEntity
}

// IsConflict reports whether err is a revision conflict.
func IsConflict(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.IsConflict()
}

// IsAlreadyExists reports whether a create was refused because the path
// already holds a file. GitHub answers 422 asking for the file's sha.
func IsAlreadyExists(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Status == http.StatusUnprocessableEntity &&
		strings.Contains(re.Message, `"sha" wasn't supplied`)
}

// IsNotFound reports whether err is a 404 from the store.
func IsNotFound(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Status == http.StatusNotFound
}

// FileContent is a fetched file as the store returns it.
type FileContent struct {
	Path          string
	ContentBase64 string
	RevisionToken string
}

// Decode returns the file text. GitHub wraps base64 payloads at 60
// columns, so line breaks are dropped before decoding.
func (f *FileContent) Decode() (string, error) {
	clean := strings.NewReplacer("\n", "", "\r", "").Replace(f.ContentBase64)
	b, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", f.Path, err)
	}
	return string(b), nil
}

// Store is the remote file store.
type Store interface {
	ListDirectory(ctx context.Context, path string) ([]models.DirEntry, error)
	GetFile(ctx context.Context, path string) (*FileContent, error)
	// CommitFile writes rawText at path. An empty revisionToken creates the
	// file; otherwise it must match the file's current token.
	CommitFile(ctx context.Context, path, rawText, message, revisionToken string) (string, error)
}

// TokenSource returns the current access token, or "" when logged out.
// It is consulted on every call.
type TokenSource func() string

// StaticToken returns a TokenSource that always yields token.
func StaticToken(token string) TokenSource {
	return func() string { return token }
}

func cleanPath(p string) string {
	return strings.Trim(strings.TrimSpace(p), "/")
}
