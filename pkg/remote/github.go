package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/strategycontent/contentdesk/pkg/models"
)

const (
	acceptHeader   = "application/vnd.github.v3+json"
	defaultBaseURL = "https://api.github.com"
)

// GitHub is a Store backed by the GitHub contents API.
type GitHub struct {
	baseURL string
	owner   string
	repo    string
	branch  string
	tokens  TokenSource
	client  *http.Client
	log     *zap.SugaredLogger
}

// NewGitHub creates a client for the repository in settings. timeout
// bounds each request; zero means no client-side limit.
func NewGitHub(settings models.RepositorySettings, tokens TokenSource, timeout time.Duration, log *zap.SugaredLogger) *GitHub {
	base := strings.TrimRight(settings.APIBaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &GitHub{
		baseURL: base,
		owner:   settings.Owner,
		repo:    settings.Name,
		branch:  settings.Branch,
		tokens:  tokens,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// contentsEntry is one element of a contents API response.
type contentsEntry struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type commitRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type commitResponse struct {
	Content *contentsEntry `json:"content"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// ListDirectory lists the entries directly under path. The root is "".
func (g *GitHub) ListDirectory(ctx context.Context, path string) ([]models.DirEntry, error) {
	var entries []contentsEntry
	if err := g.do(ctx, http.MethodGet, g.contentsURL(path, true), nil, &entries); err != nil {
		return nil, err
	}
	out := make([]models.DirEntry, 0, len(entries))
	for _, e := range entries {
		kind := models.EntryFile
		if e.Type == "dir" {
			kind = models.EntryDirectory
		}
		out = append(out, models.DirEntry{Name: e.Name, Path: e.Path, Kind: kind})
	}
	return out, nil
}

// GetFile fetches a file with its revision token.
func (g *GitHub) GetFile(ctx context.Context, path string) (*FileContent, error) {
	var entry contentsEntry
	if err := g.do(ctx, http.MethodGet, g.contentsURL(path, true), nil, &entry); err != nil {
		return nil, err
	}
	if entry.Type != "" && entry.Type != "file" {
		return nil, fmt.Errorf("%s is a %s, not a file", path, entry.Type)
	}
	return &FileContent{Path: entry.Path, ContentBase64: entry.Content, RevisionToken: entry.SHA}, nil
}

// CommitFile creates or updates path and returns the new revision token.
func (g *GitHub) CommitFile(ctx context.Context, path, rawText, message, revisionToken string) (string, error) {
	body := commitRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString([]byte(rawText)),
		SHA:     revisionToken,
		Branch:  g.branch,
	}
	var resp commitResponse
	if err := g.do(ctx, http.MethodPut, g.contentsURL(path, false), body, &resp); err != nil {
		return "", err
	}
	if resp.Content == nil || resp.Content.SHA == "" {
		return "", fmt.Errorf("commit of %s returned no revision token", path)
	}
	return resp.Content.SHA, nil
}

func (g *GitHub) contentsURL(path string, withRef bool) string {
	var segments []string
	for _, s := range strings.Split(cleanPath(path), "/") {
		if s != "" {
			segments = append(segments, url.PathEscape(s))
		}
	}
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.baseURL, url.PathEscape(g.owner), url.PathEscape(g.repo), strings.Join(segments, "/"))
	if withRef && g.branch != "" {
		u += "?ref=" + url.QueryEscape(g.branch)
	}
	return u
}

// do sends one request. A 204 leaves out untouched.
func (g *GitHub) do(ctx context.Context, method, target string, in, out interface{}) error {
	token := ""
	if g.tokens != nil {
		token = g.tokens()
	}
	if token == "" {
		return ErrUnauthenticated
	}

	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "token "+token)
	req.Header.Set("Accept", acceptHeader)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Warnw("remote request failed", "method", method, "url", target, "error", err)
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	g.log.Debugw("remote request", "method", method, "url", target, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := readErrorMessage(resp)
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", ErrUnauthenticated, msg)
		}
		return &RemoteError{Status: resp.StatusCode, Message: msg}
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}

func readErrorMessage(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var e errorResponse
	if json.Unmarshal(b, &e) == nil && e.Message != "" {
		return e.Message
	}
	return http.StatusText(resp.StatusCode)
}
