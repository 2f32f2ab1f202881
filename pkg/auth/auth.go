// Package auth obtains a GitHub access token. The interactive flow is a
// redirect code exchange: the user authorizes in a browser, GitHub
// redirects to a loopback listener with a code, and the code is traded for
// a token at the configured exchange endpoint.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strategycontent/contentdesk/pkg/models"
)

var (
	ErrNoToken       = errors.New("auth: no token received from auth service")
	ErrDenied        = errors.New("auth: authorization denied")
	ErrStateMismatch = errors.New("auth: state mismatch in callback")
	ErrNotConfigured = errors.New("auth: client_id and exchange_url must be configured")
)

// CallbackPath is where the loopback listener receives the redirect.
const CallbackPath = "/callback"

// Provider produces an access token.
type Provider interface {
	Login(ctx context.Context) (string, error)
}

// Static hands out a token obtained elsewhere, e.g. from CONTENTDESK_TOKEN.
type Static struct {
	Token string
}

func (s Static) Login(ctx context.Context) (string, error) {
	if s.Token == "" {
		return "", ErrNoToken
	}
	return s.Token, nil
}

// CodeExchange runs the browser redirect flow.
type CodeExchange struct {
	AuthorizeURL string
	ExchangeURL  string
	ClientID     string
	Scope        string
	Port         int

	// Open is handed the authorize URL; it typically prints it or launches
	// a browser.
	Open func(authorizeURL string) error

	HTTPClient *http.Client
	Log        *zap.SugaredLogger
}

// NewCodeExchange configures the flow from settings.
func NewCodeExchange(settings models.AuthSettings, open func(string) error, log *zap.SugaredLogger) *CodeExchange {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &CodeExchange{
		AuthorizeURL: settings.AuthorizeURL,
		ExchangeURL:  settings.ExchangeURL,
		ClientID:     settings.ClientID,
		Scope:        settings.Scope,
		Port:         settings.CallbackPort,
		Open:         open,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		Log:          log,
	}
}

type callbackResult struct {
	code string
	err  error
}

// Login waits for the redirect until ctx is done.
func (c *CodeExchange) Login(ctx context.Context) (string, error) {
	if c.ClientID == "" || c.ExchangeURL == "" {
		return "", ErrNotConfigured
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", c.Port))
	if err != nil {
		return "", fmt.Errorf("failed to start callback listener: %w", err)
	}
	redirect := "http://" + ln.Addr().String() + CallbackPath
	state := uuid.NewString()

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, func(w http.ResponseWriter, r *http.Request) {
		res := parseCallback(r.URL.Query(), state)
		select {
		case results <- res:
		default:
		}
		if res.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Authentication failed: %v\n", res.err)
			return
		}
		fmt.Fprintln(w, "Logged in. You can close this window and return to the terminal.")
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	c.Log.Infow("waiting for authorization callback", "redirect_uri", redirect)
	if c.Open != nil {
		if err := c.Open(c.authorizeURL(redirect, state)); err != nil {
			return "", fmt.Errorf("failed to open authorize URL: %w", err)
		}
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-results:
	}
	if res.err != nil {
		c.Log.Warnw("authorization callback rejected", "error", res.err)
		return "", res.err
	}
	return c.Exchange(ctx, res.code)
}

func (c *CodeExchange) authorizeURL(redirect, state string) string {
	q := url.Values{}
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", redirect)
	q.Set("state", state)
	if c.Scope != "" {
		q.Set("scope", c.Scope)
	}
	sep := "?"
	if strings.Contains(c.AuthorizeURL, "?") {
		sep = "&"
	}
	return c.AuthorizeURL + sep + q.Encode()
}

func parseCallback(q url.Values, state string) callbackResult {
	if e := q.Get("error"); e != "" {
		desc := q.Get("error_description")
		if desc == "" {
			desc = e
		}
		return callbackResult{err: fmt.Errorf("%w: %s", ErrDenied, desc)}
	}
	if q.Get("state") != state {
		return callbackResult{err: ErrStateMismatch}
	}
	code := q.Get("code")
	if code == "" {
		return callbackResult{err: fmt.Errorf("%w: callback carried no code", ErrNoToken)}
	}
	return callbackResult{code: code}
}

// Exchange trades an authorization code for a token.
func (c *CodeExchange) Exchange(ctx context.Context, code string) (string, error) {
	body, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return "", fmt.Errorf("failed to encode exchange request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ExchangeURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build exchange request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode exchange response: %w", err)
	}
	if out.Token == "" {
		return "", ErrNoToken
	}
	c.Log.Infow("token exchange succeeded")
	return out.Token, nil
}
