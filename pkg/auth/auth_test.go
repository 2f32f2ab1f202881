package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strategycontent/contentdesk/pkg/models"
)

func exchangeServer(t *testing.T, token string) (*httptest.Server, *[]string) {
	t.Helper()
	var codes []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Code string `json:"code"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		codes = append(codes, body.Code)
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
	}))
	t.Cleanup(srv.Close)
	return srv, &codes
}

// browser simulates the user's browser: it follows the authorize URL by
// hitting the redirect with the given query, letting mutate tweak it.
func browser(t *testing.T, mutate func(q url.Values)) func(string) error {
	return func(authorizeURL string) error {
		u, err := url.Parse(authorizeURL)
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, "client-1", q.Get("client_id"))
		assert.Equal(t, "repo", q.Get("scope"))

		cb := url.Values{}
		cb.Set("code", "the-code")
		cb.Set("state", q.Get("state"))
		if mutate != nil {
			mutate(cb)
		}
		resp, err := http.Get(q.Get("redirect_uri") + "?" + cb.Encode())
		require.NoError(t, err)
		resp.Body.Close()
		return nil
	}
}

func newFlow(exchangeURL string, open func(string) error) *CodeExchange {
	return NewCodeExchange(models.AuthSettings{
		AuthorizeURL: "https://github.com/login/oauth/authorize",
		ExchangeURL:  exchangeURL,
		ClientID:     "client-1",
		Scope:        "repo",
	}, open, nil)
}

func TestCodeExchange_Login(t *testing.T) {
	srv, codes := exchangeServer(t, "gho_token")
	flow := newFlow(srv.URL, browser(t, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	token, err := flow.Login(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gho_token", token)
	assert.Equal(t, []string{"the-code"}, *codes)
}

func TestCodeExchange_CallbackErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(q url.Values)
		want   error
	}{
		{"denied", func(q url.Values) {
			q.Set("error", "access_denied")
			q.Set("error_description", "The user has denied your application access.")
		}, ErrDenied},
		{"state mismatch", func(q url.Values) { q.Set("state", "forged") }, ErrStateMismatch},
		{"no code", func(q url.Values) { q.Del("code") }, ErrNoToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, codes := exchangeServer(t, "unused")
			flow := newFlow(srv.URL, browser(t, tt.mutate))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := flow.Login(ctx)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, *codes)
		})
	}
}

func TestCodeExchange_EmptyTokenResponse(t *testing.T) {
	srv, _ := exchangeServer(t, "")
	flow := newFlow(srv.URL, browser(t, nil))

	_, err := flow.Login(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestCodeExchange_ExchangeFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad code", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newFlow(srv.URL, nil).Exchange(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "bad code")
}

func TestCodeExchange_ContextCancelled(t *testing.T) {
	flow := newFlow("http://127.0.0.1:1/unused", func(string) error { return nil })
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := flow.Login(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCodeExchange_NotConfigured(t *testing.T) {
	flow := NewCodeExchange(models.AuthSettings{}, nil, nil)
	_, err := flow.Login(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAuthorizeURL(t *testing.T) {
	flow := newFlow("x", nil)
	flow.AuthorizeURL = "https://example.com/auth?prompt=consent"
	u, err := url.Parse(flow.authorizeURL("http://127.0.0.1:9/callback", "s1"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "s1", q.Get("state"))
	assert.Equal(t, "http://127.0.0.1:9/callback", q.Get("redirect_uri"))
}

func TestStatic(t *testing.T) {
	tok, err := Static{Token: "abc"}.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = Static{}.Login(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}
