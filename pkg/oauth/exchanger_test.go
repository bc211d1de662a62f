package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(tokenURL string) ExchangerConfig {
	return ExchangerConfig{
		ClientID:     "client123",
		ClientSecret: "shh",
		RedirectURI:  "https://dock.example.com/callback",
		AuthorizeURL: "https://provider.example.com/oauth/authorize",
		TokenURL:     tokenURL,
	}
}

func TestNewWithConfig(t *testing.T) {
	_, err := NewWithConfig(ExchangerConfig{})
	assert.Error(t, err)

	_, err = NewWithConfig(ExchangerConfig{ClientID: "client123", ClientSecret: "shh"})
	assert.Error(t, err)

	e, err := NewWithConfig(testConfig(""))
	require.NoError(t, err)
	assert.Equal(t, Idle, e.State())
	assert.Equal(t, "https://api.notion.com/v1/oauth/token", e.config.TokenURL)
}

func TestBeginAuthorization(t *testing.T) {
	e, err := NewWithConfig(testConfig(""))
	require.NoError(t, err)

	authorizeURL := e.BeginAuthorization("state-token")

	parsed, err := url.Parse(authorizeURL)
	require.NoError(t, err)
	assert.Equal(t, "provider.example.com", parsed.Host)

	q := parsed.Query()
	assert.Equal(t, "client123", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "user", q.Get("owner"))
	assert.Equal(t, "https://dock.example.com/callback", q.Get("redirect_uri"))
	assert.Equal(t, "state-token", q.Get("state"))

	assert.Equal(t, AwaitingCode, e.State())
}

func TestExchangeMissingCode(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	e, err := NewWithConfig(testConfig(server.URL))
	require.NoError(t, err)
	e.BeginAuthorization("")

	token, err := e.Exchange(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingCode)
	assert.Nil(t, token)
	assert.Equal(t, Denied, e.State())

	// A missing code never reaches the token endpoint
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestExchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "code-abc", r.PostForm.Get("code"))
		assert.Equal(t, "https://dock.example.com/callback", r.PostForm.Get("redirect_uri"))
		assert.Equal(t, "client123", r.PostForm.Get("client_id"))
		assert.Equal(t, "shh", r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "secret-token", "workspace_name": "Design Lab"}`))
	}))
	defer server.Close()

	e, err := NewWithConfig(testConfig(server.URL))
	require.NoError(t, err)
	e.BeginAuthorization("")

	token, err := e.Exchange(context.Background(), "code-abc")
	require.NoError(t, err)
	assert.Equal(t, "secret-token", token.AccessToken)
	assert.Equal(t, "Design Lab", token.WorkspaceName)
	assert.Equal(t, Authorized, e.State())
}

func TestExchangeNoAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid_grant"}`))
	}))
	defer server.Close()

	e, err := NewWithConfig(testConfig(server.URL))
	require.NoError(t, err)

	token, err := e.Exchange(context.Background(), "used-code")
	assert.ErrorIs(t, err, ErrNoAccessToken)
	assert.Nil(t, token)
	assert.Equal(t, Denied, e.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "awaiting_code", AwaitingCode.String())
	assert.Equal(t, "exchanging", Exchanging.String())
	assert.Equal(t, "authorized", Authorized.String())
	assert.Equal(t, "denied", Denied.String())
}
