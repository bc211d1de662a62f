package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dsgn-lab/dock/pkg/oauth"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, tokenURL string) (*Server, *httptest.Server) {
	t.Helper()

	exchanger, err := oauth.NewWithConfig(oauth.ExchangerConfig{
		ClientID:     "client123",
		ClientSecret: "shh",
		RedirectURI:  "https://dock.example.com/callback",
		AuthorizeURL: "https://provider.example.com/oauth/authorize",
		TokenURL:     tokenURL,
	})
	require.NoError(t, err)

	s := New(nil, exchanger, Config{})
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func noRedirects() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// login performs the redirect step and returns the state parameter the
// server issued for it.
func login(t *testing.T, ts *httptest.Server) string {
	t.Helper()

	resp, err := noRedirects().Get(ts.URL + "/login")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestLiveness(t *testing.T) {
	_, ts := newTestServer(t, "http://localhost:0")

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "running")
}

func TestLoginRedirect(t *testing.T) {
	_, ts := newTestServer(t, "http://localhost:0")

	resp, err := noRedirects().Get(ts.URL + "/login")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "provider.example.com", location.Host)
	assert.Equal(t, "client123", location.Query().Get("client_id"))
	assert.Equal(t, "code", location.Query().Get("response_type"))
	assert.NotEmpty(t, location.Query().Get("state"))
}

func TestCallbackMissingCode(t *testing.T) {
	var tokenCalls int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
	}))
	defer tokenServer.Close()

	_, ts := newTestServer(t, tokenServer.URL)
	state := login(t, ts)

	resp, err := http.Get(ts.URL + "/callback?state=" + state)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Authorization failed")
	assert.Zero(t, atomic.LoadInt32(&tokenCalls))
}

func TestCallbackUnknownState(t *testing.T) {
	var tokenCalls int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
	}))
	defer tokenServer.Close()

	_, ts := newTestServer(t, tokenServer.URL)

	resp, err := http.Get(ts.URL + "/callback?code=abc&state=forged")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Authorization failed")
	assert.Zero(t, atomic.LoadInt32(&tokenCalls))
}

func TestCallbackExchangeFailure(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid_grant"}`))
	}))
	defer tokenServer.Close()

	_, ts := newTestServer(t, tokenServer.URL)
	state := login(t, ts)

	resp, err := http.Get(ts.URL + "/callback?code=used&state=" + state)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Failed to retrieve access token")
}

func TestCallbackSuccess(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "secret-token"}`))
	}))
	defer tokenServer.Close()

	_, ts := newTestServer(t, tokenServer.URL)
	state := login(t, ts)

	resp, err := http.Get(ts.URL + "/callback?code=good&state=" + state)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "secret-token", string(body))
}

func TestStateIsSingleUse(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token": "secret-token"}`))
	}))
	defer tokenServer.Close()

	_, ts := newTestServer(t, tokenServer.URL)
	state := login(t, ts)

	resp, err := http.Get(ts.URL + "/callback?code=good&state=" + state)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Replaying the same state is refused
	resp, err = http.Get(ts.URL + "/callback?code=good&state=" + state)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebSocketBadCommand(t *testing.T) {
	_, ts := newTestServer(t, "http://localhost:0")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	err = conn.WriteJSON(Message{Type: "command", Content: "fetch something"})
	require.NoError(t, err)

	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Contains(t, reply.Content, "usage: save <url>")
}
