package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dsgn-lab/dock/internal/models"
)

// State tracks the authorization-code grant through its lifecycle.
type State int

const (
	Idle State = iota
	AwaitingCode
	Exchanging
	Authorized
	Denied
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingCode:
		return "awaiting_code"
	case Exchanging:
		return "exchanging"
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

var (
	// ErrMissingCode means the callback arrived without a code parameter.
	ErrMissingCode = errors.New("authorization code missing")
	// ErrNoAccessToken means the token endpoint answered without a token.
	ErrNoAccessToken = errors.New("token response carried no access token")
)

type ExchangerConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthorizeURL string
	TokenURL     string
	Timeout      time.Duration
}

// Exchanger implements the authorization-code grant: it issues the provider
// redirect and trades the callback code for an access token. Codes are
// single-use; replay rejection is the provider's job, not tracked here.
type Exchanger struct {
	config ExchangerConfig
	client *http.Client

	mu    sync.Mutex
	state State
}

func NewWithConfig(config ExchangerConfig) (*Exchanger, error) {
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("oauth client id and secret are required")
	}
	if config.RedirectURI == "" {
		return nil, fmt.Errorf("oauth redirect URI is required")
	}
	if config.AuthorizeURL == "" {
		config.AuthorizeURL = "https://api.notion.com/v1/oauth/authorize"
	}
	if config.TokenURL == "" {
		config.TokenURL = "https://api.notion.com/v1/oauth/token"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Exchanger{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		state: Idle,
	}, nil
}

// BeginAuthorization builds the provider's authorize URL for the browser
// redirect. stateToken, when set, rides along as the state parameter so the
// callback can be tied back to this login attempt.
func (e *Exchanger) BeginAuthorization(stateToken string) string {
	u, err := url.Parse(e.config.AuthorizeURL)
	if err != nil {
		// Config URLs are validated at startup; a parse failure here means
		// a hand-edited config, so fall back to the raw value.
		return e.config.AuthorizeURL
	}

	q := u.Query()
	q.Set("client_id", e.config.ClientID)
	q.Set("response_type", "code")
	q.Set("owner", "user")
	q.Set("redirect_uri", e.config.RedirectURI)
	if stateToken != "" {
		q.Set("state", stateToken)
	}
	u.RawQuery = q.Encode()

	e.transition(AwaitingCode)
	return u.String()
}

// Exchange trades an authorization code for an access token. An empty code
// denies the flow without touching the token endpoint.
func (e *Exchanger) Exchange(ctx context.Context, code string) (*models.OAuthToken, error) {
	if code == "" {
		e.transition(Denied)
		return nil, ErrMissingCode
	}

	e.transition(Exchanging)

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", e.config.RedirectURI)
	form.Set("client_id", e.config.ClientID)
	form.Set("client_secret", e.config.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		e.transition(Denied)
		return nil, fmt.Errorf("failed to build token request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	if err != nil {
		e.transition(Denied)
		return nil, fmt.Errorf("token exchange failed: %v", err)
	}
	defer resp.Body.Close()

	var payload struct {
		AccessToken   string `json:"access_token"`
		WorkspaceName string `json:"workspace_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.AccessToken == "" {
		e.transition(Denied)
		return nil, ErrNoAccessToken
	}

	e.transition(Authorized)
	return &models.OAuthToken{
		AccessToken:   payload.AccessToken,
		WorkspaceName: payload.WorkspaceName,
	}, nil
}

func (e *Exchanger) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Exchanger) transition(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}
