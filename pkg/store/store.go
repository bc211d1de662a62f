package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dsgn-lab/dock/internal/models"
)

// Credential authenticates a page-create call. Both the long-lived
// integration secret and a delegated OAuth access token travel as bearer
// tokens; Delegated selects the narrower property schema registered for
// OAuth-authorized integrations.
type Credential struct {
	Token     string
	Delegated bool
}

type StoreConfig struct {
	BaseURL    string
	DatabaseID string
	Version    string // API-version header value
	Timeout    time.Duration
}

// Client writes captured records into a document-database table.
type Client struct {
	config StoreConfig
	client *http.Client
}

func NewWithConfig(config StoreConfig) (*Client, error) {
	if config.DatabaseID == "" {
		return nil, fmt.Errorf("database id is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.notion.com/v1"
	}
	if config.Version == "" {
		config.Version = "2022-06-28"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// WriteError carries the store's raw response body so callers can surface
// the backend's own diagnostic text to the end user.
type WriteError struct {
	Payload string
}

func (e *WriteError) Error() string {
	return e.Payload
}

// CreatePage writes one record as a new page in the configured table.
// Success is signaled by an id in the response payload; anything else is a
// failure carrying the raw response.
func (c *Client) CreatePage(ctx context.Context, record models.CapturedRecord, cred Credential) error {
	payload := map[string]interface{}{
		"parent":     map[string]interface{}{"database_id": c.config.DatabaseID},
		"properties": c.properties(record, cred.Delegated),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode page request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/pages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build page request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", c.config.Version)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("store request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read store response: %v", err)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &result); err != nil || result.ID == "" {
		return &WriteError{Payload: string(raw)}
	}

	return nil
}

// properties maps a record onto the table schema. Delegated integrations
// are registered against a simplified table carrying only a title column.
func (c *Client) properties(record models.CapturedRecord, delegated bool) map[string]interface{} {
	if delegated {
		return map[string]interface{}{
			"title": map[string]interface{}{"title": richText(record.URL)},
		}
	}

	return map[string]interface{}{
		"Title":    map[string]interface{}{"title": richText(record.Title)},
		"URL":      map[string]interface{}{"url": record.URL},
		"Summary":  map[string]interface{}{"rich_text": richText(record.Summary)},
		"Category": map[string]interface{}{"select": map[string]interface{}{"name": record.Category}},
	}
}

func richText(content string) []map[string]interface{} {
	return []map[string]interface{}{
		{"text": map[string]interface{}{"content": content}},
	}
}
