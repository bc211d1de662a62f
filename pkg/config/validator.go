package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the fields every deployment needs. OAuth fields are only
// checked when any of them is set, since the fixed-credential variant runs
// without them.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.api_key",
			Message: "completion API key is required",
		})
	}

	if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid completion endpoint URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 8192 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 8192",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 1",
		})
	}

	// Validate store config
	if c.Store.IntegrationSecret == "" {
		errors = append(errors, ValidationError{
			Field:   "store.integration_secret",
			Message: "integration secret is required",
		})
	}

	if c.Store.DatabaseID == "" {
		errors = append(errors, ValidationError{
			Field:   "store.database_id",
			Message: "database id is required",
		})
	}

	if _, err := url.Parse(c.Store.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "store.base_url",
			Message: "invalid store URL",
		})
	}

	// Validate OAuth config, only when the delegated variant is in play
	if c.OAuth.ClientID != "" || c.OAuth.ClientSecret != "" || c.OAuth.RedirectURI != "" {
		if c.OAuth.ClientID == "" {
			errors = append(errors, ValidationError{
				Field:   "oauth.client_id",
				Message: "client_id is required when OAuth is configured",
			})
		}
		if c.OAuth.ClientSecret == "" {
			errors = append(errors, ValidationError{
				Field:   "oauth.client_secret",
				Message: "client_secret is required when OAuth is configured",
			})
		}
		if c.OAuth.RedirectURI == "" {
			errors = append(errors, ValidationError{
				Field:   "oauth.redirect_uri",
				Message: "redirect_uri is required when OAuth is configured",
			})
		}
	}

	// Validate fetcher config
	if c.Fetcher.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "fetcher.timeout_seconds",
			Message: "timeout_seconds must be positive",
		})
	}

	if c.Fetcher.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "fetcher.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Fetcher.MaxParagraphs < 1 {
		errors = append(errors, ValidationError{
			Field:   "fetcher.max_paragraphs",
			Message: "max_paragraphs must be positive",
		})
	}

	// Validate journal config
	if c.Journal.URL != "" {
		if _, err := url.Parse(c.Journal.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "journal.url",
				Message: "invalid database URL",
			})
		}
	}

	return errors
}
