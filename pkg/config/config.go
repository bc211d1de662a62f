package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		APIKey      string  `yaml:"api_key"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Store struct {
		BaseURL           string `yaml:"base_url"`
		IntegrationSecret string `yaml:"integration_secret"`
		DatabaseID        string `yaml:"database_id"`
		Version           string `yaml:"version"`
	} `yaml:"store"`

	OAuth struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		RedirectURI  string `yaml:"redirect_uri"`
		AuthorizeURL string `yaml:"authorize_url"`
		TokenURL     string `yaml:"token_url"`
	} `yaml:"oauth"`

	Fetcher struct {
		UserAgent      string  `yaml:"user_agent"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		RateLimit      float64 `yaml:"rate_limit"`
		MaxParagraphs  int     `yaml:"max_paragraphs"`
	} `yaml:"fetcher"`

	Journal struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
	} `yaml:"journal"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/dock/config.yaml"),
			"/etc/dock/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "https://api.deepseek.com/v1"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "deepseek-chat"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}

	if config.Store.BaseURL == "" {
		config.Store.BaseURL = "https://api.notion.com/v1"
	}
	if config.Store.Version == "" {
		config.Store.Version = "2022-06-28"
	}

	if config.OAuth.AuthorizeURL == "" {
		config.OAuth.AuthorizeURL = "https://api.notion.com/v1/oauth/authorize"
	}
	if config.OAuth.TokenURL == "" {
		config.OAuth.TokenURL = "https://api.notion.com/v1/oauth/token"
	}

	if config.Fetcher.UserAgent == "" {
		config.Fetcher.UserAgent = "Mozilla/5.0"
	}
	if config.Fetcher.TimeoutSeconds == 0 {
		config.Fetcher.TimeoutSeconds = 30
	}
	if config.Fetcher.RateLimit == 0 {
		config.Fetcher.RateLimit = 2.0
	}
	if config.Fetcher.MaxParagraphs == 0 {
		config.Fetcher.MaxParagraphs = 5
	}

	if config.Journal.TableName == "" {
		config.Journal.TableName = "captures"
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
}

func mergeWithEnv(config *Config) {
	if key := os.Getenv("DOCK_LLM_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if baseURL := os.Getenv("DOCK_LLM_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if secret := os.Getenv("DOCK_STORE_SECRET"); secret != "" {
		config.Store.IntegrationSecret = secret
	}
	if id := os.Getenv("DOCK_DATABASE_ID"); id != "" {
		config.Store.DatabaseID = id
	}
	if id := os.Getenv("DOCK_OAUTH_CLIENT_ID"); id != "" {
		config.OAuth.ClientID = id
	}
	if secret := os.Getenv("DOCK_OAUTH_CLIENT_SECRET"); secret != "" {
		config.OAuth.ClientSecret = secret
	}
	if uri := os.Getenv("DOCK_OAUTH_REDIRECT_URI"); uri != "" {
		config.OAuth.RedirectURI = uri
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Journal.URL = dbURL
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
}
