package llm

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/dsgn-lab/dock/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// Categories is the closed label set offered to the model. The pipeline does
// not enforce membership; whatever label comes back is passed through.
var Categories = []string{"Tech", "Marketing", "E-commerce", "Design", "Business", "Health"}

const (
	// FallbackSummary and FallbackCategory are returned together whenever
	// the model call or the response parse fails.
	FallbackSummary  = "Failed to generate summary"
	FallbackCategory = "Unknown"

	systemPrompt = "You are an AI that summarizes web pages and categorizes them."

	enrichmentDelimiter = "| Category: "
)

// EnricherConfig represents the configuration for an enrichment client.
type EnricherConfig struct {
	BaseURL     string // OpenAI-compatible completion endpoint
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Enricher derives a summary and category for a fetched page via a single
// chat completion call.
type Enricher struct {
	config EnricherConfig
	llm    llms.Model
}

// NewWithConfig creates a new Enricher with the given configuration.
func NewWithConfig(config EnricherConfig) (*Enricher, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("completion API key is required")
	}
	if config.Model == "" {
		config.Model = "deepseek-chat"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.Temperature < 0 || config.Temperature > 1 {
		return nil, fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}

	opts := []openai.Option{
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &Enricher{
		config: config,
		llm:    model,
	}, nil
}

// Enrich sends the page title and excerpt to the model and parses the
// delimited summary/category response. It never returns an error: a failed
// call or an off-format response yields the fallback pair instead.
func (e *Enricher) Enrich(ctx context.Context, title, excerpt string) models.Enrichment {
	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, buildPrompt(title, excerpt)),
	}

	response, err := e.llm.GenerateContent(ctx, content,
		llms.WithTemperature(e.config.Temperature),
		llms.WithMaxTokens(e.config.MaxTokens),
	)
	if err != nil {
		log.Printf("enrichment call failed: %v", err)
		return fallback()
	}
	if response == nil || len(response.Choices) == 0 {
		return fallback()
	}

	summary, category, ok := ParseEnrichment(response.Choices[0].Content)
	if !ok {
		log.Printf("enrichment response missing %q delimiter", enrichmentDelimiter)
		return fallback()
	}

	return models.Enrichment{
		Summary:  summary,
		Category: category,
	}
}

// ParseEnrichment splits a model response of the form
// "Summary: <summary> | Category: <category>" into its parts.
func ParseEnrichment(content string) (summary, category string, ok bool) {
	left, right, found := strings.Cut(content, enrichmentDelimiter)
	if !found {
		return "", "", false
	}

	summary = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(left), "Summary:"))
	category = strings.TrimSpace(right)
	if summary == "" || category == "" {
		return "", "", false
	}
	return summary, category, true
}

func buildPrompt(title, excerpt string) string {
	return fmt.Sprintf(`Summarize this content in 1-2 sentences:
Title: %s
Content: %s

Then, suggest a category from: %s
Format: "Summary: <summary> | Category: <category>"`,
		title, excerpt, strings.Join(Categories, ", "))
}

func fallback() models.Enrichment {
	return models.Enrichment{
		Summary:  FallbackSummary,
		Category: FallbackCategory,
		Fallback: true,
	}
}
