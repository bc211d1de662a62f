package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dsgn-lab/dock/internal/models"
	"github.com/go-shiori/go-readability"
	"golang.org/x/time/rate"
)

const (
	// NoTitleSentinel stands in for pages without a <title> element.
	NoTitleSentinel = "No Title Found"
	// FetchErrorSentinel is the title of a degraded PageContent.
	FetchErrorSentinel = "Error fetching page"

	noContentSentinel = "No readable content found"
	maxExcerptLen     = 1200
)

type FetcherConfig struct {
	UserAgent     string
	Timeout       time.Duration
	RateLimit     float64 // requests per second
	MaxParagraphs int
}

type Fetcher struct {
	config  FetcherConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewWithConfig(config FetcherConfig) *Fetcher {
	if config.UserAgent == "" {
		// Many sites reject default client identifiers.
		config.UserAgent = "Mozilla/5.0"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.MaxParagraphs == 0 {
		config.MaxParagraphs = 5
	}

	return &Fetcher{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

func New() *Fetcher {
	return NewWithConfig(FetcherConfig{})
}

// Fetch retrieves a single page and extracts its title and a bounded
// excerpt. It never returns an error: any network or parse failure degrades
// into a well-formed PageContent so the rest of the pipeline always has
// text to work with.
func (f *Fetcher) Fetch(ctx context.Context, urlStr string) models.PageContent {
	if err := f.limiter.Wait(ctx); err != nil {
		return degraded(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return degraded(err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return degraded(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return degraded(fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, urlStr))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return degraded(err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return degraded(err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = NoTitleSentinel
	}

	excerpt := f.paragraphExcerpt(doc)
	if excerpt == "" {
		excerpt = f.readabilityExcerpt(body, urlStr)
	}

	return models.PageContent{
		Title:   title,
		Excerpt: excerpt,
	}
}

// paragraphExcerpt joins the text of the first MaxParagraphs paragraph
// elements in document order.
func (f *Fetcher) paragraphExcerpt(doc *goquery.Document) string {
	var parts []string
	doc.Find("p").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= f.config.MaxParagraphs {
			return false
		}
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			parts = append(parts, text)
		}
		return true
	})
	return clampExcerpt(strings.Join(parts, " "))
}

// readabilityExcerpt covers pages that carry no paragraph elements at all.
func (f *Fetcher) readabilityExcerpt(body []byte, urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return noContentSentinel
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return noContentSentinel
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if text == "" {
		return noContentSentinel
	}
	return clampExcerpt(text)
}

func clampExcerpt(text string) string {
	runes := []rune(text)
	if len(runes) > maxExcerptLen {
		return string(runes[:maxExcerptLen])
	}
	return text
}

func degraded(err error) models.PageContent {
	return models.PageContent{
		Title:    FetchErrorSentinel,
		Excerpt:  err.Error(),
		Degraded: true,
	}
}
