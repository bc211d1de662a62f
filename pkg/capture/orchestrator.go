package capture

import (
	"context"
	"fmt"
	"log"

	"github.com/dsgn-lab/dock/internal/models"
	"github.com/dsgn-lab/dock/pkg/history"
	"github.com/dsgn-lab/dock/pkg/store"
)

// ProcessingMessage is the liveness ack sent before the pipeline starts;
// the end-to-end latency spans three network round trips.
const ProcessingMessage = "Processing..."

type Fetcher interface {
	Fetch(ctx context.Context, url string) models.PageContent
}

type Enricher interface {
	Enrich(ctx context.Context, title, excerpt string) models.Enrichment
}

type Store interface {
	CreatePage(ctx context.Context, record models.CapturedRecord, cred store.Credential) error
}

type Journal interface {
	Record(ctx context.Context, entry history.Entry) error
}

type OrchestratorConfig struct {
	Credential store.Credential
	OnProgress func(message string)
}

// Orchestrator composes fetch, enrich and persist into one unit of work.
// Fetch and enrich fail open, so the store write is the only stage that can
// fail a capture.
type Orchestrator struct {
	config   OrchestratorConfig
	fetcher  Fetcher
	enricher Enricher
	store    Store
	journal  Journal // optional
}

func New(fetcher Fetcher, enricher Enricher, st Store, journal Journal, config OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		config:   config,
		fetcher:  fetcher,
		enricher: enricher,
		store:    st,
		journal:  journal,
	}
}

// Result is the outcome of one capture.
type Result struct {
	Record     models.CapturedRecord
	Page       models.PageContent
	Enrichment models.Enrichment
	Err        error
}

func (r Result) Saved() bool {
	return r.Err == nil
}

// Message renders the user-facing outcome.
func (r Result) Message() string {
	if r.Err != nil {
		return fmt.Sprintf("Failed to save link: %v", r.Err)
	}
	return fmt.Sprintf("Saved!\nTitle: %s\nSummary: %s\nCategory: %s",
		r.Record.Title, r.Record.Summary, r.Record.Category)
}

// Capture runs Fetch, Enrich and the store write for one URL, in order,
// with no retries.
func (o *Orchestrator) Capture(ctx context.Context, url string) Result {
	return o.CaptureWith(ctx, url, o.config.OnProgress)
}

// CaptureWith is Capture with the liveness ack routed through notify,
// letting a transport answer on the connection the command arrived on.
func (o *Orchestrator) CaptureWith(ctx context.Context, url string, notify func(string)) Result {
	if notify != nil {
		notify(ProcessingMessage)
	}

	page := o.fetcher.Fetch(ctx, url)
	enrichment := o.enricher.Enrich(ctx, page.Title, page.Excerpt)

	record := models.CapturedRecord{
		URL:      url,
		Title:    page.Title,
		Summary:  enrichment.Summary,
		Category: enrichment.Category,
	}

	result := Result{
		Record:     record,
		Page:       page,
		Enrichment: enrichment,
		Err:        o.store.CreatePage(ctx, record, o.config.Credential),
	}

	o.journalize(ctx, result)
	return result
}

// journalize records the attempt when a journal is configured. A journal
// failure is logged, never surfaced: the user already has their outcome.
func (o *Orchestrator) journalize(ctx context.Context, result Result) {
	if o.journal == nil {
		return
	}

	entry := history.Entry{
		URL:      result.Record.URL,
		Title:    result.Record.Title,
		Summary:  result.Record.Summary,
		Category: result.Record.Category,
		Status:   history.StatusSaved,
	}
	if result.Err != nil {
		entry.Status = history.StatusFailed
		entry.Detail = result.Err.Error()
	} else if result.Page.Degraded {
		entry.Detail = "page fetch degraded"
	} else if result.Enrichment.Fallback {
		entry.Detail = "enrichment fallback"
	}

	if err := o.journal.Record(ctx, entry); err != nil {
		log.Printf("journal write failed for %s: %v", result.Record.URL, err)
	}
}
