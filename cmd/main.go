package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dsgn-lab/dock/pkg/capture"
	cfgPkg "github.com/dsgn-lab/dock/pkg/config"
	"github.com/dsgn-lab/dock/pkg/fetcher"
	"github.com/dsgn-lab/dock/pkg/history"
	"github.com/dsgn-lab/dock/pkg/llm"
	"github.com/dsgn-lab/dock/pkg/oauth"
	"github.com/dsgn-lab/dock/pkg/store"
	"github.com/dsgn-lab/dock/server"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

type Flags struct {
	ConfigPath string
	URL        string
	Serve      bool
}

func main() {
	flags := parseFlags()

	config, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		log.Fatal(err)
	}

	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		os.Exit(1)
	}

	if err := run(flags, config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Flags {
	var flags Flags

	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&flags.URL, "url", "", "Capture a single URL and exit")
	flag.BoolVar(&flags.Serve, "serve", false, "Run the capture server")
	flag.Parse()

	return flags
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(flags Flags, config *cfgPkg.Config) error {
	// Initialize pipeline components
	pageFetcher := fetcher.NewWithConfig(fetcher.FetcherConfig{
		UserAgent:     config.Fetcher.UserAgent,
		Timeout:       time.Duration(config.Fetcher.TimeoutSeconds) * time.Second,
		RateLimit:     config.Fetcher.RateLimit,
		MaxParagraphs: config.Fetcher.MaxParagraphs,
	})

	enricher, err := llm.NewWithConfig(llm.EnricherConfig{
		BaseURL:     config.LLM.BaseURL,
		APIKey:      config.LLM.APIKey,
		Model:       config.LLM.Model,
		Temperature: config.LLM.Temperature,
		MaxTokens:   config.LLM.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize enricher: %v", err)
	}

	recordStore, err := store.NewWithConfig(store.StoreConfig{
		BaseURL:    config.Store.BaseURL,
		DatabaseID: config.Store.DatabaseID,
		Version:    config.Store.Version,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize record store: %v", err)
	}

	var journal capture.Journal
	if config.Journal.URL != "" {
		j, err := history.NewWithConfig(history.JournalConfig{
			ConnString: config.Journal.URL,
			TableName:  config.Journal.TableName,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize capture journal: %v", err)
		}
		defer j.Close()
		journal = j
	}

	orchestrator := capture.New(pageFetcher, enricher, recordStore, journal, capture.OrchestratorConfig{
		Credential: store.Credential{Token: config.Store.IntegrationSecret},
	})

	if flags.Serve {
		var exchanger *oauth.Exchanger
		if config.OAuth.ClientID != "" {
			exchanger, err = oauth.NewWithConfig(oauth.ExchangerConfig{
				ClientID:     config.OAuth.ClientID,
				ClientSecret: config.OAuth.ClientSecret,
				RedirectURI:  config.OAuth.RedirectURI,
				AuthorizeURL: config.OAuth.AuthorizeURL,
				TokenURL:     config.OAuth.TokenURL,
			})
			if err != nil {
				return fmt.Errorf("failed to initialize credential exchanger: %v", err)
			}
		}

		return server.New(orchestrator, exchanger, server.Config{
			Port: config.Server.Port,
		}).ListenAndServe()
	}

	if flags.URL == "" {
		return fmt.Errorf("nothing to do: pass -url <link> or -serve")
	}

	// One-shot capture
	spinner := getSpinner(" Capturing page...")
	result := orchestrator.CaptureWith(context.Background(), flags.URL, func(status string) {
		color.Blue("%s", status)
	})
	spinner.Finish()
	fmt.Print("\n")

	if result.Saved() {
		color.Green("%s", result.Message())
		return nil
	}

	color.Red("%s", result.Message())
	os.Exit(1)
	return nil
}
