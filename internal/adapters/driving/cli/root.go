// Package cli implements the didact command line interface with cobra.
package cli

import (
	"context"
	"errors"
	"sync"

	"github.com/spf13/cobra"

	"github.com/didact-labs/didact/internal/core/ports/driving"
	"github.com/didact-labs/didact/internal/logger"
)

// version is set at build time.
var version = "dev"

var verbose bool

// Services injected by the composition root.
var (
	settingsService driving.SettingsService
	documentService driving.DocumentService

	// queryFactory builds the query service on first use. Only commands that
	// answer questions need configured AI providers.
	queryFactory func() (driving.QueryService, error)

	queryOnce    sync.Once
	queryService driving.QueryService
	queryErr     error

	// promptWatcher hot-reloads prompt templates while a server runs.
	promptWatcher func(ctx context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "didact",
	Short: "Answer questions over your documents with citations",
	Long: `Didact answers questions from an indexed document corpus.

Passages are retrieved by vector similarity, summarised by an LLM into
scored evidence, and synthesised into an answer with inline citations
that link back to the source documents.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// Services groups the driving ports used by the CLI.
type Services struct {
	Settings driving.SettingsService
	Document driving.DocumentService

	// Query is called lazily the first time a command needs it.
	Query func() (driving.QueryService, error)

	// WatchPrompts, when set, reloads prompt templates on edit until ctx is
	// done. Long-running commands start it after building the query service.
	WatchPrompts func(ctx context.Context) error
}

// SetServices installs the services used by commands.
func SetServices(s Services) {
	settingsService = s.Settings
	documentService = s.Document
	queryFactory = s.Query
	promptWatcher = s.WatchPrompts
	queryOnce = sync.Once{}
	queryService = nil
	queryErr = nil
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// getQueryService returns the query service, building it on first use.
func getQueryService() (driving.QueryService, error) {
	if queryFactory == nil {
		return nil, errors.New("query service not configured")
	}
	queryOnce.Do(func() {
		queryService, queryErr = queryFactory()
	})
	return queryService, queryErr
}

// watchPrompts starts the prompt watcher if one is configured. A watcher
// that fails to start leaves the server on its loaded prompts.
func watchPrompts(ctx context.Context) {
	if promptWatcher == nil {
		return
	}
	if err := promptWatcher(ctx); err != nil {
		logger.Warn("prompt hot reload disabled: %v", err)
	}
}
