package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/didact-labs/didact/internal/adapters/driven/ai"
	"github.com/didact-labs/didact/internal/adapters/driven/config/file"
	"github.com/didact-labs/didact/internal/adapters/driven/storage/sqlite"
	"github.com/didact-labs/didact/internal/adapters/driving/cli"
	"github.com/didact-labs/didact/internal/core/ports/driving"
	"github.com/didact-labs/didact/internal/core/services"
	"github.com/didact-labs/didact/internal/logger"
	"github.com/didact-labs/didact/internal/tplengine"
)

// Environment overrides for the config and data directories.
const (
	envConfigDir = "DIDACT_CONFIG_DIR"
	envDataDir   = "DIDACT_DATA_DIR"
	envPromptDir = "DIDACT_PROMPT_DIR"
)

// app owns the adapters shared by every command.
type app struct {
	settings  *services.SettingsService
	store     *sqlite.Store
	documents *services.DocumentService

	mu      sync.Mutex
	ai      *ai.InitResult
	prompts *promptReload
}

// promptReload is what the prompt watcher needs to swap templates into a
// built pipeline.
type promptReload struct {
	store     *file.PromptStore
	engine    *tplengine.Engine
	receivers []services.PromptReceiver
}

func newApp() (*app, error) {
	configStore, err := file.NewConfigStore(os.Getenv(envConfigDir))
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	store, err := sqlite.NewStore(os.Getenv(envDataDir))
	if err != nil {
		return nil, fmt.Errorf("open corpus store: %w", err)
	}
	logger.Debug("Corpus store: %s", store.Path())

	return &app{
		settings:  services.NewSettingsService(configStore, ai.NewConfigValidator()),
		store:     store,
		documents: services.NewDocumentService(store),
	}, nil
}

// Services returns the driving ports for the CLI.
func (a *app) Services() cli.Services {
	return cli.Services{
		Settings: a.settings,
		Document: a.documents,
		Query:    a.buildQueryService,

		WatchPrompts: a.watchPrompts,
	}
}

// watchPrompts reloads prompt templates into the query pipeline whenever
// a file in the prompt directory changes.
func (a *app) watchPrompts(ctx context.Context) error {
	a.mu.Lock()
	reload := a.prompts
	a.mu.Unlock()
	if reload == nil {
		return nil
	}
	return reload.store.Watch(ctx, func() {
		if err := services.ReloadPrompts(reload.store, reload.engine, reload.receivers...); err != nil {
			logger.Warn("keeping previous prompts: %v", err)
		}
	})
}

// buildQueryService assembles retrieval, evidence gathering and synthesis
// from the current settings.
func (a *app) buildQueryService() (driving.QueryService, error) {
	settings, err := a.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	ai.ApplyEnvAPIKeys(settings, os.LookupEnv)

	aiServices, err := ai.Init(*settings)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.ai = aiServices
	a.mu.Unlock()

	promptStore, err := file.NewPromptStore(os.Getenv(envPromptDir))
	if err != nil {
		return nil, fmt.Errorf("open prompts: %w", err)
	}
	engine := tplengine.NewEngine()
	prompts, err := services.LoadPromptSet(promptStore, engine)
	if err != nil {
		return nil, err
	}
	runner := services.NewPromptRunner(engine)

	retriever := services.NewRetriever(a.store, aiServices.EmbeddingService, settings.Retrieval.PageSize)
	gatherer := services.NewEvidenceGatherer(
		retriever, a.store, aiServices.SummaryLLMService, runner, prompts, settings.Retrieval.MMRLambda,
	)
	synthesizer := services.NewAnswerSynthesizer(
		gatherer, aiServices.LLMService, runner, prompts, aiServices.TokenCounter,
	)
	a.documents.SetRefresher(retriever)

	a.mu.Lock()
	a.prompts = &promptReload{
		store:     promptStore,
		engine:    engine,
		receivers: []services.PromptReceiver{gatherer, synthesizer},
	}
	a.mu.Unlock()

	logger.Debug("Query pipeline ready: embedding=%s llm=%s summary=%s",
		aiServices.EmbeddingService.ModelName(),
		aiServices.LLMService.ModelName(),
		aiServices.SummaryLLMService.ModelName())
	return services.NewQueryService(synthesizer, settings.Answer), nil
}

// Close releases AI services and the store.
func (a *app) Close() {
	a.mu.Lock()
	if a.ai != nil {
		a.ai.Close()
	}
	a.mu.Unlock()
	if err := a.store.Close(); err != nil {
		logger.Warn("close store: %v", err)
	}
}
