package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driving"
)

// mockSettingsService records changes made through the CLI.
type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	pingErr     error

	embeddingProvider domain.AIProvider
	llmProvider       domain.AIProvider
	model             string
	apiKey            string
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.embeddingProvider, m.model, m.apiKey = provider, model, apiKey
	m.settings.Embedding = domain.EmbeddingSettings{Provider: provider, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.llmProvider, m.model, m.apiKey = provider, model, apiKey
	m.settings.LLM = domain.LLMSettings{Provider: provider, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettingsService) SetAnswerSettings(answer domain.AnswerSettings) error {
	if err := answer.Validate(); err != nil {
		return err
	}
	m.settings.Answer = answer
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }
func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.pingErr }
func (m *mockSettingsService) ValidateLLMConfig() error { return m.pingErr }

// mockDocumentService keeps documents in memory.
type mockDocumentService struct {
	documents []domain.DocumentInfo
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.DocumentInfo, error) {
	return m.documents, nil
}

func (m *mockDocumentService) Delete(_ context.Context, key string) error {
	for i := range m.documents {
		if m.documents[i].Key == key {
			now := time.Now()
			m.documents[i].DeletedAt = &now
			return nil
		}
	}
	return fmt.Errorf("%w: document %q", domain.ErrNotFound, key)
}

func (m *mockDocumentService) Restore(_ context.Context, key string) error {
	for i := range m.documents {
		if m.documents[i].Key == key {
			m.documents[i].DeletedAt = nil
			return nil
		}
	}
	return fmt.Errorf("%w: document %q", domain.ErrNotFound, key)
}

// mockQueryService returns a fixed answer and records the options it was given.
type mockQueryService struct {
	answer   domain.Answer
	err      error
	question string
	opts     driving.AskOptions
}

func (m *mockQueryService) Ask(ctx context.Context, question string, opts driving.AskOptions) (*domain.QueryResponse, error) {
	a, err := m.Query(ctx, question, opts)
	if err != nil {
		return nil, err
	}
	resp := domain.NewQueryResponse(*a)
	return &resp, nil
}

func (m *mockQueryService) Query(_ context.Context, question string, opts driving.AskOptions) (*domain.Answer, error) {
	m.question = question
	m.opts = opts
	if m.err != nil {
		return nil, m.err
	}
	a := m.answer
	a.Question = question
	return &a, nil
}

func testAnswer() domain.Answer {
	ctx := domain.Context{
		Passage: domain.Passage{
			Name:  "Doe2020 pages 1-2",
			Text:  "The sky is blue because of Rayleigh scattering.",
			Doc:   domain.DocumentRef{Key: "doe", Name: "Doe2020", Citation: "Doe, J. Sky Colours. 2020."},
			Pages: domain.PageRange{Start: 1, End: 2},
		},
		Summary: "Rayleigh scattering explains the colour.",
		Score:   8,
	}
	a := domain.NewAnswer("Why is the sky blue?")
	a.Contexts = []domain.Context{ctx}
	a.Bibliography.Add(ctx)
	a.Text = "Rayleigh scattering (Doe2020 pages 1-2)."
	a.TaggedText = "Rayleigh scattering <cite><doc>Doe2020 pages 1-2</doc></cite>."
	a.References = "1. (Doe2020 pages 1-2): Doe, J. Sky Colours. 2020."
	a.FormattedAnswer = "Question: Why is the sky blue?\n\nRayleigh scattering (Doe2020 pages 1-2).\n\nReferences\n\n" + a.References + "\n"
	a.Usage.Add("gpt-4o-mini", 120, 30)
	return a
}

var (
	testSettings *mockSettingsService
	testDocs     *mockDocumentService
	testQuery    *mockQueryService
)

// setupTestServices installs mock services and returns a cleanup function.
func setupTestServices() func() {
	testSettings = newMockSettingsService()
	testDocs = &mockDocumentService{documents: []domain.DocumentInfo{
		{
			DocumentRef: domain.DocumentRef{Key: "doe", Name: "Doe2020", Citation: "Doe, J. Sky Colours. 2020."},
			Passages:    3,
			CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			DocumentRef: domain.DocumentRef{Key: "roe", Name: "Roe2019"},
			Passages:    1,
			CreatedAt:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
	}}
	testQuery = &mockQueryService{answer: testAnswer()}

	SetServices(Services{
		Settings: testSettings,
		Document: testDocs,
		Query:    func() (driving.QueryService, error) { return testQuery, nil },
	})

	return func() {
		SetServices(Services{})
		resetFlags(rootCmd)
	}
}

// resetFlags restores every flag in the command tree to its default so
// state does not leak between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	return executeWithInput("", args...)
}

func executeWithInput(input string, args ...string) (string, error) {
	return executeContext(context.Background(), input, args...)
}

func executeContext(ctx context.Context, input string, args ...string) (string, error) {
	buf := new(strings.Builder)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	}()

	setContext(rootCmd, ctx)
	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// setContext hands ctx to every command in the tree. Cobra only fills in a
// subcommand's context while it is still nil, so without this a command keeps
// the context from the first Execute call.
func setContext(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, c := range cmd.Commands() {
		setContext(c, ctx)
	}
}
