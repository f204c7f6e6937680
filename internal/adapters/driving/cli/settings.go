package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/didact-labs/didact/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers and answer pipeline options.

Use subcommands to configure specific settings.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used to embed questions for passage retrieval.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used for evidence summaries and answers.`,
	RunE:  runSettingsLLM,
}

var settingsAnswerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Configure answer pipeline options",
	Long: `Update answer pipeline options. Only the flags given are changed.

Examples:
  didact settings answer --evidence-k 15 --max-sources 5
  didact settings answer --use-json=false --max-context-tokens 6000`,
	Args: cobra.NoArgs,
	RunE: runSettingsAnswer,
}

func init() {
	f := settingsAnswerCmd.Flags()
	f.Int("evidence-k", 0, "passages summarised per question")
	f.Int("max-concurrent", 0, "maximum concurrent summary requests")
	f.Int("max-sources", 0, "maximum sources used in the answer")
	f.Bool("skip-summary", false, "use raw passages as evidence")
	f.Bool("use-json", true, "request structured JSON summaries")
	f.Bool("detailed-citations", true, "include document citations in the context")
	f.String("answer-length", "", "length target for answers")
	f.String("summary-length", "", "length target for summaries")
	f.Bool("filter-extra-background", false, "remove extra background markers from answers")
	f.Int("max-context-tokens", 0, "token budget for the context (0 = unlimited)")
	f.Duration("summary-timeout", 0, "timeout for each summary request")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsAnswerCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	a := settings.Answer
	cmd.Println("[Answer]")
	cmd.Printf("  Evidence K: %d\n", a.EvidenceK)
	cmd.Printf("  Max Concurrent Requests: %d\n", a.MaxConcurrentRequests)
	cmd.Printf("  Max Sources: %d\n", a.AnswerMaxSources)
	cmd.Printf("  Skip Summary: %s\n", yesNo(a.SkipSummary))
	cmd.Printf("  JSON Summaries: %s\n", yesNo(a.UseJSON))
	cmd.Printf("  Detailed Citations: %s\n", yesNo(a.DetailedCitations))
	cmd.Printf("  Answer Length: %s\n", a.AnswerLength)
	cmd.Printf("  Summary Length: %s\n", a.SummaryLength)
	if a.MaxContextTokens > 0 {
		cmd.Printf("  Max Context Tokens: %d\n", a.MaxContextTokens)
	} else {
		cmd.Printf("  Max Context Tokens: unlimited\n")
	}
	cmd.Printf("  Summary Timeout: %s\n", a.SummaryTimeout)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  MMR Lambda: %.2f\n", settings.Retrieval.MMRLambda)
	cmd.Printf("  Page Size: %d\n", settings.Retrieval.PageSize)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		printAPIKey(cmd, settings.Embedding.APIKey)
	}
	printStatus(cmd, settings.Embedding.IsConfigured())
	cmd.Println()

	printLLM(cmd, "[LLM]", settings.LLM)
	if settings.SummaryLLM.Provider != "" {
		printLLM(cmd, "[Summary LLM]", settings.SummaryLLM)
	}

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'didact settings llm' and 'didact settings embedding' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printLLM(cmd *cobra.Command, title string, l domain.LLMSettings) {
	cmd.Println(title)
	cmd.Printf("  Provider: %s\n", l.Provider.Description())
	cmd.Printf("  Model: %s\n", l.Model)
	if l.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", l.BaseURL)
	}
	if l.Provider.RequiresAPIKey() {
		printAPIKey(cmd, l.APIKey)
	}
	if l.RequestsPerSecond > 0 {
		cmd.Printf("  Rate Limit: %.2f req/s (burst %d)\n", l.RequestsPerSecond, l.Burst)
	}
	printStatus(cmd, l.IsConfigured())
	cmd.Println()
}

func printAPIKey(cmd *cobra.Command, key string) {
	if key != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(key))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
}

func printStatus(cmd *cobra.Command, configured bool) {
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureEmbeddingProvider(cmd, reader)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureLLMProvider(cmd, reader)
}

func runSettingsAnswer(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	answer := settings.Answer

	f := cmd.Flags()
	if f.Changed("evidence-k") {
		answer.EvidenceK, _ = f.GetInt("evidence-k")
	}
	if f.Changed("max-concurrent") {
		answer.MaxConcurrentRequests, _ = f.GetInt("max-concurrent")
	}
	if f.Changed("max-sources") {
		answer.AnswerMaxSources, _ = f.GetInt("max-sources")
	}
	if f.Changed("skip-summary") {
		answer.SkipSummary, _ = f.GetBool("skip-summary")
	}
	if f.Changed("use-json") {
		answer.UseJSON, _ = f.GetBool("use-json")
	}
	if f.Changed("detailed-citations") {
		answer.DetailedCitations, _ = f.GetBool("detailed-citations")
	}
	if f.Changed("answer-length") {
		answer.AnswerLength, _ = f.GetString("answer-length")
	}
	if f.Changed("summary-length") {
		answer.SummaryLength, _ = f.GetString("summary-length")
	}
	if f.Changed("filter-extra-background") {
		answer.FilterExtraBackground, _ = f.GetBool("filter-extra-background")
	}
	if f.Changed("max-context-tokens") {
		answer.MaxContextTokens, _ = f.GetInt("max-context-tokens")
	}
	if f.Changed("summary-timeout") {
		answer.SummaryTimeout, _ = f.GetDuration("summary-timeout")
	}

	if err := settingsService.SetAnswerSettings(answer); err != nil {
		return fmt.Errorf("failed to update answer settings: %w", err)
	}
	cmd.Println("Answer settings updated.")
	return nil
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	defaults := domain.DefaultEmbeddingModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for LLM - intentional for CLI flow clarity
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	defaults := domain.DefaultLLMModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal and falls back
// to a plain line from reader otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
