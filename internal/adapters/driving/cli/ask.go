package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driving"
)

var (
	askJSON        bool
	askEvidenceK   int
	askMaxSources  int
	askSkipSummary bool
	askExclude     []string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the corpus",
	Long: `Retrieves relevant passages, gathers evidence and writes an answer
with citations to the documents it was drawn from.

Examples:
  didact ask "What limits the coherence time of transmon qubits?"
  didact ask --json --max-sources 3 "How is the dataset labelled?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the response as JSON")
	askCmd.Flags().IntVar(&askEvidenceK, "k", 0, "number of passages to summarise (0 = configured)")
	askCmd.Flags().IntVar(&askMaxSources, "max-sources", 0, "maximum sources used in the answer (0 = configured)")
	askCmd.Flags().BoolVar(&askSkipSummary, "skip-summary", false, "use raw passages as evidence")
	askCmd.Flags().StringSliceVar(&askExclude, "exclude", nil, "passage names to exclude from evidence")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	svc, err := getQueryService()
	if err != nil {
		return err
	}

	answer, err := svc.Query(cmd.Context(), question, driving.AskOptions{
		EvidenceK:   askEvidenceK,
		MaxSources:  askMaxSources,
		SkipSummary: askSkipSummary,
		Exclude:     askExclude,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, answer)
	}
	outputAnswerText(cmd, answer)
	return nil
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	data, err := json.MarshalIndent(domain.NewQueryResponse(*answer), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswerText(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Print(answer.FormattedAnswer)

	if len(answer.Usage.Tokens) == 0 {
		return
	}
	models := make([]string, 0, len(answer.Usage.Tokens))
	for m := range answer.Usage.Tokens {
		models = append(models, m)
	}
	sort.Strings(models)

	cmd.Println()
	cmd.Println("Usage:")
	for _, m := range models {
		tc := answer.Usage.Tokens[m]
		cmd.Printf("  %s: %d prompt, %d completion tokens\n", m, tc.Prompt, tc.Completion)
	}
	cmd.Printf("  Estimated cost: $%.4f\n", answer.Usage.Cost)
}
