package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jurisgraph/jurisgraph"
	"github.com/jurisgraph/jurisgraph/pkg/config"
	"github.com/jurisgraph/jurisgraph/pkg/logger"
	"github.com/jurisgraph/jurisgraph/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against the legal graph",
	Long: `Ask a question against the legal graph and stream the answer to stdout.

Examples:
  jurisgraph ask "What governs liability for defective products?"
  jurisgraph ask --strategy global "What are the main areas of tort law?"
  jurisgraph ask --as-of 2015-06-01 "What does article 1386 rely on?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var (
	askStrategy   string
	askMaxResults int
	askAsOf       string
)

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&askStrategy, "strategy", "hybrid", "Retrieval strategy (local, global, drift, hybrid)")
	askCmd.Flags().IntVar(&askMaxResults, "max-results", 10, "Maximum evidence results per agent")
	askCmd.Flags().StringVar(&askAsOf, "as-of", "", "Answer as of this date (YYYY-MM-DD)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Log)

	client, err := jurisgraph.NewClient(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize jurisgraph: %w", err)
	}
	defer client.Close()

	req := types.Request{
		Query:      strings.Join(args, " "),
		Strategy:   types.Strategy(askStrategy),
		MaxResults: askMaxResults,
	}
	if askAsOf != "" {
		asOf, err := time.Parse("2006-01-02", askAsOf)
		if err != nil {
			return fmt.Errorf("invalid --as-of date: %w", err)
		}
		req.AsOf = &asOf
	}

	for event := range client.Ask(context.Background(), req) {
		switch event.Kind {
		case types.ProgressEvent:
			log.Debug("progress", "stage", event.Stage)
		case types.TokenEvent:
			fmt.Print(event.Token)
		case types.CompleteEvent:
			fmt.Println()
			printAnswer(event.Result)
		case types.ErrorEvent:
			fmt.Println()
			return fmt.Errorf("%s: %s", event.Error.Kind, event.Error.Message)
		}
	}
	return nil
}

func printAnswer(answer *types.Answer) {
	if answer == nil {
		return
	}
	if len(answer.Citations) > 0 {
		fmt.Println("\nCitations:")
		for i, c := range answer.Citations {
			fmt.Printf("  [%d] %s (%s)\n", i+1, c.Title, c.EntityID)
		}
	}
	fmt.Printf("\nConfidence: %.2f  Strategy: %s\n", answer.Confidence, answer.Strategy)
	if answer.Note != "" {
		fmt.Println("Note:", answer.Note)
	}
}
