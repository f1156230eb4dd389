package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file.pdf]",
	Short: "Summarize a PDF document",
	Long: `Extracts the text of up to 50 pages, summarizes it in 1000-character
chunks and prints the joined chunk summaries.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.summarizer.SummarizePDF(ctx, data)
	if err != nil {
		a.log.ErrorContext(ctx, "Failed to summarize document",
			"error", err,
			"path", args[0],
			"sizeBytes", len(data))

		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary)

	return nil
}
