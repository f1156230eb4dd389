package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [url]",
	Short: "Print the cleaned text of an allow-listed page",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	page, err := a.fetcher.Fetch(ctx, args[0])
	if err != nil {
		return fmt.Errorf("fetch page: %w", err)
	}
	if page == nil || page.Text == "" {
		return errors.New("page could not be fetched")
	}
	fmt.Fprintln(cmd.OutOrStdout(), page.Text)

	return nil
}
