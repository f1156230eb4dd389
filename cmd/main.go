package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "eduassist",
	Short: "Role-aware educational assistant",
	Long: `eduassist answers study questions for students, lecturers and
administrators, summarizes PDF documents and fetches pages from an
allow-list of educational sites.

Running without a subcommand is the same as "eduassist serve".`,
	SilenceUsage: true,
	RunE:         runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
