package main

import (
	"eduassist/internal/domain"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askRole   string
	askCourse string
	askTopic  string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the assistant a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askRole, "role", "r", string(domain.DefaultRole),
		"answer as for this role (student, lecturer, admin)")
	askCmd.Flags().StringVar(&askCourse, "course", "", "course the question belongs to")
	askCmd.Flags().StringVar(&askTopic, "topic", "", "topic the question belongs to")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if _, ok := domain.ParseRole(askRole); !ok {
		return fmt.Errorf("unknown role %q", askRole)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	answer := a.assistant.Answer(ctx, strings.Join(args, " "), askRole, domain.QueryContext{
		Course: askCourse,
		Topic:  askTopic,
	})
	fmt.Fprintln(cmd.OutOrStdout(), answer)

	return nil
}
