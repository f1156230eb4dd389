package main

import (
	"eduassist/internal/config"
	"eduassist/internal/server"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Issue an API token for a user",
	Long: `Signs a bearer token for the HTTP API with JWT_SECRET. The user id is
the same numeric id the Telegram bot stores history under, so both
surfaces share preferences and history.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "token lifetime, 0 for no expiry")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parse user id: %w", err)
	}

	auth, err := config.LoadAuth()
	if err != nil {
		return err
	}

	token, err := server.IssueToken(auth.JWTSecret, userID, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)

	return nil
}
