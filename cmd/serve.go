package main

import (
	"context"
	"eduassist/internal/bot"
	"eduassist/internal/database"
	"eduassist/internal/scheduler"
	"eduassist/internal/server"
	"errors"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot and the HTTP API",
	Long: `Starts the Telegram bot when TELEGRAM_TOKEN is set and the HTTP API
when HTTP_ADDR is set. Chat logs older than CHAT_LOG_RETENTION_DAYS are
pruned daily.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	start := time.Now()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	log := a.log
	cfg := a.cfg

	botEnabled := strings.TrimSpace(cfg.TelegramToken) != ""
	httpEnabled := strings.TrimSpace(cfg.HTTPAddr) != ""
	if !botEnabled && !httpEnabled {
		log.ErrorContext(ctx, "Nothing to serve",
			"envVars", []string{"TELEGRAM_TOKEN", "HTTP_ADDR"})

		return errors.New("TELEGRAM_TOKEN or HTTP_ADDR is required")
	}

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize db",
			"error", err,
			"dbPath", cfg.DBPath)

		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	sched := scheduler.New(ctx, db, cfg.ChatLogRetentionDays, log)
	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", scheduler.RetentionSpec)

		return err
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", scheduler.RetentionSpec,
		"retentionDays", cfg.ChatLogRetentionDays)

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	var botInst *bot.Bot
	if botEnabled {
		botInst, err = bot.New(cfg.TelegramToken, db, a.assistant, a.summarizer, a.fetcher,
			nil, cfg.AllowedUsers, log)
		if err != nil {
			log.ErrorContext(ctx, "Failed to initialize bot",
				"error", err,
				"allowedUsersCount", len(cfg.AllowedUsers))

			return err
		}
		log.InfoContext(ctx, "Bot is initialized",
			"allowedUsersCount", len(cfg.AllowedUsers))

		wg.Go(func() {
			botInst.Start(ctx)
		})
		log.InfoContext(ctx, "Bot is started",
			"updateTimeoutSeconds", bot.BotUpdateTimeout)
	}

	if httpEnabled {
		srv := server.New(server.Options{
			Addr:        cfg.HTTPAddr,
			JWTSecret:   cfg.JWTSecret,
			CORSOrigins: cfg.CORSOrigins,
		}, db, a.assistant, a.summarizer, a.fetcher, nil, log)

		wg.Go(func() {
			if err := srv.Run(ctx); err != nil {
				log.ErrorContext(ctx, "HTTP server failed",
					"error", err,
					"addr", cfg.HTTPAddr)

				errCh <- err
			}
		})
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		log.InfoContext(ctx, "Shutdown signal is received",
			"signal", sig.String())
	case err = <-errCh:
	}
	cancel()

	log.InfoContext(ctx, "Exiting...",
		"uptimeSeconds", time.Since(start).Seconds())

	wg.Wait()

	if botInst != nil {
		botInst.Stop()
		log.InfoContext(ctx, "Bot is stopped",
			"uptimeSeconds", time.Since(start).Seconds())
	}

	return err
}
