// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	// RetentionSpec prunes chat logs daily at 03:00 UTC.
	RetentionSpec        = "0 3 * * *"
	pruneChatLogsTimeout = 5 * time.Minute
)

// ChatLogPruner deletes chat log entries created before a cutoff.
type ChatLogPruner interface {
	DeleteChatLogsBefore(ctx context.Context, t time.Time) (int64, error)
}

type Scheduler struct {
	ctx       context.Context
	cron      *cron.Cron
	pruner    ChatLogPruner
	retention time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// New returns a scheduler that keeps retentionDays days of chat logs. Zero
// retentionDays disables pruning.
func New(ctx context.Context, pruner ChatLogPruner, retentionDays int, log *slog.Logger) *Scheduler {
	logger := cronLogger{ctx: ctx, log: log}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	return &Scheduler{
		ctx:       ctx,
		cron:      c,
		pruner:    pruner,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if s.retention <= 0 {
		s.log.InfoContext(s.ctx, "Chat log retention is disabled")
	} else if _, err := s.cron.AddFunc(RetentionSpec, s.pruneChatLogs); err != nil {
		return fmt.Errorf("add prune job: %w", err)
	}

	s.cron.Start()

	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) pruneChatLogs() {
	if err := s.ctx.Err(); err != nil {
		s.log.InfoContext(s.ctx, "Scheduler context is done",
			"error", err)
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, pruneChatLogsTimeout)
	defer cancel()

	cutoff := s.now().UTC().Add(-s.retention)

	deleted, err := s.pruner.DeleteChatLogsBefore(ctx, cutoff)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to prune chat logs",
			"error", err,
			"cutoff", cutoff)

		return
	}

	s.log.InfoContext(ctx, "Chat logs are pruned",
		"cutoff", cutoff,
		"deleted", deleted)
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	ctx context.Context
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.DebugContext(l.ctx, "cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.ErrorContext(l.ctx, "cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
