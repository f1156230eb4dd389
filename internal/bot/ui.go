package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram clears a chat action after five seconds.
const chatActionRefresh = 4 * time.Second

// withTyping shows the typing indicator in chatID until fn returns. The
// indicator goroutine has exited by the time withTyping returns, so no action
// is sent after the reply.
func (b *Bot) withTyping(ctx context.Context, chatID int64, fn func() error) error {
	actionCtx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)

		ticker := time.NewTicker(chatActionRefresh)
		defer ticker.Stop()

		for {
			b.sendChatAction(actionCtx, chatID, tgbotapi.ChatTyping)

			select {
			case <-actionCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	err := fn()

	cancel()
	<-stopped

	return err
}

func (b *Bot) sendChatAction(ctx context.Context, chatID int64, action string) {
	if ctx.Err() != nil {
		return
	}

	if _, err := b.rateLimiter.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
		b.log.WarnContext(ctx, "Failed to send chat action",
			"error", err,
			"chatID", chatID,
			"action", action)
	}
}
