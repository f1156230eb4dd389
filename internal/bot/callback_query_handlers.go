package bot

import (
	"context"
	"eduassist/internal/domain"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// menuAction renders one screen of the inline menu.
type menuAction func(ctx context.Context, b *Bot, chatID int64, userID int64) error

var menuActions = map[string]menuAction{
	"menu": func(_ context.Context, b *Bot, chatID int64, _ int64) error {
		return b.handleMenuCommand(chatID)
	},
	"menu_role": func(ctx context.Context, b *Bot, chatID int64, userID int64) error {
		return b.handleRoleCommand(ctx, chatID, userID)
	},
	"menu_history": func(ctx context.Context, b *Bot, chatID int64, userID int64) error {
		return b.handleHistoryCommand(ctx, chatID, userID)
	},
	"menu_help": func(_ context.Context, b *Bot, chatID int64, _ int64) error {
		return b.handleStartCommand(chatID)
	},
}

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	chatID := callback.Message.Chat.ID
	data := strings.TrimSpace(callback.Data)

	return b.withTyping(ctx, chatID, func() error {
		if action, ok := menuActions[data]; ok {
			return b.withEmptyCallbackAnswer(callback, func() error {
				return action(ctx, b, chatID, callback.From.ID)
			})
		}

		if roleStr, ok := strings.CutPrefix(data, roleKeyboardCallbackPrefix); ok {
			return b.handleRoleQuery(ctx, roleStr, callback)
		}

		b.log.WarnContext(ctx, "Unknown callback data",
			"data", data,
			"chatID", chatID)

		return b.withEmptyCallbackAnswer(callback, func() error { return nil })
	})
}

func (b *Bot) handleRoleQuery(
	ctx context.Context,
	roleStr string,
	callback *tgbotapi.CallbackQuery,
) error {
	role, ok := domain.ParseRole(roleStr)
	if !ok {
		return b.errorCallbackAnswer(callback, fmt.Errorf("parse role: unknown role %q", roleStr))
	}

	prefs, err := b.store.GetUserPreferencesWithDefault(ctx, callback.From.ID)
	if err != nil {
		return b.errorCallbackAnswer(callback, fmt.Errorf("get user preferences with default: %w", err))
	}

	prefs.DefaultRole = role

	if err = b.store.UpsertUserPreferences(ctx, prefs); err != nil {
		return b.errorCallbackAnswer(callback, fmt.Errorf("upsert user preferences: %w", err))
	}

	if _, err = b.rateLimiter.Request(tgbotapi.NewCallback(callback.ID, "✅ Role is updated.")); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	return b.handleRoleCommand(ctx, callback.Message.Chat.ID, callback.From.ID)
}

func (b *Bot) withEmptyCallbackAnswer(
	callback *tgbotapi.CallbackQuery,
	fn func() error,
) error {
	var errs []error

	if _, err := b.rateLimiter.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		errs = append(errs, b.errorCallbackAnswer(callback, fmt.Errorf("send request: %w", err)))
	}

	err := fn()
	if err != nil {
		errs = append(errs, fmt.Errorf("call fn: %w", err))
	}

	return errors.Join(errs...)
}

func (b *Bot) errorCallbackAnswer(
	callback *tgbotapi.CallbackQuery,
	err error,
) error {
	if _, sendErr := b.rateLimiter.Request(tgbotapi.NewCallback(callback.ID, "❌ Failed.")); sendErr != nil {
		return errors.Join(err, fmt.Errorf("send request: %w", sendErr))
	}
	return err
}
