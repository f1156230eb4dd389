package bot

import (
	"eduassist/internal/domain"
	"eduassist/internal/markdown"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	roleKeyboardCallbackPrefix = "role_"
	telegramMessageMaxLength   = 4096
)

//nolint:gochecknoglobals // Immutable display table.
var roleTitles = map[domain.Role]string{
	domain.RoleStudent:  "🎓 Student",
	domain.RoleLecturer: "🧑‍🏫 Lecturer",
	domain.RoleAdmin:    "🛠 Admin",
}

func (b *Bot) sendMessageWithKeyboard(
	chatID int64,
	text string,
	keyboard [][]tgbotapi.InlineKeyboardButton,
) error {
	normalizedText := strings.ToValidUTF8(text, "?")
	if normalizedText != text {
		b.log.Warn("Message text had invalid UTF-8 and was normalized",
			"chatID", chatID,
			"originalLen", len(text),
			"normalizedLen", len(normalizedText))
	}

	message := tgbotapi.NewMessage(chatID, normalizedText)

	// See https://core.telegram.org/bots/api#markdownv2-style.
	message.ParseMode = tgbotapi.ModeMarkdownV2

	message.DisableWebPagePreview = true
	if len(keyboard) > 0 {
		message.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	}

	_, err := b.rateLimiter.Send(message)
	return err
}

// sendPlainText escapes text and sends it in as many messages as needed. Only
// the last message carries the keyboard.
func (b *Bot) sendPlainText(
	chatID int64,
	text string,
	keyboard [][]tgbotapi.InlineKeyboardButton,
) error {
	parts := markdown.SplitEscapedV2(text, telegramMessageMaxLength)
	if len(parts) == 0 {
		parts = []string{"…"}
	}

	var errs []error
	for i, part := range parts {
		var kb [][]tgbotapi.InlineKeyboardButton
		if i == len(parts)-1 {
			kb = keyboard
		}

		if err := b.sendMessageWithKeyboard(chatID, part, kb); err != nil {
			errs = append(errs, fmt.Errorf("send message part %d: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

func getReturnKeyboard() [][]tgbotapi.InlineKeyboardButton {
	return [][]tgbotapi.InlineKeyboardButton{
		{tgbotapi.NewInlineKeyboardButtonData("⬅️ Return to menu", "menu")},
	}
}

func getMenuKeyboard() [][]tgbotapi.InlineKeyboardButton {
	return [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("🎭 Role", "menu_role"),
			tgbotapi.NewInlineKeyboardButtonData("🕘 History", "menu_history"),
		},
		{
			tgbotapi.NewInlineKeyboardButtonData("❔ Help", "menu_help"),
		},
	}
}

func getRoleKeyboard() [][]tgbotapi.InlineKeyboardButton {
	var row []tgbotapi.InlineKeyboardButton

	for _, role := range domain.Roles() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			roleTitles[role],
			roleKeyboardCallbackPrefix+string(role),
		))
	}

	return [][]tgbotapi.InlineKeyboardButton{
		row,
		{tgbotapi.NewInlineKeyboardButtonData("⬅️ Return to menu", "menu")},
	}
}
