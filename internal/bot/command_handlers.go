package bot

import (
	"context"
	"eduassist/internal/database"
	"eduassist/internal/domain"
	"eduassist/internal/markdown"
	"eduassist/internal/webpage"
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/xurls/v2"
)

const welcomeText = `🤖 *Welcome to the study assistant\!*

I can help you:

– Ask any course question by just sending it as a message
– Summarize a PDF by sending it as a document \(up to 50 pages\)
– Read a page from an allowed site with /fetch \<url\>
– Choose who you are \(student, lecturer, admin\) with /role
– See your recent questions with /history`

const roleText = `*🎭 Role*

Current role is *%s*\.

Answers are tailored to the role\. You can choose a different one below:`

const (
	fetchUsageText       = "✖️ Send a page address after the command, for example `/fetch https://en.wikipedia.org/wiki/Photosynthesis`\\."
	fetchNotAllowedText  = "⛔️ This site is not in the list of allowed domains\\."
	fetchAbsentText      = "✖️ The page could not be fetched or has no readable content\\."
	searchUsageText      = "✖️ Send a query after the command, for example `/search photosynthesis`\\."
	historyEmptyText     = "✖️ History is empty\\."
	failedText           = "❌ Failed\\."
	historyQueryMaxLen   = 200
	historyAnswerMaxLen  = 400
	historyHeader        = "🕘 *Recent questions*\n\n"
	historyHeaderCont    = "🕘 *Recent questions \\(continue\\)*\n\n"
	fetchedTextMaxLength = telegramMessageMaxLength - 1
)

func (b *Bot) handleStartCommand(chatID int64) error {
	return b.sendMessageWithKeyboard(chatID, welcomeText, b.menuKeyboard)
}

func (b *Bot) handleMenuCommand(chatID int64) error {
	return b.sendMessageWithKeyboard(chatID, "❔ *Choose an option:*", b.menuKeyboard)
}

func (b *Bot) handleRoleCommand(ctx context.Context, chatID int64, userID int64) error {
	prefs, err := b.store.GetUserPreferencesWithDefault(ctx, userID)
	if err != nil {
		errs := []error{fmt.Errorf("get user preferences with default: %w", err)}

		sendErr := b.sendMessageWithKeyboard(chatID, failedText, b.returnKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	if err = b.sendMessageWithKeyboard(
		chatID,
		fmt.Sprintf(roleText, markdown.EscapeV2(roleTitles[prefs.DefaultRole])),
		b.roleKeyboard,
	); err != nil {
		return fmt.Errorf("send message with keyboard: %w", err)
	}

	return nil
}

func (b *Bot) handleHistoryCommand(ctx context.Context, chatID int64, userID int64) error {
	logs, err := b.store.ListChatLogs(ctx, userID, database.DefaultHistoryLimit)

	if len(logs) == 0 {
		var errs []error
		if err != nil {
			errs = append(errs, fmt.Errorf("list chat logs: %w", err))
		}

		sendErr := b.sendMessageWithKeyboard(chatID, historyEmptyText, b.returnKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	var errs []error
	if err != nil {
		errs = append(errs, fmt.Errorf("list chat logs: %w", err))
	}

	for _, message := range formatHistoryAsMessages(logs) {
		if err = b.sendMessageWithKeyboard(chatID, message, b.returnKeyboard); err != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (b *Bot) handleFetchCommand(ctx context.Context, args string, chatID int64) error {
	rawURL := xurls.Strict().FindString(args)
	if rawURL == "" {
		return b.sendMessageWithKeyboard(chatID, fetchUsageText, b.returnKeyboard)
	}

	page, err := b.fetcher.Fetch(ctx, rawURL)
	if errors.Is(err, webpage.ErrDomainNotAllowed) {
		return b.sendMessageWithKeyboard(chatID, fetchNotAllowedText, b.returnKeyboard)
	}
	if err != nil {
		errs := []error{fmt.Errorf("fetch page: %w", err)}

		sendErr := b.sendMessageWithKeyboard(chatID, failedText, b.returnKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}
	if page == nil || strings.TrimSpace(page.Text) == "" {
		return b.sendMessageWithKeyboard(chatID, fetchAbsentText, b.returnKeyboard)
	}

	parts := markdown.SplitEscapedV2(page.Text, fetchedTextMaxLength)
	text := parts[0]
	if len(parts) > 1 {
		text += "…"
	}

	return b.sendMessageWithKeyboard(chatID, text, b.returnKeyboard)
}

func (b *Bot) handleSearchCommand(ctx context.Context, query string, chatID int64) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return b.sendMessageWithKeyboard(chatID, searchUsageText, b.returnKeyboard)
	}

	result := b.fetcher.SearchAndSummarize(ctx, query)

	text := "ℹ️ " + markdown.EscapeV2(result.Message)
	if !result.Implemented {
		text = "🚧 " + markdown.EscapeV2(result.Message)
	}

	return b.sendMessageWithKeyboard(chatID, text, b.returnKeyboard)
}

// formatHistoryAsMessages packs entries into as few messages as fit the
// Telegram length limit, oldest entries last.
func formatHistoryAsMessages(logs []domain.ChatLog) []string {
	var messages []string
	var currentMessage strings.Builder

	currentMessage.WriteString(historyHeader)
	headerLength := currentMessage.Len()

	for i, l := range logs {
		entry := fmt.Sprintf("*%d\\.* _%s, %s UTC_\n❓ %s\n💬 %s\n\n",
			i+1,
			markdown.EscapeV2(string(l.Role)),
			markdown.EscapeV2(l.CreatedAt.UTC().Format("2006-01-02 15:04")),
			markdown.EscapeV2(markdown.Truncate(strings.TrimSpace(l.Query), historyQueryMaxLen)),
			markdown.EscapeV2(markdown.Truncate(strings.TrimSpace(l.Response), historyAnswerMaxLen)),
		)

		if currentMessage.Len()+len(entry) > telegramMessageMaxLength {
			messages = append(messages, currentMessage.String())
			currentMessage.Reset()
			currentMessage.WriteString(historyHeaderCont)
		}

		currentMessage.WriteString(entry)
	}

	if currentMessage.Len() > headerLength {
		messages = append(messages, currentMessage.String())
	}

	return messages
}
