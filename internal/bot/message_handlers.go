package bot

import (
	"context"
	"eduassist/internal/document"
	"eduassist/internal/domain"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	// Telegram bots may download files up to 20 MiB.
	maxDocumentBytes = 20 << 20

	pdfMimeType = "application/pdf"

	notPDFText          = "✖️ Only PDF documents can be summarized\\."
	documentTooBigText  = "✖️ The document is larger than 20 MB\\."
	emptyPDFText        = "✖️ No text content found in the PDF\\."
	unreadablePDFText   = "❌ Failed to extract text from the PDF\\."
	summaryFailedText   = "❌ Failed to generate the PDF summary\\."
	summaryHeader       = "📄 Summary:\n\n"
	unknownCommandText  = "✖️ Unknown command\\. Use /menu to see the options\\."
	emptyQuestionText   = "✖️ Send a question as text or a PDF document\\."
	downloadFailureText = "❌ Failed to download the document\\."
)

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	return b.withTyping(ctx, message.Chat.ID, func() error {
		if message.Document != nil {
			return b.handleDocument(ctx, message.Document, message.Chat.ID, message.From.ID)
		}

		if message.IsCommand() {
			args := message.CommandArguments()

			switch message.Command() {
			case "start":
				return b.handleStartCommand(message.Chat.ID)
			case "menu":
				return b.handleMenuCommand(message.Chat.ID)
			case "role":
				return b.handleRoleCommand(ctx, message.Chat.ID, message.From.ID)
			case "history":
				return b.handleHistoryCommand(ctx, message.Chat.ID, message.From.ID)
			case "fetch":
				return b.handleFetchCommand(ctx, args, message.Chat.ID)
			case "search":
				return b.handleSearchCommand(ctx, args, message.Chat.ID)
			default:
				return b.sendMessageWithKeyboard(message.Chat.ID, unknownCommandText, b.menuKeyboard)
			}
		}

		return b.handleQuestion(ctx, message.Text, message.Chat.ID, message.From.ID)
	})
}

func (b *Bot) handleQuestion(ctx context.Context, text string, chatID int64, userID int64) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return b.sendMessageWithKeyboard(chatID, emptyQuestionText, b.returnKeyboard)
	}

	var errs []error

	role := domain.DefaultRole
	prefs, err := b.store.GetUserPreferencesWithDefault(ctx, userID)
	if err != nil {
		errs = append(errs, fmt.Errorf("get user preferences with default: %w", err))
	} else {
		role = prefs.DefaultRole
	}

	answer := b.assistant.Answer(ctx, text, string(role), domain.QueryContext{})

	if err = b.store.AddChatLog(ctx, &domain.ChatLog{
		UserID:   userID,
		Role:     role,
		Query:    text,
		Response: answer,
	}); err != nil {
		errs = append(errs, fmt.Errorf("add chat log: %w", err))
	}

	if err = b.sendPlainText(chatID, answer, b.returnKeyboard); err != nil {
		errs = append(errs, fmt.Errorf("send plain text: %w", err))
	}

	return errors.Join(errs...)
}

func (b *Bot) handleDocument(
	ctx context.Context,
	doc *tgbotapi.Document,
	chatID int64,
	userID int64,
) error {
	if !isPDF(doc) {
		return b.sendMessageWithKeyboard(chatID, notPDFText, b.returnKeyboard)
	}

	if doc.FileSize > maxDocumentBytes {
		return b.sendMessageWithKeyboard(chatID, documentTooBigText, b.returnKeyboard)
	}

	data, err := b.downloadFile(ctx, doc.FileID)
	if err != nil {
		errs := []error{fmt.Errorf("download file: %w", err)}

		sendErr := b.sendMessageWithKeyboard(chatID, downloadFailureText, b.returnKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	summary, err := b.summarizer.SummarizePDF(ctx, data)
	if err != nil {
		b.log.WarnContext(ctx, "Failed to summarize PDF",
			"error", err,
			"userID", userID,
			"fileName", doc.FileName,
			"size", len(data))

		return b.sendMessageWithKeyboard(chatID, summaryErrorText(err), b.returnKeyboard)
	}

	return b.sendPlainText(chatID, summaryHeader+summary, b.returnKeyboard)
}

func summaryErrorText(err error) string {
	switch {
	case errors.Is(err, document.ErrEmptyContent):
		return emptyPDFText
	case errors.Is(err, document.ErrExtraction):
		return unreadablePDFText
	default:
		return summaryFailedText
	}
}

func isPDF(doc *tgbotapi.Document) bool {
	if strings.EqualFold(doc.MimeType, pdfMimeType) {
		return true
	}

	return strings.HasSuffix(strings.ToLower(doc.FileName), ".pdf")
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file direct URL: %w", withoutURL(err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", withoutURL(err))
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", withoutURL(err))
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			b.log.ErrorContext(ctx, "Failed to close response body",
				"error", closeErr,
				"fileID", fileID)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxDocumentBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", maxDocumentBytes)
	}

	return data, nil
}

// withoutURL drops the request URL from a *url.Error. Telegram file and API
// URLs embed the bot token.
func withoutURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request: %w", strings.ToLower(urlErr.Op), urlErr.Err)
	}

	return err
}
