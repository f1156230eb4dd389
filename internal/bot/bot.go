package bot

import (
	"context"
	"eduassist/internal/domain"
	"eduassist/internal/ratelimiter"
	"eduassist/internal/webpage"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	maxBackoffSeconds         = 60
	initialBackoffSeconds     = 3
	backoffGrowthFactor       = 2
	resetOffsetBackoffSeconds = 30
	updateProcessingTimeout   = 5 * time.Minute

	BotUpdateTimeout = 60
)

// Answerer answers one query in the voice of role.
type Answerer interface {
	Answer(ctx context.Context, query string, role string, qctx domain.QueryContext) string
}

type PDFSummarizer interface {
	SummarizePDF(ctx context.Context, data []byte) (string, error)
}

type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*webpage.Page, error)
	SearchAndSummarize(ctx context.Context, query string) webpage.SearchResult
}

type Store interface {
	AddChatLog(ctx context.Context, entry *domain.ChatLog) error
	ListChatLogs(ctx context.Context, userID int64, limit int) ([]domain.ChatLog, error)
	GetUserPreferencesWithDefault(ctx context.Context, userID int64) (*domain.UserPreferences, error)
	UpsertUserPreferences(ctx context.Context, prefs *domain.UserPreferences) error
}

type telegramAPI interface {
	ratelimiter.Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetFileDirectURL(fileID string) (string, error)
}

type Bot struct {
	api            telegramAPI
	rateLimiter    *ratelimiter.RateLimiter
	store          Store
	assistant      Answerer
	summarizer     PDFSummarizer
	fetcher        PageFetcher
	httpClient     *http.Client
	allowedUsers   []int64
	returnKeyboard [][]tgbotapi.InlineKeyboardButton
	menuKeyboard   [][]tgbotapi.InlineKeyboardButton
	roleKeyboard   [][]tgbotapi.InlineKeyboardButton
	log            *slog.Logger
}

func New(
	token string,
	store Store,
	assistant Answerer,
	summarizer PDFSummarizer,
	fetcher PageFetcher,
	httpClient *http.Client,
	allowedUsers []int64,
	log *slog.Logger,
) (*Bot, error) {
	token = strings.TrimSpace(token)

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return newBot(api, store, assistant, summarizer, fetcher, httpClient, allowedUsers, log), nil
}

func newBot(
	api telegramAPI,
	store Store,
	assistant Answerer,
	summarizer PDFSummarizer,
	fetcher PageFetcher,
	httpClient *http.Client,
	allowedUsers []int64,
	log *slog.Logger,
) *Bot {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Bot{
		api:            api,
		rateLimiter:    ratelimiter.New(api, log),
		store:          store,
		assistant:      assistant,
		summarizer:     summarizer,
		fetcher:        fetcher,
		httpClient:     httpClient,
		allowedUsers:   allowedUsers,
		returnKeyboard: getReturnKeyboard(),
		menuKeyboard:   getMenuKeyboard(),
		roleKeyboard:   getRoleKeyboard(),
		log:            log,
	}
}

func (b *Bot) Start(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = BotUpdateTimeout

	backoffSeconds := initialBackoffSeconds

	for {
		select {
		case <-ctx.Done():
			b.log.InfoContext(ctx, "Bot context is done",
				"error", ctx.Err())
			return
		default:
		}

		updates := b.api.GetUpdatesChan(updateConfig)
		updatesClosed := false

		for !updatesClosed {
			select {
			case <-ctx.Done():
				b.log.InfoContext(ctx, "Bot context is done",
					"error", ctx.Err())
				return

			case update, ok := <-updates:
				if !ok {
					updatesClosed = true
					continue
				}
				updateConfig.Offset = update.UpdateID + 1

				b.handleUpdate(ctx, &update)
			}
		}

		if ctx.Err() != nil {
			return
		}

		b.log.WarnContext(ctx, "Update channel is closed, reconnecting...",
			"offset", updateConfig.Offset,
			"backoffSeconds", backoffSeconds)

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(backoffSeconds) * time.Second):
		}

		backoffSeconds = updateBackoffSeconds(backoffSeconds)

		if backoffSeconds >= resetOffsetBackoffSeconds {
			updateConfig.Offset = 0
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	updateCtx, cancel := context.WithTimeout(ctx, updateProcessingTimeout)
	defer cancel()

	switch {
	case update.Message != nil && update.Message.From != nil:
		chatID, chatType := chatContext(update.Message.Chat)

		userID := update.Message.From.ID
		if !b.userAllowed(userID) {
			b.log.DebugContext(updateCtx, "User is not allowed",
				"userID", userID,
				"chatID", chatID,
				"username", update.Message.From.UserName,
				"chatType", chatType)

			return
		}

		if err := b.handleMessage(updateCtx, update.Message); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle message",
				"error", err,
				"chatID", chatID,
				"userID", userID,
				"chatType", chatType,
				"messageID", update.Message.MessageID)
		}

	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		chatID := callbackChatID(update.CallbackQuery)

		if !b.userAllowed(update.CallbackQuery.From.ID) {
			b.log.DebugContext(updateCtx, "User is not allowed",
				"userID", update.CallbackQuery.From.ID,
				"chatID", chatID,
				"username", update.CallbackQuery.From.UserName,
				"data", update.CallbackQuery.Data)

			return
		}

		if err := b.handleCallbackQuery(updateCtx, update.CallbackQuery); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle callback query",
				"error", err,
				"chatID", chatID,
				"userID", update.CallbackQuery.From.ID,
				"data", update.CallbackQuery.Data,
				"messageID", callbackMessageID(update.CallbackQuery))
		}
	}
}

// userAllowed treats an empty allow-list as open access.
func (b *Bot) userAllowed(userID int64) bool {
	return len(b.allowedUsers) == 0 || slices.Contains(b.allowedUsers, userID)
}

func chatContext(chat *tgbotapi.Chat) (int64, string) {
	if chat == nil {
		return 0, ""
	}

	return chat.ID, chat.Type
}

func callbackChatID(cb *tgbotapi.CallbackQuery) int64 {
	if cb != nil && cb.Message != nil && cb.Message.Chat != nil {
		return cb.Message.Chat.ID
	}

	return 0
}

func callbackMessageID(cb *tgbotapi.CallbackQuery) int {
	if cb != nil && cb.Message != nil {
		return cb.Message.MessageID
	}

	return 0
}

func (b *Bot) Stop() {
	if b.rateLimiter != nil {
		b.rateLimiter.Stop()
	}
}

func updateBackoffSeconds(backoffSeconds int) int {
	if backoffSeconds < maxBackoffSeconds {
		backoffSeconds *= backoffGrowthFactor
		if backoffSeconds > maxBackoffSeconds {
			backoffSeconds = maxBackoffSeconds
		}
	}
	return backoffSeconds
}
