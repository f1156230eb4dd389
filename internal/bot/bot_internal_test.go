package bot

import (
	"context"
	"eduassist/internal/document"
	"eduassist/internal/domain"
	"eduassist/internal/webpage"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type stubAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	fileURL string
	fileErr error
}

func (a *stubAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if m, ok := c.(tgbotapi.MessageConfig); ok {
		a.sent = append(a.sent, m)
	}

	return tgbotapi.Message{}, nil
}

func (a *stubAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (a *stubAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (a *stubAPI) GetFileDirectURL(string) (string, error) {
	if a.fileErr != nil {
		return "", a.fileErr
	}
	if a.fileURL == "" {
		return "", errors.New("no file")
	}

	return a.fileURL, nil
}

func (a *stubAPI) texts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	texts := make([]string, 0, len(a.sent))
	for _, m := range a.sent {
		texts = append(texts, m.Text)
	}

	return texts
}

type stubStore struct {
	mu    sync.Mutex
	logs  []domain.ChatLog
	prefs map[int64]domain.UserPreferences
}

func (s *stubStore) AddChatLog(_ context.Context, entry *domain.ChatLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs = append(s.logs, *entry)

	return nil
}

func (s *stubStore) ListChatLogs(_ context.Context, userID int64, limit int) ([]domain.ChatLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.ChatLog
	for _, l := range s.logs {
		if l.UserID == userID && len(out) < limit {
			out = append(out, l)
		}
	}

	return out, nil
}

func (s *stubStore) GetUserPreferencesWithDefault(_ context.Context, userID int64) (*domain.UserPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.prefs[userID]; ok {
		return &p, nil
	}

	p := domain.DefaultUserPreferences(userID)

	return &p, nil
}

func (s *stubStore) UpsertUserPreferences(_ context.Context, prefs *domain.UserPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.prefs == nil {
		s.prefs = make(map[int64]domain.UserPreferences)
	}
	s.prefs[prefs.UserID] = *prefs

	return nil
}

type stubAnswerer struct {
	roles []string
}

func (a *stubAnswerer) Answer(_ context.Context, query string, role string, _ domain.QueryContext) string {
	a.roles = append(a.roles, role)

	return "answer to " + query
}

type stubSummarizer struct {
	data []byte
	err  error
}

func (s *stubSummarizer) SummarizePDF(_ context.Context, data []byte) (string, error) {
	s.data = data

	return "short summary", s.err
}

type stubFetcher struct {
	page *webpage.Page
	err  error
	urls []string
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) (*webpage.Page, error) {
	f.urls = append(f.urls, rawURL)

	return f.page, f.err
}

func (f *stubFetcher) SearchAndSummarize(context.Context, string) webpage.SearchResult {
	return webpage.SearchResult{
		Status:  webpage.SearchStatusError,
		Message: "Web search functionality requires search API integration",
	}
}

type fixture struct {
	bot        *Bot
	api        *stubAPI
	store      *stubStore
	answerer   *stubAnswerer
	summarizer *stubSummarizer
	fetcher    *stubFetcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		api:        &stubAPI{},
		store:      &stubStore{},
		answerer:   &stubAnswerer{},
		summarizer: &stubSummarizer{},
		fetcher:    &stubFetcher{},
	}
	f.bot = newBot(f.api, f.store, f.answerer, f.summarizer, f.fetcher, nil, nil, slog.Default())
	t.Cleanup(f.bot.Stop)

	return f
}

func TestUserAllowed(t *testing.T) {
	open := &Bot{}
	if !open.userAllowed(1) {
		t.Fatalf("expected empty allow-list to admit everyone")
	}

	restricted := &Bot{allowedUsers: []int64{7}}
	if !restricted.userAllowed(7) || restricted.userAllowed(8) {
		t.Fatalf("unexpected allow-list decision")
	}
}

func TestHandleQuestionUsesPreferredRoleAndLogs(t *testing.T) {
	f := newFixture(t)
	f.store.prefs = map[int64]domain.UserPreferences{
		5: {UserID: 5, DefaultRole: domain.RoleLecturer, Theme: "light"},
	}

	if err := f.bot.handleQuestion(context.Background(), " What is 2+2? ", 100, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.answerer.roles) != 1 || f.answerer.roles[0] != "lecturer" {
		t.Fatalf("unexpected roles: %v", f.answerer.roles)
	}

	if len(f.store.logs) != 1 {
		t.Fatalf("expected one chat log, got %d", len(f.store.logs))
	}

	entry := f.store.logs[0]
	if entry.Query != "What is 2+2?" || entry.Response != "answer to What is 2+2?" || entry.Role != domain.RoleLecturer {
		t.Fatalf("unexpected chat log: %+v", entry)
	}

	texts := f.api.texts()
	if len(texts) != 1 || texts[0] != "answer to What is 2\\+2?" {
		t.Fatalf("unexpected sent texts: %q", texts)
	}
}

func TestHandleDocumentRejectsNonPDF(t *testing.T) {
	f := newFixture(t)

	doc := &tgbotapi.Document{FileID: "x", FileName: "notes.docx", MimeType: "application/msword"}
	if err := f.bot.handleDocument(context.Background(), doc, 100, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if texts := f.api.texts(); len(texts) != 1 || texts[0] != notPDFText {
		t.Fatalf("unexpected sent texts: %q", texts)
	}

	if f.summarizer.data != nil {
		t.Fatalf("summarizer must not be called")
	}
}

func TestHandleDocumentDownloadsAndSummarizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4 data"))
	}))
	defer server.Close()

	f := newFixture(t)
	f.api.fileURL = server.URL + "/file/doc.pdf"

	doc := &tgbotapi.Document{FileID: "x", FileName: "Lecture.PDF", FileSize: 13}
	if err := f.bot.handleDocument(context.Background(), doc, 100, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(f.summarizer.data) != "%PDF-1.4 data" {
		t.Fatalf("unexpected downloaded data: %q", f.summarizer.data)
	}

	if texts := f.api.texts(); len(texts) != 1 || !strings.Contains(texts[0], "short summary") {
		t.Fatalf("unexpected sent texts: %q", texts)
	}
}

func TestHandleDocumentRejectsOversizedFile(t *testing.T) {
	f := newFixture(t)

	doc := &tgbotapi.Document{FileID: "x", MimeType: pdfMimeType, FileSize: maxDocumentBytes + 1}
	if err := f.bot.handleDocument(context.Background(), doc, 100, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if texts := f.api.texts(); len(texts) != 1 || texts[0] != documentTooBigText {
		t.Fatalf("unexpected sent texts: %q", texts)
	}
}

func TestSummaryErrorText(t *testing.T) {
	cases := map[error]string{
		document.ErrEmptyContent:                            emptyPDFText,
		document.ErrExtraction:                              unreadablePDFText,
		document.ErrSummarization:                           summaryFailedText,
		fmt.Errorf("wrapped: %w", document.ErrEmptyContent): emptyPDFText,
	}

	for err, want := range cases {
		if got := summaryErrorText(err); got != want {
			t.Fatalf("error %v: got %q, want %q", err, got, want)
		}
	}
}

func TestHandleFetchCommand(t *testing.T) {
	f := newFixture(t)
	f.fetcher.err = webpage.ErrDomainNotAllowed

	if err := f.bot.handleFetchCommand(context.Background(), "see https://evil.com/x please", 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.fetcher.urls) != 1 || f.fetcher.urls[0] != "https://evil.com/x" {
		t.Fatalf("unexpected fetched urls: %v", f.fetcher.urls)
	}

	if texts := f.api.texts(); len(texts) != 1 || texts[0] != fetchNotAllowedText {
		t.Fatalf("unexpected sent texts: %q", texts)
	}
}

func TestHandleFetchCommandWithoutURL(t *testing.T) {
	f := newFixture(t)

	if err := f.bot.handleFetchCommand(context.Background(), "", 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.fetcher.urls) != 0 {
		t.Fatalf("fetcher must not be called")
	}
}

func TestHandleRoleQueryStoresRole(t *testing.T) {
	f := newFixture(t)

	callback := &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: 9},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}},
		Data:    "role_admin",
	}

	if err := f.bot.handleRoleQuery(context.Background(), "admin", callback); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.store.prefs[9].DefaultRole; got != domain.RoleAdmin {
		t.Fatalf("unexpected stored role: %q", got)
	}

	if err := f.bot.handleRoleQuery(context.Background(), "dean", callback); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestFormatHistoryAsMessagesRespectsLimit(t *testing.T) {
	logs := make([]domain.ChatLog, 30)
	for i := range logs {
		logs[i] = domain.ChatLog{
			Role:      domain.RoleStudent,
			Query:     strings.Repeat("q.", 150),
			Response:  strings.Repeat("a!", 300),
			CreatedAt: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		}
	}

	messages := formatHistoryAsMessages(logs)
	if len(messages) < 2 {
		t.Fatalf("expected history to span several messages, got %d", len(messages))
	}

	for i, m := range messages {
		if len(m) > telegramMessageMaxLength {
			t.Fatalf("message %d exceeds limit: %d", i, len(m))
		}
	}

	if !strings.HasPrefix(messages[1], historyHeaderCont) {
		t.Fatalf("expected continuation header")
	}
}

func TestUpdateBackoffSeconds(t *testing.T) {
	if got := updateBackoffSeconds(initialBackoffSeconds); got != initialBackoffSeconds*backoffGrowthFactor {
		t.Fatalf("unexpected backoff: %d", got)
	}

	if got := updateBackoffSeconds(maxBackoffSeconds - 1); got != maxBackoffSeconds {
		t.Fatalf("expected backoff to be capped, got %d", got)
	}
}

func TestHandleCallbackQueryDispatchesMenu(t *testing.T) {
	f := newFixture(t)

	callback := &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: 9},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}},
		Data:    "menu_help",
	}

	if err := f.bot.handleCallbackQuery(context.Background(), callback); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if texts := f.api.texts(); len(texts) != 1 || texts[0] != welcomeText {
		t.Fatalf("unexpected sent texts: %q", texts)
	}

	callback.Data = "something_else"
	if err := f.bot.handleCallbackQuery(context.Background(), callback); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if texts := f.api.texts(); len(texts) != 1 {
		t.Fatalf("unknown callback data must not send messages: %q", texts)
	}
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestDownloadFileErrorsDoNotContainToken(t *testing.T) {
	const token = "123456:SECRETTOKEN"
	fileURL := "https://api.telegram.org/file/bot" + token + "/documents/file_1.pdf"

	f := newFixture(t)
	f.bot.httpClient = &http.Client{Transport: failingTransport{}}
	f.api.fileURL = fileURL

	_, err := f.bot.downloadFile(context.Background(), "file_1")
	if err == nil {
		t.Fatalf("expected download to fail")
	}
	if strings.Contains(err.Error(), token) {
		t.Fatalf("error leaks the bot token: %v", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("error lost its cause: %v", err)
	}

	f.api.fileErr = &url.Error{
		Op:  "Post",
		URL: "https://api.telegram.org/bot" + token + "/getFile",
		Err: errors.New("timeout"),
	}

	_, err = f.bot.downloadFile(context.Background(), "file_1")
	if err == nil || strings.Contains(err.Error(), token) {
		t.Fatalf("expected error without the bot token, got %v", err)
	}
}
