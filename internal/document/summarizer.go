package document

import (
	"context"
	"eduassist/internal/assistant"
	"eduassist/internal/domain"
	"log/slog"
	"strings"
	"time"
)

const (
	DefaultMaxPages  = 50
	DefaultChunkSize = 1000

	chunkInstruction = "Please summarize this text concisely: "
	pageSeparator    = " "
	summarySeparator = " "
)

type Summarizer struct {
	answerer  Answerer
	cache     *SummaryCache
	maxPages  int
	chunkSize int
	now       func() time.Time
	log       *slog.Logger
}

type Option func(*Summarizer)

func WithMaxPages(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

func WithChunkSize(n int) Option {
	return func(s *Summarizer) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

func WithCache(c *SummaryCache) Option {
	return func(s *Summarizer) {
		s.cache = c
	}
}

func NewSummarizer(answerer Answerer, log *slog.Logger, opts ...Option) *Summarizer {
	s := &Summarizer{
		answerer:  answerer,
		maxPages:  DefaultMaxPages,
		chunkSize: DefaultChunkSize,
		now:       time.Now,
		log:       log,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SummarizePDF opens data as a PDF and summarizes it.
func (s *Summarizer) SummarizePDF(ctx context.Context, data []byte) (string, error) {
	doc, err := OpenPDF(data)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to open PDF",
			"error", err,
			"size", len(data))

		return "", ErrExtraction
	}

	return s.Summarize(ctx, doc)
}

// Summarize returns one summary for doc or one of ErrExtraction,
// ErrEmptyContent and ErrSummarization. A chunk whose inference call failed
// contributes the assistant's error response instead of aborting.
func (s *Summarizer) Summarize(ctx context.Context, doc Document) (summary string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.ErrorContext(ctx, "Recovered from panic while summarizing document",
				"panic", r)

			summary, err = "", ErrSummarization
		}
	}()

	text, err := s.ExtractText(doc)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to extract document text",
			"error", err)

		return "", ErrExtraction
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyContent
	}

	cacheKey := summaryCacheKey(text)
	if cached, ok := s.cache.get(cacheKey, s.now()); ok {
		s.log.DebugContext(ctx, "Document summary is served from cache",
			"textLen", len(text))

		return cached, nil
	}

	chunks := Chunk(text, s.chunkSize)
	summaries := make([]string, 0, len(chunks))
	degraded := 0

	for i, chunk := range chunks {
		if err = ctx.Err(); err != nil {
			s.log.ErrorContext(ctx, "Failed to summarize document",
				"error", err,
				"chunk", i,
				"chunkCount", len(chunks))

			return "", ErrSummarization
		}

		chunkSummary := s.answerer.Answer(ctx, chunkInstruction+chunk, string(domain.RoleStudent), domain.QueryContext{})
		if chunkSummary == assistant.ErrorResponse {
			degraded++
			s.log.WarnContext(ctx, "Chunk summary degraded to error response",
				"chunk", i,
				"chunkCount", len(chunks))
		}

		summaries = append(summaries, chunkSummary)
	}

	summary = strings.Join(summaries, summarySeparator)

	if degraded == 0 {
		s.cache.put(cacheKey, summary, s.now())
	}

	s.log.InfoContext(ctx, "Document is summarized",
		"textLen", len(text),
		"chunkCount", len(chunks),
		"degradedChunks", degraded,
		"summaryLen", len(summary))

	return summary, nil
}

// ExtractText joins the text of the first maxPages pages with a space. Later
// pages are ignored.
func (s *Summarizer) ExtractText(doc Document) (string, error) {
	pageCount := min(doc.NumPages(), s.maxPages)
	texts := make([]string, 0, pageCount)

	for n := 1; n <= pageCount; n++ {
		text, err := doc.PageText(n)
		if err != nil {
			return "", err
		}

		texts = append(texts, text)
	}

	return strings.Join(texts, pageSeparator), nil
}
