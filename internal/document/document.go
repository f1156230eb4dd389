// Package document extracts bounded text from paged documents and summarizes
// it chunk by chunk through the assistant.
package document

import (
	"context"
	"eduassist/internal/domain"
	"errors"
)

var (
	ErrExtraction    = errors.New("failed to extract text from PDF")
	ErrEmptyContent  = errors.New("no text content found")
	ErrSummarization = errors.New("failed to generate PDF summary")
)

// Document is a sequence of pages, each convertible to text.
type Document interface {
	NumPages() int
	// PageText returns the text of page n, counting from 1.
	PageText(n int) (string, error)
}

// Answerer is the query orchestrator as seen by the summarizer.
type Answerer interface {
	Answer(ctx context.Context, query string, role string, qctx domain.QueryContext) string
}
