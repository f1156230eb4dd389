package webpage

import (
	"context"
)

const (
	SearchStatusError = "error"

	searchNotImplementedMessage = "Web search functionality requires search API integration"
)

type SearchResult struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Implemented bool   `json:"implemented"`
}

// SearchAndSummarize has no search backend yet and always reports that.
func (f *Fetcher) SearchAndSummarize(ctx context.Context, query string) SearchResult {
	f.log.DebugContext(ctx, "Web search is requested but not implemented",
		"queryLen", len(query))

	return SearchResult{
		Status:      SearchStatusError,
		Message:     searchNotImplementedMessage,
		Implemented: false,
	}
}
