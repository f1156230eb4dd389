// Package webpage fetches pages from an allow-list of domains and reduces them
// to readable text.
package webpage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultClientTimeout = 20 * time.Second
	DefaultMaxBodyBytes  = 5 << 20

	maxRedirects = 5
	userAgent    = "eduassist/1.0"
)

var (
	DefaultAllowedDomains = []string{
		"wikipedia.org",
		"educative.io",
		"developer.mozilla.org",
	}

	ErrDomainNotAllowed = errors.New("domain not in allowed list")
)

// Page is the cleaned text of one fetched document.
type Page struct {
	URL  string
	Text string
}

type Fetcher struct {
	client       *http.Client
	allowed      []string
	maxBodyBytes int64
	log          *slog.Logger
}

type Option func(*Fetcher)

func WithMaxBodyBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodyBytes = n
		}
	}
}

// NewHTTPClient returns the client shared by all fetches of the process.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultClientTimeout}
}

// NewFetcher keeps client's transport and timeout but re-checks every
// redirect target against allowed. An empty allowed list means the defaults.
func NewFetcher(
	client *http.Client,
	allowed []string,
	log *slog.Logger,
	opts ...Option,
) *Fetcher {
	if client == nil {
		client = NewHTTPClient()
	}

	normalized := make([]string, 0, len(allowed))
	for _, d := range allowed {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			normalized = append(normalized, d)
		}
	}
	if len(normalized) == 0 {
		normalized = append(normalized, DefaultAllowedDomains...)
	}

	f := &Fetcher{
		allowed:      normalized,
		maxBodyBytes: DefaultMaxBodyBytes,
		log:          log,
	}

	guarded := *client
	guarded.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errors.New("stopped after too many redirects")
		}

		if !f.IsAllowed(req.URL) {
			return fmt.Errorf("redirect to %s: %w", req.URL.Hostname(), ErrDomainNotAllowed)
		}

		return nil
	}
	f.client = &guarded

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// IsAllowed reports whether u's host contains one of the allowed domains.
// The check is a plain substring match on the lowercased host name.
func (f *Fetcher) IsAllowed(u *url.URL) bool {
	if u == nil {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}

	for _, d := range f.allowed {
		if strings.Contains(host, d) {
			return true
		}
	}

	return false
}

// Fetch returns the cleaned text of rawURL. It returns ErrDomainNotAllowed
// without touching the network when the host is not allowed, and a nil page
// when the page could not be fetched or parsed, including a redirect to a host
// that is not allowed.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !f.IsAllowed(u) {
		return nil, ErrDomainNotAllowed
	}

	body, err := f.get(ctx, u.String())
	if errors.Is(err, ErrDomainNotAllowed) {
		f.log.WarnContext(ctx, "Webpage redirected outside allowed domains",
			"error", err,
			"url", u.String())

		return nil, nil //nolint:nilnil // Absent page.
	}
	if err != nil {
		f.log.ErrorContext(ctx, "Failed to fetch webpage",
			"error", err,
			"url", u.String())

		return nil, nil //nolint:nilnil // Absent page.
	}
	if body == nil {
		return nil, nil //nolint:nilnil // Absent page.
	}

	text, ok, err := ExtractText(bytes.NewReader(body))
	if err != nil {
		f.log.ErrorContext(ctx, "Failed to parse webpage",
			"error", err,
			"url", u.String())

		return nil, nil //nolint:nilnil // Absent page.
	}
	if !ok {
		return nil, nil //nolint:nilnil // Absent page.
	}

	return &Page{URL: u.String(), Text: text}, nil
}

// get returns nil body for a non-200 response.
func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html, text/plain;q=0.9, */*;q=0.1")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.log.ErrorContext(ctx, "Failed to close response body",
				"error", closeErr,
				"url", rawURL)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		f.log.WarnContext(ctx, "Webpage responded with non-OK status",
			"url", rawURL,
			"status", resp.StatusCode)

		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, fmt.Errorf("read body: response exceeds %d bytes", f.maxBodyBytes)
	}

	return body, nil
}

// Close releases idle connections of the underlying transport.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}

// ExtractText drops script, style, nav and footer elements and returns the
// text of the first main, article or body element. Text nodes are trimmed and
// joined by single spaces; whitespace inside a node is kept. ok is false when none of the roots exist.
func ExtractText(r io.Reader) (text string, ok bool, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", false, fmt.Errorf("parse HTML: %w", err)
	}

	doc.Find("script, style, nav, footer").Remove()

	var root *goquery.Selection
	for _, selector := range []string{"main", "article", "body"} {
		if s := doc.Find(selector).First(); s.Length() > 0 {
			root = s
			break
		}
	}
	if root == nil {
		return "", false, nil
	}

	var parts []string
	collectText(root, &parts)

	return strings.Join(parts, " "), true, nil
}

func collectText(s *goquery.Selection, parts *[]string) {
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		if goquery.NodeName(child) == "#text" {
			if text := strings.TrimSpace(child.Text()); text != "" {
				*parts = append(*parts, text)
			}

			return
		}

		collectText(child, parts)
	})
}
