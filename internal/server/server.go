// Package server exposes the assistant over a JSON HTTP API.
package server

import (
	"context"
	"eduassist/internal/domain"
	"eduassist/internal/ratelimiter"
	"eduassist/internal/webpage"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second

	// MaxUploadBytes bounds the multipart body of a summarize request.
	MaxUploadBytes = 20 << 20
)

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

type Options struct {
	Addr        string
	JWTSecret   string
	CORSOrigins []string
}

type Server struct {
	opts       Options
	store      Store
	assistant  Answerer
	summarizer PDFSummarizer
	fetcher    PageFetcher
	limiter    *ratelimiter.Keyed
	router     *gin.Engine
	log        *slog.Logger
}

func New(
	opts Options,
	store Store,
	assistant Answerer,
	summarizer PDFSummarizer,
	fetcher PageFetcher,
	limiter *ratelimiter.Keyed,
	log *slog.Logger,
) *Server {
	if limiter == nil {
		limiter = ratelimiter.NewAPI()
	}

	s := &Server{
		opts:       opts,
		store:      store,
		assistant:  assistant,
		summarizer: summarizer,
		fetcher:    fetcher,
		limiter:    limiter,
		log:        log,
	}
	s.router = s.routes()

	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(s.log))

	if len(s.opts.CORSOrigins) > 0 {
		r.Use(corsMiddleware(s.opts.CORSOrigins))
	}

	r.GET("/healthz", s.handleHealthz)

	api := r.Group("/api", requireAuth(s.opts.JWTSecret))
	{
		limited := api.Group("", rateLimit(s.limiter))
		limited.POST("/chat", s.handleChat)
		limited.POST("/summarize", s.handleSummarize)
		limited.POST("/fetch", s.handleFetch)

		api.POST("/search", s.handleSearch)
		api.GET("/history", s.handleHistory)
		api.GET("/preferences", s.handleGetPreferences)
		api.PUT("/preferences", s.handlePutPreferences)
	}

	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoContext(ctx, "HTTP server is listening",
			"addr", s.opts.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen and serve: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	s.log.InfoContext(ctx, "HTTP server is stopped")

	return nil
}
