package server

import (
	"eduassist/internal/database"
	"eduassist/internal/document"
	"eduassist/internal/domain"
	"eduassist/internal/webpage"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Query   string            `json:"query"`
	Role    string            `json:"role"`
	Context map[string]string `json:"context"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

type fetchRequest struct {
	URL string `json:"url"`
}

type fetchResponse struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type chatLogItem struct {
	ID        int64               `json:"id"`
	Role      string              `json:"role"`
	Query     string              `json:"query"`
	Response  string              `json:"response"`
	Context   domain.QueryContext `json:"context"`
	CreatedAt time.Time           `json:"created_at"`
}

type historyResponse struct {
	Items []chatLogItem `json:"items"`
}

type preferencesBody struct {
	DefaultRole         string `json:"default_role"`
	EnableNotifications *bool  `json:"enable_notifications,omitempty"`
	Theme               string `json:"theme"`
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleChat(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetInt64(userIDKey)

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		respondError(c, http.StatusBadRequest, codeBadRequest, "query is required")
		return
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		prefs, err := s.store.GetUserPreferencesWithDefault(ctx, userID)
		if err != nil {
			s.log.ErrorContext(ctx, "Failed to get user preferences",
				"error", err,
				"userID", userID)

			role = string(domain.DefaultRole)
		} else {
			role = string(prefs.DefaultRole)
		}
	}

	qctx := domain.QueryContextFromMap(req.Context)
	answer := s.assistant.Answer(ctx, req.Query, role, qctx)

	storedRole, _ := domain.ParseRole(role)
	if err := s.store.AddChatLog(ctx, &domain.ChatLog{
		UserID:   userID,
		Role:     storedRole,
		Query:    req.Query,
		Response: answer,
		Context:  qctx,
	}); err != nil {
		s.log.ErrorContext(ctx, "Failed to add chat log",
			"error", err,
			"userID", userID)
	}

	c.JSON(http.StatusOK, chatResponse{Response: answer})
}

func (s *Server) handleSummarize(c *gin.Context) {
	ctx := c.Request.Context()

	if c.Request.ContentLength > MaxUploadBytes {
		respondError(c, http.StatusRequestEntityTooLarge, codeTooLarge, "file is too large")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(c, http.StatusRequestEntityTooLarge, codeTooLarge, "file is too large")
			return
		}

		respondError(c, http.StatusBadRequest, codeBadRequest, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, codeBadRequest, "file is unreadable")
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			s.log.ErrorContext(ctx, "Failed to close uploaded file",
				"error", closeErr)
		}
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, http.StatusBadRequest, codeBadRequest, "file is unreadable")
		return
	}

	summary, err := s.summarizer.SummarizePDF(ctx, data)
	switch {
	case errors.Is(err, document.ErrEmptyContent), errors.Is(err, document.ErrExtraction):
		respondError(c, http.StatusUnprocessableEntity, codeUnprocessable, err.Error())
	case err != nil:
		respondError(c, http.StatusInternalServerError, codeInternal, document.ErrSummarization.Error())
	default:
		c.JSON(http.StatusOK, summarizeResponse{Summary: summary})
	}
}

func (s *Server) handleFetch(c *gin.Context) {
	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		respondError(c, http.StatusBadRequest, codeBadRequest, "url is required")
		return
	}

	page, err := s.fetcher.Fetch(c.Request.Context(), req.URL)
	if errors.Is(err, webpage.ErrDomainNotAllowed) {
		respondError(c, http.StatusForbidden, codeForbidden, err.Error())
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, codeInternal, "failed to fetch page")
		return
	}
	if page == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, fetchResponse{URL: page.URL, Content: page.Text})
}

func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		respondError(c, http.StatusBadRequest, codeBadRequest, "query is required")
		return
	}

	result := s.fetcher.SearchAndSummarize(c.Request.Context(), req.Query)
	if !result.Implemented {
		c.JSON(http.StatusNotImplemented, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleHistory(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetInt64(userIDKey)

	limit := database.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > database.MaxHistoryLimit {
			respondError(c, http.StatusBadRequest, codeBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	logs, err := s.store.ListChatLogs(ctx, userID, limit)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to list chat logs",
			"error", err,
			"userID", userID)

		respondError(c, http.StatusInternalServerError, codeInternal, "failed to list history")
		return
	}

	items := make([]chatLogItem, 0, len(logs))
	for _, l := range logs {
		items = append(items, chatLogItem{
			ID:        l.ID,
			Role:      string(l.Role),
			Query:     l.Query,
			Response:  l.Response,
			Context:   l.Context,
			CreatedAt: l.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, historyResponse{Items: items})
}

func (s *Server) handleGetPreferences(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetInt64(userIDKey)

	prefs, err := s.store.GetUserPreferencesWithDefault(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get user preferences",
			"error", err,
			"userID", userID)

		respondError(c, http.StatusInternalServerError, codeInternal, "failed to get preferences")
		return
	}

	c.JSON(http.StatusOK, toPreferencesBody(prefs))
}

func (s *Server) handlePutPreferences(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetInt64(userIDKey)

	var req preferencesBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeBadRequest, "invalid preferences")
		return
	}

	prefs, err := s.store.GetUserPreferencesWithDefault(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get user preferences",
			"error", err,
			"userID", userID)

		respondError(c, http.StatusInternalServerError, codeInternal, "failed to get preferences")
		return
	}

	if req.DefaultRole != "" {
		role, ok := domain.ParseRole(req.DefaultRole)
		if !ok {
			respondError(c, http.StatusBadRequest, codeBadRequest, "unknown role")
			return
		}
		prefs.DefaultRole = role
	}
	if req.EnableNotifications != nil {
		prefs.EnableNotifications = *req.EnableNotifications
	}
	if theme := strings.TrimSpace(req.Theme); theme != "" {
		prefs.Theme = theme
	}

	if err = s.store.UpsertUserPreferences(ctx, prefs); err != nil {
		s.log.ErrorContext(ctx, "Failed to upsert user preferences",
			"error", err,
			"userID", userID)

		respondError(c, http.StatusInternalServerError, codeInternal, "failed to save preferences")
		return
	}

	c.JSON(http.StatusOK, toPreferencesBody(prefs))
}

func toPreferencesBody(prefs *domain.UserPreferences) preferencesBody {
	enabled := prefs.EnableNotifications

	return preferencesBody{
		DefaultRole:         string(prefs.DefaultRole),
		EnableNotifications: &enabled,
		Theme:               prefs.Theme,
	}
}
