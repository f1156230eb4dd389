package server

import (
	"eduassist/internal/ratelimiter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"
	userIDKey       = "userID"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"durationMs", time.Since(start).Milliseconds(),
			"requestID", c.GetString(requestIDKey),
		}
		if userID, ok := c.Get(userIDKey); ok {
			fields = append(fields, "userID", userID)
		}

		ctx := c.Request.Context()

		switch {
		case status >= http.StatusInternalServerError:
			log.ErrorContext(ctx, "HTTP request", fields...)
		case status >= http.StatusBadRequest:
			log.WarnContext(ctx, "HTTP request", fields...)
		default:
			log.InfoContext(ctx, "HTTP request", fields...)
		}
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	})
}

func requireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			respondError(c, http.StatusUnauthorized, codeUnauthorized, errInvalidToken.Error())
			return
		}

		userID, err := parseUserID(secret, tokenString)
		if err != nil {
			respondError(c, http.StatusUnauthorized, codeUnauthorized, errInvalidToken.Error())
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// rateLimit rejects requests of a user who ran out of tokens.
func rateLimit(limiter *ratelimiter.Keyed) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.GetInt64(userIDKey)) {
			respondError(c, http.StatusTooManyRequests, codeRateLimited, "too many requests")
			return
		}

		c.Next()
	}
}
