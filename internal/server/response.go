package server

import (
	"github.com/gin-gonic/gin"
)

const (
	codeBadRequest     = "bad_request"
	codeUnauthorized   = "unauthorized"
	codeForbidden      = "forbidden"
	codeUnprocessable  = "unprocessable"
	codeRateLimited    = "rate_limited"
	codeTooLarge       = "payload_too_large"
	codeNotImplemented = "not_implemented"
	codeInternal       = "internal"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, message string) {
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: message,
			Code:    code,
		},
	})
}
