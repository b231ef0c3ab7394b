package apiserver

import (
	"net/http"
	"runtime/debug"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tymenu/tymenu/pkg/errors"
)

const requestIDKey = "request_id"

// requestID reuses the id chi assigned when mounted behind the web router.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := chimiddleware.GetReqID(c.Request.Context())
		if id == "" {
			id = c.GetHeader("X-Request-ID")
		}
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *APIServer) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("request_id", c.GetString(requestIDKey)),
					zap.String("path", c.Request.URL.Path),
					zap.String("stack", string(debug.Stack())),
				)
				s.writeError(c, errors.NewInternalError("An unexpected error occurred"))
			}
		}()
		c.Next()
	}
}

// errorHandler renders the last handler error as the standard error body.
func (s *APIServer) errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr, ok := errors.As(err)
		if !ok {
			appErr = errors.NewAppError(errors.CodeInternal, "An unexpected error occurred", "")
		}
		if appErr.StatusCode() >= http.StatusInternalServerError {
			s.logger.Error("Request error",
				zap.String("request_id", c.GetString(requestIDKey)),
				zap.String("code", string(appErr.Code)),
				zap.Error(err),
			)
		}
		s.writeError(c, appErr)
	}
}

func (s *APIServer) writeError(c *gin.Context, appErr *errors.AppError) {
	c.AbortWithStatusJSON(appErr.StatusCode(), errors.ToErrorResponse(appErr, c.GetString(requestIDKey)))
}
