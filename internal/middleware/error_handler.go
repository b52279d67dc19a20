package middleware

import (
	"net/http"

	"realtime_chat/pkg/errors"
	"realtime_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler отрисовывает последнюю ошибку, добавленную через c.Error.
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		statusCode := errors.HTTPStatusFromError(err)

		if statusCode >= http.StatusInternalServerError {
			// детали сбоя хранилища остаются в логах
			log.Error("Request failed", "path", c.FullPath(), "error", err)
		}

		c.JSON(statusCode, errors.NewAPIError(err))
	}
}
