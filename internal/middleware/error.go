package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "github.com/felipemaiocch/wenvest/internal/errors"
	"github.com/felipemaiocch/wenvest/internal/logger"
	"github.com/felipemaiocch/wenvest/internal/marketdata"
)

// ErrorHandler renders the last error set on the Gin context as
// {"error":{"code","message"}}. Bare market data errors that escaped a
// service are mapped to their AppError; anything else becomes a generic
// internal error.
func ErrorHandler() gin.HandlerFunc {
	log := logger.Named("http")

	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := toAppError(c.Errors.Last().Err)
		if appErr.Internal != nil {
			log.Errorw("request failed",
				"code", appErr.Code,
				"error", appErr.Internal.Error(),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"request_id", RequestID(c),
			)
		}
		c.JSON(appErr.StatusCode, gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
	}
}

func toAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, marketdata.ErrNotFound), errors.Is(err, marketdata.ErrNoData):
		return apperrors.Wrap(apperrors.ErrQuoteNotFound, err)
	default:
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
}
