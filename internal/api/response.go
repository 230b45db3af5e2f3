package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/feed-the-cat/internal/errors"
)

// 对外错误文案，与前端约定保持一致
const (
	msgInternal       = "Internal Server Error"
	msgNotInitialized = "Global food state not initialized"
	msgRateLimited    = "Rate limit exceeded"
	msgConflict       = "Concurrent update conflict, please retry"
	msgInvalidBody    = "Invalid request body"
)

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError 按错误码输出状态码与文案，内部细节只进日志
func writeError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	c.JSON(status, ErrorResponse{Error: publicMessage(err, status)})
}

func publicMessage(err error, status int) string {
	switch status {
	case http.StatusBadRequest:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Details != "" {
			return appErr.Details
		}
		return msgInvalidBody
	case http.StatusConflict:
		return msgConflict
	case http.StatusTooManyRequests:
		return msgRateLimited
	}
	if apperrors.Is(err, apperrors.ErrNotInitialized) {
		return msgNotInitialized
	}
	return msgInternal
}
