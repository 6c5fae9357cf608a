// internal/api/response_helpers.go
package api

import (
	"net/http"
	"time"

	apperrors "github.com/InkMuseLab/InkMuseAI/internal/errors"
	"github.com/gin-gonic/gin"
)

// APIResponse 统一响应包装
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError 错误响应体
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: requestID(c),
	}

	if len(message) > 0 {
		response.Message = message[0]
	}

	c.JSON(http.StatusOK, response)
}

// Fail 失败响应，按错误类型映射HTTP状态码
func Fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, &APIResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message},
		Timestamp: time.Now(),
		RequestID: requestID(c),
	})
}

// FailWithError 根据AppError类型选择状态码
func FailWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"
	message := "internal error"

	if appErr, ok := err.(*apperrors.AppError); ok {
		code = appErr.Code
		message = appErr.Message
		switch appErr.Type {
		case apperrors.ErrorTypeValidation:
			status = http.StatusBadRequest
		case apperrors.ErrorTypeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrorTypeStructural:
			// 结构性失败：提示调用方重新生成，而非服务器故障
			status = http.StatusUnprocessableEntity
		case apperrors.ErrorTypeGeneration:
			status = http.StatusBadGateway
		case apperrors.ErrorTypeTimeout:
			status = http.StatusGatewayTimeout
		}
	}

	Fail(c, status, code, message)
}

func requestID(c *gin.Context) string {
	if id, exists := c.Get("request_id"); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
