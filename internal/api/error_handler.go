package api

import (
	"errors"
	"net/http"

	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/AlexandrinoANP/ANP/internal/utils"
	"github.com/gin-gonic/gin"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 把 c.Error 收集到的错误写成统一响应
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			return
		}
		apiErr = FromServiceError(c, err)
		Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}

// FromServiceError 业务错误到 HTTP 状态码的映射
func FromServiceError(c *gin.Context, err error) *APIError {
	var validationErr *utils.ValidationError
	switch {
	case errors.Is(err, orchestrator.ErrEmptyCommand):
		return WrapError(err, http.StatusBadRequest, T(c, "error.empty_command"))
	case errors.Is(err, orchestrator.ErrCommandTooLong):
		return WrapError(err, http.StatusBadRequest, T(c, "error.command_too_long"))
	case errors.Is(err, orchestrator.ErrBusy):
		return WrapError(err, http.StatusConflict, T(c, "error.busy"))
	case errors.Is(err, orchestrator.ErrTaskNotFound):
		return WrapError(err, http.StatusNotFound, T(c, "error.not_found"))
	case errors.As(err, &validationErr):
		return WrapError(err, http.StatusBadRequest, T(c, "error.bad_request"))
	default:
		return WrapError(err, http.StatusInternalServerError, T(c, "error.internal_error"))
	}
}

// respondError 直接写出业务错误
func respondError(c *gin.Context, err error) {
	apiErr := FromServiceError(c, err)
	Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
}
