package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/erp/shopfloor/internal/domain/shared"
	"github.com/erp/shopfloor/internal/infrastructure/logger"
	"github.com/erp/shopfloor/internal/interfaces/http/dto"
	"github.com/erp/shopfloor/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RetryAfter is advertised on 503 responses for retryable failures
const RetryAfter = 5 * time.Second

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	return middleware.GetRequestID(c)
}

// getActorID returns the operator identity set by the logging middleware or the header
func getActorID(c *gin.Context) string {
	if id := c.GetString(middleware.ActorIDKey); id != "" {
		return id
	}
	return c.GetHeader(logger.ActorHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// ServiceUnavailable sends a 503 response
func (h *BaseHandler) ServiceUnavailable(c *gin.Context, message string) {
	h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeInternal, message)
}

// HandleError converts an error to an HTTP response. Domain errors map through
// the dto error table; retryable failures add Retry-After; anything else is a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	domainCode, ok := shared.CodeOf(err)
	if !ok {
		logger.GetGinLogger(c).Error("unhandled error", zap.Error(err))
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
		return
	}

	code := dto.NormalizeErrorCode(domainCode)
	status := dto.GetHTTPStatus(code)
	resp := dto.NewErrorResponse(code, err.Error(), getRequestID(c))

	if production.IsRetryable(err) {
		resp.Error.Retryable = true
		c.Header("Retry-After", strconv.Itoa(int(RetryAfter.Seconds())))
	}
	if status >= http.StatusInternalServerError {
		logger.GetGinLogger(c).Error("request failed", zap.String("code", code), zap.Error(err))
	}
	c.JSON(status, resp)
}
