package middleware

import (
	"net/http"
	"runtime/debug"

	"venuehub/models"
	"venuehub/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	environment string
	logger      *logrus.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(environment string, logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		environment: environment,
		logger:      logger,
	}
}

// Handle returns the error handling middleware
func (eh *ErrorHandler) Handle() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				eh.handlePanic(c, err)
			}
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			eh.handleGinErrors(c)
		}
	})
}

// handlePanic handles panic recovery
func (eh *ErrorHandler) handlePanic(c *gin.Context, err interface{}) {
	eh.logger.WithFields(logrus.Fields{
		"panic":      err,
		"stack":      string(debug.Stack()),
		"request_id": c.GetString("request_id"),
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"user_id":    c.GetString("userID"),
	}).Error("Panic recovered")

	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:     "INTERNAL_ERROR",
		Message:   "Internal server error",
		Code:      "PANIC_RECOVERED",
		RequestID: c.GetString("request_id"),
	})
	c.Abort()
}

// handleGinErrors maps errors added to the gin context to a response body.
func (eh *ErrorHandler) handleGinErrors(c *gin.Context) {
	lastError := c.Errors.Last()
	if lastError == nil {
		return
	}
	err := lastError.Err

	eh.logger.WithFields(logrus.Fields{
		"error":      err.Error(),
		"request_id": c.GetString("request_id"),
		"path":       c.Request.URL.Path,
	}).Error("Request error")

	if serviceErr, ok := utils.GetServiceError(err); ok {
		status := serviceErr.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		c.JSON(status, models.ErrorResponse{
			Error:     serviceErr.Code,
			Message:   serviceErr.Message,
			RequestID: c.GetString("request_id"),
		})
		return
	}

	if _, ok := err.(validator.ValidationErrors); ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:     "VALIDATION_ERROR",
			Message:   err.Error(),
			RequestID: c.GetString("request_id"),
		})
		return
	}

	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:     "NOT_FOUND",
			Message:   "Resource not found",
			RequestID: c.GetString("request_id"),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:     "INTERNAL_ERROR",
		Message:   "Internal server error",
		RequestID: c.GetString("request_id"),
	})
}
