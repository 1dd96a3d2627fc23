// internal/api/response_helpers.go
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Corphon/PsychoPedia/internal/errors"
	"github.com/Corphon/PsychoPedia/internal/utils"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError is the error part of the envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseHelper writes envelopes.
type ResponseHelper struct {
	logger *utils.Logger
}

func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{logger: utils.GetLogger().With("api")}
}

// Success writes a 200 response.
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	rh.write(c, http.StatusOK, data, message)
}

// Created writes a 201 response.
func (rh *ResponseHelper) Created(c *gin.Context, data interface{}, message ...string) {
	if len(message) == 0 {
		message = []string{"resource created"}
	}
	rh.write(c, http.StatusCreated, data, message)
}

func (rh *ResponseHelper) write(c *gin.Context, status int, data interface{}, message []string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}
	if len(message) > 0 {
		response.Message = message[0]
	}
	c.JSON(status, response)
}

// Error writes an error envelope.
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	apiError := &APIError{
		Code:    errorCode,
		Message: message,
	}
	if len(details) > 0 {
		apiError.Details = details[0]
	}

	c.JSON(statusCode, &APIResponse{
		Success:   false,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	})
}

func (rh *ResponseHelper) BadRequest(c *gin.Context, errorCode, message string, details ...string) {
	if errorCode == "" {
		errorCode = ErrorBadRequest
	}
	rh.Error(c, http.StatusBadRequest, errorCode, message, details...)
}

func (rh *ResponseHelper) NotFound(c *gin.Context, errorCode, message string) {
	if errorCode == "" {
		errorCode = ErrorNotFound
	}
	rh.Error(c, http.StatusNotFound, errorCode, message)
}

// InternalError logs the cause and answers with a generic message.
func (rh *ResponseHelper) InternalError(c *gin.Context, errorCode string, err error) {
	if errorCode == "" {
		errorCode = ErrorInternalError
	}
	rh.logger.Error("request failed", map[string]interface{}{
		"request_id": rh.getRequestID(c),
		"path":       c.FullPath(),
		"error":      err.Error(),
	})
	rh.Error(c, http.StatusInternalServerError, errorCode, "an internal error occurred")
}

// FromError maps an AppError type to its HTTP status. codes optionally
// overrides the error code per type.
func (rh *ResponseHelper) FromError(c *gin.Context, err error, codes map[apperrors.ErrorType]string) {
	errType := apperrors.TypeOf(err)
	code := codes[errType]

	switch errType {
	case apperrors.ErrorTypeValidation:
		rh.BadRequest(c, code, err.Error())
	case apperrors.ErrorTypeNotFound:
		rh.NotFound(c, code, err.Error())
	case apperrors.ErrorTypeConflict:
		if code == "" {
			code = ErrorConflict
		}
		rh.Error(c, http.StatusConflict, code, err.Error())
	case apperrors.ErrorTypeTimeout:
		if code == "" {
			code = ErrorTimeout
		}
		rh.Error(c, http.StatusGatewayTimeout, code, err.Error())
	default:
		rh.InternalError(c, code, err)
	}
}

// DownloadResponse sends a file body with an attachment disposition.
func (rh *ResponseHelper) DownloadResponse(c *gin.Context, content []byte, filename, contentType string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, content)
}

func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
