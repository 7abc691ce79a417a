package helpers

import (
	"errors"
	"net/http"

	"github.com/farellandr/blocktix/internal/services"
	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var kindStatus = map[services.Kind]int{
	services.KindInvalidRequest:    http.StatusBadRequest,
	services.KindSoldOut:           http.StatusConflict,
	services.KindForbidden:         http.StatusForbidden,
	services.KindAlreadyUsed:       http.StatusConflict,
	services.KindInvalidTransition: http.StatusConflict,
	services.KindRecipientNotFound: http.StatusNotFound,
	services.KindNotFound:          http.StatusNotFound,
	services.KindUnauthorized:      http.StatusUnauthorized,
	services.KindConflict:          http.StatusConflict,
	services.KindStoreUnavailable:  http.StatusServiceUnavailable,
}

var statusCode = map[int]string{
	http.StatusBadRequest:          string(services.KindInvalidRequest),
	http.StatusUnauthorized:        string(services.KindUnauthorized),
	http.StatusForbidden:           string(services.KindForbidden),
	http.StatusNotFound:            string(services.KindNotFound),
	http.StatusConflict:            string(services.KindConflict),
	http.StatusTooManyRequests:     "RATE_LIMITED",
	http.StatusServiceUnavailable:  string(services.KindStoreUnavailable),
	http.StatusInternalServerError: "INTERNAL",
}

func HTTPStatusText(code int) string {
	return http.StatusText(code)
}

// StatusForKind maps a service error kind to its HTTP status.
func StatusForKind(kind services.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.JSON(statusCode, newErrorResponse(statusCode, codeForStatus(statusCode), customMessage))
}

// AbortWithError is RespondWithError for middleware: later handlers do not run.
func AbortWithError(c *gin.Context, statusCode int, customMessage string) {
	c.AbortWithStatusJSON(statusCode, newErrorResponse(statusCode, codeForStatus(statusCode), customMessage))
}

// RespondWithServiceError writes err using its kind for both the status and
// the code. Causes wrapped behind STORE_UNAVAILABLE are never shown.
func RespondWithServiceError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	status := StatusForKind(kind)

	message := services.ErrStoreUnavailable.Message
	var svcErr *services.Error
	if errors.As(err, &svcErr) && kind != services.KindStoreUnavailable {
		message = svcErr.Message
	}
	c.JSON(status, newErrorResponse(status, string(kind), message))
}

func newErrorResponse(status int, code, message string) ErrorResponse {
	return ErrorResponse{
		Error:   HTTPStatusText(status),
		Code:    code,
		Message: message,
	}
}

func codeForStatus(status int) string {
	if code, ok := statusCode[status]; ok {
		return code
	}
	return "INTERNAL"
}
