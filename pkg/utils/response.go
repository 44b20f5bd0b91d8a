package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Response standard response structure
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// SuccessResponse returns success response
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      0,
		Message:   "success",
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// ErrorResponse returns error response
func ErrorResponse(c *gin.Context, httpCode int, message string) {
	c.JSON(httpCode, Response{
		Code:      httpCode,
		Message:   message,
		Timestamp: time.Now().Unix(),
	})
}

// AckResponse acknowledges a gateway webhook. The gateway retries on
// anything other than 200, so processing failures are still acked and
// only logged server side.
func AckResponse(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Code:      0,
		Message:   "received",
		Timestamp: time.Now().Unix(),
	})
}

// AppErrorResponse maps an application error onto the response envelope
func AppErrorResponse(c *gin.Context, err error) {
	appErr, ok := IsAppError(err)
	if !ok {
		ErrorResponse(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusOK, Response{
		Code:      int(appErr.Code),
		Message:   appErr.Message,
		Timestamp: time.Now().Unix(),
	})
}
