// Package response writes JSON bodies for the HTTP layer.
package response

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/friend_calendar/pkg/errors"
	"github.com/mroshb/friend_calendar/pkg/logger"
)

const RequestIDKey = "request_id"

// ErrorBody is the body of every failed request.
type ErrorBody struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Logger returns the package logger scoped to the request id.
func Logger(c *gin.Context) *logger.Logger {
	return logger.With("request_id", c.GetString(RequestIDKey))
}

// Error writes err with its mapped status. Internal failures are logged
// with their cause and answered with a generic message.
func Error(c *gin.Context, err error) {
	c.AbortWithStatusJSON(errors.HTTPStatus(err), body(c, err))
}

func body(c *gin.Context, err error) ErrorBody {
	code := errors.CodeOf(err)
	if code == errors.ErrCodeInternalError {
		Logger(c).Error("Request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		return ErrorBody{Message: "internal server error", Code: code}
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return ErrorBody{Message: appErr.Message, Code: code, Fields: appErr.Fields}
	}
	return ErrorBody{Message: err.Error(), Code: code}
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, data)
}

func NoContent(c *gin.Context) {
	c.Status(204)
}
