package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind identifies the category of an application error. Controllers map it
// to an HTTP status; clients switch on it for display.
type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindNotAvailable       Kind = "NOT_AVAILABLE"
	KindNotClaimed         Kind = "NOT_CLAIMED"
	KindForbidden          Kind = "FORBIDDEN"
	KindAlreadyRemoved     Kind = "ALREADY_REMOVED"
	KindValidation         Kind = "VALIDATION"
	KindInvalidTransaction Kind = "INVALID_TRANSACTION"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindInternal           Kind = "INTERNAL"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(code int, kind Kind, message string, err error) *Error {
	return &Error{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

func NotFound(format string, args ...interface{}) *Error {
	return New(http.StatusNotFound, KindNotFound, fmt.Sprintf(format, args...), nil)
}

func NotAvailable(format string, args ...interface{}) *Error {
	return New(http.StatusConflict, KindNotAvailable, fmt.Sprintf(format, args...), nil)
}

func NotClaimed(format string, args ...interface{}) *Error {
	return New(http.StatusConflict, KindNotClaimed, fmt.Sprintf(format, args...), nil)
}

func Forbidden(format string, args ...interface{}) *Error {
	return New(http.StatusForbidden, KindForbidden, fmt.Sprintf(format, args...), nil)
}

func AlreadyRemoved(format string, args ...interface{}) *Error {
	return New(http.StatusConflict, KindAlreadyRemoved, fmt.Sprintf(format, args...), nil)
}

func Validation(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, KindValidation, fmt.Sprintf(format, args...), nil)
}

func InvalidTransaction(format string, args ...interface{}) *Error {
	return New(http.StatusUnprocessableEntity, KindInvalidTransaction, fmt.Sprintf(format, args...), nil)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return New(http.StatusUnauthorized, KindUnauthorized, fmt.Sprintf(format, args...), nil)
}

func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, KindInternal, message, err)
}

// KindOf extracts the Kind from any error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given application error kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Respond writes err to the gin context with its mapped status code.
func Respond(c *gin.Context, err error) {
	var appErr *Error
	if !stderrors.As(err, &appErr) {
		appErr = Internal("Internal server error", err)
	}
	c.JSON(appErr.Code, appErr)
}

// ErrorMiddleware converts errors attached to the gin context into JSON
// responses. Handlers may also call Respond directly.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			var appErr *Error
			if !stderrors.As(err, &appErr) {
				appErr = Internal("Internal server error", err)
			}
			c.JSON(appErr.Code, appErr)
			c.Abort()
		}
	}
}
