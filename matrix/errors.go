package matrix

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Matrix error codes the migrator reacts to.
const (
	ErrCodeForbidden           = "M_FORBIDDEN"
	ErrCodeNotFound            = "M_NOT_FOUND"
	ErrCodeUserInUse           = "M_USER_IN_USE"
	ErrCodeLimitExceeded       = "M_LIMIT_EXCEEDED"
	ErrCodeDuplicateAnnotation = "M_DUPLICATE_ANNOTATION"
)

// Error is a non-2xx response from the homeserver.
//
// StatusCode, ErrCode and RetryAfterMs come from the response. UserID and
// RoomID are filled in by the client from the request that failed: UserID is
// the user the request acted as and RoomID the room the endpoint addressed.
// Message is informational only.
type Error struct {
	StatusCode   int    `json:"-"`
	ErrCode      string `json:"errcode"`
	Message      string `json:"error"`
	RetryAfterMs int64  `json:"retry_after_ms,omitempty"`

	Method string `json:"-"`
	Path   string `json:"-"`
	UserID string `json:"-"`
	RoomID string `json:"-"`
}

func (e *Error) Error() string {
	if e.ErrCode == "" {
		return fmt.Sprintf("matrix API error: %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("matrix API error: %s %s: %d %s %s", e.Method, e.Path, e.StatusCode, e.ErrCode, e.Message)
}

// AsError unwraps err to a *Error.
func AsError(err error) (*Error, bool) {
	var matrixErr *Error
	if errors.As(err, &matrixErr) {
		return matrixErr, true
	}
	return nil, false
}

// IsForbidden reports a 403 M_FORBIDDEN response.
func IsForbidden(err error) bool {
	matrixErr, ok := AsError(err)
	return ok && matrixErr.StatusCode == http.StatusForbidden && matrixErr.ErrCode == ErrCodeForbidden
}

// ActorNotInRoom returns the acting user and room of a 403 M_FORBIDDEN
// response to a room-scoped request. ok is false when the error is of another
// class or the request did not carry both identifiers.
func ActorNotInRoom(err error) (userID, roomID string, ok bool) {
	if !IsForbidden(err) {
		return "", "", false
	}
	matrixErr, _ := AsError(err)
	if matrixErr.UserID == "" || matrixErr.RoomID == "" {
		return "", "", false
	}
	return matrixErr.UserID, matrixErr.RoomID, true
}

// IsDuplicateAnnotation reports a reaction that already exists.
func IsDuplicateAnnotation(err error) bool {
	matrixErr, ok := AsError(err)
	return ok && matrixErr.ErrCode == ErrCodeDuplicateAnnotation
}

// IsNotFound reports a 404 or M_NOT_FOUND response.
func IsNotFound(err error) bool {
	matrixErr, ok := AsError(err)
	return ok && (matrixErr.StatusCode == http.StatusNotFound || matrixErr.ErrCode == ErrCodeNotFound)
}

// IsUserInUse reports a registration for a localpart that already exists.
func IsUserInUse(err error) bool {
	matrixErr, ok := AsError(err)
	return ok && matrixErr.ErrCode == ErrCodeUserInUse
}

// RetryAfter returns the server supplied back-off of a rate limited response.
func RetryAfter(err error) time.Duration {
	matrixErr, ok := AsError(err)
	if !ok || matrixErr.RetryAfterMs <= 0 {
		return 0
	}
	return time.Duration(matrixErr.RetryAfterMs) * time.Millisecond
}
