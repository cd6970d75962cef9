// Package apperr defines the errors the API reports to its callers. Each
// carries the HTTP status it maps to and a message that is safe to show.
package apperr

import (
	"errors"
	"net/http"
)

// Error is a failure with a status classification and a user-facing message.
type Error struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same status and message, so wrapped copies of a
// sentinel still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode && e.Message == t.Message
}

// New returns an Error with the given status and message
func New(status int, message string) *Error {
	return &Error{StatusCode: status, Message: message}
}

// Wrap returns a copy of e carrying cause
func (e *Error) Wrap(cause error) *Error {
	return &Error{StatusCode: e.StatusCode, Message: e.Message, Err: cause}
}

func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }
func Forbidden(message string) *Error    { return New(http.StatusForbidden, message) }
func NotFound(message string) *Error     { return New(http.StatusNotFound, message) }
func BadRequest(message string) *Error   { return New(http.StatusBadRequest, message) }
func Conflict(message string) *Error     { return New(http.StatusConflict, message) }

var (
	ErrHeaderMalformed   = Unauthorized("Authorization header missing or improperly formatted")
	ErrTokenInvalid      = Unauthorized("You are not authorized!")
	ErrCredentialChanged = Unauthorized("You are not authorized!")
	ErrRoleNotAllowed    = Unauthorized("You are not authorized")
	ErrUserNotFound      = NotFound("This user is not found!")
	ErrUserBlocked       = Forbidden("This user is blocked!")
	ErrInvalidLogin      = Unauthorized("Invalid email or password")
	ErrWrongPassword     = Forbidden("Old password is incorrect")

	ErrAlreadyFollowing = Conflict("You are already following this user.")
	ErrNotFollowing     = Conflict("You are not following this user")
	ErrSelfFollow       = BadRequest("You cannot follow yourself")
	ErrNotOwnFollow     = Forbidden("You can only manage your own follows")
	ErrUpdateFailed     = New(http.StatusInternalServerError, "Error updating follower/following data")

	ErrEmailTaken      = Conflict("Email is already in use")
	ErrNotOwnProfile   = Forbidden("You can only update your own profile")
	ErrRoleChange      = Forbidden("Only an admin can change role or status")
	ErrInternal        = New(http.StatusInternalServerError, "Something went wrong")
	ErrCheckoutFailed  = New(http.StatusBadGateway, "Failed to create checkout session")
	ErrPriceIDRequired = BadRequest("priceId is required")
)

// From converts any error into an *Error. Unknown errors become ErrInternal
// with the original error kept as the cause.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.Wrap(err)
}
