package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced in API envelopes. storage_unavailable and
// notification_unsupported are deliberately distinct: the former is a
// transient backend fault, the latter a deployment/configuration problem
// that must not be retried blindly.
const (
	CodeValidation              = "validation_error"
	CodeNotFound                = "not_found"
	CodeStorageUnavailable      = "storage_unavailable"
	CodeNotificationUnsupported = "notification_unsupported"
	CodeUpstream                = "upstream_error"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(format string, args ...interface{}) *Error {
	return New(http.StatusBadRequest, CodeValidation, fmt.Errorf(format, args...))
}

func NotFound(format string, args ...interface{}) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func StorageUnavailable(err error) *Error {
	return New(http.StatusServiceUnavailable, CodeStorageUnavailable, fmt.Errorf("storage unavailable: %w", err))
}

func NotificationUnsupported(err error) *Error {
	return New(http.StatusServiceUnavailable, CodeNotificationUnsupported,
		fmt.Errorf("change notification unavailable (is the store running as a replica set?): %w", err))
}

func Upstream(code string, err error) *Error {
	return New(http.StatusBadGateway, code, err)
}

// FromError extracts an *Error when the chain contains one, otherwise wraps
// err as a plain 500.
func FromError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return New(http.StatusInternalServerError, "internal_error", err)
}
