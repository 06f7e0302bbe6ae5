package httpx

import (
	"errors"

	"dqx0.com/go/tinyhttp/httpx/internal/http1"
)

var (
	ErrEmptyRequest     = http1.ErrEmptyRequest
	ErrMalformedRequest = http1.ErrMalformedRequest
	ErrTruncatedBody    = http1.ErrTruncatedBody
	ErrHeaderTooLarge   = http1.ErrHeaderTooLarge
	ErrBodyTooLarge     = http1.ErrBodyTooLarge

	ErrServerClosed = errors.New("httpx: server closed")
	// ErrAbortHandler is what Abort records when called with a nil error.
	ErrAbortHandler = errors.New("httpx: handler aborted")
)
