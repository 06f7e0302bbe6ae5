package http1

import "errors"

var (
	ErrEmptyRequest     = errors.New("httpx: empty request")
	ErrMalformedRequest = errors.New("httpx: malformed request")
	ErrTruncatedBody    = errors.New("httpx: truncated body")
	ErrHeaderTooLarge   = errors.New("httpx: header too large")
	ErrBodyTooLarge     = errors.New("httpx: body too large")
	ErrLineTooLong      = errors.New("httpx: line too long")
)
