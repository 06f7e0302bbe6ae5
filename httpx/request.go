package httpx

import (
	"context"

	"dqx0.com/go/tinyhttp/httpx/internal/http1"
)

// Negotiated content codings.
const (
	EncodingIdentity = http1.EncodingIdentity
	EncodingGzip     = http1.EncodingGzip
)

// Request represents one parsed HTTP request.
//
// Header holds only the headers the server recognizes (User-Agent,
// Content-Length, Accept-Encoding), keyed by lower-cased name. Body is
// exactly ContentLength bytes long.
type Request struct {
	Method        string
	Path          string
	Proto         string
	Header        map[string]string
	ContentLength int64
	// Encoding is EncodingGzip when the client listed gzip in
	// Accept-Encoding, EncodingIdentity otherwise.
	Encoding   string
	Body       []byte
	RemoteAddr string
	ctx        context.Context
}

// UserAgent returns the User-Agent header, or "".
func (r *Request) UserAgent() string {
	return r.Header[http1.HeaderUserAgent]
}

// Context returns the request's context. If nil, returns Background.
func (r *Request) Context() context.Context {
	if r == nil || r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

func newRequest(pr *http1.ParsedRequest) *Request {
	return &Request{
		Method:        pr.Method,
		Path:          pr.Path,
		Proto:         pr.Proto,
		Header:        pr.Header,
		ContentLength: pr.ContentLength,
		Encoding:      pr.Encoding,
		Body:          pr.Body,
	}
}
