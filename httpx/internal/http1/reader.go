package http1

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Content codings a client can negotiate through Accept-Encoding.
const (
	EncodingIdentity = "identity"
	EncodingGzip     = "gzip"
)

// Lower-cased names of the request headers the parser keeps.
const (
	HeaderUserAgent      = "user-agent"
	HeaderContentLength  = "content-length"
	HeaderAcceptEncoding = "accept-encoding"
)

// ParsedRequest is a minimal representation parsed from the wire.
type ParsedRequest struct {
	Method string
	Path   string
	Proto  string
	// Header holds the recognized headers only, keyed by lower-cased
	// name. The first occurrence of each wins.
	Header        map[string]string
	ContentLength int64
	Encoding      string
	Body          []byte
}

type Reader struct {
	BR             *bufio.Reader
	MaxHeaderBytes int
	// MaxBodyBytes rejects larger declared bodies before reading them.
	// Zero means no limit.
	MaxBodyBytes int64
}

// ReadRequest reads one request: request line, header block and a body of
// exactly Content-Length bytes.
func (r *Reader) ReadRequest() (*ParsedRequest, error) {
	lr := NewLineReader(r.BR, r.MaxHeaderBytes)
	line, err := lr.Next()
	if err != nil {
		if err == io.EOF {
			return nil, ErrEmptyRequest
		}
		return nil, r.lineErr("request line", err)
	}
	if line == "" {
		return nil, fmt.Errorf("%w: empty request line", ErrMalformedRequest)
	}
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: request line %q", ErrMalformedRequest, line)
	}
	pr := &ParsedRequest{
		Method:   parts[0],
		Path:     parts[1],
		Proto:    "HTTP/1.1",
		Header:   make(map[string]string, 3),
		Encoding: EncodingIdentity,
	}
	if len(parts) > 2 {
		pr.Proto = parts[2]
	}
	if !strings.HasPrefix(pr.Path, "/") {
		return nil, fmt.Errorf("%w: path %q", ErrMalformedRequest, pr.Path)
	}
	if err := r.readHeaders(lr, pr); err != nil {
		return nil, err
	}
	if err := r.readBody(pr); err != nil {
		return nil, err
	}
	return pr, nil
}

func (r *Reader) readHeaders(lr *LineReader, pr *ParsedRequest) error {
	total := 0
	for {
		line, err := lr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return r.lineErr("header", err)
		}
		if line == "" {
			return nil
		}
		total += len(line) + 2
		if r.MaxHeaderBytes > 0 && total > r.MaxHeaderBytes {
			return ErrHeaderTooLarge
		}
		i := strings.IndexByte(line, ':')
		if i < 0 {
			return fmt.Errorf("%w: header line %q", ErrMalformedRequest, line)
		}
		k := strings.ToLower(strings.TrimSpace(line[:i]))
		v := strings.TrimSpace(line[i+1:])
		if k == "" {
			return fmt.Errorf("%w: empty header name", ErrMalformedRequest)
		}
		if err := pr.addHeader(k, v); err != nil {
			return err
		}
	}
}

func (pr *ParsedRequest) addHeader(k, v string) error {
	switch k {
	case HeaderUserAgent, HeaderContentLength, HeaderAcceptEncoding:
	default:
		return nil
	}
	if _, seen := pr.Header[k]; seen {
		return nil
	}
	switch k {
	case HeaderContentLength:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: content-length %q", ErrMalformedRequest, v)
		}
		pr.ContentLength = n
	case HeaderAcceptEncoding:
		pr.Encoding = negotiateEncoding(v)
	}
	pr.Header[k] = v
	return nil
}

func negotiateEncoding(accept string) string {
	for _, c := range strings.Split(accept, ",") {
		if strings.EqualFold(strings.TrimSpace(c), EncodingGzip) {
			return EncodingGzip
		}
	}
	return EncodingIdentity
}

func (r *Reader) readBody(pr *ParsedRequest) error {
	if pr.ContentLength == 0 {
		return nil
	}
	if r.MaxBodyBytes > 0 && pr.ContentLength > r.MaxBodyBytes {
		return fmt.Errorf("%w: %d > %d", ErrBodyTooLarge, pr.ContentLength, r.MaxBodyBytes)
	}
	// Grow with what actually arrives instead of trusting the declared size.
	body, err := io.ReadAll(io.LimitReader(r.BR, pr.ContentLength))
	if err != nil {
		return err
	}
	if int64(len(body)) < pr.ContentLength {
		return fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedBody, len(body), pr.ContentLength)
	}
	pr.Body = body
	return nil
}

func (r *Reader) lineErr(what string, err error) error {
	if errors.Is(err, ErrLineTooLong) {
		return fmt.Errorf("%w: %s", ErrHeaderTooLarge, what)
	}
	return err
}
