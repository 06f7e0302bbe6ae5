package httpx

import (
	"bytes"
	"io"
	"strconv"

	"dqx0.com/go/tinyhttp/httpx/internal/http1"
)

// Status codes used by the server and its handlers.
const (
	StatusOK       = 200
	StatusCreated  = 201
	StatusNotFound = 404
)

// responseBuffer collects a handler's response so it can be written to
// the connection in one piece.
type responseBuffer struct {
	h       Header
	status  int
	wroteH  bool
	bodyBuf bytes.Buffer
	abort   error
}

func (w *responseBuffer) Header() *Header {
	return &w.h
}

func (w *responseBuffer) WriteHeader(status int) {
	if w.wroteH {
		return
	}
	if status == 0 {
		status = StatusOK
	}
	w.status = status
	w.wroteH = true
}

func (w *responseBuffer) Write(p []byte) (int, error) {
	if !w.wroteH {
		w.WriteHeader(StatusOK)
	}
	return w.bodyBuf.Write(p)
}

func (w *responseBuffer) Abort(err error) {
	if err == nil {
		err = ErrAbortHandler
	}
	if w.abort == nil {
		w.abort = err
	}
}

// writeTo serializes the response. A non-empty body, or a handler-set
// Content-Length, always ends up with a Content-Length matching the body.
func (w *responseBuffer) writeTo(out io.Writer) error {
	if w.status == 0 {
		w.status = StatusOK
	}
	body := w.bodyBuf.Bytes()
	if len(body) > 0 || w.h.Has("Content-Length") {
		w.h.Set("Content-Length", strconv.Itoa(len(body)))
	}
	return http1.WriteResponse(out, w.status, "", w.h, body)
}
