// Package routes holds the server's fixed route table: root, echo,
// user-agent and files.
package routes

import (
	"bytes"
	"errors"
	"strconv"

	"github.com/klauspost/compress/gzip"

	"dqx0.com/go/tinyhttp/httpx"
	"dqx0.com/go/tinyhttp/internal/filestore"
	"dqx0.com/go/tinyhttp/internal/obs"
)

// Mux dispatches requests to the route handlers.
type Mux struct {
	// Files serves /files/. A nil Files answers every file request with 404.
	Files  *filestore.Store
	Logger obs.Logger
}

func (m *Mux) ServeHTTP(w httpx.ResponseWriter, r *httpx.Request) {
	match := Route(r.Method, r.Path)
	m.logf(r, obs.Debug, "%s %s -> %s", r.Method, r.Path, match.Kind)
	switch match.Kind {
	case Root:
		w.WriteHeader(httpx.StatusOK)
	case Echo:
		m.echo(w, r, match.Arg)
	case UserAgent:
		writeText(w, []byte(r.UserAgent()), "")
	case File:
		switch r.Method {
		case "GET":
			m.getFile(w, r, match.Arg)
		case "POST":
			m.postFile(w, r, match.Arg)
		default:
			w.WriteHeader(httpx.StatusNotFound)
		}
	default:
		w.WriteHeader(httpx.StatusNotFound)
	}
}

func (m *Mux) echo(w httpx.ResponseWriter, r *httpx.Request, text string) {
	if r.Encoding != httpx.EncodingGzip {
		writeText(w, []byte(text), "")
		return
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(text)); err != nil {
		w.Abort(err)
		return
	}
	if err := zw.Close(); err != nil {
		w.Abort(err)
		return
	}
	writeText(w, buf.Bytes(), httpx.EncodingGzip)
}

func writeText(w httpx.ResponseWriter, body []byte, encoding string) {
	h := w.Header()
	h.Set("Content-Type", "text/plain")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	if encoding != "" {
		h.Set("Content-Encoding", encoding)
	}
	w.WriteHeader(httpx.StatusOK)
	w.Write(body)
}

func (m *Mux) getFile(w httpx.ResponseWriter, r *httpx.Request, name string) {
	if m.Files == nil {
		w.WriteHeader(httpx.StatusNotFound)
		return
	}
	data, err := m.Files.Read(name)
	if err != nil {
		if !errors.Is(err, filestore.ErrNotFound) && !errors.Is(err, filestore.ErrInvalidName) {
			m.logf(r, obs.Warn, "read %q: %v", name, err)
		}
		w.WriteHeader(httpx.StatusNotFound)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(httpx.StatusOK)
	w.Write(data)
}

func (m *Mux) postFile(w httpx.ResponseWriter, r *httpx.Request, name string) {
	if m.Files == nil {
		w.WriteHeader(httpx.StatusNotFound)
		return
	}
	if err := m.Files.Write(name, r.Body); err != nil {
		if errors.Is(err, filestore.ErrInvalidName) {
			m.logf(r, obs.Warn, "rejected file name %q", name)
			w.WriteHeader(httpx.StatusNotFound)
			return
		}
		w.Abort(err)
		return
	}
	m.logf(r, obs.Debug, "stored %d bytes in %q", len(r.Body), name)
	w.WriteHeader(httpx.StatusCreated)
}

func (m *Mux) logf(r *httpx.Request, level obs.Level, format string, args ...interface{}) {
	lg := m.Logger
	if lg == nil {
		return
	}
	if id, ok := httpx.RequestIDFrom(r.Context()); ok {
		lg = obs.With(lg, "conn", id)
	}
	lg.Logf(level, format, args...)
}
