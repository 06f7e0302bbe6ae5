package httpx

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"dqx0.com/go/tinyhttp/httpx/internal/http1"
	"dqx0.com/go/tinyhttp/internal/obs"
)

type Handler interface {
	ServeHTTP(ResponseWriter, *Request)
}

type HandlerFunc func(ResponseWriter, *Request)

func (f HandlerFunc) ServeHTTP(w ResponseWriter, r *Request) {
	f(w, r)
}

// ResponseWriter buffers a handler's response. Nothing reaches the
// connection until the handler returns.
type ResponseWriter interface {
	Header() *Header
	Write([]byte) (int, error)
	WriteHeader(status int)
	// Abort discards the response; the server closes the connection
	// without writing anything.
	Abort(err error)
}

// Server accepts connections and serves exactly one request on each,
// every connection on its own goroutine.
type Server struct {
	Addr           string
	Handler        Handler
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxHeaderBytes int
	MaxBodyBytes   int64

	Logger obs.Logger
	Meter  obs.Meter

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	closed    bool
}

func (s *Server) ListenAndServe() error {
	addr := s.Addr
	if addr == "" {
		addr = ":4221"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve runs the accept loop on l until Close is called or l fails for
// good. It always returns a non-nil error; ErrServerClosed after Close.
func (s *Server) Serve(l net.Listener) error {
	if !s.track(l, true) {
		l.Close()
		return ErrServerClosed
	}
	defer s.track(l, false)
	defer l.Close()

	s.logf(obs.Info, "listening on %s", l.Addr())
	var delay time.Duration
	for {
		c, err := l.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else if delay *= 2; delay > time.Second {
				delay = time.Second
			}
			s.logf(obs.Warn, "accept error: %v; retrying in %v", err, delay)
			time.Sleep(delay)
			continue
		}
		delay = 0
		go s.serveConn(c)
	}
}

// Close stops every accept loop. Connections already accepted run to
// completion.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	var err error
	for l := range s.listeners {
		if cerr := l.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	s.listeners = nil
	return err
}

func (s *Server) track(l net.Listener, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		if s.closed {
			return false
		}
		if s.listeners == nil {
			s.listeners = make(map[net.Listener]struct{})
		}
		s.listeners[l] = struct{}{}
	} else {
		delete(s.listeners, l)
	}
	return true
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) serveConn(c net.Conn) {
	start := time.Now()
	id := genID()
	lg := obs.With(s.logger(), "conn", id)
	defer func() {
		if v := recover(); v != nil {
			lg.Logf(obs.Error, "panic serving %s: %v\n%s", c.RemoteAddr(), v, debug.Stack())
			s.counter("httpx_server_request_errors_total", 1, obs.Label{Key: "stage", Value: "handler"})
		}
		c.Close()
	}()
	s.counter("httpx_server_connections_total", 1)

	if s.ReadTimeout > 0 {
		_ = c.SetReadDeadline(time.Now().Add(s.ReadTimeout))
	}
	rr := &http1.Reader{BR: bufio.NewReader(c), MaxHeaderBytes: s.headerLimit(), MaxBodyBytes: s.MaxBodyBytes}
	pr, err := rr.ReadRequest()
	if err != nil {
		if errors.Is(err, ErrEmptyRequest) {
			lg.Logf(obs.Debug, "%s closed without sending a request", c.RemoteAddr())
			return
		}
		lg.Logf(obs.Warn, "read request from %s: %v", c.RemoteAddr(), err)
		s.counter("httpx_server_request_errors_total", 1, obs.Label{Key: "stage", Value: readStage(err)})
		return
	}

	r := newRequest(pr)
	r.RemoteAddr = c.RemoteAddr().String()
	r.ctx = WithRequestID(context.Background(), id)
	method := obs.Label{Key: "method", Value: methodLabel(r.Method)}
	s.counter("httpx_server_requests_total", 1, method)

	w := &responseBuffer{}
	h := s.Handler
	if h == nil {
		h = HandlerFunc(func(w ResponseWriter, r *Request) {
			w.WriteHeader(StatusNotFound)
		})
	}
	h.ServeHTTP(w, r)
	if w.abort != nil {
		lg.Logf(obs.Error, "%s %s aborted: %v", r.Method, r.Path, w.abort)
		s.counter("httpx_server_request_errors_total", 1, obs.Label{Key: "stage", Value: "handler"})
		return
	}

	var buf bytes.Buffer
	if err := w.writeTo(&buf); err != nil {
		lg.Logf(obs.Error, "serialize response: %v", err)
		return
	}
	if s.WriteTimeout > 0 {
		_ = c.SetWriteDeadline(time.Now().Add(s.WriteTimeout))
	}
	if _, err := c.Write(buf.Bytes()); err != nil {
		lg.Logf(obs.Warn, "write response to %s: %v", c.RemoteAddr(), err)
		s.counter("httpx_server_request_errors_total", 1, obs.Label{Key: "stage", Value: "write"})
		return
	}
	status := strconv.Itoa(w.status)
	s.counter("httpx_server_responses_total", 1, obs.Label{Key: "status", Value: status})
	s.histogram("httpx_server_request_duration_seconds", time.Since(start).Seconds(), method)
	lg.Logf(obs.Info, "%s %s %s %d %dB", r.RemoteAddr, r.Method, r.Path, w.status, w.bodyBuf.Len())
}

// methodLabel bounds the label set: the method comes from the client.
func methodLabel(m string) string {
	switch m {
	case "GET", "POST":
		return m
	default:
		return "other"
	}
}

func readStage(err error) string {
	switch {
	case errors.Is(err, ErrMalformedRequest):
		return "parse"
	case errors.Is(err, ErrHeaderTooLarge), errors.Is(err, ErrBodyTooLarge):
		return "limit"
	case errors.Is(err, ErrTruncatedBody):
		return "body"
	default:
		return "read"
	}
}

func (s *Server) headerLimit() int {
	if s.MaxHeaderBytes <= 0 {
		return 8 << 10
	}
	return s.MaxHeaderBytes
}

func (s *Server) logger() obs.Logger {
	if s.Logger == nil {
		return obs.NopLogger{}
	}
	return s.Logger
}

func (s *Server) logf(level obs.Level, format string, args ...interface{}) {
	s.logger().Logf(level, format, args...)
}

func (s *Server) meter() obs.Meter {
	if s.Meter == nil {
		return obs.NopMeter{}
	}
	return s.Meter
}

func (s *Server) counter(name string, value float64, labels ...obs.Label) {
	s.meter().Counter(name, value, labels...)
}

func (s *Server) histogram(name string, value float64, labels ...obs.Label) {
	s.meter().Histogram(name, value, labels...)
}
