// Package httpx is a small HTTP/1.1 server that works directly on
// net.Conn: one request and one response per connection, then close.
//
// Highlights
//   - Parsing reads the request line and headers byte by byte, so the
//     body that follows is never over-read; the body itself is exactly
//     Content-Length bytes or the connection is dropped.
//   - Only User-Agent, Content-Length and Accept-Encoding are kept from
//     the request headers; Accept-Encoding is reduced to a gzip/identity
//     decision.
//   - Handlers write into a buffer; the server adds Content-Length and
//     sends the whole response with a single write.
//   - Malformed or truncated requests are closed without a response.
//   - Observability: plug‑in Logger and Meter interfaces.
//
// Quick start:
//
//	s := &httpx.Server{Addr: ":4221"}
//	s.Handler = httpx.HandlerFunc(func(w httpx.ResponseWriter, r *httpx.Request) {
//	    w.Header().Set("Content-Type", "text/plain")
//	    w.WriteHeader(200)
//	    w.Write([]byte("hello"))
//	})
//	if err := s.ListenAndServe(); err != nil { log.Fatal(err) }
package httpx
