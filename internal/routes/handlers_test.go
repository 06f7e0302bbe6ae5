package routes

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"dqx0.com/go/tinyhttp/httpx"
	"dqx0.com/go/tinyhttp/internal/filestore"
	"dqx0.com/go/tinyhttp/internal/obs"
)

func startMux(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	files, err := filestore.Open(dir)
	if err != nil {
		t.Fatalf("filestore: %v", err)
	}
	t.Cleanup(func() { _ = files.Close() })
	return startWith(t, &Mux{Files: files}), dir
}

func startWith(t *testing.T, m *Mux) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &httpx.Server{Handler: m}
	go func() { _ = s.Serve(ln) }()
	t.Cleanup(func() { _ = s.Close() })
	return ln.Addr().String()
}

func exchange(t *testing.T, addr, raw string) string {
	t.Helper()
	c, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.WriteString(c, raw); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = c.(*net.TCPConn).CloseWrite()
	b, err := io.ReadAll(c)
	if err != nil && !errors.Is(err, syscall.ECONNRESET) {
		t.Fatalf("read: %v", err)
	}
	return string(b)
}

func TestRootRoute(t *testing.T) {
	addr, _ := startMux(t)
	if got := exchange(t, addr, "GET / HTTP/1.1\r\nHost: localhost:4221\r\n\r\n"); got != "HTTP/1.1 200 OK\r\n\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestUnknownPathIsNotFound(t *testing.T) {
	addr, _ := startMux(t)
	for _, p := range []string{"/abc", "/echo", "/index.html", "/files"} {
		if got := exchange(t, addr, "GET "+p+" HTTP/1.1\r\n\r\n"); got != "HTTP/1.1 404 Not Found\r\n\r\n" {
			t.Errorf("%s: got %q", p, got)
		}
	}
}

func TestEcho(t *testing.T) {
	addr, _ := startMux(t)
	got := exchange(t, addr, "GET /echo/abc HTTP/1.1\r\n\r\n")
	want := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 3\r\n\r\nabc"
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
	got = exchange(t, addr, "GET /echo/ HTTP/1.1\r\n\r\n")
	want = "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 0\r\n\r\n"
	if got != want {
		t.Fatalf("empty echo: got %q", got)
	}
}

func TestEchoGzip(t *testing.T) {
	addr, _ := startMux(t)
	got := exchange(t, addr, "GET /echo/banana HTTP/1.1\r\nAccept-Encoding: encoding-1, gzip, encoding-2\r\n\r\n")
	head, body, ok := strings.Cut(got, "\r\n\r\n")
	if !ok {
		t.Fatalf("no header block in %q", got)
	}
	if !strings.Contains(head, "\r\nContent-Encoding: gzip") {
		t.Fatalf("headers=%q", head)
	}
	if !strings.Contains(head, "\r\nContent-Length: "+strconv.Itoa(len(body))) {
		t.Fatalf("Content-Length does not match %d-byte body: %q", len(body), head)
	}
	zr, err := gzip.NewReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	dec, _ := io.ReadAll(zr)
	if string(dec) != "banana" {
		t.Fatalf("decoded=%q", dec)
	}
}

func TestEchoUnsupportedEncoding(t *testing.T) {
	addr, _ := startMux(t)
	got := exchange(t, addr, "GET /echo/abc HTTP/1.1\r\nAccept-Encoding: invalid-encoding\r\n\r\n")
	if strings.Contains(got, "Content-Encoding") || !strings.HasSuffix(got, "\r\n\r\nabc") {
		t.Fatalf("got %q", got)
	}
}

func TestUserAgent(t *testing.T) {
	addr, _ := startMux(t)
	got := exchange(t, addr, "GET /user-agent HTTP/1.1\r\nHost: x\r\nUser-Agent: foo/1.0\r\nAccept-Encoding: gzip\r\n\r\n")
	want := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 7\r\n\r\nfoo/1.0"
	if got != want {
		t.Fatalf("got %q\nwant %q", got, want)
	}
	got = exchange(t, addr, "GET /user-agent HTTP/1.1\r\n\r\n")
	if got != "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 0\r\n\r\n" {
		t.Fatalf("no user-agent: got %q", got)
	}
}

func TestFilesRoundTrip(t *testing.T) {
	addr, dir := startMux(t)
	got := exchange(t, addr, "POST /files/name.txt HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello")
	if got != "HTTP/1.1 201 Created\r\n\r\n" {
		t.Fatalf("POST: got %q", got)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "name.txt"))
	if err != nil || string(raw) != "hello" {
		t.Fatalf("on disk=%q err=%v", raw, err)
	}
	got = exchange(t, addr, "GET /files/name.txt HTTP/1.1\r\n\r\n")
	want := "HTTP/1.1 200 OK\r\nContent-Type: application/octet-stream\r\nContent-Length: 5\r\n\r\nhello"
	if got != want {
		t.Fatalf("GET: got %q\nwant %q", got, want)
	}
}

func TestFilesPostOverwrites(t *testing.T) {
	addr, dir := startMux(t)
	exchange(t, addr, "POST /files/f HTTP/1.1\r\nContent-Length: 11\r\n\r\nfirst draft")
	exchange(t, addr, "POST /files/f HTTP/1.1\r\nContent-Length: 3\r\n\r\nend")
	raw, _ := os.ReadFile(filepath.Join(dir, "f"))
	if string(raw) != "end" {
		t.Fatalf("on disk=%q", raw)
	}
}

func TestFilesBinaryContent(t *testing.T) {
	addr, dir := startMux(t)
	data := []byte{0, 1, 2, '\r', '\n', 0xff}
	if err := os.WriteFile(filepath.Join(dir, "bin"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	got := exchange(t, addr, "GET /files/bin HTTP/1.1\r\n\r\n")
	if !strings.HasSuffix(got, "Content-Length: 6\r\n\r\n"+string(data)) {
		t.Fatalf("got %q", got)
	}
}

func TestFilesNotFound(t *testing.T) {
	addr, dir := startMux(t)
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"/files/missing.txt", "/files/", "/files/sub", "/files/../secret"} {
		if got := exchange(t, addr, "GET "+p+" HTTP/1.1\r\n\r\n"); got != "HTTP/1.1 404 Not Found\r\n\r\n" {
			t.Errorf("%s: got %q", p, got)
		}
	}
}

func TestFilesPostRejectsTraversal(t *testing.T) {
	addr, dir := startMux(t)
	got := exchange(t, addr, "POST /files/../escaped HTTP/1.1\r\nContent-Length: 1\r\n\r\nx")
	if got != "HTTP/1.1 404 Not Found\r\n\r\n" {
		t.Fatalf("got %q", got)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escaped")); err == nil {
		t.Fatal("file written outside the serving directory")
	}
}

func TestFilesPostFailureClosesWithoutResponse(t *testing.T) {
	addr, _ := startMux(t)
	// The parent directory does not exist, so creating the file fails.
	got := exchange(t, addr, "POST /files/no/such/dir.txt HTTP/1.1\r\nContent-Length: 1\r\n\r\nx")
	if got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestFilesTruncatedUploadIsDropped(t *testing.T) {
	addr, dir := startMux(t)
	got := exchange(t, addr, "POST /files/part.txt HTTP/1.1\r\nContent-Length: 5\r\n\r\nabc")
	if got != "" {
		t.Fatalf("got %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "part.txt")); err == nil {
		t.Fatal("truncated upload was stored")
	}
}

func TestFilesOtherMethod(t *testing.T) {
	addr, _ := startMux(t)
	if got := exchange(t, addr, "DELETE /files/a HTTP/1.1\r\n\r\n"); got != "HTTP/1.1 404 Not Found\r\n\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestFilesWithoutStore(t *testing.T) {
	addr := startWith(t, &Mux{})
	if got := exchange(t, addr, "GET /files/a HTTP/1.1\r\n\r\n"); got != "HTTP/1.1 404 Not Found\r\n\r\n" {
		t.Fatalf("got %q", got)
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Logf(level obs.Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level.String()+" "+fmt.Sprintf(format, args...))
}

func TestMuxLogsRouteKind(t *testing.T) {
	lg := &recordingLogger{}
	addr := startWith(t, &Mux{Logger: lg})
	exchange(t, addr, "GET /echo/hi HTTP/1.1\r\n\r\n")
	exchange(t, addr, "GET /nope HTTP/1.1\r\n\r\n")

	lg.mu.Lock()
	defer lg.mu.Unlock()
	// Lines carry a conn=<id> prefix between the level and the message.
	want := []string{" GET /echo/hi -> echo", " GET /nope -> not-found"}
	if len(lg.lines) != len(want) {
		t.Fatalf("lines=%q", lg.lines)
	}
	for i, suffix := range want {
		if line := lg.lines[i]; !strings.HasPrefix(line, "DEBUG conn=") || !strings.HasSuffix(line, suffix) {
			t.Errorf("line %d = %q, want DEBUG ...%s", i, line, suffix)
		}
	}
}

func TestConcurrentEchoes(t *testing.T) {
	addr, _ := startMux(t)
	words := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	errs := make(chan string, len(words)*4)
	for i := 0; i < 4; i++ {
		for _, w := range words {
			wg.Add(1)
			go func(w string) {
				defer wg.Done()
				c, err := net.Dial("tcp", addr)
				if err != nil {
					errs <- err.Error()
					return
				}
				defer c.Close()
				_ = c.SetDeadline(time.Now().Add(5 * time.Second))
				io.WriteString(c, "GET /echo/"+w+" HTTP/1.1\r\n\r\n")
				b, _ := io.ReadAll(c)
				if !bytes.HasSuffix(b, []byte("\r\n\r\n"+w)) {
					errs <- w + ": " + string(b)
				}
			}(w)
		}
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}
