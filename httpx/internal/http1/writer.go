package http1

import (
	"fmt"
	"io"
	"strings"
)

// Field is one response header line.
type Field struct {
	Name  string
	Value string
}

// WriteResponse writes a complete HTTP/1.1 response: status line, the
// header fields in the given order, the blank line and the body.
// Fields whose name is not a valid token are skipped.
func WriteResponse(w io.Writer, status int, reason string, hdr []Field, body []byte) error {
	if reason == "" {
		reason = statusText(status)
	}
	if _, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n", status, reason); err != nil {
		return err
	}
	for _, f := range hdr {
		if !validHeaderName(f.Name) {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", f.Name, sanitizeHeaderValue(f.Value)); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return err
		}
	}
	return nil
}

// statusText returns the reason phrase for the status codes the server
// emits, or "" for unknown codes.
func statusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 204:
		return "No Content"
	case 400:
		return "Bad Request"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 413:
		return "Content Too Large"
	case 500:
		return "Internal Server Error"
	case 501:
		return "Not Implemented"
	default:
		return ""
	}
}

// validHeaderName reports whether k is a non-empty RFC 9110 token.
func validHeaderName(k string) bool {
	if k == "" {
		return false
	}
	for i := 0; i < len(k); i++ {
		c := k[i]
		if 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' {
			continue
		}
		if !strings.ContainsRune("!#$%&'*+-.^_`|~", rune(c)) {
			return false
		}
	}
	return true
}

// sanitizeHeaderValue drops CR, LF, DEL and every control byte but HTAB,
// so a value can never end the header line early. Other bytes pass
// through untouched.
func sanitizeHeaderValue(v string) string {
	clean := func(c byte) bool { return c == '\t' || (c >= 0x20 && c != 0x7f) }
	i := 0
	for i < len(v) && clean(v[i]) {
		i++
	}
	if i == len(v) {
		return v
	}
	b := []byte(v[:i])
	for ; i < len(v); i++ {
		if clean(v[i]) {
			b = append(b, v[i])
		}
	}
	return string(b)
}
