package http1

import (
	"io"
	"strings"
)

// LineReader splits a byte stream into CRLF-terminated lines.
//
// It pulls one byte at a time from the underlying reader and stops right
// after the LF of each terminator, so whatever follows the header block
// (the request body) is left unread.
type LineReader struct {
	br  io.ByteReader
	max int
	eof bool
}

// NewLineReader returns a LineReader over br. A positive maxLen bounds the
// length of a single line.
func NewLineReader(br io.ByteReader, maxLen int) *LineReader {
	return &LineReader{br: br, max: maxLen}
}

// Next returns the next line without its CRLF terminator.
//
// It returns io.EOF once the stream ends with no bytes since the previous
// line; an empty line is returned as "" with a nil error. A trailing
// partial line is returned as-is and the following call reports io.EOF.
func (lr *LineReader) Next() (string, error) {
	if lr.eof {
		return "", io.EOF
	}
	var sb strings.Builder
	cr := false
	for {
		b, err := lr.br.ReadByte()
		if err != nil {
			if err != io.EOF {
				return "", err
			}
			lr.eof = true
			if sb.Len() == 0 && !cr {
				return "", io.EOF
			}
			if cr {
				sb.WriteByte('\r')
			}
			return sb.String(), nil
		}
		if cr {
			if b == '\n' {
				return sb.String(), nil
			}
			sb.WriteByte('\r')
			cr = false
		}
		if b == '\r' {
			cr = true
		} else {
			sb.WriteByte(b)
		}
		if lr.max > 0 && sb.Len() > lr.max {
			return "", ErrLineTooLong
		}
	}
}
