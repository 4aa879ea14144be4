package sip2

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	// readBlockSize is the number of bytes requested from the transport per
	// read call.
	readBlockSize = 4096

	// DefaultMaxResponseSize bounds the accumulation buffer of ReadMessage
	// for the client's own calls. Responses are typically well under 1 KiB;
	// anything larger than this is a broken or hostile peer.
	DefaultMaxResponseSize = 64 * 1024
)

// ReadMessage reads from t until the accumulated buffer contains a message
// terminator (carriage return or line feed), then returns the buffer,
// terminator included.
//
// It fails with ErrResponseTooLarge once the buffer exceeds maxSize, even
// if a terminator arrived in the same read, and with ErrConnClosed when the
// stream ends before any terminator is seen. Transport read errors
// (including timeouts) are wrapped and returned as-is.
func ReadMessage(t Transport, maxSize int) ([]byte, error) {
	buf := make([]byte, 0, readBlockSize)
	chunk := make([]byte, readBlockSize)

	for {
		n, err := t.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)

			if len(buf) > maxSize {
				return nil, fmt.Errorf("%w: %d bytes buffered, limit %d", ErrResponseTooLarge, len(buf), maxSize)
			}
			if bytes.ContainsAny(buf[len(buf)-n:], "\r\n") {
				return buf, nil
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrConnClosed
			}

			return nil, fmt.Errorf("sip2: read message: %w", err)
		}

		if n == 0 {
			return nil, ErrConnClosed
		}
	}
}
