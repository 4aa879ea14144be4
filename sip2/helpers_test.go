package sip2

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding"

	"github.com/bonniegee/circulation/logger"
)

// mockTransport is an in-memory Transport with canned responses and call
// counters, satisfying the same read/write contract as the TCP transport.
// Each queued response is handed out as its own stream chunk, the way a
// server delivers one message per request.
type mockTransport struct {
	responses  [][]byte
	requests   [][]byte
	readCount  int
	writeCount int
	closed     bool
}

// queueRaw queues one response exactly as given, terminator included or not.
func (m *mockTransport) queueRaw(b []byte) {
	m.responses = append(m.responses, b)
}

// queue queues one response encoded with enc, appending a CR terminator
// when s does not already end in one.
func (m *mockTransport) queue(t *testing.T, enc encoding.Encoding, s string) {
	t.Helper()

	raw, err := encodeText(s, enc)
	require.NoError(t, err)

	if len(raw) == 0 || (raw[len(raw)-1] != '\r' && raw[len(raw)-1] != '\n') {
		raw = append(raw, '\r')
	}
	m.queueRaw(raw)
}

func (m *mockTransport) Read(p []byte) (int, error) {
	m.readCount++

	if len(m.responses) == 0 {
		return 0, io.EOF
	}

	r := m.responses[0]
	n := copy(p, r)
	if n < len(r) {
		m.responses[0] = r[n:]
	} else {
		m.responses = m.responses[1:]
	}

	return n, nil
}

func (m *mockTransport) Write(p []byte) error {
	m.writeCount++

	cp := make([]byte, len(p))
	copy(cp, p)
	m.requests = append(m.requests, cp)

	return nil
}

func (m *mockTransport) Close() error {
	m.closed = true
	return nil
}

// quietLogger suppresses the checksum-mismatch warnings that canned test
// responses with made-up checksums would otherwise print.
func quietLogger() logger.Logger {
	return logger.NewSlog(logger.ErrorLevel, false)
}

// testTime is the fixed clock of newTestClient, matching the transaction
// dates used in the canned responses.
var testTime = time.Date(2016, 10, 5, 11, 47, 34, 0, time.UTC)

// newTestClient creates a client backed by a fresh mockTransport, with a
// fixed clock so request bodies are deterministic.
func newTestClient(t *testing.T, opts ...Option) (*Client, *mockTransport) {
	t.Helper()

	defaults := []Option{WithLogger(quietLogger())}

	cfg, err := NewClientConfig("127.0.0.1", 6001, append(defaults, opts...)...)
	require.NoError(t, err)

	c, err := NewClient(cfg)
	require.NoError(t, err)

	mt := &mockTransport{}
	c.transport = mt
	c.now = func() time.Time { return testTime }

	return c, mt
}

// withCredentials is the option set of a client that must log in.
func withCredentials() []Option {
	return []Option{
		WithLoginUserID("user_id"),
		WithLoginPassword("password"),
	}
}
