package sip2

import (
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"time"
)

// Transport is a connected byte stream to an ILS.
//
// Read follows io.Reader semantics: a read returning 0 bytes with io.EOF
// signals the stream has ended. Implementations apply their own read
// timeout; ReadMessage and the client never block past it.
type Transport interface {
	// Read reads up to len(p) bytes into p.
	Read(p []byte) (int, error)
	// Write writes all of p or fails.
	Write(p []byte) error
	// Close releases the underlying connection.
	Close() error
}

// tcpTransport is the production Transport: a TCP (optionally TLS-wrapped)
// connection with a read deadline applied before every read call.
type tcpTransport struct {
	conn    net.Conn
	timeout time.Duration
}

func (t *tcpTransport) Read(p []byte) (int, error) {
	if t.timeout > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
			return 0, err
		}
	}

	return t.conn.Read(p)
}

func (t *tcpTransport) Write(p []byte) error {
	for written := 0; written < len(p); {
		n, err := t.conn.Write(p[written:])
		written += n

		if err != nil {
			return err
		}
	}

	return nil
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

// Dial establishes the TCP, and optionally TLS, connection described by
// cfg and returns it as a Transport.
func Dial(cfg *ClientConfig) (Transport, error) {
	conn, err := net.DialTimeout("tcp", cfg.Addr(), cfg.ConnectTimeout())
	if err != nil {
		return nil, fmt.Errorf("sip2: connect %s: %w", cfg.Addr(), err)
	}

	if cfg.UseTLS() {
		tlsConn, err := upgradeTLS(conn, cfg)
		if err != nil {
			_ = conn.Close()

			return nil, err
		}
		conn = tlsConn
	}

	return &tcpTransport{conn: conn, timeout: cfg.Timeout()}, nil
}

// upgradeTLS wraps conn in a client TLS session per cfg, performing the
// handshake under the connect timeout.
func upgradeTLS(conn net.Conn, cfg *ClientConfig) (net.Conn, error) {
	tlsCfg := &tls.Config{
		ServerName:         cfg.Host(),
		InsecureSkipVerify: cfg.insecureSkipVerify, //nolint:gosec // opt-in for legacy appliances
	}

	if len(cfg.tlsCert) > 0 {
		cert, err := stageKeyPair(cfg.tlsCert, cfg.tlsKey)
		if err != nil {
			return nil, err
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	if err := conn.SetDeadline(time.Now().Add(cfg.ConnectTimeout())); err != nil {
		return nil, err
	}

	tlsConn := tls.Client(conn, tlsCfg)
	if err := tlsConn.Handshake(); err != nil {
		return nil, fmt.Errorf("sip2: TLS handshake: %w", err)
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		return nil, err
	}

	return tlsConn, nil
}

// stageKeyPair loads in-memory PEM material through the path-based key
// pair API. The material is written to temporary files for the duration of
// the load call only and removed again on every path out of this function,
// so no credential bytes persist on disk after it returns.
func stageKeyPair(certPEM, keyPEM []byte) (tls.Certificate, error) {
	certPath, err := stageTempFile("sip2cert", certPEM)
	if err != nil {
		return tls.Certificate{}, err
	}
	defer func() { _ = os.Remove(certPath) }()

	keyPath, err := stageTempFile("sip2key", keyPEM)
	if err != nil {
		return tls.Certificate{}, err
	}
	defer func() { _ = os.Remove(keyPath) }()

	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("sip2: load client key pair: %w", err)
	}

	return cert, nil
}

// stageTempFile writes data to a fresh temporary file and returns its path.
// The caller owns removal.
func stageTempFile(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("sip2: stage credential file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())

		return "", fmt.Errorf("sip2: stage credential file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())

		return "", fmt.Errorf("sip2: stage credential file: %w", err)
	}

	return f.Name(), nil
}
