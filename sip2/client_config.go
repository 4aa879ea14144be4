package sip2

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/bonniegee/circulation/logger"
)

// Defaults for client configuration.
const (
	// DefaultSeparator is the variable-field separator character.
	DefaultSeparator byte = '|'

	// DefaultMaxRetries is the total number of send attempts per logical
	// command, the first attempt included.
	DefaultMaxRetries = 5

	// DefaultTimeout is the socket read timeout.
	DefaultTimeout = 12 * time.Second

	// DefaultConnectTimeout is the TCP dial and TLS handshake timeout.
	DefaultConnectTimeout = 12 * time.Second

	// MaxRetryLimit caps the configurable attempt budget.
	MaxRetryLimit = 31
)

// DefaultEncoding is the wire encoding assumed when none is configured:
// code page 850, the de facto standard of legacy ILS deployments.
var DefaultEncoding encoding.Encoding = charmap.CodePage850

// ClientConfig holds all configuration for one SIP2 client connection.
// Build it with NewClientConfig and the With* options.
type ClientConfig struct {
	host string
	port int

	// Staff credentials. A configured login user id makes the client log in
	// before any other command on the session.
	loginUserID   string
	loginPassword string
	locationCode  string

	// Institution context sent on patron requests.
	institutionID    string
	terminalPassword string

	separator  byte
	enc        encoding.Encoding
	dialect    Dialect
	maxRetries int

	timeout        time.Duration
	connectTimeout time.Duration

	useTLS             bool
	tlsCert            []byte
	tlsKey             []byte
	insecureSkipVerify bool

	logger logger.Logger
}

// NewClientConfig creates a client configuration for the ILS at host:port.
// opts are functional options applied in order; see the With* functions.
func NewClientConfig(host string, port int, opts ...Option) (*ClientConfig, error) {
	cfg := &ClientConfig{
		separator:      DefaultSeparator,
		enc:            DefaultEncoding,
		dialect:        DialectGenericILS,
		maxRetries:     DefaultMaxRetries,
		timeout:        DefaultTimeout,
		connectTimeout: DefaultConnectTimeout,
		logger:         logger.GetLogger(),
	}

	if host == "" {
		return nil, errors.New("sip2: host must not be empty")
	}
	cfg.host = host

	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("sip2: port %d out of range [0, 65535]", port)
	}
	cfg.port = port

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// --- Getters ---

// Host returns the configured ILS host.
func (cfg *ClientConfig) Host() string { return cfg.host }

// Port returns the configured TCP port.
func (cfg *ClientConfig) Port() int { return cfg.port }

// Addr returns "host:port".
func (cfg *ClientConfig) Addr() string { return fmt.Sprintf("%s:%d", cfg.host, cfg.port) }

// LoginUserID returns the staff login user id, empty when not configured.
func (cfg *ClientConfig) LoginUserID() string { return cfg.loginUserID }

// MustLogIn reports whether the client has credentials and therefore must
// issue a Login before any other command on a fresh session.
func (cfg *ClientConfig) MustLogIn() bool { return cfg.loginUserID != "" }

// InstitutionID returns the AO institution id sent on requests, empty when
// not configured.
func (cfg *ClientConfig) InstitutionID() string { return cfg.institutionID }

// Separator returns the variable-field separator character.
func (cfg *ClientConfig) Separator() byte { return cfg.separator }

// Encoding returns the wire encoding.
func (cfg *ClientConfig) Encoding() encoding.Encoding { return cfg.enc }

// Dialect returns the configured vendor dialect.
func (cfg *ClientConfig) Dialect() Dialect { return cfg.dialect }

// MaxRetries returns the total attempt budget per logical command.
func (cfg *ClientConfig) MaxRetries() int { return cfg.maxRetries }

// Timeout returns the socket read timeout.
func (cfg *ClientConfig) Timeout() time.Duration { return cfg.timeout }

// ConnectTimeout returns the dial and TLS handshake timeout.
func (cfg *ClientConfig) ConnectTimeout() time.Duration { return cfg.connectTimeout }

// UseTLS reports whether the connection is upgraded to TLS after dialing.
func (cfg *ClientConfig) UseTLS() bool { return cfg.useTLS }

// GetLogger returns the configured logger.
func (cfg *ClientConfig) GetLogger() logger.Logger { return cfg.logger }

// --- Option ---

// Option is a functional option for configuring a ClientConfig.
type Option interface {
	apply(*ClientConfig) error
}

type optFunc func(*ClientConfig) error

func (f optFunc) apply(cfg *ClientConfig) error { return f(cfg) }

// WithLoginUserID sets the staff login user id (CN field). Configuring a
// user id obliges the client to log in before other commands.
func WithLoginUserID(id string) Option {
	return optFunc(func(cfg *ClientConfig) error {
		cfg.loginUserID = id
		return nil
	})
}

// WithLoginPassword sets the staff login password (CO field). The password
// is optional even when a user id is configured.
func WithLoginPassword(password string) Option {
	return optFunc(func(cfg *ClientConfig) error {
		cfg.loginPassword = password
		return nil
	})
}

// WithLocationCode sets the login location code (CP field), appended to the
// login request only when non-empty.
func WithLocationCode(code string) Option {
	return optFunc(func(cfg *ClientConfig) error {
		cfg.locationCode = code
		return nil
	})
}

// WithInstitutionID sets the institution id (AO field). The field itself is
// always emitted on requests that carry it, empty when unset, so fixed
// offsets stay stable.
func WithInstitutionID(id string) Option {
	return optFunc(func(cfg *ClientConfig) error {
		cfg.institutionID = id
		return nil
	})
}

// WithTerminalPassword sets the terminal password (AC field).
func WithTerminalPassword(password string) Option {
	return optFunc(func(cfg *ClientConfig) error {
		cfg.terminalPassword = password
		return nil
	})
}

// WithSeparator sets the variable-field separator character. Control
// characters are rejected, the message terminators in particular.
func WithSeparator(sep byte) Option {
	return optFunc(func(cfg *ClientConfig) error {
		if sep < 0x20 || sep == 0x7F {
			return fmt.Errorf("sip2: separator 0x%02X is a control character", sep)
		}
		cfg.separator = sep

		return nil
	})
}

// WithEncoding sets the wire encoding for both requests and responses.
func WithEncoding(enc encoding.Encoding) Option {
	return optFunc(func(cfg *ClientConfig) error {
		if enc == nil {
			return errors.New("sip2: encoding must not be nil")
		}
		cfg.enc = enc

		return nil
	})
}

// WithDialect selects the vendor dialect. Unregistered dialects fall back
// to generic ILS behavior at call time.
func WithDialect(d Dialect) Option {
	return optFunc(func(cfg *ClientConfig) error {
		cfg.dialect = d
		return nil
	})
}

// WithMaxRetries sets the total attempt budget per logical command, the
// first attempt included. Must be in [1, MaxRetryLimit].
func WithMaxRetries(n int) Option {
	return optFunc(func(cfg *ClientConfig) error {
		if n < 1 || n > MaxRetryLimit {
			return fmt.Errorf("sip2: max retries %d out of range [1, %d]", n, MaxRetryLimit)
		}
		cfg.maxRetries = n

		return nil
	})
}

// WithTimeout sets the socket read timeout.
func WithTimeout(d time.Duration) Option {
	return optFunc(func(cfg *ClientConfig) error {
		if d <= 0 {
			return errors.New("sip2: timeout must be positive")
		}
		cfg.timeout = d

		return nil
	})
}

// WithConnectTimeout sets the TCP dial and TLS handshake timeout.
func WithConnectTimeout(d time.Duration) Option {
	return optFunc(func(cfg *ClientConfig) error {
		if d <= 0 {
			return errors.New("sip2: connect timeout must be positive")
		}
		cfg.connectTimeout = d

		return nil
	})
}

// WithTLS upgrades the connection to TLS after dialing, without a client
// certificate.
func WithTLS() Option {
	return optFunc(func(cfg *ClientConfig) error {
		cfg.useTLS = true
		return nil
	})
}

// WithTLSCertificate supplies an in-memory client certificate and private
// key in PEM form, and implies TLS. The material is staged to temporary
// files only for the duration of the handshake's key pair load and removed
// before Dial returns, on every path.
func WithTLSCertificate(certPEM, keyPEM []byte) Option {
	return optFunc(func(cfg *ClientConfig) error {
		if len(certPEM) == 0 || len(keyPEM) == 0 {
			return errors.New("sip2: TLS certificate and key must both be non-empty")
		}
		cfg.useTLS = true
		cfg.tlsCert = certPEM
		cfg.tlsKey = keyPEM

		return nil
	})
}

// WithInsecureSkipVerify disables server certificate verification. Some
// legacy ILS appliances ship self-signed certificates; prefer installing
// their certificate in the trust store over this option.
func WithInsecureSkipVerify() Option {
	return optFunc(func(cfg *ClientConfig) error {
		cfg.insecureSkipVerify = true
		return nil
	})
}

// WithLogger sets the logger for the client.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *ClientConfig) error {
		if l == nil {
			return errors.New("sip2: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
