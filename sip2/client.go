package sip2

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bonniegee/circulation/logger"
)

// Client is a SIP2 client bound to one logical session with an ILS.
//
// A Client owns its transport, sequence counter, dialect, and encoding. All
// operations are strictly synchronous request/response: one in-flight
// message at a time, a response always matched to the immediately preceding
// request. A mutex serializes each full request/response cycle, so a Client
// may be shared across goroutines, though interleaved callers still share
// one session and one sequence counter.
type Client struct {
	cfg    *ClientConfig
	logger logger.Logger
	parser *Parser

	// now is the clock used for request timestamps.
	now func() time.Time

	mu        sync.Mutex
	transport Transport
	seq       int
	loggedIn  bool
}

// NewClient creates a Client from cfg. The client is not connected until
// Connect is called.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("sip2: client config is nil")
	}

	return &Client{
		cfg:    cfg,
		logger: cfg.GetLogger(),
		parser: NewParser(cfg.Encoding(), cfg.Separator(), cfg.GetLogger()),
		now:    time.Now,
	}, nil
}

// Connect dials the ILS described by the client's configuration, replacing
// any previous transport. The sequence counter and login state reset with
// the new session.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transport != nil {
		_ = c.transport.Close()
	}

	t, err := Dial(c.cfg)
	if err != nil {
		return err
	}

	c.transport = t
	c.seq = 0
	c.loggedIn = false
	c.logger.Debug("sip2: connected", "addr", c.cfg.Addr(), "tls", c.cfg.UseTLS())

	return nil
}

// Close releases the transport. The client may be reconnected later.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transport == nil {
		return nil
	}

	err := c.transport.Close()
	c.transport = nil
	c.loggedIn = false

	return err
}

// Login authenticates the configured staff credentials with a 93 Login
// request and requires a positive 94 response.
//
// Without configured credentials Login is a no-op returning (nil, nil): the
// session is implicitly logged in. A rejected login fails with
// ErrLoginFailed.
func (c *Client) Login(ctx context.Context) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.login(ctx)
}

// PatronInformation retrieves the patron record for patronID with a 63
// Patron Information request. patronPassword may be empty, in which case
// the AD field is omitted.
//
// When the client has credentials and has not yet logged in on this
// session, the login happens first; a login failure aborts the call before
// any patron-information bytes are written.
//
// The returned response carries the decoded patron-status flags in
// Response.PatronStatus alongside the raw fields.
func (c *Client) PatronInformation(ctx context.Context, patronID, patronPassword string) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}

	body := c.patronInformationMessage(patronID, patronPassword)

	return c.makeRequest(ctx, body, MsgPatronInformationResponse)
}

// EndSession closes the patron session with a 35 End Patron Session
// request.
//
// Dialects that suppress the exchange (see DialectPolicy.SendEndSession)
// make EndSession return (nil, nil) immediately, with zero reads and zero
// writes on the transport.
func (c *Client) EndSession(ctx context.Context, patronID, patronPassword string) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !PolicyFor(c.cfg.Dialect()).SendEndSession {
		c.logger.Debug("sip2: dialect suppresses end session", "dialect", c.cfg.Dialect())

		return nil, nil
	}

	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}

	body := c.endSessionMessage(patronID, patronPassword)

	return c.makeRequest(ctx, body, MsgEndSessionResponse)
}

// login implements Login; callers hold c.mu.
func (c *Client) login(ctx context.Context) (*Response, error) {
	if !c.cfg.MustLogIn() {
		return nil, nil
	}

	resp, err := c.makeRequest(ctx, c.loginMessage(), MsgLoginResponse)
	if err != nil {
		return nil, err
	}

	if resp.Get(KeyLoginOK) != "1" {
		return nil, fmt.Errorf("%w: user %q", ErrLoginFailed, c.cfg.LoginUserID())
	}

	c.loggedIn = true

	return resp, nil
}

// ensureLoggedIn performs the login exchange when credentials are
// configured and the session has not logged in yet. A failure propagates
// before the dependent command sends anything.
func (c *Client) ensureLoggedIn(ctx context.Context) error {
	if !c.cfg.MustLogIn() || c.loggedIn {
		return nil
	}

	_, err := c.login(ctx)

	return err
}

// makeRequest drives one logical command through the send/receive/resend
// loop and advances the sequence counter on success.
//
// The first attempt carries the AY sequence field; every resend attempt,
// triggered by a 96 Request SC Resend status, is rebuilt without it. The
// loop is bounded by the configured attempt budget; exhausting it fails
// with ErrRetriesExhausted. Any status other than 96 ends the loop, and
// must then match expectStatus. The sequence counter advances exactly once
// per successful call, regardless of how many resends occurred.
func (c *Client) makeRequest(ctx context.Context, body, expectStatus string) (*Response, error) {
	if c.transport == nil {
		return nil, ErrNotConnected
	}

	wire, err := NewMessage(body, c.cfg.Separator()).Pack(c.seq, true, c.cfg.Encoding())
	if err != nil {
		return nil, err
	}

	attempts := 0

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if attempts >= c.cfg.MaxRetries() {
			return nil, fmt.Errorf("%w: after %d attempts", ErrRetriesExhausted, attempts)
		}

		c.logger.Debug("sip2: send", "request", strings.TrimRight(string(wire), "\r"))

		if err := c.transport.Write(wire); err != nil {
			return nil, fmt.Errorf("sip2: write request: %w", err)
		}

		raw, err := ReadMessage(c.transport, DefaultMaxResponseSize)
		if err != nil {
			return nil, err
		}
		attempts++

		resp, err := c.parser.Parse(raw)
		if err != nil {
			return nil, err
		}

		c.logger.Debug("sip2: recv", "status", resp.Status, "attempt", attempts)

		if resp.Status == MsgRequestResend {
			// Retransmit without the sequence field; the checksum changes
			// with it.
			wire, err = NewMessage(body, c.cfg.Separator()).Pack(c.seq, false, c.cfg.Encoding())
			if err != nil {
				return nil, err
			}

			continue
		}

		if resp.Status != expectStatus {
			return nil, fmt.Errorf("%w: got %s, want %s", ErrUnexpectedResponse, resp.Status, expectStatus)
		}

		c.seq = (c.seq + 1) % 10

		return resp, nil
	}
}

// --- Request bodies ---

// loginMessage builds the 93 Login request body:
//
//	93<00><CN user>|<CO password>[|<CP location>]
func (c *Client) loginMessage() string {
	return NewMessage(MsgLogin, c.cfg.Separator()).
		AppendFixed(loginPlaintext).
		AppendField("CN", c.cfg.loginUserID).
		AppendField("CO", c.cfg.loginPassword).
		AppendOptionalField("CP", c.cfg.locationCode).
		String()
}

// patronInformationMessage builds the 63 Patron Information request body.
// The AO and AC fields are always emitted, empty when unconfigured, so the
// AO field starts at character offset 33 in every configuration.
func (c *Client) patronInformationMessage(patronID, patronPassword string) string {
	return NewMessage(MsgPatronInformation, c.cfg.Separator()).
		AppendFixed(unknownLanguage).
		AppendFixed(c.timestamp()).
		AppendFixed(strings.Repeat(" ", summaryWidth)).
		AppendField("AO", c.cfg.institutionID).
		AppendField("AA", patronID).
		AppendField("AC", c.cfg.terminalPassword).
		AppendOptionalField("AD", patronPassword).
		String()
}

// endSessionMessage builds the 35 End Patron Session request body.
func (c *Client) endSessionMessage(patronID, patronPassword string) string {
	return NewMessage(MsgEndPatronSession, c.cfg.Separator()).
		AppendFixed(c.timestamp()).
		AppendField("AO", c.cfg.institutionID).
		AppendField("AA", patronID).
		AppendOptionalField("AD", patronPassword).
		String()
}

// timestamp renders the local time in the 18-character SIP2 transaction
// date format: YYYYMMDD, four zone characters (always zeros), HHMMSS.
func (c *Client) timestamp() string {
	t := c.now()

	return t.Format("20060102") + "0000" + t.Format("150405")
}
