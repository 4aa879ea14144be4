package sip2

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

const (
	loginOKResponse     = "941"
	loginFailedResponse = "940"

	endSessionResponse = "36Y201610210000142637AO3|AA25891000331441|AF|AG"
)

func TestClient_LoginSuccess(t *testing.T) {
	c, mt := newTestClient(t, withCredentials()...)
	mt.queue(t, DefaultEncoding, loginOKResponse)

	resp, err := c.Login(context.Background())
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "1", resp.Get(KeyLoginOK))

	require.Len(t, mt.requests, 1)
	assert.Equal(t, "9300CNuser_id|COpassword|AY0AZF556\r", string(mt.requests[0]))
}

func TestClient_LoginFailure(t *testing.T) {
	c, mt := newTestClient(t, withCredentials()...)
	mt.queue(t, DefaultEncoding, loginFailedResponse)

	_, err := c.Login(context.Background())
	require.ErrorIs(t, err, ErrLoginFailed)
	assert.Contains(t, err.Error(), "user_id")
}

func TestClient_LoginWithoutCredentialsIsNoOp(t *testing.T) {
	c, mt := newTestClient(t)

	resp, err := c.Login(context.Background())
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Zero(t, mt.writeCount)
}

func TestClient_LoginWithLocationCode(t *testing.T) {
	opts := append(withCredentials(), WithLocationCode("branch1"))
	c, mt := newTestClient(t, opts...)
	mt.queue(t, DefaultEncoding, loginOKResponse)

	_, err := c.Login(context.Background())
	require.NoError(t, err)

	require.Len(t, mt.requests, 1)
	assert.True(t, strings.HasPrefix(string(mt.requests[0]),
		"9300CNuser_id|COpassword|CPbranch1|AY0AZ"))
}

func TestClient_ResendRebuildsWithoutSequence(t *testing.T) {
	c, mt := newTestClient(t, withCredentials()...)
	mt.queue(t, DefaultEncoding, "96")
	mt.queue(t, DefaultEncoding, loginOKResponse)

	_, err := c.Login(context.Background())
	require.NoError(t, err)

	require.Len(t, mt.requests, 2)
	assert.Equal(t, "9300CNuser_id|COpassword|AY0AZF556\r", string(mt.requests[0]))
	assert.Equal(t, "9300CNuser_id|COpassword|AZF620\r", string(mt.requests[1]))
}

func TestClient_RetriesExhausted(t *testing.T) {
	c, mt := newTestClient(t, withCredentials()...)
	for i := 0; i < DefaultMaxRetries; i++ {
		mt.queue(t, DefaultEncoding, "96")
	}

	_, err := c.Login(context.Background())
	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Len(t, mt.requests, DefaultMaxRetries)

	// The sequence counter only moves on success.
	assert.Equal(t, 0, c.seq)
}

func TestClient_CustomRetryBudget(t *testing.T) {
	opts := append(withCredentials(), WithMaxRetries(2))
	c, mt := newTestClient(t, opts...)
	for i := 0; i < 3; i++ {
		mt.queue(t, DefaultEncoding, "96")
	}

	_, err := c.Login(context.Background())
	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Len(t, mt.requests, 2)
}

func TestClient_PatronInformationLogsInFirst(t *testing.T) {
	c, mt := newTestClient(t, withCredentials()...)
	mt.queue(t, DefaultEncoding, loginOKResponse)
	mt.queue(t, DefaultEncoding, respEmbeddedPipe)

	resp, err := c.PatronInformation(context.Background(), "12345", "")
	require.NoError(t, err)
	assert.Equal(t, "12345", resp.Get(KeyPatronIdentifier))

	require.Len(t, mt.requests, 2)
	assert.True(t, strings.HasPrefix(string(mt.requests[0]), "93"))
	assert.True(t, strings.HasPrefix(string(mt.requests[1]), "63"))
	assert.Equal(t, 2, c.seq)
}

func TestClient_PatronInformationLogsInOnlyOnce(t *testing.T) {
	c, mt := newTestClient(t, withCredentials()...)
	mt.queue(t, DefaultEncoding, loginOKResponse)
	mt.queue(t, DefaultEncoding, respEmbeddedPipe)
	mt.queue(t, DefaultEncoding, respEmbeddedPipe)

	_, err := c.PatronInformation(context.Background(), "12345", "")
	require.NoError(t, err)

	_, err = c.PatronInformation(context.Background(), "12345", "")
	require.NoError(t, err)

	require.Len(t, mt.requests, 3)
	assert.True(t, strings.HasPrefix(string(mt.requests[2]), "63"))
	assert.True(t, strings.Contains(string(mt.requests[2]), "|AY2AZ"))
}

func TestClient_PatronInformationWithoutCredentials(t *testing.T) {
	c, mt := newTestClient(t)
	mt.queue(t, DefaultEncoding, respEmbeddedPipe)

	resp, err := c.PatronInformation(context.Background(), "12345", "")
	require.NoError(t, err)
	assert.Equal(t, "12345", resp.Get(KeyPatronIdentifier))

	require.Len(t, mt.requests, 1)
	assert.True(t, strings.HasPrefix(string(mt.requests[0]), "63"))
	assert.Equal(t, 1, c.seq)
}

func TestClient_LoginFailureAbortsPatronInformation(t *testing.T) {
	c, mt := newTestClient(t, withCredentials()...)
	mt.queue(t, DefaultEncoding, loginFailedResponse)

	_, err := c.PatronInformation(context.Background(), "12345", "")
	require.ErrorIs(t, err, ErrLoginFailed)

	// Only the login request went out, never the patron request.
	require.Len(t, mt.requests, 1)
	assert.True(t, strings.HasPrefix(string(mt.requests[0]), "93"))
}

func TestClient_PatronInformationRequestShape(t *testing.T) {
	c, mt := newTestClient(t)
	mt.queue(t, DefaultEncoding, respEmbeddedPipe)

	_, err := c.PatronInformation(context.Background(), "12345", "")
	require.NoError(t, err)

	req := string(mt.requests[0])
	assert.True(t, strings.HasPrefix(req,
		"63000201610050000114734          AO|AA12345|AC|AY0AZ"))
	assert.True(t, strings.HasSuffix(req, "\r"))

	// The AO field starts at a stable offset even with everything unset.
	assert.Equal(t, "AO|", req[33:36])
}

func TestClient_PatronInformationWithInstitutionAndPasswords(t *testing.T) {
	c, mt := newTestClient(t,
		WithInstitutionID("MAIN"),
		WithTerminalPassword("terminal_password"))
	mt.queue(t, DefaultEncoding, respEmbeddedPipe)

	_, err := c.PatronInformation(context.Background(), "12345", "patron_password")
	require.NoError(t, err)

	req := string(mt.requests[0])
	assert.Equal(t, "AOMAIN|", req[33:40])
	assert.Contains(t, req, "|AA12345|ACterminal_password|ADpatron_password|AY0AZ")
}

func TestClient_EndSession(t *testing.T) {
	c, mt := newTestClient(t)
	mt.queue(t, DefaultEncoding, endSessionResponse)

	resp, err := c.EndSession(context.Background(), "12345", "")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "Y", resp.Get(KeyEndSession))

	require.Len(t, mt.requests, 1)
	assert.True(t, strings.HasPrefix(string(mt.requests[0]),
		"35201610050000114734AO|AA12345|AY0AZ"))
}

func TestClient_EndSessionSuppressedByDialect(t *testing.T) {
	c, mt := newTestClient(t, WithDialect(DialectAutoGraphicsVerso))

	resp, err := c.EndSession(context.Background(), "12345", "")
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Zero(t, mt.writeCount)
	assert.Zero(t, mt.readCount)
}

func TestClient_EndSessionSuppressedByRegisteredDialect(t *testing.T) {
	const quirky = Dialect(2000)
	RegisterDialect(quirky, DialectPolicy{SendEndSession: false})

	c, mt := newTestClient(t, WithDialect(quirky))

	resp, err := c.EndSession(context.Background(), "12345", "")
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Zero(t, mt.writeCount)
}

func TestClient_SequenceWrapsAfterNine(t *testing.T) {
	c, mt := newTestClient(t, withCredentials()...)
	c.seq = 9
	mt.queue(t, DefaultEncoding, loginOKResponse)

	_, err := c.Login(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, c.seq)
	assert.Contains(t, string(mt.requests[0]), "|AY9AZ")
}

func TestClient_UnexpectedResponseStatus(t *testing.T) {
	c, mt := newTestClient(t)
	mt.queue(t, DefaultEncoding, endSessionResponse)

	_, err := c.PatronInformation(context.Background(), "12345", "")
	require.ErrorIs(t, err, ErrUnexpectedResponse)
	assert.Contains(t, err.Error(), "36")
	assert.Contains(t, err.Error(), "64")
}

func TestClient_NotConnected(t *testing.T) {
	c, _ := newTestClient(t)
	c.transport = nil

	_, err := c.PatronInformation(context.Background(), "12345", "")
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestClient_CancelledContext(t *testing.T) {
	c, mt := newTestClient(t)
	mt.queue(t, DefaultEncoding, respEmbeddedPipe)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.PatronInformation(ctx, "12345", "")
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, mt.writeCount)
}

func TestClient_ConnectionClosedMidExchange(t *testing.T) {
	c, mt := newTestClient(t)
	mt.queueRaw([]byte("64Y  "))

	_, err := c.PatronInformation(context.Background(), "12345", "")
	require.ErrorIs(t, err, ErrConnClosed)
}

func TestClient_UTF8Encoding(t *testing.T) {
	c, mt := newTestClient(t, WithEncoding(unicode.UTF8))
	mt.queue(t, unicode.UTF8, respUnicodeName)

	resp, err := c.PatronInformation(context.Background(), "12345", "")
	require.NoError(t, err)
	assert.Equal(t, "LE CARRÉ, JOHN", resp.Get(KeyPersonalName))
}

func TestClient_EncodingMismatchProducesMojibake(t *testing.T) {
	c, mt := newTestClient(t)
	mt.queue(t, unicode.UTF8, respUnicodeName)

	resp, err := c.PatronInformation(context.Background(), "12345", "")
	require.NoError(t, err)
	assert.Equal(t, "LE CARR├ë, JOHN", resp.Get(KeyPersonalName))
}

func TestClient_CustomSeparator(t *testing.T) {
	c, mt := newTestClient(t, WithSeparator('^'))
	mt.queue(t, DefaultEncoding,
		"64              000201610050000134405000000000000000000000000AOnypl ^AA12345^AERICHARDSON, LEONARD^BLY^AY1AZD1BB")

	resp, err := c.PatronInformation(context.Background(), "12345", "")
	require.NoError(t, err)
	assert.Equal(t, "RICHARDSON, LEONARD", resp.Get(KeyPersonalName))
	assert.Contains(t, string(mt.requests[0]), "AO^AA12345^AC^AY0AZ")
}

func TestClient_Close(t *testing.T) {
	c, mt := newTestClient(t)

	require.NoError(t, c.Close())
	assert.True(t, mt.closed)

	// Closing twice is harmless.
	require.NoError(t, c.Close())

	_, err := c.PatronInformation(context.Background(), "12345", "")
	require.ErrorIs(t, err, ErrNotConnected)
}
