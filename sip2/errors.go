package sip2

import "errors"

// Sentinel errors for the SIP2 client.
var (
	// Transport errors. Both leave the connection unusable until the caller
	// reconnects.

	// ErrResponseTooLarge indicates a response exceeded the maximum message
	// size before a terminator was seen.
	ErrResponseTooLarge = errors.New("sip2: response too large")

	// ErrConnClosed indicates the stream ended before a message terminator
	// was seen.
	ErrConnClosed = errors.New("sip2: no data read before message terminator")

	// ErrNotConnected indicates a request was attempted on a client that has
	// no established transport.
	ErrNotConnected = errors.New("sip2: client is not connected")

	// Protocol errors. The current call fails; the caller may retry with a
	// new call on the same connection.

	// ErrLoginFailed indicates the ILS rejected the login credentials.
	ErrLoginFailed = errors.New("sip2: login rejected by ILS")

	// ErrRetriesExhausted indicates the server kept requesting resends until
	// the attempt budget ran out.
	ErrRetriesExhausted = errors.New("sip2: resend retries exhausted")

	// ErrUnexpectedResponse indicates the response status code matched
	// neither the expected code nor the resend-request code.
	ErrUnexpectedResponse = errors.New("sip2: unexpected response status")

	// ErrMalformedResponse indicates a response too short for its declared
	// message type.
	ErrMalformedResponse = errors.New("sip2: malformed response")

	// Validation errors.

	// ErrInvalidPatronStatus indicates a patron-status block that is not
	// exactly PatronStatusLength characters, including empty input.
	ErrInvalidPatronStatus = errors.New("sip2: patron status block must be exactly 14 characters")
)
