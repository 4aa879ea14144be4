package sip2

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/bonniegee/circulation/logger"
)

// Response is one parsed SIP2 response message.
//
// Values live under the Key* constants; fields the parser does not know are
// retained verbatim under their raw two-letter code. The client holds no
// reference to a returned Response, so callers are free to keep it.
type Response struct {
	// Status is the two-character message identifier ("94", "64", ...).
	Status string

	// Raw is the message exactly as read from the wire, terminator included.
	Raw []byte

	// PatronStatus is the decoded patron-status block of a patron
	// information response; nil for other message types.
	PatronStatus *PatronStatus

	values map[string]string
	lists  map[string][]string
}

// Get returns the single value stored under key, or "" when absent.
func (r *Response) Get(key string) string {
	return r.values[key]
}

// Has reports whether key holds a value or a list.
func (r *Response) Has(key string) bool {
	if _, ok := r.values[key]; ok {
		return true
	}
	_, ok := r.lists[key]

	return ok
}

// List returns the ordered values accumulated under a repeatable key, in
// the order received. It returns nil when the key is absent.
func (r *Response) List(key string) []string {
	return r.lists[key]
}

func (r *Response) set(key, value string, repeatable bool) {
	if repeatable {
		r.lists[key] = append(r.lists[key], value)
		return
	}
	r.values[key] = value
}

// Parser decodes raw response messages into Responses using a fixed wire
// encoding and separator character.
type Parser struct {
	enc    encoding.Encoding
	sep    byte
	logger logger.Logger
}

// NewParser creates a Parser. A nil logger falls back to the package
// default.
func NewParser(enc encoding.Encoding, sep byte, l logger.Logger) *Parser {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Parser{enc: enc, sep: sep, logger: l}
}

// Parse decodes one raw message.
//
// The inbound checksum, when present, is verified first; a mismatch is
// logged at Warn level and parsing continues, because many deployed ILS
// servers produce non-conformant checksums. The raw bytes are then decoded
// with the configured encoding, the fixed-width header of the message type
// is extracted at its exact offsets, and the remainder is split into coded
// variable fields with embedded-separator tolerance.
func (p *Parser) Parse(raw []byte) (*Response, error) {
	if !VerifyMessage(raw) {
		p.logger.Warn("sip2: response checksum mismatch, continuing anyway", "raw", string(raw))
	}

	text, err := decodeText(raw, p.enc)
	if err != nil {
		return nil, err
	}
	text = strings.TrimRight(text, "\r\n")

	if len(text) < 2 {
		return nil, fmt.Errorf("%w: %q has no message identifier", ErrMalformedResponse, text)
	}

	resp := &Response{
		Status: text[:2],
		Raw:    raw,
		values: make(map[string]string),
		lists:  make(map[string][]string),
	}
	resp.values[KeyStatus] = resp.Status

	rest := text[2:]
	format := responseFormats[resp.Status]

	if format != nil {
		for _, f := range format.fixed {
			if len(rest) < f.width {
				return nil, fmt.Errorf("%w: %s response truncated in fixed field %q", ErrMalformedResponse, resp.Status, f.key)
			}
			resp.values[f.key] = rest[:f.width]
			rest = rest[f.width:]
		}
	}

	p.parseVariableFields(rest, format, resp)

	if resp.Status == MsgPatronInformationResponse {
		status, err := ParsePatronStatus(resp.values[KeyPatronStatus])
		if err != nil {
			return nil, err
		}
		resp.PatronStatus = status
	}

	return resp, nil
}

// parseVariableFields splits data on the separator and assigns each token
// to a field.
//
// A token starts a new field only when it opens with a plausible two-letter
// field code; otherwise it is free text containing the separator character,
// and is glued back onto the previous field's value with the separator
// restored. AY/AZ trailer tokens are consumed without being stored.
func (p *Parser) parseVariableFields(data string, format *responseFormat, resp *Response) {
	type pending struct {
		key        string
		value      string
		repeatable bool
	}

	var cur *pending

	flush := func() {
		if cur != nil {
			resp.set(cur.key, cur.value, cur.repeatable)
			cur = nil
		}
	}

	for _, token := range strings.Split(data, string(p.sep)) {
		if !isFieldCode(token) {
			// Continuation of the previous value; tokens with no open
			// field (stray leading data) are dropped.
			if cur != nil {
				cur.value += string(p.sep) + token
			}

			continue
		}

		flush()

		code, value := token[:2], token[2:]

		switch {
		case code == fieldSequence || code == fieldChecksum:
			// Trailer; already verified against the raw bytes.

		case format != nil && format.named != nil:
			if f, ok := format.named[code]; ok {
				cur = &pending{key: f.key, value: value, repeatable: f.repeatable}
			} else {
				// Unrecognized extension code: retain verbatim, repeatable.
				cur = &pending{key: code, value: value, repeatable: true}
			}

		default:
			cur = &pending{key: code, value: value, repeatable: true}
		}
	}

	flush()
}
