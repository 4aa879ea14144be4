package sip2

import (
	"strings"

	"golang.org/x/text/encoding"
)

// SIP2 message identifiers. A request code N is answered with code N+1.
const (
	// MsgLogin is the Login request (93).
	MsgLogin = "93"
	// MsgLoginResponse is the Login Response (94).
	MsgLoginResponse = "94"
	// MsgPatronInformation is the Patron Information request (63).
	MsgPatronInformation = "63"
	// MsgPatronInformationResponse is the Patron Information Response (64).
	MsgPatronInformationResponse = "64"
	// MsgEndPatronSession is the End Patron Session request (35).
	MsgEndPatronSession = "35"
	// MsgEndSessionResponse is the End Session Response (36).
	MsgEndSessionResponse = "36"
	// MsgRequestResend is the Request SC Resend status (96): the server asks
	// the client to retransmit its previous message without a sequence field.
	MsgRequestResend = "96"
)

const (
	// terminatorCR ends every outgoing message.
	terminatorCR = '\r'

	// checksumDigits is the width of the rendered checksum value.
	checksumDigits = 4

	// loginPlaintext is the fixed algorithm block of the Login request:
	// UID and PWD both transmitted in the clear.
	loginPlaintext = "00"

	// unknownLanguage is the fixed language block of requests that carry one.
	unknownLanguage = "000"

	// summaryWidth is the width of the Patron Information summary block.
	summaryWidth = 10
)

// Message assembles the body of one outgoing SIP2 request: a leading
// command code and fixed-width block, followed by two-letter coded variable
// fields joined by the separator character.
//
// Pack seals the body with the sequence/checksum trailer and encodes it for
// the wire.
type Message struct {
	buf    strings.Builder
	sep    byte
	fields int
}

// NewMessage starts a message with the given command code.
func NewMessage(command string, sep byte) *Message {
	m := &Message{sep: sep}
	m.buf.WriteString(command)

	return m
}

// AppendFixed appends a fixed-width block directly, with no field code or
// separator.
func (m *Message) AppendFixed(value string) *Message {
	m.buf.WriteString(value)

	return m
}

// AppendField appends a coded variable field. The first field follows the
// fixed block directly; subsequent fields are separator-prefixed. The field
// is emitted even when value is empty, so positional offsets stay stable
// across configurations.
func (m *Message) AppendField(code, value string) *Message {
	if m.fields > 0 {
		m.buf.WriteByte(m.sep)
	}
	m.fields++
	m.buf.WriteString(code)
	m.buf.WriteString(value)

	return m
}

// AppendOptionalField appends a coded variable field only when value is
// non-empty.
func (m *Message) AppendOptionalField(code, value string) *Message {
	if value == "" {
		return m
	}

	return m.AppendField(code, value)
}

// String returns the message body without trailer or terminator.
func (m *Message) String() string {
	return m.buf.String()
}

// Pack seals the message for the wire:
//
//	<body><sep>AY<seq>AZ<4-hex checksum><CR>   first attempt
//	<body><sep>AZ<4-hex checksum><CR>          resend (withSeq false)
//
// The body and trailer are encoded with enc before the checksum is
// computed, so the checksum always covers the exact bytes written, up to
// and including the "AZ" code.
func (m *Message) Pack(seq int, withSeq bool, enc encoding.Encoding) ([]byte, error) {
	var text strings.Builder

	text.WriteString(m.buf.String())
	text.WriteByte(m.sep)
	if withSeq {
		text.WriteString(fieldSequence)
		text.WriteByte(byte('0' + seq%10))
	}
	text.WriteString(fieldChecksum)

	data, err := encodeText(text.String(), enc)
	if err != nil {
		return nil, err
	}

	data = append(data, Checksum(data)...)
	data = append(data, terminatorCR)

	return data, nil
}
