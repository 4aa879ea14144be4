package sip2

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// encodeText converts s from UTF-8 to the wire encoding.
func encodeText(s string, enc encoding.Encoding) ([]byte, error) {
	out, _, err := transform.Bytes(enc.NewEncoder(), []byte(s))
	if err != nil {
		return nil, fmt.Errorf("sip2: encode message: %w", err)
	}

	return out, nil
}

// decodeText converts raw wire bytes to UTF-8.
//
// When the server used a different encoding than configured, multi-byte
// sequences decode to mismatched characters. That is an accepted failure
// mode of the protocol, not an error: the bytes remain losslessly mapped,
// just through the wrong table.
func decodeText(raw []byte, enc encoding.Encoding) (string, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", fmt.Errorf("sip2: decode response: %w", err)
	}

	return string(out), nil
}
