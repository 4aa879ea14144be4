package sip2

import (
	"bytes"
	"fmt"
)

// Checksum computes the SIP2 checksum of data: the sum of its unsigned byte
// values, negated modulo 65536 (two's complement of the low 16 bits),
// rendered as four uppercase zero-padded hexadecimal digits.
func Checksum(data []byte) string {
	var sum uint32
	for _, v := range data {
		sum += uint32(v)
	}

	return fmt.Sprintf("%04X", uint16(-sum)) //nolint:gosec // intentional truncation to 16 bits
}

// VerifyMessage checks the AZ checksum trailer of a raw wire message.
// It returns false only when a trailer is present and its checksum does not
// cover the preceding bytes; messages without an AZ field pass.
//
// Callers log a failed verification instead of treating it as an error:
// many deployed ILS servers emit non-conformant checksums.
func VerifyMessage(raw []byte) bool {
	i := bytes.LastIndex(raw, []byte(fieldChecksum))
	if i < 0 || len(raw) < i+len(fieldChecksum)+checksumDigits {
		return true
	}

	want := string(raw[i+len(fieldChecksum) : i+len(fieldChecksum)+checksumDigits])

	return Checksum(raw[:i+len(fieldChecksum)]) == want
}
