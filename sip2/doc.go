// Package sip2 implements the client side of the 3M Standard Interchange
// Protocol version 2 (SIP2), the line-oriented circulation protocol spoken
// by Integrated Library Systems (ILS) for staff authentication and patron
// record retrieval.
//
// SIP2 is a synchronous request/response protocol over a raw or TLS-wrapped
// TCP stream. Each message is a line of 8-bit text: a two-digit command
// code, an optional fixed-width block, variable fields tagged with
// two-letter codes and joined by a separator character (default '|'), an
// optional single-digit sequence field (AY), a four-hex-digit checksum
// field (AZ), and a carriage-return terminator:
//
//	9300CNuser|COsecret|AY0AZF556<CR>
//
// # Error recovery
//
// A server that received a garbled request answers with status 96 (Request
// SC Resend). The client then retransmits the same logical request without
// its sequence field, up to a bounded number of attempts. The sequence
// counter (0-9, wrapping) advances once per successful logical command, no
// matter how many resends it took.
//
// # Checksums
//
// Outgoing checksums cover every byte of the encoded message up to and
// including the literal "AZ" code. Inbound checksums are verified but a
// mismatch is only logged: many deployed ILS servers compute their
// checksums incorrectly, and treating that as fatal would make the client
// unusable against them.
//
// # Encodings
//
// The wire encoding is configurable and defaults to code page 850, the
// de facto standard for legacy ILS deployments. A server speaking a
// different encoding than configured produces mismatched characters in
// decoded fields; the parser does not attempt to detect or correct this.
//
// # Dialects
//
// Vendor quirks are captured as dialects: named entries in a policy table
// that switch individual behaviors, such as whether the end-session
// exchange is performed at all. See RegisterDialect.
package sip2
