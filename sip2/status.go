package sip2

import "fmt"

// PatronStatusLength is the exact width of the patron-status block in a
// patron information response.
const PatronStatusLength = 14

// PatronStatus is the decoded patron-status block: one boolean per defined
// character position. A position is true only when it holds the character
// 'Y'; blank or undefined positions are false.
type PatronStatus struct {
	ChargePrivilegesDenied       bool // position 0
	RenewalPrivilegesDenied      bool // position 1
	RecallPrivilegesDenied       bool // position 2
	HoldPrivilegesDenied         bool // position 3
	CardReportedLost             bool // position 4
	TooManyItemsCharged          bool // position 5
	TooManyItemsOverdue          bool // position 6
	TooManyRenewals              bool // position 7
	TooManyClaimsOfItemsReturned bool // position 8
	TooManyItemsLost             bool // position 9
	ExcessiveOutstandingFines    bool // position 10
	ExcessiveOutstandingFees     bool // position 11
	RecallOverdue                bool // position 12
	TooManyItemsBilled           bool // position 13
}

// ParsePatronStatus decodes a patron-status block. Input of any length
// other than PatronStatusLength, including empty, fails with
// ErrInvalidPatronStatus; the flags are never silently defaulted.
func ParsePatronStatus(s string) (*PatronStatus, error) {
	if len(s) != PatronStatusLength {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPatronStatus, len(s))
	}

	y := func(pos int) bool { return s[pos] == 'Y' }

	return &PatronStatus{
		ChargePrivilegesDenied:       y(0),
		RenewalPrivilegesDenied:      y(1),
		RecallPrivilegesDenied:       y(2),
		HoldPrivilegesDenied:         y(3),
		CardReportedLost:             y(4),
		TooManyItemsCharged:          y(5),
		TooManyItemsOverdue:          y(6),
		TooManyRenewals:              y(7),
		TooManyClaimsOfItemsReturned: y(8),
		TooManyItemsLost:             y(9),
		ExcessiveOutstandingFines:    y(10),
		ExcessiveOutstandingFees:     y(11),
		RecallOverdue:                y(12),
		TooManyItemsBilled:           y(13),
	}, nil
}
