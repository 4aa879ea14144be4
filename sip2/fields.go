package sip2

// Trailer field codes.
const (
	fieldSequence = "AY"
	fieldChecksum = "AZ"
)

// Keys under which parsed response values are stored. Most keys hold a
// single string; keys marked repeatable in the field tables hold ordered
// lists (see Response.List). KeyStatus is synthetic and always present.
const (
	KeyStatus = "_status"

	// Fixed-width header fields.
	KeyLoginOK               = "login_ok"
	KeyEndSession            = "end_session"
	KeyPatronStatus          = "patron_status"
	KeyLanguage              = "language"
	KeyTransactionDate       = "transaction_date"
	KeyHoldItemsCount        = "hold_items_count"
	KeyOverdueItemsCount     = "overdue_items_count"
	KeyChargedItemsCount     = "charged_items_count"
	KeyFineItemsCount        = "fine_items_count"
	KeyRecallItemsCount      = "recall_items_count"
	KeyUnavailableHoldsCount = "unavailable_holds_count"

	// Variable fields.
	KeyInstitutionID        = "institution_id"
	KeyPatronIdentifier     = "patron_identifier"
	KeyPersonalName         = "personal_name"
	KeyHoldItemsLimit       = "hold_items_limit"
	KeyOverdueItemsLimit    = "overdue_items_limit"
	KeyChargedItemsLimit    = "charged_items_limit"
	KeyValidPatron          = "valid_patron"
	KeyValidPatronPassword  = "valid_patron_password"
	KeyCurrencyType         = "currency_type"
	KeyFeeAmount            = "fee_amount"
	KeyFeeLimit             = "fee_limit"
	KeyHoldItems            = "hold_items"
	KeyOverdueItems         = "overdue_items"
	KeyChargedItems         = "charged_items"
	KeyFineItems            = "fine_items"
	KeyRecallItems          = "recall_items"
	KeyUnavailableHoldItems = "unavailable_hold_items"
	KeyHomeAddress          = "home_address"
	KeyEmailAddress         = "email_address"
	KeyHomePhoneNumber      = "home_phone_number"
	KeyScreenMessage        = "screen_message"
	KeyPrintLine            = "print_line"

	// Vendor extension fields with known semantics.
	KeySipserverInternalID       = "sipserver_internal_id"
	KeySipserverPatronExpiration = "sipserver_patron_expiration"
	KeySipserverPatronClass      = "sipserver_patron_class"
	KeySipserverInternetProfile  = "sipserver_internet_profile"
)

// fixedField is one fixed-width field at the head of a response, in order.
type fixedField struct {
	key   string
	width int
}

// namedField is one two-letter-coded variable field. Repeatable fields
// accumulate into ordered lists instead of overwriting.
type namedField struct {
	key        string
	repeatable bool
}

// responseFormat is the layout of one response message type: the
// fixed-width header fields followed by the known variable-field table.
// Codes absent from the table are vendor or local extensions and are
// retained verbatim under their raw code as repeatable lists.
type responseFormat struct {
	fixed []fixedField
	named map[string]namedField
}

var responseFormats = map[string]*responseFormat{
	MsgLoginResponse: {
		fixed: []fixedField{
			{KeyLoginOK, 1},
		},
	},

	MsgPatronInformationResponse: {
		fixed: []fixedField{
			{KeyPatronStatus, PatronStatusLength},
			{KeyLanguage, 3},
			{KeyTransactionDate, 18},
			{KeyHoldItemsCount, 4},
			{KeyOverdueItemsCount, 4},
			{KeyChargedItemsCount, 4},
			{KeyFineItemsCount, 4},
			{KeyRecallItemsCount, 4},
			{KeyUnavailableHoldsCount, 4},
		},
		named: map[string]namedField{
			"AO": {key: KeyInstitutionID},
			"AA": {key: KeyPatronIdentifier},
			"AE": {key: KeyPersonalName},
			"BZ": {key: KeyHoldItemsLimit},
			"CA": {key: KeyOverdueItemsLimit},
			"CB": {key: KeyChargedItemsLimit},
			"BL": {key: KeyValidPatron},
			"CQ": {key: KeyValidPatronPassword},
			"BH": {key: KeyCurrencyType},
			"BV": {key: KeyFeeAmount},
			"CC": {key: KeyFeeLimit},
			"AS": {key: KeyHoldItems, repeatable: true},
			"AT": {key: KeyOverdueItems, repeatable: true},
			"AU": {key: KeyChargedItems, repeatable: true},
			"AV": {key: KeyFineItems, repeatable: true},
			"BU": {key: KeyRecallItems, repeatable: true},
			"CD": {key: KeyUnavailableHoldItems, repeatable: true},
			"BD": {key: KeyHomeAddress},
			"BE": {key: KeyEmailAddress},
			"BF": {key: KeyHomePhoneNumber},
			"AF": {key: KeyScreenMessage, repeatable: true},
			"AG": {key: KeyPrintLine, repeatable: true},

			// Known vendor extensions: XI is the Evergreen internal
			// identifier, PA/PC/PI are Polaris patron attributes.
			"XI": {key: KeySipserverInternalID},
			"PA": {key: KeySipserverPatronExpiration},
			"PC": {key: KeySipserverPatronClass},
			"PI": {key: KeySipserverInternetProfile},
		},
	},

	MsgEndSessionResponse: {
		fixed: []fixedField{
			{KeyEndSession, 1},
			{KeyTransactionDate, 18},
		},
		named: map[string]namedField{
			"AO": {key: KeyInstitutionID},
			"AA": {key: KeyPatronIdentifier},
			"AF": {key: KeyScreenMessage, repeatable: true},
			"AG": {key: KeyPrintLine, repeatable: true},
		},
	},

	// Request SC Resend carries no fields at all.
	MsgRequestResend: {},
}

// isFieldCode reports whether the first two bytes of token form a plausible
// SIP2 field code: two uppercase ASCII letters. Tokens that do not are
// treated as continuations of the previous field's value, which is how
// values containing the separator character survive splitting.
func isFieldCode(token string) bool {
	if len(token) < 2 {
		return false
	}

	return token[0] >= 'A' && token[0] <= 'Z' && token[1] >= 'A' && token[1] <= 'Z'
}
