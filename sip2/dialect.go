package sip2

import "github.com/puzpuzpuz/xsync/v3"

// Dialect identifies a vendor-specific variant of SIP2 behavior.
type Dialect int

const (
	// DialectGenericILS is the behavior of a standards-conformant ILS. This
	// is the default dialect.
	DialectGenericILS Dialect = iota

	// DialectAutoGraphicsVerso covers Auto-Graphics VERSO, which does not
	// tolerate the end-session exchange: the client must not perform it.
	DialectAutoGraphicsVerso
)

// DialectPolicy is the set of behavior overrides selected by a Dialect.
// New vendor quirks are handled by adding a field here and a registration
// below, not by branching on the dialect inside the engine.
type DialectPolicy struct {
	// SendEndSession controls whether the 35/36 end-session exchange is
	// performed at all. When false, EndSession performs zero reads and
	// zero writes.
	SendEndSession bool
}

// dialects maps each registered dialect to its policy. It is a concurrent
// map so vendors can be registered at runtime from any goroutine without
// touching engine code.
var dialects = xsync.NewMapOf[Dialect, DialectPolicy]()

func init() {
	RegisterDialect(DialectGenericILS, DialectPolicy{SendEndSession: true})
	RegisterDialect(DialectAutoGraphicsVerso, DialectPolicy{SendEndSession: false})
}

// RegisterDialect adds or replaces the policy for a dialect. Callers
// defining new vendor dialects should pick values well above the built-in
// ones to stay clear of future additions.
func RegisterDialect(d Dialect, p DialectPolicy) {
	dialects.Store(d, p)
}

// PolicyFor returns the registered policy for d. Unregistered dialects fall
// back to the generic ILS policy.
func PolicyFor(d Dialect) DialectPolicy {
	if p, ok := dialects.Load(d); ok {
		return p
	}

	p, _ := dialects.Load(DialectGenericILS)

	return p
}
