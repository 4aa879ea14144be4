package sip2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyFor_BuiltinDialects(t *testing.T) {
	assert.True(t, PolicyFor(DialectGenericILS).SendEndSession)
	assert.False(t, PolicyFor(DialectAutoGraphicsVerso).SendEndSession)
}

func TestPolicyFor_UnregisteredFallsBackToGeneric(t *testing.T) {
	assert.Equal(t, PolicyFor(DialectGenericILS), PolicyFor(Dialect(9999)))
}

func TestRegisterDialect(t *testing.T) {
	const custom = Dialect(1000)

	RegisterDialect(custom, DialectPolicy{SendEndSession: false})
	assert.False(t, PolicyFor(custom).SendEndSession)

	RegisterDialect(custom, DialectPolicy{SendEndSession: true})
	assert.True(t, PolicyFor(custom).SendEndSession)
}
