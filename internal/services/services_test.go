package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	assert.Equal(t, "SSH", Name(22))
	assert.Equal(t, "HTTPS", Name(443))
	assert.Equal(t, "SMB", Name(445))
	assert.Equal(t, "unknown", Name(31337))
}

func TestLookup(t *testing.T) {
	name, ok := Lookup(5432)
	assert.True(t, ok)
	assert.Equal(t, "PostgreSQL", name)

	_, ok = Lookup(12345)
	assert.False(t, ok)
}

func TestCommonPorts(t *testing.T) {
	ports := CommonPorts()

	assert.Len(t, ports, 26)
	assert.Contains(t, ports, 22)
	assert.Contains(t, ports, 445)
	assert.Contains(t, ports, 27017)

	// Every common port has a name in the table.
	for _, p := range ports {
		_, ok := Lookup(p)
		assert.True(t, ok, "port %d missing from table", p)
	}

	// Callers get a copy, not the backing slice.
	ports[0] = 9999
	assert.NotEqual(t, 9999, CommonPorts()[0])
}
