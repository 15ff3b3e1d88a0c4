package netutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePassesThroughIPLiterals(t *testing.T) {
	r := NewResolver("127.0.0.1:53")

	for _, target := range []string{"127.0.0.1", "192.168.1.10", "::1", "2001:db8::1"} {
		ip, err := r.Resolve(context.Background(), target)
		require.NoError(t, err, target)
		assert.Equal(t, target, ip)
	}
}

func TestResolveRejectsEmptyTarget(t *testing.T) {
	r := NewResolver("127.0.0.1:53")
	_, err := r.Resolve(context.Background(), "")
	assert.Error(t, err)
}

func TestValidateTarget(t *testing.T) {
	tests := []struct {
		target string
		valid  bool
	}{
		{"192.168.1.1", true},
		{"::1", true},
		{"example.com", true},
		{"sub.example.com", true},
		{"localhost", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			err := ValidateTarget(tt.target)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
