package scanning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvestad/portsleuth/internal/services"
)

func TestRangeMode(t *testing.T) {
	t.Run("valid range expands inclusively", func(t *testing.T) {
		mode := RangeMode{Start: 80, End: 83}
		require.NoError(t, mode.Validate())
		assert.Equal(t, []int{80, 81, 82, 83}, mode.Ports())
	})

	t.Run("single port range", func(t *testing.T) {
		mode := RangeMode{Start: 443, End: 443}
		require.NoError(t, mode.Validate())
		assert.Equal(t, []int{443}, mode.Ports())
	})

	t.Run("inverted range rejected", func(t *testing.T) {
		assert.Error(t, RangeMode{Start: 100, End: 50}.Validate())
	})

	t.Run("zero start rejected", func(t *testing.T) {
		assert.Error(t, RangeMode{Start: 0, End: 10}.Validate())
	})

	t.Run("end beyond max rejected", func(t *testing.T) {
		assert.Error(t, RangeMode{Start: 1, End: 65536}.Validate())
	})
}

func TestCommonPortsMode(t *testing.T) {
	mode := CommonPortsMode{}
	require.NoError(t, mode.Validate())
	assert.Equal(t, services.CommonPorts(), mode.Ports())
	assert.NotEmpty(t, mode.Ports())
}

func TestCustomListMode(t *testing.T) {
	t.Run("valid list kept in order", func(t *testing.T) {
		mode := CustomListMode{List: []int{443, 22, 80}}
		require.NoError(t, mode.Validate())
		assert.Equal(t, []int{443, 22, 80}, mode.Ports())
	})

	t.Run("empty list rejected", func(t *testing.T) {
		assert.Error(t, CustomListMode{}.Validate())
	})

	t.Run("invalid entry rejected", func(t *testing.T) {
		assert.Error(t, CustomListMode{List: []int{0}}.Validate())
		assert.Error(t, CustomListMode{List: []int{22, 70000}}.Validate())
	})

	t.Run("ports returns a copy", func(t *testing.T) {
		mode := CustomListMode{List: []int{22, 80}}
		ports := mode.Ports()
		ports[0] = 9999
		assert.Equal(t, []int{22, 80}, mode.List)
	})
}

func TestParsePortSpec(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		wantPorts []int
		wantErr   bool
	}{
		{"empty means common", "", services.CommonPorts(), false},
		{"common keyword", "common", services.CommonPorts(), false},
		{"single port", "443", []int{443}, false},
		{"range", "20-25", []int{20, 21, 22, 23, 24, 25}, false},
		{"list deduped keeping given order", "443,22,80,22", []int{443, 22, 80}, false},
		{"inverted range", "100-50", nil, true},
		{"garbage", "abc", nil, true},
		{"bad list entry", "22,abc", nil, true},
		{"zero port", "0", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := ParsePortSpec(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPorts, mode.Ports())
		})
	}
}
