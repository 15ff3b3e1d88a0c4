package scanning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePort(t *testing.T) {
	assert.NoError(t, ValidatePort(1))
	assert.NoError(t, ValidatePort(443))
	assert.NoError(t, ValidatePort(65535))
	assert.Error(t, ValidatePort(0))
	assert.Error(t, ValidatePort(-1))
	assert.Error(t, ValidatePort(65536))
}

func TestScanResultsCounts(t *testing.T) {
	results := []PortScanResult{
		{Port: 22, Status: StatusOpen},
		{Port: 23, Status: StatusClosed},
		{Port: 24, Status: StatusClosed},
		{Port: 25, Status: StatusFiltered},
		{Port: 26, Status: StatusError, Error: "network unreachable"},
	}

	scan := newScanResults("scan-1", "target.example", "custom", time.Now(), results)

	assert.Equal(t, 5, scan.Total)
	assert.Equal(t, 1, scan.Open)
	assert.Equal(t, 2, scan.Closed)
	assert.Equal(t, 1, scan.Filtered)
	assert.Equal(t, 1, scan.Errors)
	assert.Equal(t, scan.Total, scan.Open+scan.Closed+scan.Filtered+scan.Errors)
	assert.True(t, scan.HasOpenPorts())

	open := scan.OpenPorts()
	require.Len(t, open, 1)
	assert.Equal(t, 22, open[0].Port)
}

func TestScanResultsEmpty(t *testing.T) {
	scan := newScanResults("scan-2", "target.example", "common", time.Now(), nil)

	assert.Equal(t, 0, scan.Total)
	assert.False(t, scan.HasOpenPorts())
	assert.Empty(t, scan.OpenPorts())
}

func TestPortScanResultString(t *testing.T) {
	r := PortScanResult{Port: 22, Status: StatusOpen, ServiceName: "SSH"}
	assert.Contains(t, r.String(), "port 22")
	assert.Contains(t, r.String(), "open")
	assert.Contains(t, r.String(), "SSH")

	e := PortScanResult{Port: 99, Status: StatusError, Error: "boom"}
	assert.Contains(t, e.String(), "boom")
}
