package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvestad/portsleuth/internal/detect"
	"github.com/nvestad/portsleuth/internal/scanning"
)

func sampleResults() *scanning.ScanResults {
	return &scanning.ScanResults{
		ScanID:    "8f14e45f-aaaa-bbbb-cccc-000000000000",
		Target:    "target.example",
		Mode:      "custom:3 ports",
		StartTime: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Results: []scanning.PortScanResult{
			{
				Port:        22,
				Status:      scanning.StatusOpen,
				ServiceName: "SSH",
				Duration:    12 * time.Millisecond,
				Version: &detect.ServiceVersion{
					ServiceName: "SSH",
					Version:     "2.0-OpenSSH_9.6",
					Banner:      "SSH-2.0-OpenSSH_9.6",
					Protocol:    "tcp",
				},
			},
			{Port: 23, Status: scanning.StatusClosed, Duration: 3 * time.Millisecond},
			{
				Port:     999,
				Status:   scanning.StatusError,
				Duration: time.Millisecond,
				Error:    "network unreachable",
			},
		},
		Total:  3,
		Open:   1,
		Closed: 1,
		Errors: 1,
	}
}

func TestNewFormatter(t *testing.T) {
	for _, format := range []Format{FormatText, FormatJSON, FormatCSV, ""} {
		f, err := NewFormatter(format)
		require.NoError(t, err, string(format))
		assert.NotNil(t, f)
	}

	_, err := NewFormatter("xml")
	assert.Error(t, err)
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &TextFormatter{}

	require.NoError(t, f.Write(&buf, sampleResults()))
	out := buf.String()

	assert.Contains(t, out, "target.example")
	assert.Contains(t, out, "22/tcp")
	assert.Contains(t, out, "SSH 2.0-OpenSSH_9.6")
	assert.Contains(t, out, "999/tcp")
	assert.Contains(t, out, "network unreachable")
	assert.NotContains(t, out, "23/tcp", "closed ports stay out of the default table")
	assert.Contains(t, out, "3 ports scanned: 1 open, 1 closed, 0 filtered, 1 errors")
}

func TestTextFormatterShowAll(t *testing.T) {
	var buf bytes.Buffer
	f := &TextFormatter{ShowAll: true}

	require.NoError(t, f.Write(&buf, sampleResults()))

	assert.Contains(t, buf.String(), "23/tcp")
}

func TestTextFormatterOSLine(t *testing.T) {
	results := sampleResults()
	results.Results[0].OS = &detect.OSInfo{
		OSName:     "Windows",
		OSVersion:  "7 or later",
		SMBVersion: "SMB 2.x/3.x",
	}

	var buf bytes.Buffer
	require.NoError(t, (&TextFormatter{}).Write(&buf, results))

	assert.Contains(t, buf.String(), "OS (via port 22): Windows 7 or later (SMB 2.x/3.x)")
}

func TestJSONFormatterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Write(&buf, sampleResults()))

	var decoded scanning.ScanResults
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "target.example", decoded.Target)
	assert.Equal(t, 3, decoded.Total)
	require.Len(t, decoded.Results, 3)
	assert.Equal(t, scanning.StatusOpen, decoded.Results[0].Status)
	require.NotNil(t, decoded.Results[0].Version)
	assert.Equal(t, "2.0-OpenSSH_9.6", decoded.Results[0].Version.Version)
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&CSVFormatter{}).Write(&buf, sampleResults()))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4, "header plus one row per port")

	assert.Equal(t, []string{
		"target", "port", "status", "service", "version", "banner", "duration_ms", "error",
	}, records[0])
	assert.Equal(t, "22", records[1][1])
	assert.Equal(t, "open", records[1][2])
	assert.Equal(t, "SSH 2.0-OpenSSH_9.6", records[1][4])
	assert.Equal(t, "network unreachable", records[3][7])
}
