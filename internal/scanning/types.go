// Package scanning implements the TCP connect scan engine: target and port
// validation, probe classification, scan strategies, and bounded parallel
// execution.
package scanning

import (
	"fmt"
	"time"

	"github.com/nvestad/portsleuth/internal/detect"
	"github.com/nvestad/portsleuth/internal/errors"
)

const (
	// MinPort and MaxPort bound the valid TCP port range.
	MinPort = 1
	MaxPort = 65535

	// DefaultTimeout is the per-port connect timeout when none is configured.
	DefaultTimeout = 500 * time.Millisecond

	// MaxThreadCount caps the parallel worker count.
	MaxThreadCount = 256

	// DefaultThreadCount is the worker count for parallel scans when none is
	// configured.
	DefaultThreadCount = 100
)

// ValidatePort checks that a port number is within the valid TCP range.
func ValidatePort(port int) error {
	if port < MinPort || port > MaxPort {
		return errors.NewValidationError(
			fmt.Sprintf("port %d out of range [%d, %d]", port, MinPort, MaxPort))
	}
	return nil
}

// PortStatus is the outcome of probing a single port.
type PortStatus string

const (
	// StatusOpen means the TCP connect succeeded.
	StatusOpen PortStatus = "open"

	// StatusClosed means the target actively refused the connection.
	StatusClosed PortStatus = "closed"

	// StatusFiltered means the probe timed out with no answer, typically a
	// dropping firewall.
	StatusFiltered PortStatus = "filtered"

	// StatusError means the probe failed for a reason other than refusal or
	// timeout. The result carries the error message.
	StatusError PortStatus = "error"
)

// PortScanResult is the outcome of probing one port, including any detection
// data gathered after the port was found open.
type PortScanResult struct {
	Port        int                    `json:"port" db:"port"`
	Status      PortStatus             `json:"status" db:"status"`
	ServiceName string                 `json:"service_name,omitempty" db:"service_name"`
	Duration    time.Duration          `json:"duration_ns" db:"duration_ns"`
	Error       string                 `json:"error,omitempty" db:"error_message"`
	Version     *detect.ServiceVersion `json:"version,omitempty"`
	OS          *detect.OSInfo         `json:"os,omitempty"`
}

// IsOpen reports whether the port accepted a connection.
func (r *PortScanResult) IsOpen() bool {
	return r.Status == StatusOpen
}

// String returns a one-line description suitable for logs.
func (r *PortScanResult) String() string {
	s := fmt.Sprintf("port %d/%s: %s", r.Port, "tcp", r.Status)
	if r.ServiceName != "" && r.ServiceName != "unknown" {
		s += " (" + r.ServiceName + ")"
	}
	if r.Error != "" {
		s += ": " + r.Error
	}
	return s
}

// ScanResults aggregates the per-port results of one scan run. Results are
// ordered by port number regardless of completion order.
type ScanResults struct {
	ScanID    string           `json:"scan_id"`
	Target    string           `json:"target"`
	Mode      string           `json:"mode"`
	StartTime time.Time        `json:"start_time"`
	Duration  time.Duration    `json:"duration_ns"`
	Results   []PortScanResult `json:"results"`

	Total    int `json:"total"`
	Open     int `json:"open"`
	Closed   int `json:"closed"`
	Filtered int `json:"filtered"`
	Errors   int `json:"errors"`
}

// newScanResults folds per-port results into an aggregate with status counts.
func newScanResults(scanID, target, mode string, start time.Time, results []PortScanResult) *ScanResults {
	sr := &ScanResults{
		ScanID:    scanID,
		Target:    target,
		Mode:      mode,
		StartTime: start,
		Duration:  time.Since(start),
		Results:   results,
		Total:     len(results),
	}
	for i := range results {
		switch results[i].Status {
		case StatusOpen:
			sr.Open++
		case StatusClosed:
			sr.Closed++
		case StatusFiltered:
			sr.Filtered++
		case StatusError:
			sr.Errors++
		}
	}
	return sr
}

// OpenPorts returns the open-port results, in port order.
func (s *ScanResults) OpenPorts() []PortScanResult {
	var open []PortScanResult
	for i := range s.Results {
		if s.Results[i].IsOpen() {
			open = append(open, s.Results[i])
		}
	}
	return open
}

// HasOpenPorts reports whether any probed port was open.
func (s *ScanResults) HasOpenPorts() bool {
	return s.Open > 0
}
