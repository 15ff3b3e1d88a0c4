// Package detect provides post-probe detection of service versions and
// operating systems. Detectors run only against ports already classified as
// open and never influence the port's status: a failed or empty detection
// simply yields no information.
package detect

import (
	"net"
	"time"
)

// ServiceVersion describes a service identified from a banner.
type ServiceVersion struct {
	ServiceName string `json:"service_name" db:"service_name"`
	Version     string `json:"version,omitempty" db:"version"`
	Banner      string `json:"banner,omitempty" db:"banner"`
	Protocol    string `json:"protocol" db:"protocol"`
}

// UnknownService returns a ServiceVersion carrying no information. It is
// distinct from an identified-but-unknown service, which retains its banner.
func UnknownService() *ServiceVersion {
	return &ServiceVersion{ServiceName: "unknown", Protocol: "tcp"}
}

// IsDetected reports whether the detector produced a positive signal: either
// an identified service or at least a raw banner.
func (v *ServiceVersion) IsDetected() bool {
	if v == nil {
		return false
	}
	return v.ServiceName != "unknown" || v.Banner != ""
}

// String returns a short human-readable description.
func (v *ServiceVersion) String() string {
	if v == nil {
		return "unknown"
	}
	if v.Version != "" {
		return v.ServiceName + " " + v.Version
	}
	return v.ServiceName
}

// OSInfo describes operating system details inferred from SMB negotiation.
// All fields are optional; an empty struct means nothing was detected.
type OSInfo struct {
	OSName       string `json:"os_name,omitempty" db:"os_name"`
	OSVersion    string `json:"os_version,omitempty" db:"os_version"`
	OSBuild      string `json:"os_build,omitempty" db:"os_build"`
	ComputerName string `json:"computer_name,omitempty" db:"computer_name"`
	Domain       string `json:"domain,omitempty" db:"domain"`
	SMBVersion   string `json:"smb_version,omitempty" db:"smb_version"`
}

// IsDetected reports whether at least one identifying field is present. This
// predicate is the sole gate for attaching OSInfo to a scan result.
func (o *OSInfo) IsDetected() bool {
	if o == nil {
		return false
	}
	return o.OSName != "" || o.OSVersion != "" || o.ComputerName != "" || o.SMBVersion != ""
}

// String returns a short human-readable description.
func (o *OSInfo) String() string {
	if o == nil || !o.IsDetected() {
		return "unknown OS"
	}
	s := o.OSName
	if o.OSVersion != "" {
		if s != "" {
			s += " "
		}
		s += o.OSVersion
	}
	if o.SMBVersion != "" {
		if s != "" {
			s += " (" + o.SMBVersion + ")"
		}
	}
	return s
}

// Detector is the contract for detection plugins. Implementations must treat
// the connection as single-use and must not assume exclusive ownership of the
// port beyond the supplied connection.
type Detector interface {
	// Name identifies the detector in logs and metrics.
	Name() string

	// CanDetect reports whether this detector applies to the given port.
	CanDetect(port int) bool

	// DetectService attempts service identification over an open connection.
	// A nil result means no detection.
	DetectService(conn net.Conn, port int, timeout time.Duration) *ServiceVersion

	// DetectOS attempts OS identification over an open connection.
	// A nil result means no detection.
	DetectOS(conn net.Conn, port int, timeout time.Duration) *OSInfo
}

// Registry holds an ordered set of detectors and dispatches detection calls
// to the first applicable detector that yields a result.
type Registry struct {
	detectors []Detector
}

// NewRegistry creates an empty detector registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a detector. Registration order determines priority.
func (r *Registry) Register(d Detector) {
	r.detectors = append(r.detectors, d)
}

// Len returns the number of registered detectors.
func (r *Registry) Len() int {
	return len(r.detectors)
}

// DetectService runs service detection with the first applicable detector
// that produces a result.
func (r *Registry) DetectService(conn net.Conn, port int, timeout time.Duration) *ServiceVersion {
	for _, d := range r.detectors {
		if !d.CanDetect(port) {
			continue
		}
		if v := d.DetectService(conn, port, timeout); v.IsDetected() {
			return v
		}
	}
	return nil
}

// DetectOS runs OS detection with the first applicable detector that
// produces a result.
func (r *Registry) DetectOS(conn net.Conn, port int, timeout time.Duration) *OSInfo {
	for _, d := range r.detectors {
		if !d.CanDetect(port) {
			continue
		}
		if info := d.DetectOS(conn, port, timeout); info.IsDetected() {
			return info
		}
	}
	return nil
}
