package scanning

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nvestad/portsleuth/internal/errors"
	"github.com/nvestad/portsleuth/internal/services"
)

// ScanMode selects which ports a scan probes. Implementations validate their
// own parameters and expand to a concrete port list.
type ScanMode interface {
	// Ports returns the expanded port list in probe order.
	Ports() []int

	// Validate checks the mode's parameters.
	Validate() error

	// String names the mode for logs, metrics, and output.
	String() string
}

// RangeMode scans every port in the inclusive range [Start, End].
type RangeMode struct {
	Start int
	End   int
}

// Ports implements ScanMode.
func (m RangeMode) Ports() []int {
	if m.Start > m.End {
		return nil
	}
	ports := make([]int, 0, m.End-m.Start+1)
	for p := m.Start; p <= m.End; p++ {
		ports = append(ports, p)
	}
	return ports
}

// Validate implements ScanMode. Both bounds must be valid ports and the range
// must not be inverted.
func (m RangeMode) Validate() error {
	if err := ValidatePort(m.Start); err != nil {
		return errors.WrapValidationError(err, "invalid range start")
	}
	if err := ValidatePort(m.End); err != nil {
		return errors.WrapValidationError(err, "invalid range end")
	}
	if m.Start > m.End {
		return errors.NewValidationError(
			fmt.Sprintf("range start %d exceeds end %d", m.Start, m.End))
	}
	return nil
}

// String implements ScanMode.
func (m RangeMode) String() string {
	return fmt.Sprintf("range:%d-%d", m.Start, m.End)
}

// CommonPortsMode scans the curated list of frequently exposed ports.
type CommonPortsMode struct{}

// Ports implements ScanMode.
func (CommonPortsMode) Ports() []int {
	return services.CommonPorts()
}

// Validate implements ScanMode. The curated list is always valid.
func (CommonPortsMode) Validate() error {
	return nil
}

// String implements ScanMode.
func (CommonPortsMode) String() string {
	return "common"
}

// CustomListMode scans an explicit list of ports in the given order.
type CustomListMode struct {
	List []int
}

// Ports implements ScanMode.
func (m CustomListMode) Ports() []int {
	ports := make([]int, len(m.List))
	copy(ports, m.List)
	return ports
}

// Validate implements ScanMode. The list must be non-empty and every entry a
// valid port.
func (m CustomListMode) Validate() error {
	if len(m.List) == 0 {
		return errors.NewValidationError("custom port list is empty")
	}
	for _, p := range m.List {
		if err := ValidatePort(p); err != nil {
			return errors.WrapValidationError(err, "invalid custom port list")
		}
	}
	return nil
}

// String implements ScanMode.
func (m CustomListMode) String() string {
	return fmt.Sprintf("custom:%d ports", len(m.List))
}

// ParsePortSpec parses a port specification string into a ScanMode:
// "common", a single port ("443"), a range ("1-1024"), or a comma-separated
// list ("22,80,443").
func ParsePortSpec(spec string) (ScanMode, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "common") {
		return CommonPortsMode{}, nil
	}

	if strings.Contains(spec, ",") {
		parts := strings.Split(spec, ",")
		list := make([]int, 0, len(parts))
		for _, part := range parts {
			p, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, errors.NewValidationError(
					fmt.Sprintf("invalid port %q in list", strings.TrimSpace(part)))
			}
			list = append(list, p)
		}
		mode := CustomListMode{List: dedupePorts(list)}
		if err := mode.Validate(); err != nil {
			return nil, err
		}
		return mode, nil
	}

	if start, end, ok := strings.Cut(spec, "-"); ok {
		s, err := strconv.Atoi(strings.TrimSpace(start))
		if err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("invalid range start %q", start))
		}
		e, err := strconv.Atoi(strings.TrimSpace(end))
		if err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("invalid range end %q", end))
		}
		mode := RangeMode{Start: s, End: e}
		if err := mode.Validate(); err != nil {
			return nil, err
		}
		return mode, nil
	}

	p, err := strconv.Atoi(spec)
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid port spec %q", spec))
	}
	mode := CustomListMode{List: []int{p}}
	if err := mode.Validate(); err != nil {
		return nil, err
	}
	return mode, nil
}

// dedupePorts removes duplicates while preserving first-occurrence order, so
// a sequential or paced scan probes in the order the user gave.
func dedupePorts(ports []int) []int {
	seen := make(map[int]struct{}, len(ports))
	out := make([]int, 0, len(ports))
	for _, p := range ports {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
