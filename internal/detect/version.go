package detect

import (
	"net"
	"strings"
	"time"

	"github.com/nvestad/portsleuth/internal/logging"
	"github.com/nvestad/portsleuth/internal/metrics"
)

const (
	// bannerBufferSize bounds a single banner read.
	bannerBufferSize = 1024

	// bannerReadTimeout is the per-read deadline for banner grabbing. It is
	// deliberately shorter than the connect timeout: a service that
	// auto-announces does so immediately.
	bannerReadTimeout = 2 * time.Second
)

// httpProbe and smtpProbe are the only outbound text payloads the detector
// constructs. Auto-announcing protocols (SSH, FTP, POP3, IMAP) need no probe.
var (
	httpProbe = []byte("GET / HTTP/1.0\r\n\r\n")
	smtpProbe = []byte("EHLO portsleuth\r\n")
)

// VersionDetector identifies services by grabbing and classifying banners.
// It performs at most one passive read and one probe-elicited read; no
// protocol handshake is completed beyond the minimal probe.
type VersionDetector struct{}

// NewVersionDetector creates a banner-grabbing version detector.
func NewVersionDetector() *VersionDetector {
	return &VersionDetector{}
}

// Name implements Detector.
func (d *VersionDetector) Name() string {
	return "version"
}

// CanDetect implements Detector. Banner grabbing applies to the common
// text-speaking service ports.
func (d *VersionDetector) CanDetect(port int) bool {
	switch port {
	case 21, 22, 23, 25, 80, 110, 143, 443, 465, 587, 993, 995, 8000, 8080, 8443:
		return true
	}
	return false
}

// DetectOS implements Detector. Version detection never yields OS info.
func (d *VersionDetector) DetectOS(_ net.Conn, _ int, _ time.Duration) *OSInfo {
	return nil
}

// DetectService implements Detector. It reads a banner passively first; if
// nothing arrives before the banner deadline it sends a minimal
// protocol-appropriate probe and retries the read once.
func (d *VersionDetector) DetectService(conn net.Conn, port int, timeout time.Duration) *ServiceVersion {
	if conn == nil {
		return nil
	}

	buf := make([]byte, bannerBufferSize)

	_ = conn.SetReadDeadline(time.Now().Add(bannerReadTimeout))
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		probe := probeFor(port)
		if len(probe) == 0 {
			metrics.GetGlobalMetrics().IncrementDetections(d.Name(), "none")
			return nil
		}

		_ = conn.SetWriteDeadline(time.Now().Add(timeout))
		if _, werr := conn.Write(probe); werr != nil {
			logging.Debug("Banner probe write failed", "port", port, "error", werr)
			metrics.GetGlobalMetrics().IncrementDetections(d.Name(), "none")
			return nil
		}

		_ = conn.SetReadDeadline(time.Now().Add(bannerReadTimeout))
		n, err = conn.Read(buf)
		if err != nil || n == 0 {
			metrics.GetGlobalMetrics().IncrementDetections(d.Name(), "none")
			return nil
		}
	}

	banner := strings.TrimSpace(string(buf[:n]))
	if banner == "" {
		metrics.GetGlobalMetrics().IncrementDetections(d.Name(), "none")
		return nil
	}

	version := ParseBanner(banner)
	logging.Debug("Banner classified",
		"port", port,
		"service", version.ServiceName,
		"banner_bytes", n)
	metrics.GetGlobalMetrics().IncrementDetections(d.Name(), "hit")
	return version
}

// probeFor returns the minimal probe payload for a port, or nil for
// protocols that announce themselves unprompted.
func probeFor(port int) []byte {
	switch port {
	case 80, 8000, 8080, 8443, 443:
		return httpProbe
	case 25, 465, 587:
		return smtpProbe
	}
	return nil
}

// ParseBanner classifies a banner by case-insensitive substring and prefix
// rules, in priority order. The raw banner is always retained so an
// unrecognized-but-present service stays distinguishable from no response.
func ParseBanner(banner string) *ServiceVersion {
	lower := strings.ToLower(banner)

	// SSH banner: "SSH-2.0-OpenSSH_8.2p1 Ubuntu-4ubuntu0.5"
	if strings.HasPrefix(lower, "ssh-") {
		v := &ServiceVersion{ServiceName: "SSH", Protocol: "tcp", Banner: banner}
		fields := strings.Fields(banner)
		if len(fields) > 0 {
			v.Version = strings.TrimPrefix(strings.TrimPrefix(fields[0], "SSH-"), "ssh-")
		}
		return v
	}

	// HTTP: prefer the Server header when the response carries one.
	if strings.Contains(lower, "http/") {
		v := &ServiceVersion{ServiceName: "HTTP", Protocol: "tcp", Banner: banner}
		for _, line := range strings.Split(banner, "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(strings.ToLower(line), "server:") {
				server := strings.TrimSpace(line[len("server:"):])
				v.Banner = server
				if name, ver, ok := strings.Cut(server, "/"); ok && name != "" {
					v.ServiceName = name
					if fields := strings.Fields(ver); len(fields) > 0 {
						v.Version = fields[0]
					}
				}
				break
			}
		}
		return v
	}

	// SMTP: a 220 greeting that mentions mail handling. Checked before the
	// generic 220 rule so mail servers are not misfiled as FTP.
	if strings.HasPrefix(banner, "220 ") &&
		(strings.Contains(lower, "smtp") || strings.Contains(lower, "mail")) {
		return &ServiceVersion{ServiceName: "SMTP", Protocol: "tcp", Banner: banner}
	}

	// FTP: explicit mention or a bare 220 greeting.
	if strings.Contains(lower, "ftp") || strings.HasPrefix(banner, "220") {
		return &ServiceVersion{ServiceName: "FTP", Protocol: "tcp", Banner: banner}
	}

	return &ServiceVersion{ServiceName: "unknown", Protocol: "tcp", Banner: banner}
}
