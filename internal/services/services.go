// Package services provides a static lookup table mapping well-known TCP
// ports to service names. It is used to annotate scan results for
// presentation and to supply the curated common-ports list.
package services

// wellKnown maps TCP port numbers to conventional service names.
var wellKnown = map[int]string{
	21:    "FTP",
	22:    "SSH",
	23:    "Telnet",
	25:    "SMTP",
	53:    "DNS",
	80:    "HTTP",
	110:   "POP3",
	111:   "RPCbind",
	135:   "MSRPC",
	139:   "NetBIOS",
	143:   "IMAP",
	443:   "HTTPS",
	445:   "SMB",
	993:   "IMAPS",
	995:   "POP3S",
	1723:  "PPTP",
	3306:  "MySQL",
	3389:  "RDP",
	5432:  "PostgreSQL",
	5900:  "VNC",
	6379:  "Redis",
	8080:  "HTTP-Proxy",
	8443:  "HTTPS-Alt",
	8888:  "HTTP-Alt",
	9090:  "Prometheus",
	27017: "MongoDB",
}

// commonPorts is the curated list of frequently exposed TCP ports, in scan
// priority order (not sorted).
var commonPorts = []int{
	21, 22, 23, 25, 53, 80, 110, 111, 135, 139, 143, 443, 445, 993, 995,
	1723, 3306, 3389, 5432, 5900, 6379, 8080, 8443, 8888, 9090, 27017,
}

// Name returns the conventional service name for a port, or "unknown" when
// the port is not in the table.
func Name(port int) string {
	if name, ok := wellKnown[port]; ok {
		return name
	}
	return "unknown"
}

// Lookup returns the service name for a port and whether it is known.
func Lookup(port int) (string, bool) {
	name, ok := wellKnown[port]
	return name, ok
}

// CommonPorts returns a copy of the curated common-ports list.
func CommonPorts() []int {
	ports := make([]int, len(commonPorts))
	copy(ports, commonPorts)
	return ports
}
