package detect

import (
	"bytes"
	"encoding/binary"
	"net"
	"time"

	"github.com/nvestad/portsleuth/internal/logging"
	"github.com/nvestad/portsleuth/internal/metrics"
)

const (
	// smbPort is the only port SMB fingerprinting applies to.
	smbPort = 445

	// smbReadTimeout bounds the negotiate response read.
	smbReadTimeout = 3 * time.Second

	// smbBufferSize bounds the negotiate response.
	smbBufferSize = 4096

	// smbMinResponseLen is the minimum byte count for a parseable negotiate
	// response; anything shorter is rejected as malformed.
	smbMinResponseLen = 32
)

// Protocol signatures at offset 4 of the NetBIOS-framed response.
var (
	smb1Magic = []byte{0xff, 'S', 'M', 'B'}
	smb2Magic = []byte{0xfe, 'S', 'M', 'B'}
)

// SMBFingerprinter infers the remote operating system from an SMB1
// Negotiate Protocol exchange on port 445. The dialect a server answers with
// reveals its SMB generation; SMB1-only servers cannot be told apart from
// Samba by the negotiate response alone, so that case stays ambiguous.
type SMBFingerprinter struct{}

// NewSMBFingerprinter creates an SMB-based OS fingerprinter.
func NewSMBFingerprinter() *SMBFingerprinter {
	return &SMBFingerprinter{}
}

// Name implements Detector.
func (d *SMBFingerprinter) Name() string {
	return "smb"
}

// CanDetect implements Detector.
func (d *SMBFingerprinter) CanDetect(port int) bool {
	return port == smbPort
}

// DetectService implements Detector. SMB fingerprinting yields OS info only.
func (d *SMBFingerprinter) DetectService(_ net.Conn, _ int, _ time.Duration) *ServiceVersion {
	return nil
}

// DetectOS implements Detector. It sends the fixed negotiate request and
// classifies the response by its protocol signature.
func (d *SMBFingerprinter) DetectOS(conn net.Conn, port int, timeout time.Duration) *OSInfo {
	if conn == nil || port != smbPort {
		return nil
	}

	packet := buildNegotiateRequest()

	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	if _, err := conn.Write(packet); err != nil {
		logging.Debug("SMB negotiate write failed", "error", err)
		metrics.GetGlobalMetrics().IncrementDetections(d.Name(), "none")
		return nil
	}

	buf := make([]byte, smbBufferSize)
	_ = conn.SetReadDeadline(time.Now().Add(smbReadTimeout))
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		logging.Debug("SMB negotiate read failed", "error", err, "bytes", n)
		metrics.GetGlobalMetrics().IncrementDetections(d.Name(), "none")
		return nil
	}

	info := ParseNegotiateResponse(buf[:n])
	if info.IsDetected() {
		logging.Debug("SMB fingerprint", "os", info.OSName, "smb_version", info.SMBVersion)
		metrics.GetGlobalMetrics().IncrementDetections(d.Name(), "hit")
	} else {
		metrics.GetGlobalMetrics().IncrementDetections(d.Name(), "none")
	}
	return info
}

// buildNegotiateRequest assembles the SMB1 Negotiate Protocol request:
// NetBIOS session header, SMB1 header, and a dialect list that offers both
// SMB1 and SMB2 so the server's answer reveals its generation.
func buildNegotiateRequest() []byte {
	dialects := []string{"NT LM 0.12", "SMB 2.002", "SMB 2.???"}

	var body bytes.Buffer

	// SMB1 header
	body.Write(smb1Magic)
	body.WriteByte(0x72)                               // Command: Negotiate Protocol
	body.Write([]byte{0x00, 0x00, 0x00, 0x00})         // NT status
	body.WriteByte(0x18)                               // Flags: canonical paths, case insensitive
	body.Write([]byte{0x53, 0xc8})                     // Flags2: unicode, NT status, extended security
	body.Write([]byte{0x00, 0x00})                     // PID high
	body.Write(make([]byte, 8))                        // Signature
	body.Write([]byte{0x00, 0x00})                     // Reserved
	body.Write([]byte{0x00, 0x00})                     // TID
	body.Write([]byte{0xff, 0xfe})                     // PID
	body.Write([]byte{0x00, 0x00})                     // UID
	body.Write([]byte{0x00, 0x00})                     // MID

	// Negotiate request: word count, byte count, then the dialect entries,
	// each a 0x02-prefixed null-terminated string.
	var dialectBuf bytes.Buffer
	for _, d := range dialects {
		dialectBuf.WriteByte(0x02)
		dialectBuf.WriteString(d)
		dialectBuf.WriteByte(0x00)
	}
	body.WriteByte(0x00)
	byteCount := make([]byte, 2)
	binary.LittleEndian.PutUint16(byteCount, uint16(dialectBuf.Len()))
	body.Write(byteCount)
	body.Write(dialectBuf.Bytes())

	// NetBIOS session header: message type 0, 3-byte big-endian length.
	packet := make([]byte, 0, 4+body.Len())
	packet = append(packet, 0x00,
		byte(body.Len()>>16), byte(body.Len()>>8), byte(body.Len()))
	return append(packet, body.Bytes()...)
}

// ParseNegotiateResponse classifies a negotiate response by protocol
// signature. Responses shorter than 32 bytes are rejected outright.
func ParseNegotiateResponse(data []byte) *OSInfo {
	if len(data) < smbMinResponseLen {
		return &OSInfo{}
	}

	sig := data[4:8]
	switch {
	case bytes.Equal(sig, smb2Magic):
		info := &OSInfo{
			SMBVersion: "SMB 2.x/3.x",
			OSName:     "Windows",
			OSVersion:  "7 or later",
		}
		// The negotiated dialect code narrows the SMB revision when the
		// response is long enough to carry it.
		if len(data) >= 74 {
			if v := dialectVersion(binary.LittleEndian.Uint16(data[72:74])); v != "" {
				info.SMBVersion = v
			}
		}
		return info

	case bytes.Equal(sig, smb1Magic):
		// SMB1 alone cannot distinguish an old Windows host from Samba.
		return &OSInfo{
			SMBVersion: "SMB 1.0",
			OSName:     "Windows/Samba",
		}
	}

	return &OSInfo{}
}

// dialectVersion maps an SMB2/3 dialect code to its revision string.
func dialectVersion(dialect uint16) string {
	switch dialect {
	case 0x0202:
		return "SMB 2.0.2"
	case 0x0210:
		return "SMB 2.1"
	case 0x0300:
		return "SMB 3.0"
	case 0x0302:
		return "SMB 3.0.2"
	case 0x0311:
		return "SMB 3.1.1"
	}
	return ""
}
