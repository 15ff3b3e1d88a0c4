package detect

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is a scripted net.Conn for detector tests. Reads return the queued
// responses in order; an empty queue returns io.EOF. Writes are recorded.
type fakeConn struct {
	responses [][]byte
	writes    [][]byte
}

func (c *fakeConn) Read(b []byte) (int, error) {
	if len(c.responses) == 0 {
		return 0, io.EOF
	}
	data := c.responses[0]
	c.responses = c.responses[1:]
	if data == nil {
		return 0, io.EOF
	}
	n := copy(b, data)
	return n, nil
}

func (c *fakeConn) Write(b []byte) (int, error) {
	buf := make([]byte, len(b))
	copy(buf, b)
	c.writes = append(c.writes, buf)
	return len(b), nil
}

func (c *fakeConn) Close() error                       { return nil }
func (c *fakeConn) LocalAddr() net.Addr                { return nil }
func (c *fakeConn) RemoteAddr() net.Addr               { return nil }
func (c *fakeConn) SetDeadline(t time.Time) error      { return nil }
func (c *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func TestServiceVersionIsDetected(t *testing.T) {
	tests := []struct {
		name     string
		version  *ServiceVersion
		detected bool
	}{
		{
			name:     "nil version",
			version:  nil,
			detected: false,
		},
		{
			name:     "unknown without banner",
			version:  UnknownService(),
			detected: false,
		},
		{
			name:     "unknown with banner",
			version:  &ServiceVersion{ServiceName: "unknown", Banner: "something spoke"},
			detected: true,
		},
		{
			name:     "identified service",
			version:  &ServiceVersion{ServiceName: "SSH"},
			detected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.detected, tt.version.IsDetected())
		})
	}
}

func TestOSInfoIsDetected(t *testing.T) {
	tests := []struct {
		name     string
		info     *OSInfo
		detected bool
	}{
		{"nil info", nil, false},
		{"empty info", &OSInfo{}, false},
		{"os name only", &OSInfo{OSName: "Windows"}, true},
		{"os version only", &OSInfo{OSVersion: "10"}, true},
		{"computer name only", &OSInfo{ComputerName: "FILESRV01"}, true},
		{"smb version only", &OSInfo{SMBVersion: "SMB 2.x/3.x"}, true},
		{"build and domain only", &OSInfo{OSBuild: "19045", Domain: "CORP"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.detected, tt.info.IsDetected())
		})
	}
}

func TestOSInfoString(t *testing.T) {
	assert.Equal(t, "unknown OS", (&OSInfo{}).String())
	assert.Equal(t, "Windows 7 or later (SMB 2.x/3.x)",
		(&OSInfo{OSName: "Windows", OSVersion: "7 or later", SMBVersion: "SMB 2.x/3.x"}).String())
}

func TestRegistryDispatch(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewVersionDetector())
	registry.Register(NewSMBFingerprinter())
	require.Equal(t, 2, registry.Len())

	t.Run("version detector handles ssh port", func(t *testing.T) {
		conn := &fakeConn{responses: [][]byte{[]byte("SSH-2.0-OpenSSH_9.6\r\n")}}
		v := registry.DetectService(conn, 22, time.Second)
		require.NotNil(t, v)
		assert.Equal(t, "SSH", v.ServiceName)
	})

	t.Run("no detector claims unlisted port", func(t *testing.T) {
		conn := &fakeConn{responses: [][]byte{[]byte("hello")}}
		assert.Nil(t, registry.DetectService(conn, 12345, time.Second))
		assert.Nil(t, registry.DetectOS(conn, 12345, time.Second))
	})

	t.Run("smb fingerprinter handles port 445", func(t *testing.T) {
		resp := make([]byte, 80)
		copy(resp[4:8], []byte{0xfe, 'S', 'M', 'B'})
		conn := &fakeConn{responses: [][]byte{resp}}
		info := registry.DetectOS(conn, 445, time.Second)
		require.NotNil(t, info)
		assert.Equal(t, "Windows", info.OSName)
	})
}
