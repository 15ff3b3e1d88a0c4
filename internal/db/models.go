package db

import (
	"time"

	"github.com/google/uuid"
)

// ScanRecord is one persisted scan run.
type ScanRecord struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	Target    string        `db:"target" json:"target"`
	Mode      string        `db:"mode" json:"mode"`
	StartedAt time.Time     `db:"started_at" json:"started_at"`
	Duration  time.Duration `db:"duration_ns" json:"duration_ns"`

	TotalPorts    int `db:"total_ports" json:"total_ports"`
	OpenPorts     int `db:"open_ports" json:"open_ports"`
	ClosedPorts   int `db:"closed_ports" json:"closed_ports"`
	FilteredPorts int `db:"filtered_ports" json:"filtered_ports"`
	ErrorPorts    int `db:"error_ports" json:"error_ports"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PortResultRecord is one persisted per-port probe outcome.
type PortResultRecord struct {
	ID          int64         `db:"id" json:"id"`
	ScanID      uuid.UUID     `db:"scan_id" json:"scan_id"`
	Port        int           `db:"port" json:"port"`
	Status      string        `db:"status" json:"status"`
	ServiceName string        `db:"service_name" json:"service_name,omitempty"`
	Version     string        `db:"version" json:"version,omitempty"`
	Banner      string        `db:"banner" json:"banner,omitempty"`
	OSName      string        `db:"os_name" json:"os_name,omitempty"`
	SMBVersion  string        `db:"smb_version" json:"smb_version,omitempty"`
	Duration    time.Duration `db:"duration_ns" json:"duration_ns"`
	Error       string        `db:"error_message" json:"error,omitempty"`
}
