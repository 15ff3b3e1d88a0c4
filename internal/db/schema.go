package db

import (
	"context"
)

// schema is the full DDL, safe to run repeatedly.
const schema = `
CREATE TABLE IF NOT EXISTS scans (
	id UUID PRIMARY KEY,
	target TEXT NOT NULL,
	mode TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	duration_ns BIGINT NOT NULL,
	total_ports INTEGER NOT NULL,
	open_ports INTEGER NOT NULL,
	closed_ports INTEGER NOT NULL,
	filtered_ports INTEGER NOT NULL,
	error_ports INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS port_results (
	id BIGSERIAL PRIMARY KEY,
	scan_id UUID NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
	port INTEGER NOT NULL,
	status TEXT NOT NULL,
	service_name TEXT NOT NULL DEFAULT '',
	version TEXT NOT NULL DEFAULT '',
	banner TEXT NOT NULL DEFAULT '',
	os_name TEXT NOT NULL DEFAULT '',
	smb_version TEXT NOT NULL DEFAULT '',
	duration_ns BIGINT NOT NULL,
	error_message TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_port_results_scan_id ON port_results(scan_id);
CREATE INDEX IF NOT EXISTS idx_scans_started_at ON scans(started_at DESC);
`

// EnsureSchema creates the tables and indexes if they do not exist.
func (d *DB) EnsureSchema(ctx context.Context) error {
	if _, err := d.ExecContext(ctx, schema); err != nil {
		return sanitizeDBError("ensure schema", err)
	}
	return nil
}
