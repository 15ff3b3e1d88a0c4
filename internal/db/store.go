package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/nvestad/portsleuth/internal/scanning"
)

// Store persists scan runs and their per-port results.
type Store struct {
	db *DB
}

// NewStore creates a store on an open database connection.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// SaveScan writes a completed scan and all of its port results in one
// transaction.
func (s *Store) SaveScan(ctx context.Context, results *scanning.ScanResults) error {
	scanID, err := uuid.Parse(results.ScanID)
	if err != nil {
		return sanitizeDBError("parse scan id", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return sanitizeDBError("begin save scan", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scans (id, target, mode, started_at, duration_ns,
			total_ports, open_ports, closed_ports, filtered_ports, error_ports)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		scanID, results.Target, results.Mode, results.StartTime, results.Duration,
		results.Total, results.Open, results.Closed, results.Filtered, results.Errors,
	)
	if err != nil {
		return sanitizeDBError("insert scan", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO port_results (scan_id, port, status, service_name, version,
			banner, os_name, smb_version, duration_ns, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
	if err != nil {
		return sanitizeDBError("prepare port results", err)
	}
	defer stmt.Close()

	for i := range results.Results {
		r := &results.Results[i]
		version := ""
		banner := ""
		if r.Version != nil {
			version = r.Version.String()
			banner = r.Version.Banner
		}
		osName := ""
		smbVersion := ""
		if r.OS != nil {
			osName = r.OS.OSName
			smbVersion = r.OS.SMBVersion
		}
		if _, err := stmt.ExecContext(ctx,
			scanID, r.Port, string(r.Status), r.ServiceName, version,
			banner, osName, smbVersion, r.Duration, r.Error,
		); err != nil {
			return sanitizeDBError("insert port result", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return sanitizeDBError("commit save scan", err)
	}
	return nil
}

// GetScan fetches one scan record by ID.
func (s *Store) GetScan(ctx context.Context, scanID uuid.UUID) (*ScanRecord, error) {
	var record ScanRecord
	err := s.db.GetContext(ctx, &record, `
		SELECT id, target, mode, started_at, duration_ns,
			total_ports, open_ports, closed_ports, filtered_ports, error_ports, created_at
		FROM scans WHERE id = $1`, scanID)
	if err != nil {
		return nil, sanitizeDBError("get scan", err)
	}
	return &record, nil
}

// ListScans returns the most recent scans, newest first.
func (s *Store) ListScans(ctx context.Context, limit, offset int) ([]ScanRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []ScanRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT id, target, mode, started_at, duration_ns,
			total_ports, open_ports, closed_ports, filtered_ports, error_ports, created_at
		FROM scans ORDER BY started_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, sanitizeDBError("list scans", err)
	}
	return records, nil
}

// GetPortResults fetches the per-port results of one scan, port ordered.
func (s *Store) GetPortResults(ctx context.Context, scanID uuid.UUID) ([]PortResultRecord, error) {
	var records []PortResultRecord
	err := s.db.SelectContext(ctx, &records, `
		SELECT id, scan_id, port, status, service_name, version,
			banner, os_name, smb_version, duration_ns, error_message
		FROM port_results WHERE scan_id = $1 ORDER BY port`, scanID)
	if err != nil {
		return nil, sanitizeDBError("get port results", err)
	}
	return records, nil
}

// DeleteScan removes a scan and, via the schema's cascade, its port results.
func (s *Store) DeleteScan(ctx context.Context, scanID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE id = $1`, scanID)
	if err != nil {
		return sanitizeDBError("delete scan", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sanitizeDBError("delete scan", sql.ErrNoRows)
	}
	return nil
}
