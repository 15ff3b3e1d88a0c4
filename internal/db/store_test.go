package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvestad/portsleuth/internal/detect"
	"github.com/nvestad/portsleuth/internal/errors"
	"github.com/nvestad/portsleuth/internal/scanning"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	wrapped := &DB{DB: sqlx.NewDb(mockDB, "sqlmock")}
	return NewStore(wrapped), mock
}

func sampleScan() *scanning.ScanResults {
	return &scanning.ScanResults{
		ScanID:    uuid.New().String(),
		Target:    "target.example",
		Mode:      "custom:2 ports",
		StartTime: time.Now(),
		Duration:  time.Second,
		Results: []scanning.PortScanResult{
			{
				Port:        22,
				Status:      scanning.StatusOpen,
				ServiceName: "SSH",
				Duration:    10 * time.Millisecond,
				Version: &detect.ServiceVersion{
					ServiceName: "SSH",
					Version:     "2.0-OpenSSH_9.6",
					Banner:      "SSH-2.0-OpenSSH_9.6",
					Protocol:    "tcp",
				},
			},
			{Port: 23, Status: scanning.StatusClosed, Duration: 2 * time.Millisecond},
		},
		Total:  2,
		Open:   1,
		Closed: 1,
	}
}

func TestSaveScan(t *testing.T) {
	store, mock := newMockStore(t)
	scan := sampleScan()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO scans").
		WillReturnResult(sqlmock.NewResult(0, 1))
	prepared := mock.ExpectPrepare("INSERT INTO port_results")
	prepared.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prepared.ExpectExec().WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := store.SaveScan(context.Background(), scan)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveScanRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)
	scan := sampleScan()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO scans").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := store.SaveScan(context.Background(), scan)

	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseQuery, errors.GetCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveScanRejectsBadScanID(t *testing.T) {
	store, _ := newMockStore(t)
	scan := sampleScan()
	scan.ScanID = "not-a-uuid"

	assert.Error(t, store.SaveScan(context.Background(), scan))
}

func TestGetScan(t *testing.T) {
	store, mock := newMockStore(t)
	scanID := uuid.New()
	started := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "target", "mode", "started_at", "duration_ns",
		"total_ports", "open_ports", "closed_ports", "filtered_ports", "error_ports",
		"created_at",
	}).AddRow(scanID, "target.example", "common", started, int64(time.Second),
		26, 3, 20, 3, 0, started)

	mock.ExpectQuery("SELECT (.+) FROM scans WHERE id").
		WithArgs(scanID).
		WillReturnRows(rows)

	record, err := store.GetScan(context.Background(), scanID)

	require.NoError(t, err)
	assert.Equal(t, scanID, record.ID)
	assert.Equal(t, "target.example", record.Target)
	assert.Equal(t, 26, record.TotalPorts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetScanNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	scanID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM scans WHERE id").
		WithArgs(scanID).
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetScan(context.Background(), scanID)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestListScans(t *testing.T) {
	store, mock := newMockStore(t)
	started := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "target", "mode", "started_at", "duration_ns",
		"total_ports", "open_ports", "closed_ports", "filtered_ports", "error_ports",
		"created_at",
	}).
		AddRow(uuid.New(), "a.example", "common", started, int64(time.Second), 26, 1, 25, 0, 0, started).
		AddRow(uuid.New(), "b.example", "range:1-1024", started, int64(time.Minute), 1024, 4, 1000, 20, 0, started)

	mock.ExpectQuery("SELECT (.+) FROM scans ORDER BY started_at DESC").
		WithArgs(50, 0).
		WillReturnRows(rows)

	records, err := store.ListScans(context.Background(), 0, 0)

	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestGetPortResults(t *testing.T) {
	store, mock := newMockStore(t)
	scanID := uuid.New()

	rows := sqlmock.NewRows([]string{
		"id", "scan_id", "port", "status", "service_name", "version",
		"banner", "os_name", "smb_version", "duration_ns", "error_message",
	}).AddRow(int64(1), scanID, 22, "open", "SSH", "SSH 2.0-OpenSSH_9.6",
		"SSH-2.0-OpenSSH_9.6", "", "", int64(10*time.Millisecond), "")

	mock.ExpectQuery("SELECT (.+) FROM port_results WHERE scan_id").
		WithArgs(scanID).
		WillReturnRows(rows)

	records, err := store.GetPortResults(context.Background(), scanID)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 22, records[0].Port)
	assert.Equal(t, "open", records[0].Status)
}

func TestDeleteScan(t *testing.T) {
	store, mock := newMockStore(t)
	scanID := uuid.New()

	t.Run("existing scan", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM scans").
			WithArgs(scanID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, store.DeleteScan(context.Background(), scanID))
	})

	t.Run("missing scan", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM scans").
			WithArgs(scanID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		err := store.DeleteScan(context.Background(), scanID)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeNotFound))
	})
}
