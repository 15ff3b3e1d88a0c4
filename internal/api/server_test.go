package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvestad/portsleuth/internal/config"
	"github.com/nvestad/portsleuth/internal/scanning"
)

// stubResults builds a canned aggregate matching what the stub runner scans.
func stubResults(target string) *scanning.ScanResults {
	return &scanning.ScanResults{
		ScanID:    "e6e9b2f6-1111-2222-3333-444444444444",
		Target:    target,
		Mode:      "custom:2 ports",
		StartTime: time.Now(),
		Duration:  50 * time.Millisecond,
		Results: []scanning.PortScanResult{
			{Port: 22, Status: scanning.StatusOpen, ServiceName: "SSH"},
			{Port: 23, Status: scanning.StatusClosed},
		},
		Total:  2,
		Open:   1,
		Closed: 1,
	}
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.API.Enabled = true
	if mutate != nil {
		mutate(cfg)
	}

	s := New(cfg, nil)
	s.runScan = func(_ context.Context, scanCfg *scanning.ScanConfig, onResult scanning.ResultFunc) (*scanning.ScanResults, error) {
		results := stubResults(scanCfg.Target)
		if onResult != nil {
			for _, r := range results.Results {
				onResult(r)
			}
		}
		return results, nil
	}
	return s
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestVersionEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/version", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "version")
}

func TestCreateScan(t *testing.T) {
	s := newTestServer(t, nil)

	body, _ := json.Marshal(ScanRequest{Target: "192.0.2.10", Ports: "22,23"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var results scanning.ScanResults
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	assert.Equal(t, "192.0.2.10", results.Target)
	assert.Equal(t, 2, results.Total)
	assert.Equal(t, 1, results.Open)
}

func TestCreateScanValidation(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing target", `{"ports":"22"}`},
		{"malformed json", `{"target":`},
		{"threads above cap", `{"target":"192.0.2.10","threads":9999}`},
		{"bad port spec", `{"target":"192.0.2.10","ports":"99999"}`},
		{"inverted range", `{"target":"192.0.2.10","ports":"100-50"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			s.Router().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestScanHistoryWithoutStore(t *testing.T) {
	s := newTestServer(t, nil)

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/scans"},
		{http.MethodGet, "/api/v1/scans/e6e9b2f6-1111-2222-3333-444444444444"},
		{http.MethodDelete, "/api/v1/scans/e6e9b2f6-1111-2222-3333-444444444444"},
	} {
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestAuthMiddleware(t *testing.T) {
	hash, err := HashAPIKey("sleuth-secret")
	require.NoError(t, err)

	s := newTestServer(t, func(cfg *config.Config) {
		cfg.API.APIKeyHash = hash
	})

	t.Run("missing key rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil)
		req.Header.Set("X-API-Key", "wrong")
		s.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("correct key accepted", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil)
		req.Header.Set("X-API-Key", "sleuth-secret")
		s.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	s := newTestServer(t, nil)
	s.runScan = func(context.Context, *scanning.ScanConfig, scanning.ResultFunc) (*scanning.ScanResults, error) {
		panic("runner exploded")
	}

	body := `{"target":"192.0.2.10","ports":"22"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStreamScan(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") +
		"/api/v1/scans/stream?target=192.0.2.10&ports=22,23"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	var resultFrames int
	var gotSummary bool
	for !gotSummary {
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		switch msg.Type {
		case "result":
			resultFrames++
			require.NotNil(t, msg.Result)
		case "summary":
			gotSummary = true
			require.NotNil(t, msg.Summary)
			assert.Equal(t, 2, msg.Summary.Total)
		default:
			t.Fatalf("unexpected frame type %q", msg.Type)
		}
	}
	assert.Equal(t, 2, resultFrames)
}

func TestStreamScanRejectsBadRequest(t *testing.T) {
	s := newTestServer(t, nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/scans/stream?ports=22", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
