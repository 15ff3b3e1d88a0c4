package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nvestad/portsleuth/internal/scanning"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsBufferSize   = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	// Auth happens in middleware; cross-origin clients are allowed.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsMessage is one frame on the scan stream. Type is "result" for per-port
// updates, "summary" for the final aggregate, or "error".
type wsMessage struct {
	Type    string                   `json:"type"`
	Result  *scanning.PortScanResult `json:"result,omitempty"`
	Summary *scanning.ScanResults    `json:"summary,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// streamScanHandler runs a scan and pushes each port result over a websocket
// as it completes, followed by a summary frame. Results arrive in completion
// order; only the summary is port ordered.
func (s *Server) streamScanHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := ScanRequest{
		Target:         query.Get("target"),
		Ports:          query.Get("ports"),
		DetectVersions: query.Get("detect_versions") == "true",
		DetectOS:       query.Get("detect_os") == "true",
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := s.buildScanConfig(r, &req)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Gorilla connections allow one concurrent writer; results arrive from
	// multiple scan workers.
	var writeMu sync.Mutex
	send := func(msg *wsMessage) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			s.logger.Debug("Websocket write failed", "error", err)
		}
	}

	results, err := s.runScan(r.Context(), cfg, func(result scanning.PortScanResult) {
		send(&wsMessage{Type: "result", Result: &result})
	})
	if err != nil {
		send(&wsMessage{Type: "error", Error: err.Error()})
		return
	}

	if s.store != nil && s.cfg.API.PersistScans {
		if err := s.store.SaveScan(r.Context(), results); err != nil {
			s.logger.Error("Failed to persist scan", "scan_id", results.ScanID, "error", err)
		}
	}

	send(&wsMessage{Type: "summary", Summary: results})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteTimeout))
}
