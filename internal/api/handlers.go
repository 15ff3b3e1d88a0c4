package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/nvestad/portsleuth/internal/errors"
	"github.com/nvestad/portsleuth/internal/scanning"
	"github.com/nvestad/portsleuth/internal/version"
)

var validate = validator.New()

// ScanRequest is the POST /api/v1/scans payload.
type ScanRequest struct {
	Target              string `json:"target" validate:"required,hostname|ip"`
	Ports               string `json:"ports" validate:"omitempty,max=4096"`
	TimeoutMS           int    `json:"timeout_ms" validate:"omitempty,min=1,max=60000"`
	Parallel            *bool  `json:"parallel"`
	Threads             int    `json:"threads" validate:"omitempty,min=1,max=256"`
	DelayMS             int    `json:"delay_ms" validate:"omitempty,min=0,max=60000"`
	RandomizeSourcePort bool   `json:"randomize_source_port"`
	DetectVersions      bool   `json:"detect_versions"`
	DetectOS            bool   `json:"detect_os"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusForError maps internal error codes to HTTP statuses.
func statusForError(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeValidation, errors.CodeConfiguration, errors.CodeTargetInvalid:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeConflict:
		return http.StatusConflict
	case errors.CodeUnauthorized:
		return http.StatusUnauthorized
	case errors.CodeDatabaseConnection, errors.CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

func (s *Server) versionHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": version.Version,
		"commit":  version.Commit,
	})
}

// createScanHandler runs a scan synchronously and returns the aggregate.
func (s *Server) createScanHandler(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
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

	results, err := s.runScan(r.Context(), cfg, nil)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	if s.store != nil && s.cfg.API.PersistScans {
		if err := s.store.SaveScan(r.Context(), results); err != nil {
			s.logger.Error("Failed to persist scan", "scan_id", results.ScanID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, results)
}

// buildScanConfig merges the request with configured defaults and validates
// once.
func (s *Server) buildScanConfig(r *http.Request, req *ScanRequest) (*scanning.ScanConfig, error) {
	portSpec := req.Ports
	if portSpec == "" {
		portSpec = s.cfg.Scanning.DefaultPorts
	}
	mode, err := scanning.ParsePortSpec(portSpec)
	if err != nil {
		return nil, err
	}

	target, err := s.resolver.Resolve(r.Context(), req.Target)
	if err != nil {
		return nil, err
	}

	timeout := s.cfg.Scanning.Timeout
	if req.TimeoutMS > 0 {
		timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}
	opts := []scanning.Option{scanning.WithTimeout(timeout)}

	parallel := s.cfg.Scanning.Parallel
	if req.Parallel != nil {
		parallel = *req.Parallel
	}
	if parallel {
		threads := s.cfg.Scanning.ThreadCount
		if req.Threads > 0 {
			threads = req.Threads
		}
		opts = append(opts, scanning.WithParallel(threads))
	}

	if req.DelayMS > 0 {
		opts = append(opts, scanning.WithDelay(time.Duration(req.DelayMS)*time.Millisecond))
	}
	if req.RandomizeSourcePort {
		opts = append(opts, scanning.WithRandomSourcePort())
	}
	opts = append(opts, scanning.WithDetection(req.DetectVersions, req.DetectOS))

	return scanning.NewScanConfig(target, mode, opts...)
}

func (s *Server) listScansHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "scan history is not enabled")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	records, err := s.store.ListScans(r.Context(), limit, offset)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": records})
}

func (s *Server) getScanHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "scan history is not enabled")
		return
	}

	scanID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scan id")
		return
	}

	record, err := s.store.GetScan(r.Context(), scanID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	ports, err := s.store.GetPortResults(r.Context(), scanID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scan": record, "ports": ports})
}

func (s *Server) deleteScanHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "scan history is not enabled")
		return
	}

	scanID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scan id")
		return
	}
	if err := s.store.DeleteScan(r.Context(), scanID); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
