package scanning

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nvestad/portsleuth/internal/detect"
	"github.com/nvestad/portsleuth/internal/errors"
	"github.com/nvestad/portsleuth/internal/logging"
	"github.com/nvestad/portsleuth/internal/metrics"
	"github.com/nvestad/portsleuth/internal/services"
)

// Scanner runs complete scans for one validated configuration. It owns the
// strategy and executor selection and attaches detection results to open
// ports.
type Scanner struct {
	cfg       *ScanConfig
	connector Connector
	strategy  Strategy
	executor  Executor
	detectors *detect.Registry
	logger    *logging.Logger
}

// ScannerOption adjusts scanner construction.
type ScannerOption func(*Scanner)

// WithConnector replaces the TCP connector, primarily for tests.
func WithConnector(connector Connector) ScannerOption {
	return func(s *Scanner) { s.connector = connector }
}

// WithDetectors replaces the detector registry.
func WithDetectors(registry *detect.Registry) ScannerOption {
	return func(s *Scanner) { s.detectors = registry }
}

// WithLogger replaces the scanner's logger.
func WithLogger(logger *logging.Logger) ScannerOption {
	return func(s *Scanner) { s.logger = logger }
}

// NewScanner creates a scanner for a validated configuration.
func NewScanner(cfg *ScanConfig, opts ...ScannerOption) (*Scanner, error) {
	if cfg == nil {
		return nil, errors.ErrConfigMissing("scan config")
	}

	s := &Scanner{
		cfg:       cfg.Clone(),
		connector: NewTCPConnector(),
		logger:    logging.Default().WithComponent("scanner"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.detectors == nil {
		registry := detect.NewRegistry()
		registry.Register(detect.NewVersionDetector())
		registry.Register(detect.NewSMBFingerprinter())
		s.detectors = registry
	}

	s.strategy = NewStrategy(s.cfg, s.connector)
	s.executor = NewExecutor(s.cfg)
	return s, nil
}

// Config returns the scanner's configuration.
func (s *Scanner) Config() *ScanConfig {
	return s.cfg.Clone()
}

// Run executes the full scan and returns the aggregated, port-ordered
// results.
func (s *Scanner) Run(ctx context.Context) (*ScanResults, error) {
	return s.RunWithCallback(ctx, nil)
}

// RunWithCallback executes the scan, invoking onResult for each port as it
// completes. Callback delivery follows completion order and may be
// concurrent; the returned aggregate is always port-ordered.
func (s *Scanner) RunWithCallback(ctx context.Context, onResult ResultFunc) (*ScanResults, error) {
	scanID := uuid.New().String()
	ports := s.cfg.Mode.Ports()
	logger := s.logger.WithScanID(scanID).WithTarget(s.cfg.Target)

	logger.Info("Scan starting",
		"mode", s.cfg.Mode.String(),
		"ports", len(ports),
		"strategy", s.strategy.Name(),
		"parallel", s.cfg.Parallel)

	m := metrics.GetGlobalMetrics()
	m.ScanStarted()
	defer m.ScanFinished()

	start := time.Now()
	results := s.executor.Execute(ctx, ports, s.probePort, onResult)
	scan := newScanResults(scanID, s.cfg.Target, s.cfg.Mode.String(), start, results)

	status := "completed"
	if ctx.Err() != nil {
		status = "canceled"
	}
	m.IncrementScansTotal(s.cfg.Mode.String(), status)
	m.RecordScanDuration(s.cfg.Mode.String(), scan.Duration)

	logger.Info("Scan finished",
		"duration", scan.Duration,
		"total", scan.Total,
		"open", scan.Open,
		"closed", scan.Closed,
		"filtered", scan.Filtered,
		"errors", scan.Errors)

	if ctx.Err() != nil {
		return scan, errors.WrapScanErrorWithTarget(errors.CodeCanceled,
			"scan canceled", s.cfg.Target, ctx.Err())
	}
	return scan, nil
}

// ScanPort probes a single port with the configured strategy, including
// detection when enabled.
func (s *Scanner) ScanPort(ctx context.Context, port int) (PortScanResult, error) {
	if err := ValidatePort(port); err != nil {
		return PortScanResult{}, err
	}
	return s.probePort(ctx, port), nil
}

// probePort classifies one port and, for open ports, annotates the service
// name and runs any enabled detectors.
func (s *Scanner) probePort(ctx context.Context, port int) PortScanResult {
	result := s.strategy.ScanPort(ctx, port)

	m := metrics.GetGlobalMetrics()
	m.IncrementPortsScanned(string(result.Status))
	if result.Status == StatusError {
		m.IncrementScanErrors(string(errors.CodeProbeFailed))
	}

	if !result.IsOpen() {
		return result
	}
	result.ServiceName = services.Name(port)

	// Detection never demotes an open port: failures leave the result as
	// classified and carry no error.
	if s.cfg.DetectVersions {
		result.Version = s.detectService(ctx, port)
	}
	if s.cfg.DetectOS {
		result.OS = s.detectOS(ctx, port)
	}
	return result
}

// detectService dials a fresh connection for banner grabbing. The probe
// socket is never reused so detection traffic cannot disturb classification.
func (s *Scanner) detectService(ctx context.Context, port int) *detect.ServiceVersion {
	conn, err := s.connector.Connect(ctx, s.cfg.Target, port, 0, s.cfg.Timeout)
	if err != nil {
		s.logger.Debug("Detection dial failed", "port", port, "error", err)
		return nil
	}
	defer conn.Close()
	return s.detectors.DetectService(conn, port, s.cfg.Timeout)
}

// detectOS dials a fresh connection for OS fingerprinting.
func (s *Scanner) detectOS(ctx context.Context, port int) *detect.OSInfo {
	conn, err := s.connector.Connect(ctx, s.cfg.Target, port, 0, s.cfg.Timeout)
	if err != nil {
		s.logger.Debug("Detection dial failed", "port", port, "error", err)
		return nil
	}
	defer conn.Close()
	return s.detectors.DetectOS(conn, port, s.cfg.Timeout)
}
