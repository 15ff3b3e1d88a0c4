package scanning

import (
	"context"
	"math/rand"
	"time"
)

const (
	// jitterPercent is the symmetric jitter applied to the inter-probe
	// delay: each pause is drawn from delay +/- 50%.
	jitterPercent = 50

	// sourcePortMin and sourcePortMax bound random source port selection.
	// Ports below 1024 usually need elevated privileges.
	sourcePortMin = 1024
	sourcePortMax = 65535
)

// Strategy probes a single port and classifies the outcome. Implementations
// differ only in pacing and connection fingerprint; classification is shared.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string

	// ScanPort probes one port on the configured target.
	ScanPort(ctx context.Context, port int) PortScanResult
}

// NewStrategy selects the strategy for a configuration: stealth when source
// port randomization or an inter-probe delay is requested, standard
// otherwise.
func NewStrategy(cfg *ScanConfig, connector Connector) Strategy {
	if cfg.Stealth() {
		return newStealthStrategy(cfg, connector)
	}
	return newStandardStrategy(cfg, connector)
}

// standardStrategy connects as fast as the timeout allows with an ephemeral
// source port.
type standardStrategy struct {
	cfg       *ScanConfig
	connector Connector
}

func newStandardStrategy(cfg *ScanConfig, connector Connector) *standardStrategy {
	return &standardStrategy{cfg: cfg, connector: connector}
}

func (s *standardStrategy) Name() string {
	return "standard"
}

func (s *standardStrategy) ScanPort(ctx context.Context, port int) PortScanResult {
	return probe(ctx, s.connector, s.cfg, port, 0)
}

// stealthStrategy paces probes with a jittered delay and optionally binds
// each probe to a random source port, making the scan harder to pick out of
// connection logs.
type stealthStrategy struct {
	cfg       *ScanConfig
	connector Connector
}

func newStealthStrategy(cfg *ScanConfig, connector Connector) *stealthStrategy {
	return &stealthStrategy{cfg: cfg, connector: connector}
}

func (s *stealthStrategy) Name() string {
	return "stealth"
}

func (s *stealthStrategy) ScanPort(ctx context.Context, port int) PortScanResult {
	if s.cfg.DelayBetweenProbes > 0 {
		if err := sleepWithJitter(ctx, s.cfg.DelayBetweenProbes); err != nil {
			status, msg := Classify(err)
			return PortScanResult{Port: port, Status: status, Error: msg}
		}
	}

	sourcePort := 0
	if s.cfg.RandomizeSourcePort {
		sourcePort = randomSourcePort()
	}
	return probe(ctx, s.connector, s.cfg, port, sourcePort)
}

// probe dials the port, classifies the outcome, and closes any connection.
// Detection runs separately on a fresh connection so the probe socket never
// carries payload.
func probe(ctx context.Context, connector Connector, cfg *ScanConfig, port, sourcePort int) PortScanResult {
	start := time.Now()
	conn, err := connector.Connect(ctx, cfg.Target, port, sourcePort, cfg.Timeout)
	duration := time.Since(start)
	if conn != nil {
		_ = conn.Close()
	}

	status, msg := Classify(err)
	return PortScanResult{
		Port:     port,
		Status:   status,
		Duration: duration,
		Error:    msg,
	}
}

// sleepWithJitter pauses for the delay +/- jitterPercent, returning early
// with the context's error on cancellation.
func sleepWithJitter(ctx context.Context, delay time.Duration) error {
	// Uniform draw from [delay*0.5, delay*1.5].
	low := delay * (100 - jitterPercent) / 100
	span := delay * 2 * jitterPercent / 100
	pause := low
	if span > 0 {
		pause += time.Duration(rand.Int63n(int64(span) + 1))
	}

	timer := time.NewTimer(pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// randomSourcePort picks a local port in [sourcePortMin, sourcePortMax].
func randomSourcePort() int {
	return sourcePortMin + rand.Intn(sourcePortMax-sourcePortMin+1)
}
