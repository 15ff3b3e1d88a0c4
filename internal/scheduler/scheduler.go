// Package scheduler runs recurring scans on cron schedules defined in the
// application configuration.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nvestad/portsleuth/internal/config"
	"github.com/nvestad/portsleuth/internal/db"
	"github.com/nvestad/portsleuth/internal/errors"
	"github.com/nvestad/portsleuth/internal/logging"
	"github.com/nvestad/portsleuth/internal/scanning"
)

// jobTimeout bounds a single scheduled scan run.
const jobTimeout = 30 * time.Minute

// runFunc executes one scan; replaceable in tests.
type runFunc func(ctx context.Context, cfg *scanning.ScanConfig) (*scanning.ScanResults, error)

// Scheduler owns the cron runner and the configured recurring scans.
type Scheduler struct {
	cron   *cron.Cron
	cfg    *config.Config
	store  *db.Store
	logger *logging.Logger
	run    runFunc
}

// New creates a scheduler from the application configuration. The store may
// be nil; results are then logged but not persisted.
func New(cfg *config.Config, store *db.Store) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		cfg:    cfg,
		store:  store,
		logger: logging.Default().WithComponent("scheduler"),
		run:    runScan,
	}

	for i := range cfg.Scheduler.Jobs {
		job := cfg.Scheduler.Jobs[i]
		if err := s.addJob(&job); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) addJob(job *config.ScheduledJob) error {
	scanCfg, err := s.buildScanConfig(job)
	if err != nil {
		return errors.WrapConfigError(errors.CodeConfiguration,
			"invalid scheduled job "+job.Name, err)
	}

	name := job.Name
	_, err = s.cron.AddFunc(job.Schedule, func() {
		s.runJob(name, scanCfg)
	})
	if err != nil {
		return errors.WrapConfigError(errors.CodeConfiguration,
			"invalid schedule for job "+name, err)
	}

	s.logger.Info("Registered scheduled scan",
		"job", name, "schedule", job.Schedule, "target", job.Target)
	return nil
}

// buildScanConfig translates a job definition into a validated scan config
// using the application's scanning defaults.
func (s *Scheduler) buildScanConfig(job *config.ScheduledJob) (*scanning.ScanConfig, error) {
	portSpec := job.Ports
	if portSpec == "" {
		portSpec = s.cfg.Scanning.DefaultPorts
	}
	mode, err := scanning.ParsePortSpec(portSpec)
	if err != nil {
		return nil, err
	}

	opts := []scanning.Option{
		scanning.WithTimeout(s.cfg.Scanning.Timeout),
		scanning.WithDetection(s.cfg.Scanning.DetectVersions, s.cfg.Scanning.DetectOS),
	}
	if s.cfg.Scanning.Parallel {
		opts = append(opts, scanning.WithParallel(s.cfg.Scanning.ThreadCount))
	}
	return scanning.NewScanConfig(job.Target, mode, opts...)
}

func (s *Scheduler) runJob(name string, scanCfg *scanning.ScanConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	logger := s.logger.WithFields("job", name).WithTarget(scanCfg.Target)
	logger.Info("Running scheduled scan")

	results, err := s.run(ctx, scanCfg)
	if err != nil {
		logger.Error("Scheduled scan failed", "error", err)
		return
	}
	logger.Info("Scheduled scan finished",
		"open", results.Open, "total", results.Total, "duration", results.Duration)

	if s.store != nil {
		if err := s.store.SaveScan(ctx, results); err != nil {
			logger.Error("Failed to persist scheduled scan", "error", err)
		}
	}
}

func runScan(ctx context.Context, cfg *scanning.ScanConfig) (*scanning.ScanResults, error) {
	scanner, err := scanning.NewScanner(cfg)
	if err != nil {
		return nil, err
	}
	return scanner.Run(ctx)
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// JobCount returns the number of registered jobs.
func (s *Scheduler) JobCount() int {
	return len(s.cron.Entries())
}
