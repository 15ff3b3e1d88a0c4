package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvestad/portsleuth/internal/db"
	"github.com/nvestad/portsleuth/internal/netutil"
	"github.com/nvestad/portsleuth/internal/output"
	"github.com/nvestad/portsleuth/internal/scanning"
)

var scanFlags struct {
	ports               string
	timeout             time.Duration
	sequential          bool
	threads             int
	delay               time.Duration
	randomizeSourcePort bool
	detectVersions      bool
	detectOS            bool
	format              string
	outputFile          string
	showAll             bool
	store               bool
}

var scanCmd = &cobra.Command{
	Use:   "scan <target>",
	Short: "Scan TCP ports on a target host",
	Long: `Scan probes TCP ports on the target and reports each port's state.

Port specifications:
  common        the curated list of frequently exposed ports (default)
  1-1024        an inclusive range
  22,80,443     an explicit list
  443           a single port`,
	Example: `  portsleuth scan 192.168.1.10
  portsleuth scan -p 1-1024 --detect-versions example.com
  portsleuth scan -p 445 --detect-os --output json 10.0.0.5`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanFlags.ports, "ports", "p", "",
		"ports to scan: 'common', a range, a list, or one port")
	scanCmd.Flags().DurationVarP(&scanFlags.timeout, "timeout", "t", 0,
		"per-port connect timeout (default from config)")
	scanCmd.Flags().BoolVar(&scanFlags.sequential, "sequential", false,
		"probe ports one at a time instead of in parallel")
	scanCmd.Flags().IntVar(&scanFlags.threads, "threads", 0,
		"worker count for parallel scans (default from config)")
	scanCmd.Flags().DurationVar(&scanFlags.delay, "delay", 0,
		"jittered delay between probes (enables stealth pacing)")
	scanCmd.Flags().BoolVar(&scanFlags.randomizeSourcePort, "randomize-source-port", false,
		"bind each probe to a random source port")
	scanCmd.Flags().BoolVar(&scanFlags.detectVersions, "detect-versions", false,
		"identify services on open ports by banner")
	scanCmd.Flags().BoolVar(&scanFlags.detectOS, "detect-os", false,
		"fingerprint the OS over SMB on open ports")
	scanCmd.Flags().StringVarP(&scanFlags.format, "output", "o", "text",
		"output format: text, json, or csv")
	scanCmd.Flags().StringVar(&scanFlags.outputFile, "output-file", "",
		"write results to a file instead of stdout")
	scanCmd.Flags().BoolVar(&scanFlags.showAll, "show-all", false,
		"list every probed port in text output, not just open and errored")
	scanCmd.Flags().BoolVar(&scanFlags.store, "store", false,
		"persist results to the configured database")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := buildScanConfig(args[0])
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(output.Format(scanFlags.format))
	if err != nil {
		return err
	}
	if tf, ok := formatter.(*output.TextFormatter); ok {
		tf.ShowAll = scanFlags.showAll
	}

	scanner, err := scanning.NewScanner(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := scanner.Run(ctx)
	if err != nil {
		// A canceled scan still produced partial results worth showing.
		if results == nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}

	if scanFlags.store {
		if err := persistResults(ctx, results); err != nil {
			fmt.Fprintln(os.Stderr, "Warning: could not store results:", err)
		}
	}

	out := cmd.OutOrStdout()
	if scanFlags.outputFile != "" {
		f, err := os.Create(scanFlags.outputFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return formatter.Write(out, results)
}

// persistResults saves a finished scan to the configured database.
func persistResults(ctx context.Context, results *scanning.ScanResults) error {
	if err := appConfig.Database.Validate(); err != nil {
		return err
	}
	database, err := db.Connect(ctx, &appConfig.Database)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}
	return db.NewStore(database).SaveScan(ctx, results)
}

// buildScanConfig merges command flags over the config file defaults and
// resolves the target.
func buildScanConfig(target string) (*scanning.ScanConfig, error) {
	if err := netutil.ValidateTarget(target); err != nil {
		return nil, err
	}

	portSpec := scanFlags.ports
	if portSpec == "" {
		portSpec = appConfig.Scanning.DefaultPorts
	}
	mode, err := scanning.ParsePortSpec(portSpec)
	if err != nil {
		return nil, err
	}

	resolver := netutil.NewResolver(appConfig.Scanning.Nameserver)
	resolved, err := resolver.Resolve(context.Background(), target)
	if err != nil {
		return nil, err
	}

	timeout := appConfig.Scanning.Timeout
	if scanFlags.timeout > 0 {
		timeout = scanFlags.timeout
	}
	opts := []scanning.Option{scanning.WithTimeout(timeout)}

	if !scanFlags.sequential && appConfig.Scanning.Parallel {
		threads := appConfig.Scanning.ThreadCount
		if scanFlags.threads > 0 {
			threads = scanFlags.threads
		}
		opts = append(opts, scanning.WithParallel(threads))
	}

	delay := appConfig.Scanning.DelayBetweenProbes
	if scanFlags.delay > 0 {
		delay = scanFlags.delay
	}
	if delay > 0 {
		opts = append(opts, scanning.WithDelay(delay))
	}
	if scanFlags.randomizeSourcePort || appConfig.Scanning.RandomizeSourcePort {
		opts = append(opts, scanning.WithRandomSourcePort())
	}

	opts = append(opts, scanning.WithDetection(
		scanFlags.detectVersions || appConfig.Scanning.DetectVersions,
		scanFlags.detectOS || appConfig.Scanning.DetectOS,
	))

	return scanning.NewScanConfig(resolved, mode, opts...)
}
