package output

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/nvestad/portsleuth/internal/scanning"
)

// TextFormatter renders a human-readable table of results with a summary
// line. Closed and filtered ports are summarized rather than listed so a full
// range scan stays readable.
type TextFormatter struct {
	// ShowAll lists every probed port instead of only open and errored ones.
	ShowAll bool
}

// Write implements Formatter.
func (f *TextFormatter) Write(w io.Writer, results *scanning.ScanResults) error {
	fmt.Fprintf(w, "Scan report for %s (%s)\n", results.Target, results.Mode)
	fmt.Fprintf(w, "Started %s, took %s\n\n",
		results.StartTime.Format(time.RFC3339), results.Duration.Round(time.Millisecond))

	rows := f.selectRows(results)
	if len(rows) > 0 {
		table := tablewriter.NewWriter(w)
		table.Header("Port", "Status", "Service", "Version", "Latency")
		for i := range rows {
			if err := table.Append(formatRow(&rows[i])); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	for i := range results.Results {
		r := &results.Results[i]
		if r.OS.IsDetected() {
			fmt.Fprintf(w, "OS (via port %d): %s\n", r.Port, r.OS)
		}
	}

	fmt.Fprintf(w, "%d ports scanned: %d open, %d closed, %d filtered, %d errors\n",
		results.Total, results.Open, results.Closed, results.Filtered, results.Errors)
	return nil
}

func (f *TextFormatter) selectRows(results *scanning.ScanResults) []scanning.PortScanResult {
	if f.ShowAll {
		return results.Results
	}
	var rows []scanning.PortScanResult
	for i := range results.Results {
		switch results.Results[i].Status {
		case scanning.StatusOpen, scanning.StatusError:
			rows = append(rows, results.Results[i])
		}
	}
	return rows
}

func formatRow(r *scanning.PortScanResult) []string {
	service := r.ServiceName
	if service == "" {
		service = "-"
	}
	version := "-"
	if r.Version.IsDetected() {
		version = r.Version.String()
	}
	status := string(r.Status)
	if r.Error != "" {
		status += ": " + r.Error
	}
	return []string{
		fmt.Sprintf("%d/tcp", r.Port),
		status,
		service,
		version,
		r.Duration.Round(time.Millisecond).String(),
	}
}
