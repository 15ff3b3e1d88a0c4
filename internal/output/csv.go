package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/nvestad/portsleuth/internal/scanning"
)

// CSVFormatter renders one row per probed port for spreadsheet import.
type CSVFormatter struct{}

// Write implements Formatter.
func (f *CSVFormatter) Write(w io.Writer, results *scanning.ScanResults) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"target", "port", "status", "service", "version", "banner", "duration_ms", "error",
	}); err != nil {
		return err
	}

	for i := range results.Results {
		r := &results.Results[i]
		version := ""
		banner := ""
		if r.Version != nil {
			version = r.Version.String()
			banner = r.Version.Banner
		}
		row := []string{
			results.Target,
			strconv.Itoa(r.Port),
			string(r.Status),
			r.ServiceName,
			version,
			banner,
			strconv.FormatInt(r.Duration.Milliseconds(), 10),
			r.Error,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
