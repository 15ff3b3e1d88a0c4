// Package output renders scan results for the CLI in text, JSON, and CSV
// formats.
package output

import (
	"fmt"
	"io"

	"github.com/nvestad/portsleuth/internal/errors"
	"github.com/nvestad/portsleuth/internal/scanning"
)

// Format identifies an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Formatter renders aggregated scan results to a writer.
type Formatter interface {
	Write(w io.Writer, results *scanning.ScanResults) error
}

// NewFormatter returns the formatter for a format name.
func NewFormatter(format Format) (Formatter, error) {
	switch format {
	case FormatText, "":
		return &TextFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	case FormatCSV:
		return &CSVFormatter{}, nil
	default:
		return nil, errors.NewConfigFieldError(errors.CodeValidation,
			fmt.Sprintf("unknown output format %q", format), "format", format)
	}
}
