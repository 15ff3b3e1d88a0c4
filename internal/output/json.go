package output

import (
	"encoding/json"
	"io"

	"github.com/nvestad/portsleuth/internal/scanning"
)

// JSONFormatter renders the full result aggregate as indented JSON.
type JSONFormatter struct{}

// Write implements Formatter.
func (f *JSONFormatter) Write(w io.Writer, results *scanning.ScanResults) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
