package output

import (
	"encoding/json"
	"io"
)

// PrintJSON writes data as two-space indented JSON.
func PrintJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// PrintJSONCompact writes data as single-line JSON, for piping into jq and
// scripts.
func PrintJSONCompact(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	return encoder.Encode(data)
}
