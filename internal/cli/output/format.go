// Package output renders CLI command results. Listing commands accept an
// --output flag parsed by ParseFormat; table is the human default, json and
// yaml exist for scripting against zkauthd.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Format selects how a command renders its result.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat maps an --output flag value to a Format. Empty selects table;
// "yml" is accepted as a yaml spelling.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %q (valid: table, json, yaml)", s)
	}
}

func (f Format) String() string {
	return string(f)
}

// Success prints a confirmation line, green when color is on. Only table
// output gets these; json/yaml consumers parse the payload instead.
func Success(w io.Writer, color bool, msg string) {
	if color {
		fmt.Fprintf(w, "\033[32m%s\033[0m\n", msg)
		return
	}
	fmt.Fprintln(w, msg)
}
