// Package formatting renders CLI output: cache listings as tables, JSON or YAML,
// and acquired tokens as JSON or YAML.
package formatting

import (
	"fmt"
	"io"
	"os"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
	FormatTable OutputFormat = "table" // Rich table output
)

// ParseOutputFormat validates s. An empty string selects the table format.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatJSON, FormatYAML, FormatTable:
		return OutputFormat(s), nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use table, json or yaml)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format    OutputFormat
	NoHeaders bool      // Suppress the header row of tables
	Quiet     bool      // Compact output without decorations
	Output    io.Writer // Defaults to os.Stdout
}

func (o Options) writer() io.Writer {
	if o.Output == nil {
		return os.Stdout
	}
	return o.Output
}

// Formatter renders azauth data.
type Formatter interface {
	// FormatCacheEntries renders the token cache listing.
	FormatCacheEntries(entries []CacheEntry) error
	// FormatData renders any serializable value.
	FormatData(data interface{}) error
}

// NewFormatter creates the formatter for options.Format
func NewFormatter(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return &JSONFormatter{options: options}
	case FormatYAML:
		return &YAMLFormatter{options: options}
	default:
		return &TableFormatter{options: options}
	}
}
