// Package reporter renders audit reports for the command line.
package reporter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Bahjat/seo-audit/internal/model"
)

// Format selects an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatYAML, FormatText}

var errUnknownFormat = errors.New("reporter: unknown format")

// ParseFormat resolves a case-insensitive format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", errUnknownFormat, s)
}

// Write renders report to w in the given format.
func Write(w io.Writer, format Format, report *model.SummaryReport) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("reporter: encode yaml: %w", err)
		}
		return enc.Close()
	case FormatText:
		return NewTextReporter(w).Generate(report)
	default:
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}
}
