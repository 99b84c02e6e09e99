package reporter

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/opscart/k8s-resource-advisor/pkg/advisor"
)

// ReportFormat represents the output format
type ReportFormat string

const (
	FormatText ReportFormat = "text"
	FormatJSON ReportFormat = "json"
	FormatYAML ReportFormat = "yaml"
	FormatCSV  ReportFormat = "csv"
)

// Reporter renders analysis results
type Reporter struct {
	format ReportFormat
}

// New creates a new reporter
func New(format ReportFormat) (*Reporter, error) {
	switch format {
	case FormatText, FormatJSON, FormatYAML, FormatCSV:
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
	return &Reporter{format: format}, nil
}

// Write renders result to w
func (r *Reporter) Write(w io.Writer, result *advisor.Result) error {
	if result == nil {
		return fmt.Errorf("no result to report")
	}

	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode JSON report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode YAML report: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		return GenerateCSV(result, w)
	default:
		return GenerateText(result, w)
	}
}
