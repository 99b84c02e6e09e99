package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/opscart/k8s-resource-advisor/pkg/advisor"
	"github.com/opscart/k8s-resource-advisor/pkg/models"
)

// GenerateText writes the console report: unstable services first, then
// the per-service recommendations.
func GenerateText(result *advisor.Result, w io.Writer) error {
	var b strings.Builder

	b.WriteString("\nProblematic Services Analysis\n")
	b.WriteString("============================\n")

	if len(result.Unstable) == 0 {
		b.WriteString("\nNo problematic services found.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "\nFound %d problematic services:\n", len(result.Unstable))
	for _, service := range result.Unstable {
		fmt.Fprintf(&b, "- %s\n", service)
	}

	b.WriteString("\nResource Recommendations\n")
	b.WriteString("======================\n")
	for _, name := range result.ServiceNames() {
		rec := result.Services[name]
		fmt.Fprintf(&b, "\nService: %s (%d samples)\n", name, rec.SampleCount)
		writeResource(&b, rec.CPU)
		writeResource(&b, rec.Memory)
	}

	if len(result.Failures) > 0 {
		b.WriteString("\nSkipped Services\n")
		b.WriteString("================\n")
		for _, f := range result.Failures {
			fmt.Fprintf(&b, "- %s: %s\n", f.Service, f.Reason)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeResource(b *strings.Builder, rec *models.Recommendation) {
	if rec == nil {
		return
	}

	fmt.Fprintf(b, "\n%s Resources:\n", strings.ToUpper(string(rec.ResourceType)))
	fmt.Fprintf(b, "  Current usage: %s\n", rec.CurrentUsageFormatted)
	fmt.Fprintf(b, "  Recommendation: %s\n", rec.RecommendedFormatted)
	b.WriteString("  Factors:\n")
	fmt.Fprintf(b, "    - trend: %.2f\n", rec.Factors.Trend)
	fmt.Fprintf(b, "    - daily_pattern: %t\n", rec.Factors.HasDailyPattern)
	fmt.Fprintf(b, "    - weekly_pattern: %t\n", rec.Factors.HasWeeklyPattern)
	fmt.Fprintf(b, "    - buffer: %.2f\n", rec.Factors.BufferMultiplier)

	if last, ok := rec.LastForecastPoint(); ok {
		b.WriteString("  Forecast:\n")
		fmt.Fprintf(b, "    - Prediction range at %s:\n", last.Timestamp.Format("15:04:05"))
		fmt.Fprintf(b, "      Min: %.0f\n", last.LowerBound)
		fmt.Fprintf(b, "      Max: %.0f\n", last.UpperBound)
	}
}
