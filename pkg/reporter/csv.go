package reporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/opscart/k8s-resource-advisor/pkg/advisor"
	"github.com/opscart/k8s-resource-advisor/pkg/models"
)

// GenerateCSV creates a CSV report with one row per service and resource
func GenerateCSV(result *advisor.Result, writer io.Writer) error {
	w := csv.NewWriter(writer)

	header := []string{
		"Run",
		"Service",
		"Resource",
		"Samples",
		"Current",
		"Recommended",
		"Trend",
		"Daily Pattern",
		"Buffer",
		"Forecast Min",
		"Forecast Max",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, name := range result.ServiceNames() {
		svc := result.Services[name]
		for _, rec := range []*models.Recommendation{svc.CPU, svc.Memory} {
			if rec == nil {
				continue
			}
			last, _ := rec.LastForecastPoint()
			row := []string{
				result.RunID,
				name,
				string(rec.ResourceType),
				fmt.Sprintf("%d", svc.SampleCount),
				rec.CurrentUsageFormatted,
				rec.RecommendedFormatted,
				fmt.Sprintf("%.2f", rec.Factors.Trend),
				fmt.Sprintf("%t", rec.Factors.HasDailyPattern),
				fmt.Sprintf("%.2f", rec.Factors.BufferMultiplier),
				fmt.Sprintf("%.0f", last.LowerBound),
				fmt.Sprintf("%.0f", last.UpperBound),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
