package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/opscart/k8s-resource-advisor/pkg/advisor"
	"github.com/opscart/k8s-resource-advisor/pkg/models"
)

func sampleResult() *advisor.Result {
	ts := time.Date(2024, time.March, 1, 10, 32, 0, 0, time.UTC)
	factors := models.Factors{Trend: 1234.5, BufferMultiplier: 1.2}

	return &advisor.Result{
		RunID:        "run-1",
		AnalysisDate: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		Unstable:     []string{"billing", "checkout"},
		Services: map[string]*models.ServiceRecommendation{
			"checkout": {
				Service:     "checkout",
				SampleCount: 3,
				CPU: &models.Recommendation{
					Service:               "checkout",
					ResourceType:          models.ResourceCPU,
					CurrentUsage:          150,
					Recommended:           2040,
					CurrentUsageFormatted: "150m",
					RecommendedFormatted:  "2040m",
					ForecastPoints:        []models.ForecastPoint{{Timestamp: ts, Estimate: 1700, LowerBound: 1690, UpperBound: 1710, Future: true}},
					Factors:               factors,
				},
				Memory: &models.Recommendation{
					Service:               "checkout",
					ResourceType:          models.ResourceMemory,
					CurrentUsage:          220,
					Recommended:           1008,
					CurrentUsageFormatted: "220Mi",
					RecommendedFormatted:  "1008Mi",
					ForecastPoints:        []models.ForecastPoint{{Timestamp: ts, Estimate: 840, LowerBound: 830, UpperBound: 850, Future: true}},
					Factors:               factors,
				},
			},
		},
		Failures: []models.ServiceFailure{{Service: "cart", Reason: "numerical failure"}},
	}
}

func TestNew(t *testing.T) {
	for _, f := range []ReportFormat{FormatText, FormatJSON, FormatYAML, FormatCSV} {
		_, err := New(f)
		assert.NoError(t, err, "format %s", f)
	}

	_, err := New("html")
	assert.ErrorContains(t, err, "unsupported report format")
}

func TestTextReport(t *testing.T) {
	r, err := New(FormatText)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "Found 2 problematic services:\n- billing\n- checkout\n")
	assert.Contains(t, out, "Service: checkout (3 samples)")
	assert.Contains(t, out, "CPU Resources:\n  Current usage: 150m\n  Recommendation: 2040m\n")
	assert.Contains(t, out, "MEMORY Resources:")
	assert.Contains(t, out, "    - trend: 1234.50\n")
	assert.Contains(t, out, "    - buffer: 1.20\n")
	assert.Contains(t, out, "    - Prediction range at 10:32:00:\n      Min: 1690\n      Max: 1710\n")
	assert.Contains(t, out, "- cart: numerical failure")
}

func TestTextReportNothingFound(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, GenerateText(&advisor.Result{}, &buf))
	assert.Contains(t, buf.String(), "No problematic services found.")
}

func TestJSONReport(t *testing.T) {
	r, err := New(FormatJSON)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf, sampleResult()))

	var decoded struct {
		RunID           string   `json:"run_id"`
		Unstable        []string `json:"unstable_services"`
		Recommendations map[string]struct {
			CPU struct {
				Recommendation string `json:"recommendation"`
			} `json:"cpu"`
		} `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, []string{"billing", "checkout"}, decoded.Unstable)
	assert.Equal(t, "2040m", decoded.Recommendations["checkout"].CPU.Recommendation)
}

func TestYAMLReport(t *testing.T) {
	r, err := New(FormatYAML)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf, sampleResult()))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Contains(t, buf.String(), "recommendation: 1008Mi")
}

func TestCSVReport(t *testing.T) {
	r, err := New(FormatCSV)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf, sampleResult()))

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Service", rows[0][1])
	assert.Equal(t, []string{"run-1", "checkout", "cpu", "3", "150m", "2040m", "1234.50", "false", "1.20", "1690", "1710"}, rows[1])
	assert.Equal(t, "memory", rows[2][2])
}

func TestWriteNilResult(t *testing.T) {
	r, err := New(FormatText)
	require.NoError(t, err)
	assert.Error(t, r.Write(&bytes.Buffer{}, nil))
}
