// Package parser turns raw metric and health lines into typed records.
// Bad lines are logged and skipped; they never stop a batch.
package parser

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/opscart/k8s-resource-advisor/pkg/models"
)

var metricLinePattern = regexp.MustCompile(`^\[(\d{2}):(\d{2}):(\d{2})\]\s*(.*)$`)

// Parser parses the two line grammars against a fixed analysis date
type Parser struct {
	date time.Time
	log  *zap.Logger
}

// New creates a parser. Only the calendar date of date is used; metric
// lines contribute the time of day.
func New(date time.Time, log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	y, m, d := date.Date()
	return &Parser{
		date: time.Date(y, m, d, 0, 0, 0, 0, date.Location()),
		log:  log,
	}
}

// Date returns the analysis date at midnight
func (p *Parser) Date() time.Time {
	return p.date
}

// ParseMetricLine parses "[HH:MM:SS] <instance> <cpu> <memory>".
// The boolean is false for headers and lines that do not match.
func (p *Parser) ParseMetricLine(line string) (models.MetricSample, bool) {
	m := metricLinePattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return models.MetricSample{}, false
	}

	ts, ok := p.clock(m[1], m[2], m[3])
	if !ok {
		p.log.Debug("skipping metric line with invalid time", zap.String("line", line))
		return models.MetricSample{}, false
	}

	fields := strings.Fields(m[4])
	if len(fields) < 3 || containsHeader(fields) {
		return models.MetricSample{}, false
	}

	n := len(fields)
	sample, err := models.NewMetricSample(strings.Join(fields[:n-2], " "), fields[n-2], fields[n-1], ts)
	if err != nil {
		p.log.Debug("skipping incomplete metric line", zap.String("line", line), zap.Error(err))
		return models.MetricSample{}, false
	}
	return sample, true
}

// ParseMetricLines parses every line, keeping the ones that match
func (p *Parser) ParseMetricLines(lines []string) []models.MetricSample {
	if len(lines) == 0 {
		p.log.Warn("no metrics data provided")
		return nil
	}

	samples := make([]models.MetricSample, 0, len(lines))
	for _, line := range lines {
		if sample, ok := p.ParseMetricLine(line); ok {
			samples = append(samples, sample)
		}
	}

	p.log.Info("processed metric lines",
		zap.Int("lines", len(lines)),
		zap.Int("samples", len(samples)),
		zap.Int("skipped", len(lines)-len(samples)))
	return samples
}

func (p *Parser) clock(hh, mm, ss string) (time.Time, bool) {
	h, m, s := atoi2(hh), atoi2(mm), atoi2(ss)
	if h > 23 || m > 59 || s > 59 {
		return time.Time{}, false
	}
	y, mo, d := p.date.Date()
	return time.Date(y, mo, d, h, m, s, 0, p.date.Location()), true
}

// atoi2 converts two ASCII digits already validated by the line pattern
func atoi2(s string) int {
	return int(s[0]-'0')*10 + int(s[1]-'0')
}

func containsHeader(fields []string) bool {
	for _, f := range fields {
		if f == "NAME" {
			return true
		}
	}
	return false
}
