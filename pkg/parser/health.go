package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/opscart/k8s-resource-advisor/pkg/models"
)

var (
	// ErrSkipLine marks header and blank lines
	ErrSkipLine = errors.New("line skipped")
	// ErrMalformedLine marks lines that do not follow the health grammar
	ErrMalformedLine = errors.New("malformed health line")
)

const minHealthTokens = 6

// ParseHealthLine parses a whitespace separated status line:
// token 1 is the instance, 3 the status, 4 the restart count (optionally
// followed by "(5m ago)"), and tokens 5-6 the age.
func (p *Parser) ParseHealthLine(line string) (models.HealthEvent, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 || containsHeader(parts) {
		return models.HealthEvent{}, ErrSkipLine
	}

	if len(parts) < minHealthTokens {
		return models.HealthEvent{}, fmt.Errorf("%w: expected at least %d fields, got %d", ErrMalformedLine, minHealthTokens, len(parts))
	}

	restarts, err := parseRestarts(parts[4])
	if err != nil {
		return models.HealthEvent{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}

	end := 7
	if len(parts) < end {
		end = len(parts)
	}
	age := strings.Join(parts[5:end], " ")

	event, err := models.NewHealthEvent(parts[1], parts[3], restarts, age)
	if err != nil {
		return models.HealthEvent{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	return event, nil
}

// ParseHealthLines parses every line, logging and skipping malformed ones
func (p *Parser) ParseHealthLines(lines []string) []models.HealthEvent {
	events := make([]models.HealthEvent, 0, len(lines))
	malformed := 0
	for _, line := range lines {
		event, err := p.ParseHealthLine(line)
		switch {
		case err == nil:
			events = append(events, event)
		case errors.Is(err, ErrSkipLine):
		default:
			malformed++
			p.log.Warn("failed to process health line", zap.String("line", strings.TrimSpace(line)), zap.Error(err))
		}
	}

	p.log.Info("processed health lines",
		zap.Int("lines", len(lines)),
		zap.Int("events", len(events)),
		zap.Int("malformed", malformed))
	return events
}

// parseRestarts reads the leading integer of "3" or "2 (5m ago)"
func parseRestarts(field string) (int, error) {
	value := field
	if i := strings.IndexAny(value, "( \t"); i >= 0 {
		value = value[:i]
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid restart count %q", field)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative restart count %q", field)
	}
	return n, nil
}
