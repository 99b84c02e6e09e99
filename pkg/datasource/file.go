package datasource

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/opscart/k8s-resource-advisor/pkg/logger"
)

// FileSource reads lines written by the collector
type FileSource struct {
	metricsPath string
	healthPath  string
	log         *zap.Logger
}

// NewFileSource creates a source for a metrics file and a health file
func NewFileSource(metricsPath, healthPath string, log *zap.Logger) *FileSource {
	return &FileSource{
		metricsPath: metricsPath,
		healthPath:  healthPath,
		log:         logger.OrNop(log),
	}
}

// Name implements DataSource
func (f *FileSource) Name() string {
	return "file"
}

// IsAvailable reports whether at least one of the files exists
func (f *FileSource) IsAvailable(_ context.Context) bool {
	for _, path := range []string{f.metricsPath, f.healthPath} {
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	return false
}

// Collect reads both files. A missing file yields no lines.
func (f *FileSource) Collect(ctx context.Context) (*Lines, error) {
	metrics, err := f.readLines(ctx, f.metricsPath)
	if err != nil {
		return nil, err
	}
	health, err := f.readLines(ctx, f.healthPath)
	if err != nil {
		return nil, err
	}
	return &Lines{Metrics: metrics, Health: health}, nil
}

func (f *FileSource) readLines(ctx context.Context, path string) ([]string, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		f.log.Error("input file not found", zap.String("path", path))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	f.log.Info("reading input file", zap.String("path", path))

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return lines, nil
}
