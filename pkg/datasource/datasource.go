package datasource

import (
	"context"
)

// Lines is the raw text of one analysis run
type Lines struct {
	Metrics []string
	Health  []string
}

// DataSource produces metric and health lines
type DataSource interface {
	Collect(ctx context.Context) (*Lines, error)
	IsAvailable(ctx context.Context) bool
	Name() string
}
