package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opscart/k8s-resource-advisor/pkg/config"
)

func TestApplyAnalyzeFlags(t *testing.T) {
	cfg = config.NewConfig()
	log = zap.NewNop()
	cmd := newAnalyzeCmd()

	require.NoError(t, cmd.ParseFlags([]string{"--recency-window", "2", "--date", "2024-03-01", "-o", "json", "-n", "shop"}))
	applyAnalyzeFlags(cmd)

	require.NotNil(t, cfg.RecencyWindowHours)
	assert.Equal(t, 2.0, *cfg.RecencyWindowHours)
	assert.Equal(t, "2024-03-01", cfg.AnalysisDate)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "shop", cfg.Namespace)
}

func TestRecencyWindowUnsetByDefault(t *testing.T) {
	cfg = config.NewConfig()
	cfg.RecencyWindowHours = nil
	recencyWindow = 0
	cmd := newAnalyzeCmd()

	require.NoError(t, cmd.ParseFlags(nil))
	applyAnalyzeFlags(cmd)
	assert.Nil(t, cfg.RecencyWindowHours)
}

func TestNewSource(t *testing.T) {
	cfg = config.NewConfig()
	log = zap.NewNop()

	source = "file"
	src, err := newSource()
	require.NoError(t, err)
	assert.Equal(t, "file", src.Name())

	source = "prometheus"
	src, err = newSource()
	require.NoError(t, err)
	assert.Equal(t, "prometheus", src.Name())

	source = "carrier-pigeon"
	_, err = newSource()
	assert.ErrorContains(t, err, "unknown source")
}
