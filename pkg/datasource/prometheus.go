package datasource

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"go.uber.org/zap"

	"github.com/opscart/k8s-resource-advisor/pkg/logger"
	"github.com/opscart/k8s-resource-advisor/pkg/parser"
)

// PrometheusOptions configures a PrometheusSource
type PrometheusOptions struct {
	URL       string
	Namespace string
	Window    time.Duration // how far back metric lines go
	Step      time.Duration // resolution of metric lines
	Timeout   time.Duration
}

// PrometheusSource renders cAdvisor and kube-state-metrics series as metric and health lines
type PrometheusSource struct {
	client v1.API
	opts   PrometheusOptions
	now    func() time.Time
	log    *zap.Logger
}

// NewPrometheusSource creates a source for a Prometheus server
func NewPrometheusSource(opts PrometheusOptions, log *zap.Logger) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{
		Address: opts.URL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	if opts.Window <= 0 {
		opts.Window = 2 * time.Hour
	}
	if opts.Step <= 0 {
		opts.Step = time.Minute
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &PrometheusSource{
		client: v1.NewAPI(client),
		opts:   opts,
		now:    time.Now,
		log:    logger.OrNop(log),
	}, nil
}

// Name implements DataSource
func (p *PrometheusSource) Name() string {
	return "prometheus"
}

// IsAvailable reports whether the server answers a trivial query
func (p *PrometheusSource) IsAvailable(ctx context.Context) bool {
	_, _, err := p.client.Query(ctx, "up", p.now())
	return err == nil
}

// Collect queries usage over the window and the current pod status
func (p *PrometheusSource) Collect(ctx context.Context) (*Lines, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	end := p.now()
	metrics, err := p.metricLines(ctx, end)
	if err != nil {
		return nil, err
	}
	health, err := p.healthLines(ctx, end)
	if err != nil {
		return nil, err
	}

	p.log.Info("collected lines from prometheus",
		zap.String("namespace", p.opts.Namespace),
		zap.Int("metric_lines", len(metrics)),
		zap.Int("health_lines", len(health)))
	return &Lines{Metrics: metrics, Health: health}, nil
}

type usageKey struct {
	pod string
	ts  model.Time
}

func (p *PrometheusSource) metricLines(ctx context.Context, end time.Time) ([]string, error) {
	selector := fmt.Sprintf(`namespace="%s",container!="",container!="POD"`, p.opts.Namespace)
	cpuQuery := fmt.Sprintf(`sum by (pod) (rate(container_cpu_usage_seconds_total{%s}[5m]))`, selector)
	memQuery := fmt.Sprintf(`sum by (pod) (container_memory_working_set_bytes{%s})`, selector)

	r := v1.Range{
		Start: end.Add(-p.opts.Window),
		End:   end,
		Step:  p.opts.Step,
	}

	cpu, err := p.queryRange(ctx, cpuQuery, r)
	if err != nil {
		return nil, fmt.Errorf("failed to query CPU usage: %w", err)
	}
	memory, err := p.queryRange(ctx, memQuery, r)
	if err != nil {
		return nil, fmt.Errorf("failed to query memory usage: %w", err)
	}

	keys := make([]usageKey, 0, len(cpu))
	for key := range cpu {
		if _, ok := memory[key]; ok {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ts != keys[j].ts {
			return keys[i].ts < keys[j].ts
		}
		return keys[i].pod < keys[j].pod
	})

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		// cores -> millicores, bytes -> Ki
		cpuQty := fmt.Sprintf("%dm", int64(math.Round(cpu[key]*1000)))
		memQty := fmt.Sprintf("%dKi", int64(math.Round(memory[key]/1024)))
		lines = append(lines, parser.FormatMetricLine(key.ts.Time().In(end.Location()), key.pod, cpuQty, memQty))
	}
	return lines, nil
}

func (p *PrometheusSource) queryRange(ctx context.Context, query string, r v1.Range) (map[usageKey]float64, error) {
	result, warnings, err := p.client.QueryRange(ctx, query, r)
	if err != nil {
		return nil, fmt.Errorf("prometheus query failed: %w", err)
	}
	if len(warnings) > 0 {
		p.log.Warn("prometheus warnings", zap.Strings("warnings", warnings))
	}

	matrix, ok := result.(model.Matrix)
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", result)
	}

	values := make(map[usageKey]float64)
	for _, series := range matrix {
		pod := string(series.Metric["pod"])
		for _, sample := range series.Values {
			values[usageKey{pod: pod, ts: sample.Timestamp}] += float64(sample.Value)
		}
	}
	return values, nil
}

func (p *PrometheusSource) healthLines(ctx context.Context, now time.Time) ([]string, error) {
	ns := p.opts.Namespace

	started, err := p.queryVector(ctx, fmt.Sprintf(`max by (pod) (kube_pod_start_time{namespace="%s"})`, ns), now)
	if err != nil {
		return nil, fmt.Errorf("failed to query pod start times: %w", err)
	}

	rows := make(map[string]*parser.HealthRow, len(started))
	for _, sample := range started {
		pod := string(sample.Metric["pod"])
		rows[pod] = &parser.HealthRow{
			Namespace: ns,
			Name:      pod,
			Status:    "Unknown",
			Age:       now.Sub(time.Unix(int64(sample.Value), 0)),
		}
	}

	each := func(query string, apply func(row *parser.HealthRow, sample *model.Sample)) error {
		vector, err := p.queryVector(ctx, query, now)
		if err != nil {
			return err
		}
		for _, sample := range vector {
			if row, ok := rows[string(sample.Metric["pod"])]; ok {
				apply(row, sample)
			}
		}
		return nil
	}

	queries := []struct {
		query string
		apply func(row *parser.HealthRow, sample *model.Sample)
	}{
		{
			fmt.Sprintf(`kube_pod_status_phase{namespace="%s"} == 1`, ns),
			func(row *parser.HealthRow, s *model.Sample) { row.Status = string(s.Metric["phase"]) },
		},
		{
			fmt.Sprintf(`sum by (pod) (kube_pod_container_status_ready{namespace="%s"})`, ns),
			func(row *parser.HealthRow, s *model.Sample) { row.Ready = int(s.Value) },
		},
		{
			fmt.Sprintf(`count by (pod) (kube_pod_container_status_ready{namespace="%s"})`, ns),
			func(row *parser.HealthRow, s *model.Sample) { row.Containers = int(s.Value) },
		},
		{
			fmt.Sprintf(`sum by (pod) (kube_pod_container_status_restarts_total{namespace="%s"})`, ns),
			func(row *parser.HealthRow, s *model.Sample) { row.Restarts = int(s.Value) },
		},
		{
			fmt.Sprintf(`max by (pod) (kube_pod_container_status_last_terminated_timestamp{namespace="%s"})`, ns),
			func(row *parser.HealthRow, s *model.Sample) {
				row.LastRestart = now.Sub(time.Unix(int64(s.Value), 0))
			},
		},
		// a waiting reason wins over the phase, the way kubectl prints it
		{
			fmt.Sprintf(`max by (pod, reason) (kube_pod_container_status_waiting_reason{namespace="%s"}) == 1`, ns),
			func(row *parser.HealthRow, s *model.Sample) { row.Status = string(s.Metric["reason"]) },
		},
	}

	for _, q := range queries {
		if err := each(q.query, q.apply); err != nil {
			return nil, fmt.Errorf("failed to query pod status: %w", err)
		}
	}

	pods := make([]string, 0, len(rows))
	for pod := range rows {
		pods = append(pods, pod)
	}
	sort.Strings(pods)

	lines := make([]string, 0, len(pods))
	for _, pod := range pods {
		lines = append(lines, parser.FormatHealthLine(*rows[pod]))
	}
	return lines, nil
}

func (p *PrometheusSource) queryVector(ctx context.Context, query string, at time.Time) (model.Vector, error) {
	result, warnings, err := p.client.Query(ctx, query, at)
	if err != nil {
		return nil, fmt.Errorf("prometheus query failed: %w", err)
	}
	if len(warnings) > 0 {
		p.log.Warn("prometheus warnings", zap.Strings("warnings", warnings))
	}

	vector, ok := result.(model.Vector)
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", result)
	}
	return vector, nil
}
