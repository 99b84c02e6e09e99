// Package scanner polls a live cluster and writes the metric and health
// line formats consumed by the advisor.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/opscart/k8s-resource-advisor/pkg/datasource"
	"github.com/opscart/k8s-resource-advisor/pkg/logger"
	"github.com/opscart/k8s-resource-advisor/pkg/parser"
)

// Options configures a Collector
type Options struct {
	Namespace       string
	Interval        time.Duration
	Duration        time.Duration
	RateLimitCalls  int
	RateLimitPeriod time.Duration
	CacheTTL        time.Duration
}

// Collector polls pod metrics and pod status for one namespace
type Collector struct {
	clientset     kubernetes.Interface
	metricsClient metricsv.Interface
	opts          Options

	limiter      *rate.Limiter
	podCache     *ttlCache[[]corev1.Pod]
	metricsCache *ttlCache[[]metricsv1beta1.PodMetrics]

	now func() time.Time
	log *zap.Logger
}

// New creates a collector from the local kubeconfig
func New(kubeconfig string, opts Options, log *zap.Logger) (*Collector, error) {
	if kubeconfig == "" {
		if home := homedir.HomeDir(); home != "" {
			kubeconfig = filepath.Join(home, ".kube", "config")
		}
	}

	config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	metricsClient, err := metricsv.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics client: %w", err)
	}

	return NewWithClients(clientset, metricsClient, opts, log), nil
}

// NewWithClients creates a collector on existing clients
func NewWithClients(clientset kubernetes.Interface, metricsClient metricsv.Interface, opts Options, log *zap.Logger) *Collector {
	if opts.RateLimitCalls < 1 {
		opts.RateLimitCalls = 100
	}
	if opts.RateLimitPeriod <= 0 {
		opts.RateLimitPeriod = time.Minute
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}

	c := &Collector{
		clientset:     clientset,
		metricsClient: metricsClient,
		opts:          opts,
		limiter:       rate.NewLimiter(rate.Every(opts.RateLimitPeriod/time.Duration(opts.RateLimitCalls)), opts.RateLimitCalls),
		now:           time.Now,
		log:           logger.OrNop(log),
	}
	c.podCache = newTTLCache[[]corev1.Pod](opts.CacheTTL, c.clock)
	c.metricsCache = newTTLCache[[]metricsv1beta1.PodMetrics](opts.CacheTTL, c.clock)
	return c
}

func (c *Collector) clock() time.Time {
	return c.now()
}

// Name implements datasource.DataSource
func (c *Collector) Name() string {
	return "kubernetes"
}

// IsAvailable reports whether the API server answers
func (c *Collector) IsAvailable(_ context.Context) bool {
	_, err := c.clientset.Discovery().ServerVersion()
	return err == nil
}

// Collect takes one snapshot. It implements datasource.DataSource.
func (c *Collector) Collect(ctx context.Context) (*datasource.Lines, error) {
	now := c.now()

	podMetrics, err := c.listPodMetrics(ctx)
	if err != nil {
		return nil, err
	}
	pods, err := c.listPods(ctx)
	if err != nil {
		return nil, err
	}

	lines := &datasource.Lines{
		Metrics: make([]string, 0, len(podMetrics)),
		Health:  make([]string, 0, len(pods)),
	}
	for _, pm := range podMetrics {
		lines.Metrics = append(lines.Metrics, metricLine(now, pm))
	}
	for _, pod := range pods {
		lines.Health = append(lines.Health, parser.FormatHealthLine(healthRow(now, pod)))
	}
	return lines, nil
}

// Run polls every interval until the duration elapses, appending lines to the writers.
// A failed poll is logged and the next one proceeds.
func (c *Collector) Run(ctx context.Context, metricsOut, healthOut io.Writer) error {
	deadline := c.now().Add(c.opts.Duration)
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()
	defer c.Cleanup()

	c.log.Info("starting collection",
		zap.String("namespace", c.opts.Namespace),
		zap.Duration("interval", c.opts.Interval),
		zap.Duration("duration", c.opts.Duration))

	for polls := 1; ; polls++ {
		if err := c.poll(ctx, metricsOut, healthOut); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("collection poll failed", zap.Int("poll", polls), zap.Error(err))
		}

		if c.opts.Duration > 0 && !c.now().Before(deadline) {
			c.log.Info("collection complete", zap.Int("polls", polls))
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Collector) poll(ctx context.Context, metricsOut, healthOut io.Writer) error {
	lines, err := c.Collect(ctx)
	if err != nil {
		return err
	}
	if err := writeLines(metricsOut, lines.Metrics); err != nil {
		return fmt.Errorf("failed to write metric lines: %w", err)
	}
	if err := writeLines(healthOut, lines.Health); err != nil {
		return fmt.Errorf("failed to write health lines: %w", err)
	}
	c.log.Debug("poll written",
		zap.Int("metric_lines", len(lines.Metrics)),
		zap.Int("health_lines", len(lines.Health)))
	return nil
}

// Cleanup drops cached API responses
func (c *Collector) Cleanup() {
	c.podCache.Clear()
	c.metricsCache.Clear()
}

func (c *Collector) listPodMetrics(ctx context.Context) ([]metricsv1beta1.PodMetrics, error) {
	key := "metrics_" + c.opts.Namespace
	if cached, ok := c.metricsCache.Get(key); ok {
		return cached, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	list, err := c.metricsClient.MetricsV1beta1().PodMetricses(c.opts.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pod metrics: %w", err)
	}

	items := list.Items
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	c.metricsCache.Set(key, items)
	return items, nil
}

func (c *Collector) listPods(ctx context.Context) ([]corev1.Pod, error) {
	key := "health_" + c.opts.Namespace
	if cached, ok := c.podCache.Get(key); ok {
		return cached, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	list, err := c.clientset.CoreV1().Pods(c.opts.Namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	items := list.Items
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	c.podCache.Set(key, items)
	return items, nil
}

// metricLine sums container usage of a pod into "[HH:MM:SS] <pod> <cpu>m <mem>Ki"
func metricLine(now time.Time, pm metricsv1beta1.PodMetrics) string {
	cpu := resource.NewMilliQuantity(0, resource.DecimalSI)
	memory := resource.NewQuantity(0, resource.BinarySI)
	for _, container := range pm.Containers {
		cpu.Add(container.Usage[corev1.ResourceCPU])
		memory.Add(container.Usage[corev1.ResourceMemory])
	}
	return parser.FormatMetricLine(now, pm.Name,
		fmt.Sprintf("%dm", cpu.MilliValue()),
		fmt.Sprintf("%dKi", memory.Value()/1024))
}

// healthRow reduces a pod to the columns kubectl prints
func healthRow(now time.Time, pod corev1.Pod) parser.HealthRow {
	row := parser.HealthRow{
		Namespace:  pod.Namespace,
		Name:       pod.Name,
		Containers: len(pod.Spec.Containers),
		Status:     string(pod.Status.Phase),
		Age:        now.Sub(pod.CreationTimestamp.Time),
	}
	if pod.Status.Reason != "" {
		row.Status = pod.Status.Reason
	}

	var lastRestart time.Time
	for _, cs := range pod.Status.ContainerStatuses {
		row.Restarts += int(cs.RestartCount)
		if cs.Ready {
			row.Ready++
		}
		switch {
		case cs.State.Waiting != nil && cs.State.Waiting.Reason != "":
			row.Status = cs.State.Waiting.Reason
		case cs.State.Terminated != nil && cs.State.Terminated.Reason != "":
			row.Status = cs.State.Terminated.Reason
		}
		if t := cs.LastTerminationState.Terminated; t != nil && t.FinishedAt.Time.After(lastRestart) {
			lastRestart = t.FinishedAt.Time
		}
	}
	if row.Status == "" {
		row.Status = "Unknown"
	}
	if pod.DeletionTimestamp != nil {
		row.Status = "Terminating"
	}
	if !lastRestart.IsZero() {
		row.LastRestart = now.Sub(lastRestart)
	}
	return row
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// IsCanceled reports whether err ends a collection on purpose
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
