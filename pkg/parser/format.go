package parser

import (
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/duration"
)

// FormatMetricLine renders a sample in the metric line grammar
func FormatMetricLine(ts time.Time, instance, cpu, memory string) string {
	return fmt.Sprintf("[%s] %s %s %s", ts.Format("15:04:05"), instance, cpu, memory)
}

// HealthRow is one pod as printed by "kubectl get pods -A"
type HealthRow struct {
	Namespace   string
	Name        string
	Ready       int
	Containers  int
	Status      string
	Restarts    int
	LastRestart time.Duration // time since the last restart, 0 if unknown
	Age         time.Duration
}

// FormatHealthLine renders a row in the health line grammar
func FormatHealthLine(row HealthRow) string {
	restarts := fmt.Sprintf("%d", row.Restarts)
	if row.Restarts > 0 && row.LastRestart > 0 {
		restarts = fmt.Sprintf("%d (%s ago)", row.Restarts, duration.HumanDuration(row.LastRestart))
	}
	return fmt.Sprintf("%s %s %d/%d %s %s %s",
		row.Namespace, row.Name, row.Ready, row.Containers, row.Status, restarts,
		duration.HumanDuration(row.Age))
}
