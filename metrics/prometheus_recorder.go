package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "focus"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	restoreOutcome  *prom.CounterVec
	restoreDuration *prom.HistogramVec
	commands        *prom.CounterVec
	checkOutcome    *prom.CounterVec
	backupsPruned   prom.Counter
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		restoreOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "restore_outcomes_total",
			Help:      "Restore runs by backup kind and outcome",
		}, []string{"kind", "outcome"}),
		restoreDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "restore_duration_seconds",
			Help:      "Duration of restore runs",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"}),
		commands: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Focus commands issued during restores by result",
		}, []string{"result"}),
		checkOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "device_check_outcomes_total",
			Help:      "Device check results by outcome",
		}, []string{"outcome"}),
		backupsPruned: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "backups_pruned_total",
			Help:      "Backup files removed by retention pruning",
		}),
	}
	reg.MustRegister(pr.restoreOutcome, pr.restoreDuration, pr.commands, pr.checkOutcome, pr.backupsPruned)
	return pr
}

func (p *PrometheusRecorder) IncRestoreOutcome(kind, outcome string) {
	if p == nil {
		return
	}
	p.restoreOutcome.WithLabelValues(kind, outcome).Inc()
}

func (p *PrometheusRecorder) ObserveRestoreDuration(kind string, d time.Duration) {
	if p == nil {
		return
	}
	p.restoreDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCommands(result string) {
	if p == nil {
		return
	}
	p.commands.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) IncCheckOutcome(outcome string) {
	if p == nil {
		return
	}
	p.checkOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncBackupsPruned(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.backupsPruned.Add(float64(n))
}
