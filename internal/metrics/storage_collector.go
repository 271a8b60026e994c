package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/osvaldoandrade/taskdeck/pkg/persistence"
	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource is satisfied by every persistence plugin.
type StatsSource interface {
	Stats(ctx context.Context) (persistence.Stats, error)
}

type storageCollector struct {
	src    StatsSource
	logger *slog.Logger

	tasksDesc  *prometheus.Desc
	inprogDesc *prometheus.Desc
}

func newStorageCollector(src StatsSource, logger *slog.Logger) *storageCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &storageCollector{
		src:    src,
		logger: logger,
		tasksDesc: prometheus.NewDesc(
			namespace+"_tasks_registered",
			"Current number of registered task definitions.",
			nil, nil,
		),
		inprogDesc: prometheus.NewDesc(
			namespace+"_executions_in_progress",
			"Current number of executions without an outcome.",
			nil, nil,
		),
	}
}

func (c *storageCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.tasksDesc
	ch <- c.inprogDesc
}

func (c *storageCollector) Collect(ch chan<- prometheus.Metric) {
	if c.src == nil {
		return
	}

	// Keep storage reads bounded so scrapes do not hang.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	st, err := c.src.Stats(ctx)
	if err != nil {
		c.logger.Warn("prometheus storage collector failed", "err", err)
		return
	}
	emitGauge(ch, c.tasksDesc, float64(st.Tasks))
	emitGauge(ch, c.inprogDesc, float64(st.ExecutionsInProgress))
}

func emitGauge(ch chan<- prometheus.Metric, desc *prometheus.Desc, v float64, labelValues ...string) {
	m, err := prometheus.NewConstMetric(desc, prometheus.GaugeValue, v, labelValues...)
	if err != nil {
		return
	}
	ch <- m
}

var registerStorageCollectorOnce sync.Once

// RegisterStorageCollector exports storage gauges on the default registry.
// Only the first call has an effect.
func RegisterStorageCollector(src StatsSource, logger *slog.Logger) {
	registerStorageCollectorOnce.Do(func() {
		prometheus.MustRegister(newStorageCollector(src, logger))
	})
}
