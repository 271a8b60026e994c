package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/osvaldoandrade/taskdeck/pkg/persistence"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStats struct {
	st  persistence.Stats
	err error
}

func (f fixedStats) Stats(context.Context) (persistence.Stats, error) { return f.st, f.err }

func gather(t *testing.T, c prometheus.Collector) map[string]float64 {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	families, err := reg.Gather()
	require.NoError(t, err)
	out := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			out[mf.GetName()] = m.GetGauge().GetValue()
		}
	}
	return out
}

func TestStorageCollectorEmitsGauges(t *testing.T) {
	c := newStorageCollector(fixedStats{st: persistence.Stats{Tasks: 4, ExecutionsInProgress: 2}}, nil)
	assert.Equal(t, map[string]float64{
		"taskdeck_tasks_registered":       4,
		"taskdeck_executions_in_progress": 2,
	}, gather(t, c))
}

func TestStorageCollectorSkipsOnError(t *testing.T) {
	c := newStorageCollector(fixedStats{err: errors.New("down")}, nil)
	assert.Empty(t, gather(t, c))
}
