// Package metrics экспортирует состояние фильтра и истории в Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/timemap"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/timeunit"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/tmap"
)

const namespace = "tc_tmap"

// Register регистрирует коллекторы фильтра и (если не nil) истории.
func Register(reg prometheus.Registerer, f *timemap.Filter, h *tmap.History) error {
	stats := func(get func(timemap.Stats) float64) func() float64 {
		return func() float64 { return get(f.Stats()) }
	}
	cs := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "filter", Name: "samples_added_total",
			Help: "Correlation samples accepted by the filter",
		}, stats(func(s timemap.Stats) float64 { return float64(s.Added) })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "filter", Name: "monotonicity_violations_total",
			Help: "Correlation samples rejected because the counter did not increase",
		}, stats(func(s timemap.Stats) float64 { return float64(s.Rejected) })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "filter", Name: "samples_skipped_total",
			Help: "Correlation samples skipped by the minimum interval",
		}, stats(func(s timemap.Stats) float64 { return float64(s.Skipped) })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "filter", Name: "samples_evicted_total",
			Help: "Correlation samples evicted from the window",
		}, stats(func(s timemap.Stats) float64 { return float64(s.Evicted) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "filter", Name: "window_samples",
			Help: "Correlation samples currently retained",
		}, stats(func(s timemap.Stats) float64 { return float64(s.Retained) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "filter", Name: "state",
			Help: "Filter state: 0 empty, 1 anchored, 2 fitted, 3 closed",
		}, stats(func(s timemap.Stats) float64 { return float64(s.State) })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "filter", Name: "counter_rate_hertz",
			Help: "Published counter rate",
		}, func() float64 { return float64(f.Get().CounterRate) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "filter", Name: "counter_rate_deviation_ppm",
			Help: "Published counter rate relative to nominal",
		}, func() float64 {
			n := float64(f.NominalRate())
			return (float64(f.Get().CounterRate) - n) / n * 1e6
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "filter", Name: "offset_time_seconds",
			Help: "Published offset time, seconds since 2018-01-01",
		}, func() float64 { return timeunit.Seconds(f.Get().OffsetTime) }),
	}
	if h != nil {
		cs = append(cs, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "history", Name: "entries",
			Help: "Time map snapshots kept for buffered samples",
		}, func() float64 { return float64(h.Len()) }))
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
