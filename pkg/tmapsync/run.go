// Package tmapsync — цикл оценки отображения счётчик ↔ время для встраивания в драйвер.
package tmapsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/calibration"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/config"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/logger"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/metrics"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/source"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/timemap"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/timeunit"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/tmap"
)

// Период вывода состояния в лог
const statusInterval = time.Minute

// NewFilter создаёт фильтр по конфигу; counter_rate из файла калибровки заменяет filter.counter_rate.
func NewFilter(cfg *config.Config) (*timemap.Filter, error) {
	rate, window, unit, opts, err := cfg.FilterParams()
	if err != nil {
		return nil, err
	}
	if cfg.Calibration.File != "" {
		cal, err := calibration.Load(cfg.Calibration.File)
		if err != nil {
			return nil, err
		}
		if rate, err = cal.Rate(); err != nil {
			return nil, err
		}
		logger.Info("calibration %s: serial=%s counter_rate=%d", cfg.Calibration.File, cal.Serial, rate)
	}
	return timemap.NewWithOptions(rate, window, unit, opts)
}

// RunDaemon запускает цикл (источник → фильтр → история) до отмены ctx.
func RunDaemon(ctx context.Context, cfg *config.Config, quiet bool) error {
	logger.Quiet = quiet
	f, err := NewFilter(cfg)
	if err != nil {
		return err
	}
	defer f.Close()
	h := tmap.New(f.TimeUnit(), cfg.History.Capacity)

	if cfg.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		if err := metrics.Register(reg, f, h); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		stop := serveMetrics(cfg.Metrics.Listen, reg)
		defer stop()
	}

	src, err := source.NewFromConfig(cfg, f.NominalRate(), nil)
	if err != nil {
		return err
	}
	defer src.Close()

	logger.Info("tmapsync: source=%s counter_rate=%d window=%d ticks", src.Name(), f.NominalRate(), f.WindowTicks())
	return Run(ctx, src, NewPipeline(f, h))
}

// Run читает пары из src и передаёт их в конвейер до отмены ctx или ошибки источника.
func Run(ctx context.Context, src source.Source, p *Pipeline) error {
	lastStatus := time.Now()
	for {
		c, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if err := p.Ingest(c); err != nil && !errors.Is(err, timemap.ErrMonotonicity) {
			return err
		}
		if time.Since(lastStatus) >= statusInterval {
			lastStatus = time.Now()
			logger.Info("time map: %s (%s)", p.Snapshot(), timeunit.Format(p.f.CounterToTime(c.Counter)))
		}
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics: %v", err)
		}
	}()
	logger.Info("metrics on %s/metrics", addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
