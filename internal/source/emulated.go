package source

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/timeunit"
)

// EmulatedConfig — параметры эмулятора устройства
type EmulatedConfig struct {
	CounterRate uint64        // номинальная частота, тиков в секунду
	DriftPPM    float64       // отклонение реальной частоты от номинала
	Interval    time.Duration // период пар корреляции
	Jitter      time.Duration // амплитуда равномерного шума времени хоста, ±
	Seed        int64
	Start       int64 // время первой пары, единицы timeunit
	Pace        bool  // выдавать пары в реальном времени
}

// Emulated — детерминированный синтетический источник: счётчик идёт с частотой
// CounterRate*(1+DriftPPM*1e-6), время хоста — равномерная сетка с шумом.
type Emulated struct {
	cfg    EmulatedConfig
	actual float64
	rnd    *rand.Rand
	n      int64
	timer  *time.Timer
	next   time.Time
}

// NewEmulated создаёт эмулятор.
func NewEmulated(cfg EmulatedConfig) *Emulated {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Emulated{
		cfg:    cfg,
		actual: float64(cfg.CounterRate) * (1 + cfg.DriftPPM*1e-6),
		rnd:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Name возвращает имя источника
func (e *Emulated) Name() string { return "emulated" }

// Protocol возвращает протокол
func (e *Emulated) Protocol() string { return "emulated" }

// Next возвращает следующую пару; при Pace ждёт её наступления.
func (e *Emulated) Next(ctx context.Context) (Correlation, error) {
	if err := ctx.Err(); err != nil {
		return Correlation{}, err
	}
	if e.cfg.Pace {
		if err := e.wait(ctx); err != nil {
			return Correlation{}, err
		}
	}
	elapsed := time.Duration(e.n) * e.cfg.Interval
	c := Correlation{
		Counter: uint64(math.Round(elapsed.Seconds() * e.actual)),
		Time:    timeunit.Add(e.cfg.Start, timeunit.FromDuration(elapsed)),
	}
	if e.cfg.Jitter > 0 {
		j := time.Duration(e.rnd.Int63n(int64(2*e.cfg.Jitter)+1)) - e.cfg.Jitter
		c.Time = timeunit.Add(c.Time, timeunit.FromDuration(j))
	}
	e.n++
	return c, nil
}

func (e *Emulated) wait(ctx context.Context) error {
	now := time.Now()
	if e.next.IsZero() {
		e.next = now
	}
	if d := e.next.Sub(now); d > 0 {
		if e.timer == nil {
			e.timer = time.NewTimer(d)
		} else {
			e.timer.Reset(d)
		}
		select {
		case <-ctx.Done():
			if !e.timer.Stop() {
				<-e.timer.C
			}
			return ctx.Err()
		case <-e.timer.C:
		}
	}
	e.next = e.next.Add(e.cfg.Interval)
	return nil
}

// Close — ничего не держит
func (e *Emulated) Close() error {
	if e.timer != nil {
		e.timer.Stop()
	}
	return nil
}
