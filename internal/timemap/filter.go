// Package timemap — фильтр отображения счётчика устройства во время хоста.
//
// Источник корреляции (один писатель) вызывает Add(counter, time) с парами, снятыми
// одновременно; потоковый конвейер (любое число читателей) получает Get() — неизменяемый
// снимок {OffsetCounter, OffsetTime, CounterRate} — и переводит каждый сэмпл во время.
// Читатели не блокируются: снимок публикуется атомарной заменой указателя после
// полного пересчёта регрессии.
package timemap

import (
	"fmt"
	"math"
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/timeunit"
)

// DefaultCapacity — ёмкость окна (сэмплов) по умолчанию
const DefaultCapacity = 256

// State — состояние фильтра
type State int

const (
	StateEmpty    State = iota // сэмплов нет, снимок — тождественный
	StateAnchored              // один сэмпл — якорь
	StateFitted                // два и более сэмпла — регрессия
	StateClosed                // после Close
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAnchored:
		return "anchored"
	case StateFitted:
		return "fitted"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options — дополнительные параметры фильтра; нулевые значения — значения по умолчанию.
type Options struct {
	// Capacity — максимум хранимых сэмплов независимо от частоты поступления
	Capacity int
	// MinInterval — минимальный интервал (в единицах времени) между принятыми сэмплами;
	// более частые сэмплы пропускаются без ошибки. По умолчанию длительность окна / Capacity,
	// так что заполненный буфер всегда охватывает всё окно.
	MinInterval int64
	// RateThreshold — относительный порог отклонения наклона от номинала
	RateThreshold float64
	// MaxRateDeviation — относительное отклонение, выше которого оценка частоты отбрасывается
	MaxRateDeviation float64
}

// Stats — счётчики работы фильтра
type Stats struct {
	Added    uint64 // принятые сэмплы
	Rejected uint64 // нарушения монотонности
	Skipped  uint64 // пропущены по MinInterval
	Evicted  uint64 // вытеснены из окна
	Retained int    // сейчас в окне
	State    State
}

// Filter — оценщик отображения счётчик ↔ время по окну корреляций.
type Filter struct {
	nominal     uint64
	unit        int64
	windowTicks uint64
	minInterval int64
	rate        rateParams

	mu       sync.Mutex // сериализует писателя; читатели его не берут
	win      *window
	current  uint64 // публикуемая частота
	lastTime int64
	state    State

	snap atomic.Pointer[Snapshot]

	added    atomic.Uint64
	rejected atomic.Uint64
	skipped  atomic.Uint64
	evicted  atomic.Uint64
}

// New создаёт фильтр: counterRate — номинальная частота (тиков на единицу timeUnit),
// windowSize — длительность окна в единицах timeUnit, timeUnit — размер единицы
// в базовом разрешении времени (например timeunit.Second).
func New(counterRate uint64, windowSize uint32, timeUnit int64) (*Filter, error) {
	return NewWithOptions(counterRate, windowSize, timeUnit, Options{})
}

// NewWithOptions — как New, с дополнительными параметрами.
func NewWithOptions(counterRate uint64, windowSize uint32, timeUnit int64, opts Options) (*Filter, error) {
	switch {
	case counterRate == 0:
		return nil, fmt.Errorf("%w: counter rate is zero", ErrInvalidArgument)
	case windowSize == 0:
		return nil, fmt.Errorf("%w: window size is zero", ErrInvalidArgument)
	case timeUnit <= 0:
		return nil, fmt.Errorf("%w: time unit %d", ErrInvalidArgument, timeUnit)
	case opts.Capacity < 0 || opts.MinInterval < 0 || opts.RateThreshold < 0 || opts.MaxRateDeviation < 0:
		return nil, fmt.Errorf("%w: negative option", ErrInvalidArgument)
	}
	if opts.Capacity == 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.RateThreshold == 0 {
		opts.RateThreshold = DefaultRateThreshold
	}
	if opts.MaxRateDeviation == 0 {
		opts.MaxRateDeviation = DefaultMaxRateDeviation
	}
	if opts.MinInterval == 0 {
		opts.MinInterval = timeunit.MulDivRound(timeUnit, uint64(windowSize), uint64(opts.Capacity))
	}
	if opts.MaxRateDeviation < opts.RateThreshold {
		return nil, fmt.Errorf("%w: max rate deviation below threshold", ErrInvalidArgument)
	}

	hi, ticks := bits.Mul64(uint64(windowSize), counterRate)
	if hi != 0 {
		ticks = math.MaxUint64
	}
	f := &Filter{
		nominal:     counterRate,
		unit:        timeUnit,
		windowTicks: ticks,
		minInterval: opts.MinInterval,
		rate: rateParams{
			nominal:      counterRate,
			unit:         timeUnit,
			minSpan:      ticks / 2,
			threshold:    opts.RateThreshold,
			maxDeviation: opts.MaxRateDeviation,
		},
		win:     newWindow(opts.Capacity),
		current: counterRate,
	}
	f.snap.Store(&Snapshot{CounterRate: counterRate})
	return f, nil
}

// Add добавляет пару корреляции и публикует новый снимок.
// Счётчик должен строго возрастать: иначе ErrMonotonicity, состояние не меняется.
func (f *Filter) Add(counter uint64, t int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.win == nil {
		return ErrClosed
	}
	if f.win.len() > 0 {
		if last := f.win.newest(); counter <= last.Counter {
			f.rejected.Add(1)
			return fmt.Errorf("%w: %d <= %d", ErrMonotonicity, counter, last.Counter)
		}
		if f.minInterval > 0 && timeunit.Sub(t, f.lastTime) < f.minInterval {
			f.skipped.Add(1)
			return nil
		}
	}

	var evicted int
	if f.win.push(Sample{Counter: counter, Time: t}) {
		evicted++
	}
	evicted += f.win.trim(f.windowTicks)
	f.lastTime = t
	f.added.Add(1)
	f.evicted.Add(uint64(evicted))

	var snap Snapshot
	if f.win.len() == 1 {
		snap = Snapshot{OffsetCounter: counter, OffsetTime: t, CounterRate: f.current}
	} else {
		f.current = chooseRate(f.win, f.current, f.rate)
		snap = fitOffset(f.win, f.current, f.unit)
	}
	if f.state == StateEmpty {
		f.state = StateAnchored
	} else {
		f.state = StateFitted
	}
	f.snap.Store(&snap)
	return nil
}

// Get возвращает копию текущего снимка. Не блокируется.
func (f *Filter) Get() Snapshot {
	return *f.snap.Load()
}

// CounterToTime переводит счётчик во время по текущему снимку.
func (f *Filter) CounterToTime(counter uint64) int64 {
	return f.Get().CounterToTime(counter, f.unit)
}

// TimeToCounter переводит время в счётчик по текущему снимку.
func (f *Filter) TimeToCounter(t int64) uint64 {
	return f.Get().TimeToCounter(t, f.unit)
}

// Reset очищает окно и возвращает тождественный снимок (перезапуск потока устройства).
func (f *Filter) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.win == nil {
		return ErrClosed
	}
	f.win.reset()
	f.current = f.nominal
	f.lastTime = 0
	f.state = StateEmpty
	f.snap.Store(&Snapshot{CounterRate: f.nominal})
	return nil
}

// Close освобождает окно. Последующие Add/Reset возвращают ErrClosed;
// Get продолжает отдавать последний опубликованный снимок.
func (f *Filter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.win == nil {
		return ErrClosed
	}
	f.win = nil
	f.state = StateClosed
	return nil
}

// State возвращает состояние фильтра.
func (f *Filter) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Stats возвращает счётчики фильтра.
func (f *Filter) Stats() Stats {
	f.mu.Lock()
	retained := 0
	if f.win != nil {
		retained = f.win.len()
	}
	state := f.state
	f.mu.Unlock()
	return Stats{
		Added:    f.added.Load(),
		Rejected: f.rejected.Load(),
		Skipped:  f.skipped.Load(),
		Evicted:  f.evicted.Load(),
		Retained: retained,
		State:    state,
	}
}

// NominalRate — номинальная частота счётчика.
func (f *Filter) NominalRate() uint64 { return f.nominal }

// TimeUnit — размер единицы времени.
func (f *Filter) TimeUnit() int64 { return f.unit }

// MinInterval — минимальный интервал между принятыми сэмплами.
func (f *Filter) MinInterval() int64 { return f.minInterval }

// WindowTicks — длительность окна в тиках номинальной частоты.
func (f *Filter) WindowTicks() uint64 { return f.windowTicks }
