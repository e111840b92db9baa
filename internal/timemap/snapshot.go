package timemap

import (
	"fmt"
	"math"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/timeunit"
)

// Snapshot — неизменяемая оценка линейного отображения счётчик ↔ время:
//
//	time    ≈ OffsetTime + (counter - OffsetCounter) * unit / CounterRate
//	counter ≈ OffsetCounter + (time - OffsetTime) * CounterRate / unit
//
// CounterRate — тиков на единицу unit (на "секунду"), всегда > 0 у опубликованных снимков.
type Snapshot struct {
	OffsetCounter uint64
	OffsetTime    int64
	CounterRate   uint64
}

// CounterToTime переводит значение счётчика во время (округление половины вверх).
func (s Snapshot) CounterToTime(counter uint64, unit int64) int64 {
	delta := int64(counter - s.OffsetCounter) // разность по модулю 2^64, счётчик до якоря — отрицательная
	return timeunit.Add(s.OffsetTime, timeunit.CounterToTime(delta, s.CounterRate, unit))
}

// TimeToCounter переводит время в значение счётчика. Время раньше нуля счётчика даёт 0,
// за пределами диапазона uint64 — math.MaxUint64.
func (s Snapshot) TimeToCounter(t int64, unit int64) uint64 {
	delta := timeunit.TimeToCounter(timeunit.Sub(t, s.OffsetTime), s.CounterRate, unit)
	if delta < 0 {
		back := uint64(-(delta + 1)) + 1
		if back > s.OffsetCounter {
			return 0
		}
		return s.OffsetCounter - back
	}
	c := s.OffsetCounter + uint64(delta)
	if c < s.OffsetCounter {
		return math.MaxUint64
	}
	return c
}

func (s Snapshot) String() string {
	return fmt.Sprintf("counter=%d time=%s rate=%d", s.OffsetCounter, timeunit.Format(s.OffsetTime), s.CounterRate)
}
