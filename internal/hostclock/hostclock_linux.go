//go:build linux

package hostclock

import (
	"github.com/shiwa/timecard-mini/tc-tmap/internal/timeunit"
	"golang.org/x/sys/unix"
)

// Now читает CLOCK_REALTIME через clock_gettime и переводит в единицы timeunit.
func Now() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_REALTIME, &ts); err != nil {
		return FromGoTime()
	}
	return timeunit.FromUnixNano(ts.Nano())
}

// GranularityNs выполняет простое измерение гранулярности часов (разрешение clock_gettime).
// Делает несколько вызовов clock_gettime и возвращает минимальный ненулевой интервал в наносекундах.
func GranularityNs() int64 {
	const rounds = 20
	var minDt int64 = 1e9
	for i := 0; i < rounds; i++ {
		var t1, t2 unix.Timespec
		_ = unix.ClockGettime(unix.CLOCK_REALTIME, &t1)
		_ = unix.ClockGettime(unix.CLOCK_REALTIME, &t2)
		dt := t2.Nano() - t1.Nano()
		if dt > 0 && dt < minDt {
			minDt = dt
		}
	}
	if minDt == 1e9 {
		return 0
	}
	return minDt
}

// Resolution — разрешение CLOCK_REALTIME по clock_getres, нс.
func Resolution() int64 {
	var ts unix.Timespec
	if err := unix.ClockGetres(unix.CLOCK_REALTIME, &ts); err != nil {
		return 0
	}
	return ts.Nano()
}
