// Package hostclock — чтение часов хоста в единицах timeunit.
package hostclock

import (
	"time"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/timeunit"
)

// Clock — источник текущего времени хоста (для подмены в тестах)
type Clock interface {
	Now() int64
}

// System — системные часы реального времени
type System struct{}

// Now — текущее время хоста в единицах timeunit
func (System) Now() int64 { return Now() }

// Func — Clock из функции
type Func func() int64

// Now вызывает функцию
func (f Func) Now() int64 { return f() }

// FromGoTime — время хоста через time.Now (запасной путь)
func FromGoTime() int64 {
	return timeunit.FromTime(time.Now())
}
