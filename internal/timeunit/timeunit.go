// Package timeunit — время с фиксированной точкой (34Q30) и целочисленные
// преобразования счётчик ↔ время без переполнения.
//
// Значение int64 хранит время в единицах 2^-30 секунды от эпохи 2018-01-01T00:00:00Z.
package timeunit

import (
	"fmt"
	"math"
	"math/bits"
	"time"
)

// Q — число дробных бит
const Q = 30

// Базовые единицы времени
const (
	Second      int64 = 1 << Q
	Millisecond       = (Second + 500) / 1000
	Microsecond       = (Second + 500000) / 1000000
	Minute            = Second * 60
	Hour              = Minute * 60
	Day               = Hour * 24
	Week              = Day * 7
	Year              = Day * 365
	Month             = Year / 12
)

// Max и Min — границы представимого времени
const (
	Max int64 = math.MaxInt64
	Min int64 = math.MinInt64
)

// EpochUnixOffsetSeconds — смещение эпохи (2018-01-01) относительно Unix epoch в секундах
const EpochUnixOffsetSeconds = 1514764800

const fractMask = Second - 1

// MulDivRound возвращает round(x*num/den) с 128-битным промежуточным произведением.
// Округление: половина — вверх (к +∞). При выходе за диапазон int64 результат насыщается.
// den == 0 даёт Max/Min по знаку x.
func MulDivRound(x int64, num, den uint64) int64 {
	neg := x < 0
	mag := uint64(x)
	if neg {
		mag = ^mag + 1
	}
	if den == 0 {
		return saturate(neg)
	}
	hi, lo := bits.Mul64(mag, num)
	if hi >= den {
		return saturate(neg)
	}
	q, r := bits.Div64(hi, lo, den)
	half := den - r // r >= half <=> 2r >= den
	if neg {
		if q > 1<<63 {
			return Min
		}
		if r > half {
			q++
		}
		if q > 1<<63 {
			return Min
		}
		return int64(-q)
	}
	if q > math.MaxInt64 {
		return Max
	}
	if r >= half {
		q++
	}
	if q > math.MaxInt64 {
		return Max
	}
	return int64(q)
}

func saturate(neg bool) int64 {
	if neg {
		return Min
	}
	return Max
}

// CounterToTime переводит разность счётчика (тики) во время: round(delta*unit/rate).
func CounterToTime(delta int64, rate uint64, unit int64) int64 {
	return MulDivRound(delta, uint64(unit), rate)
}

// TimeToCounter переводит разность времени в тики: round(delta*rate/unit).
func TimeToCounter(delta int64, rate uint64, unit int64) int64 {
	return MulDivRound(delta, rate, uint64(unit))
}

// Sub возвращает a-b с насыщением.
func Sub(a, b int64) int64 {
	d := a - b
	if (a >= 0) != (b >= 0) && (d >= 0) != (a >= 0) {
		return saturate(a < 0)
	}
	return d
}

// Add возвращает a+b с насыщением.
func Add(a, b int64) int64 {
	s := a + b
	if (a >= 0) == (b >= 0) && (s >= 0) != (a >= 0) {
		return saturate(a < 0)
	}
	return s
}

// FromDuration переводит time.Duration в единицы времени.
func FromDuration(d time.Duration) int64 {
	return MulDivRound(int64(d), uint64(Second), uint64(time.Second))
}

// ToDuration переводит единицы времени в time.Duration.
func ToDuration(t int64) time.Duration {
	return time.Duration(MulDivRound(t, uint64(time.Second), uint64(Second)))
}

// FromTime переводит календарное время в единицы времени от эпохи 2018.
func FromTime(t time.Time) int64 {
	sec := t.Unix() - EpochUnixOffsetSeconds
	frac := FromDuration(time.Duration(t.Nanosecond()))
	return Add(sec<<Q, frac)
}

// FromUnixNano переводит наносекунды Unix времени в единицы времени.
func FromUnixNano(ns int64) int64 {
	sec := ns / int64(time.Second)
	nsec := ns % int64(time.Second)
	if nsec < 0 {
		sec--
		nsec += int64(time.Second)
	}
	return Add((sec-EpochUnixOffsetSeconds)<<Q, FromDuration(time.Duration(nsec)))
}

// ToTime переводит единицы времени в time.Time (UTC).
func ToTime(t int64) time.Time {
	sec := t >> Q // арифметический сдвиг — floor для отрицательных
	frac := t & fractMask
	nsec := MulDivRound(frac, uint64(time.Second), uint64(Second))
	return time.Unix(sec+EpochUnixOffsetSeconds, nsec).UTC()
}

// Format возвращает строку вида 2018-01-01T00:00:00.000000 (микросекунды, UTC).
func Format(t int64) string {
	tm := ToTime(t)
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.%06d",
		tm.Year(), tm.Month(), tm.Day(), tm.Hour(), tm.Minute(), tm.Second(), tm.Nanosecond()/1000)
}

// Seconds переводит единицы времени в секунды (float64), для логов и метрик.
func Seconds(t int64) float64 {
	return float64(t) / float64(Second)
}
