// Package logger — единый вывод логов tc-tmap с префиксом и учётом quiet.
package logger

import (
	"log"
	"time"

	"golang.org/x/time/rate"
)

// Prefix — префикс всех сообщений
const Prefix = "tc-tmap: "

// Quiet при true отключает информационные сообщения (Info); Error выводится всегда.
var Quiet bool

// Info выводит сообщение с префиксом, если Quiet == false.
func Info(format string, args ...interface{}) {
	if Quiet {
		return
	}
	log.Printf(Prefix+format, args...)
}

// Error выводит сообщение об ошибке с префиксом всегда.
func Error(format string, args ...interface{}) {
	log.Printf(Prefix+format, args...)
}

// Throttle — ограничитель повторяющихся сообщений: первое выводится сразу,
// следующие не чаще одного за interval. Подавленные сообщения считаются.
type Throttle struct {
	s          rate.Sometimes
	suppressed int
}

// NewThrottle создаёт ограничитель с минимальным интервалом между сообщениями.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{s: rate.Sometimes{First: 1, Interval: interval}}
}

// Error выводит ошибку через ограничитель. Возвращает true, если сообщение выведено.
func (t *Throttle) Error(format string, args ...interface{}) bool {
	printed := false
	t.s.Do(func() {
		if t.suppressed > 0 {
			format += " (ещё %d подавлено)"
			args = append(args, t.suppressed)
			t.suppressed = 0
		}
		Error(format, args...)
		printed = true
	})
	if !printed {
		t.suppressed++
	}
	return printed
}
