package source

import (
	"context"
	"errors"
)

// Correlation — пара (счётчик, время хоста), снятая одновременно
type Correlation struct {
	Counter uint64
	Time    int64
	// Restart — устройство начало поток заново; фильтр нужно сбросить до Add
	Restart bool
}

// Source — источник пар корреляции для фильтра отображения
type Source interface {
	// Name возвращает имя источника для логов
	Name() string
	// Protocol возвращает протокол: serial, emulated
	Protocol() string
	// Next блокируется до следующей пары или отмены ctx
	Next(ctx context.Context) (Correlation, error)
	// Close освобождает ресурсы
	Close() error
}

// ErrClosed — источник закрыт
var ErrClosed = errors.New("source closed")
