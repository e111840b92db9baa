package timemap

import "errors"

// Ошибки фильтра; проверять через errors.Is.
var (
	// ErrInvalidArgument — нулевая частота, нулевое окно или неположительная единица времени
	ErrInvalidArgument = errors.New("timemap: invalid argument")
	// ErrMonotonicity — счётчик не больше последнего сохранённого; сэмпл отброшен
	ErrMonotonicity = errors.New("timemap: counter not monotonic")
	// ErrClosed — операция после Close
	ErrClosed = errors.New("timemap: filter closed")
)
