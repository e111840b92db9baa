// Package tmap — история опубликованных снимков отображения счётчик ↔ время.
//
// Поток сэмплов буферизуется: к моменту разметки сэмпла фильтр может уже опубликовать
// новый снимок. История хранит последовательность снимков, упорядоченную по
// offset_counter, и для каждого счётчика выбирает снимок, действовавший на тот момент.
package tmap

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/timemap"
)

// DefaultCapacity — размер истории по умолчанию
const DefaultCapacity = 128

var (
	// ErrUnavailable — история пуста
	ErrUnavailable = errors.New("tmap: no time map available")
	// ErrInvalidRate — нулевая частота в снимке
	ErrInvalidRate = errors.New("tmap: invalid counter rate")
	// ErrNotMonotonic — якорь или время снимка меньше предыдущего
	ErrNotMonotonic = errors.New("tmap: time map is not monotonically increasing")
)

// History — ограниченная история снимков. Безопасна для одного писателя и многих читателей.
type History struct {
	unit     int64
	capacity int

	mu      sync.RWMutex
	entries []timemap.Snapshot
}

// New создаёт историю; capacity <= 0 — DefaultCapacity.
func New(unit int64, capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{
		unit:     unit,
		capacity: capacity,
		entries:  make([]timemap.Snapshot, 0, capacity),
	}
}

// Add добавляет снимок. Повтор последнего снимка игнорируется, снимок с тем же
// якорем заменяет последний; при переполнении отбрасывается самый старый.
func (h *History) Add(s timemap.Snapshot) error {
	if s.CounterRate == 0 {
		return ErrInvalidRate
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.entries); n > 0 {
		last := h.entries[n-1]
		if last == s {
			return nil
		}
		if s.OffsetCounter == last.OffsetCounter {
			// тот же якорь, уточнённая оценка: заменяет последний снимок
			if n > 1 && s.OffsetTime < h.entries[n-2].OffsetTime {
				return fmt.Errorf("%w: %d < %d", ErrNotMonotonic, s.OffsetTime, h.entries[n-2].OffsetTime)
			}
			h.entries[n-1] = s
			return nil
		}
		if s.OffsetCounter < last.OffsetCounter || s.OffsetTime < last.OffsetTime {
			return fmt.Errorf("%w: %v after %v", ErrNotMonotonic, s, last)
		}
	}
	if len(h.entries) == h.capacity {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.entries = append(h.entries, s)
	return nil
}

// ExpireByCounter удаляет снимки, полностью предшествующие counter: остаётся
// снимок, действующий для counter, и все более новые. Последний снимок не удаляется.
// Возвращает число удалённых.
func (h *History) ExpireByCounter(counter uint64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for n+1 < len(h.entries) && h.entries[n+1].OffsetCounter <= counter {
		n++
	}
	if n > 0 {
		h.entries = append(h.entries[:0], h.entries[n:]...)
	}
	return n
}

// Clear очищает историю.
func (h *History) Clear() {
	h.mu.Lock()
	h.entries = h.entries[:0]
	h.mu.Unlock()
}

// Len — число снимков в истории
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// At возвращает i-й снимок (0 — самый старый).
func (h *History) At(i int) (timemap.Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if i < 0 || i >= len(h.entries) {
		return timemap.Snapshot{}, false
	}
	return h.entries[i], true
}

// Latest — самый новый снимок
func (h *History) Latest() (timemap.Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.entries) == 0 {
		return timemap.Snapshot{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// CounterToTime переводит счётчик во время по снимку, действовавшему для этого счётчика.
// Счётчики вне истории переводятся по крайнему снимку.
func (h *History) CounterToTime(counter uint64) (int64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.entries) == 0 {
		return 0, ErrUnavailable
	}
	i := sort.Search(len(h.entries), func(i int) bool {
		return h.entries[i].OffsetCounter > counter
	})
	if i > 0 {
		i--
	}
	return h.entries[i].CounterToTime(counter, h.unit), nil
}

// TimeToCounter — обратное преобразование: снимок выбирается по offset_time.
func (h *History) TimeToCounter(t int64) (uint64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.entries) == 0 {
		return 0, ErrUnavailable
	}
	i := sort.Search(len(h.entries), func(i int) bool {
		return h.entries[i].OffsetTime > t
	})
	if i > 0 {
		i--
	}
	return h.entries[i].TimeToCounter(t, h.unit), nil
}
