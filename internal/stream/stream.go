// Package stream размечает блоки сэмплов потока временем хоста.
package stream

import (
	"errors"
	"fmt"
	"time"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/timemap"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/timeunit"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/tmap"
)

// Span — блок сэмплов [StartCounter, EndCounter) и его границы во времени
type Span struct {
	StartCounter uint64
	EndCounter   uint64
	Start        int64 // время StartCounter, единицы timeunit
	End          int64 // время EndCounter
}

// Len — число сэмплов
func (s Span) Len() uint64 { return s.EndCounter - s.StartCounter }

// StartTime — начало блока как time.Time
func (s Span) StartTime() time.Time { return timeunit.ToTime(s.Start) }

// EndTime — конец блока как time.Time
func (s Span) EndTime() time.Time { return timeunit.ToTime(s.End) }

// Duration — длительность блока
func (s Span) Duration() time.Duration { return timeunit.ToDuration(s.End - s.Start) }

// Stamper переводит счётчики сэмплов во время. Пока в истории есть снимки,
// используется снимок, действовавший для счётчика; иначе — текущий снимок фильтра.
type Stamper struct {
	f *timemap.Filter
	h *tmap.History
}

// NewStamper создаёт разметчик; h может быть nil.
func NewStamper(f *timemap.Filter, h *tmap.History) *Stamper {
	return &Stamper{f: f, h: h}
}

// Stamp размечает n сэмплов, начиная со счётчика start.
func (s *Stamper) Stamp(start, n uint64) (Span, error) {
	if start+n < start {
		return Span{}, fmt.Errorf("stream: span %d+%d overflows", start, n)
	}
	sp := Span{StartCounter: start, EndCounter: start + n}
	var err error
	if sp.Start, err = s.counterToTime(sp.StartCounter); err != nil {
		return Span{}, err
	}
	if sp.End, err = s.counterToTime(sp.EndCounter); err != nil {
		return Span{}, err
	}
	return sp, nil
}

// Locate — обратная разметка: диапазон счётчиков, покрывающий [start, end).
func (s *Stamper) Locate(start, end int64) (Span, error) {
	if end < start {
		return Span{}, fmt.Errorf("stream: end %d before start %d", end, start)
	}
	sp := Span{Start: start, End: end}
	var err error
	if sp.StartCounter, err = s.timeToCounter(start); err != nil {
		return Span{}, err
	}
	if sp.EndCounter, err = s.timeToCounter(end); err != nil {
		return Span{}, err
	}
	return sp, nil
}

func (s *Stamper) counterToTime(c uint64) (int64, error) {
	if s.h != nil {
		t, err := s.h.CounterToTime(c)
		if !errors.Is(err, tmap.ErrUnavailable) {
			return t, err
		}
	}
	return s.f.CounterToTime(c), nil
}

func (s *Stamper) timeToCounter(t int64) (uint64, error) {
	if s.h != nil {
		c, err := s.h.TimeToCounter(t)
		if !errors.Is(err, tmap.ErrUnavailable) {
			return c, err
		}
	}
	return s.f.TimeToCounter(t), nil
}
