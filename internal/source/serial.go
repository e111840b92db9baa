package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/frame"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/hostclock"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/logger"
)

// Таймаут чтения порта: между попытками проверяется ctx
const serialReadTimeout = 200 * time.Millisecond

// FrameReader — поток кадров устройства (frame.Port или подмена в тестах)
type FrameReader interface {
	ReadFrame() ([]byte, error)
	Close() error
}

// Serial — пары корреляции по сообщениям TIM-COUNTER из последовательного порта.
// Время хоста снимается в момент приёма кадра.
type Serial struct {
	r       FrameReader
	device  string
	clock   hostclock.Clock
	lastSeq uint32
	haveSeq bool
	bad     *logger.Throttle
}

// OpenSerial открывает порт устройства.
func OpenSerial(device string, baud int) (*Serial, error) {
	p, err := frame.Open(device, baud, serialReadTimeout)
	if err != nil {
		return nil, err
	}
	if err := p.Flush(); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("flush %s: %w", device, err)
	}
	return NewSerial(p, device, hostclock.System{}), nil
}

// NewSerial создаёт источник поверх готового потока кадров.
func NewSerial(r FrameReader, device string, clock hostclock.Clock) *Serial {
	return &Serial{r: r, device: device, clock: clock, bad: logger.NewThrottle(10 * time.Second)}
}

// Name возвращает имя источника
func (s *Serial) Name() string {
	return fmt.Sprintf("serial:%s", s.device)
}

// Protocol возвращает протокол
func (s *Serial) Protocol() string {
	return "serial"
}

// Next читает кадры до ближайшего валидного TIM-COUNTER.
// Таймаут чтения (io.EOF от порта) не является ошибкой: ожидание продолжается до отмены ctx.
func (s *Serial) Next(ctx context.Context) (Correlation, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Correlation{}, err
		}
		packet, err := s.r.ReadFrame()
		now := s.clock.Now()
		switch {
		case errors.Is(err, io.EOF):
			continue
		case errors.Is(err, frame.ErrChecksum), errors.Is(err, frame.ErrTooLong), errors.Is(err, io.ErrUnexpectedEOF):
			s.bad.Error("%s: %v", s.Name(), err)
			continue
		case err != nil:
			return Correlation{}, fmt.Errorf("%s: %w", s.Name(), err)
		}
		if !frame.IsCounterPacket(packet) {
			continue
		}
		m, err := frame.ParseCounter(packet)
		if err != nil {
			s.bad.Error("%s: %v", s.Name(), err)
			continue
		}
		if s.haveSeq && m.Seq != s.lastSeq+1 && !m.Restart() {
			logger.Info("%s: пропущено %d сообщений", s.Name(), m.Seq-s.lastSeq-1)
		}
		s.lastSeq, s.haveSeq = m.Seq, true
		if !m.Valid() {
			continue
		}
		return Correlation{Counter: m.Counter, Time: now, Restart: m.Restart()}, nil
	}
}

// Close закрывает порт
func (s *Serial) Close() error {
	if s.r == nil {
		return nil
	}
	return s.r.Close()
}
