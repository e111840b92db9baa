package frame

import (
	"encoding/binary"
	"fmt"
)

// Класс и ID сообщения корреляции счётчика
const (
	ClassTIM     = 0x0D
	IDTIMCounter = 0x20
	CounterSize  = 16
)

// Флаги CounterMsg
const (
	// CounterFlagValid — значение счётчика защёлкнуто по метке времени
	CounterFlagValid = 1 << 0
	// CounterFlagRestart — устройство перезапустило поток, счётчик начат заново
	CounterFlagRestart = 1 << 1
)

// CounterMsg — TIM-COUNTER: значение счётчика сэмплов, защёлкнутое устройством.
//
//	offset 0: seq     uint32
//	offset 4: counter uint64
//	offset 12: flags  uint32
type CounterMsg struct {
	Seq     uint32
	Counter uint64
	Flags   uint32
}

// Valid — флаг CounterFlagValid
func (m CounterMsg) Valid() bool { return m.Flags&CounterFlagValid != 0 }

// Restart — флаг CounterFlagRestart
func (m CounterMsg) Restart() bool { return m.Flags&CounterFlagRestart != 0 }

// Marshal собирает полный кадр TIM-COUNTER.
func (m CounterMsg) Marshal() []byte {
	p := make([]byte, CounterSize)
	binary.LittleEndian.PutUint32(p[0:], m.Seq)
	binary.LittleEndian.PutUint64(p[4:], m.Counter)
	binary.LittleEndian.PutUint32(p[12:], m.Flags)
	return Encode(ClassTIM, IDTIMCounter, p)
}

// IsCounterPacket возвращает true, если кадр — TIM-COUNTER.
func IsCounterPacket(packet []byte) bool {
	h, ok := ParseHeader(packet)
	return ok && h.Class == ClassTIM && h.ID == IDTIMCounter
}

// ParseCounter разбирает кадр TIM-COUNTER.
func ParseCounter(packet []byte) (CounterMsg, error) {
	if !IsCounterPacket(packet) {
		return CounterMsg{}, fmt.Errorf("frame: not a TIM-COUNTER packet")
	}
	p := Payload(packet)
	if len(p) < CounterSize {
		return CounterMsg{}, fmt.Errorf("frame: TIM-COUNTER payload %d bytes, want %d", len(p), CounterSize)
	}
	return CounterMsg{
		Seq:     binary.LittleEndian.Uint32(p[0:]),
		Counter: binary.LittleEndian.Uint64(p[4:]),
		Flags:   binary.LittleEndian.Uint32(p[12:]),
	}, nil
}
