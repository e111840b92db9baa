// Package frame — кадрирование сообщений устройства в формате UBX:
// sync(2) + class + id + length(2, LE) + payload + checksum(2, Fletcher-8).
package frame

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Sync bytes
const (
	Sync1 = 0xB5
	Sync2 = 0x62
)

// HeaderSize — sync + class + id + length
const HeaderSize = 6

// Overhead — заголовок и контрольная сумма
const Overhead = HeaderSize + 2

// MaxPayload — максимальный принимаемый payload
const MaxPayload = 1024

var (
	// ErrChecksum — контрольная сумма кадра не совпала
	ErrChecksum = errors.New("frame: checksum mismatch")
	// ErrTooLong — длина payload больше MaxPayload
	ErrTooLong = errors.New("frame: payload too long")
)

// Header — заголовок кадра
type Header struct {
	Class  uint8
	ID     uint8
	Length uint16
}

// Checksum вычисляет контрольную сумму (без sync bytes)
func Checksum(data []byte) (ckA, ckB uint8) {
	for _, b := range data {
		ckA += b
		ckB += ckA
	}
	return ckA, ckB
}

// Encode собирает полный кадр: header + payload + checksum
func Encode(class, id uint8, payload []byte) []byte {
	buf := make([]byte, 0, Overhead+len(payload))
	buf = append(buf, Sync1, Sync2, class, id)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	ckA, ckB := Checksum(buf[2:])
	return append(buf, ckA, ckB)
}

// ParseHeader парсит заголовок из буфера (минимум HeaderSize байт)
func ParseHeader(buf []byte) (h Header, ok bool) {
	if len(buf) < HeaderSize || buf[0] != Sync1 || buf[1] != Sync2 {
		return Header{}, false
	}
	return Header{Class: buf[2], ID: buf[3], Length: binary.LittleEndian.Uint16(buf[4:6])}, true
}

// VerifyChecksum проверяет контрольную сумму кадра
func VerifyChecksum(packet []byte) bool {
	if len(packet) < Overhead {
		return false
	}
	ckA, ckB := Checksum(packet[2 : len(packet)-2])
	return packet[len(packet)-2] == ckA && packet[len(packet)-1] == ckB
}

// Payload возвращает payload кадра (без заголовка и контрольной суммы).
func Payload(packet []byte) []byte {
	h, ok := ParseHeader(packet)
	if !ok || len(packet) < Overhead+int(h.Length) {
		return nil
	}
	return packet[HeaderSize : HeaderSize+int(h.Length)]
}

// Reader читает кадры из потока, пропуская мусор до sync bytes.
type Reader struct {
	r *bufio.Reader
}

// NewReader оборачивает поток.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadFrame читает один кадр целиком. При ErrChecksum кадр возвращается для диагностики,
// следующий вызов продолжает поиск sync.
func (fr *Reader) ReadFrame() ([]byte, error) {
	var prev byte
	for {
		b, err := fr.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if prev == Sync1 && b == Sync2 {
			break
		}
		prev = b
	}
	buf := make([]byte, HeaderSize, Overhead+64)
	buf[0], buf[1] = Sync1, Sync2
	if _, err := io.ReadFull(fr.r, buf[2:HeaderSize]); err != nil {
		return nil, unexpected(err)
	}
	length := int(binary.LittleEndian.Uint16(buf[4:6]))
	if length > MaxPayload {
		return nil, fmt.Errorf("%w: %d", ErrTooLong, length)
	}
	buf = append(buf, make([]byte, length+2)...)
	if _, err := io.ReadFull(fr.r, buf[HeaderSize:]); err != nil {
		return nil, unexpected(err)
	}
	if !VerifyChecksum(buf) {
		return buf, ErrChecksum
	}
	return buf, nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
