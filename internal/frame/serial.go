package frame

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// Port — обёртка над последовательным портом устройства
type Port struct {
	port *serial.Port
	r    *Reader
}

// Open открывает последовательный порт. readTimeout > 0 ограничивает ожидание байта.
func Open(device string, baud int, readTimeout time.Duration) (*Port, error) {
	c := &serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: readTimeout,
	}
	p, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("serial open %s: %w", device, err)
	}
	return &Port{port: p, r: NewReader(p)}, nil
}

// WritePacket отправляет готовый кадр
func (p *Port) WritePacket(packet []byte) error {
	_, err := p.port.Write(packet)
	return err
}

// ReadFrame читает один кадр
func (p *Port) ReadFrame() ([]byte, error) {
	return p.r.ReadFrame()
}

// Flush сбрасывает непрочитанные данные
func (p *Port) Flush() error {
	return p.port.Flush()
}

// Close закрывает порт
func (p *Port) Close() error {
	if p.port == nil {
		return nil
	}
	return p.port.Close()
}
