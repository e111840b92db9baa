// Package calibration — калибровочные данные устройства с контролем целостности.
//
// Формат: YAML-тело, дополненное нулями до кратного 32 байтам, за которым следуют
// 64 байта дайджеста calhash от дополненного тела.
package calibration

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/calhash"
)

var (
	// ErrDigest — дайджест не совпал: данные повреждены или изменены
	ErrDigest = errors.New("calibration: digest mismatch")
	// ErrFormat — неверная длина или содержимое
	ErrFormat = errors.New("calibration: bad format")
)

// Calibration — содержимое калибровки
type Calibration struct {
	Serial      string `yaml:"serial"`
	CounterRate string `yaml:"counter_rate"` // "2000000" или "2MHz"
	Date        string `yaml:"date,omitempty"`
}

// Rate — номинальная частота счётчика из калибровки, Гц.
func (c *Calibration) Rate() (uint64, error) {
	return ParseRate(c.CounterRate)
}

// ParseRate парсит частоту: целое число Гц или значение с единицами ("2MHz", "10 kHz").
func ParseRate(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("counter rate is empty")
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		if v == 0 {
			return 0, fmt.Errorf("counter rate is zero")
		}
		return v, nil
	}
	var f physic.Frequency
	if err := f.Set(s); err != nil {
		return 0, fmt.Errorf("counter rate %q: %w", s, err)
	}
	if f < physic.Hertz {
		return 0, fmt.Errorf("counter rate %q below 1 Hz", s)
	}
	return uint64((f + physic.Hertz/2) / physic.Hertz), nil
}

// Seal дополняет тело нулями до кратного calhash.BlockSize и добавляет дайджест.
func Seal(body []byte) ([]byte, error) {
	if bytes.IndexByte(body, 0) >= 0 {
		return nil, fmt.Errorf("%w: body contains NUL", ErrFormat)
	}
	n := len(body)
	if r := n % calhash.BlockSize; r != 0 {
		n += calhash.BlockSize - r
	}
	out := make([]byte, n, n+calhash.Size)
	copy(out, body)
	d, err := calhash.Sum(out)
	if err != nil {
		return nil, err
	}
	return append(out, d.Bytes()...), nil
}

// Verify проверяет дайджест и возвращает тело без дополнения.
func Verify(data []byte) ([]byte, error) {
	if len(data) < calhash.Size || (len(data)-calhash.Size)%calhash.BlockSize != 0 {
		return nil, fmt.Errorf("%w: length %d", ErrFormat, len(data))
	}
	body := data[:len(data)-calhash.Size]
	want, err := calhash.FromBytes(data[len(body):])
	if err != nil {
		return nil, err
	}
	got, err := calhash.Sum(body)
	if err != nil {
		return nil, err
	}
	if !got.Equal(want) {
		return nil, ErrDigest
	}
	return bytes.TrimRight(body, "\x00"), nil
}

// Open проверяет и разбирает калибровку.
func Open(data []byte) (*Calibration, error) {
	body, err := Verify(data)
	if err != nil {
		return nil, err
	}
	var c Calibration
	if err := yaml.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if _, err := c.Rate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return &c, nil
}

// Load читает и проверяет файл калибровки.
func Load(path string) (*Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration: %w", err)
	}
	c, err := Open(data)
	if err != nil {
		return nil, fmt.Errorf("calibration %s: %w", path, err)
	}
	return c, nil
}

// Marshal сериализует калибровку в запечатанный вид.
func (c *Calibration) Marshal() ([]byte, error) {
	body, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	return Seal(body)
}
