package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/calibration"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/timemap"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/timeunit"
)

// Config — конфигурация tc-tmap
type Config struct {
	Device      DeviceConfig      `yaml:"device"`
	Filter      FilterConfig      `yaml:"filter"`
	Source      SourceConfig      `yaml:"source"`
	Calibration CalibrationConfig `yaml:"calibration"`
	History     HistoryConfig     `yaml:"history"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// DeviceConfig — последовательный порт устройства
type DeviceConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
	// VID/PID для поиска порта, если Port пуст (hex, например "16d0")
	VID string `yaml:"vid"`
	PID string `yaml:"pid"`
}

// FilterConfig — параметры фильтра отображения счётчик ↔ время
type FilterConfig struct {
	CounterRate         string  `yaml:"counter_rate"` // "2000000" или "2MHz"
	Window              uint32  `yaml:"window"`       // длительность окна в единицах time_unit
	TimeUnit            string  `yaml:"time_unit"`    // длительность единицы, например "1s"
	Capacity            int     `yaml:"capacity"`
	MinInterval         string  `yaml:"min_interval"`
	RateThresholdPPM    float64 `yaml:"rate_threshold_ppm"`
	MaxRateDeviationPPM float64 `yaml:"max_rate_deviation_ppm"`
}

// SourceConfig — источник пар корреляции
type SourceConfig struct {
	Protocol string  `yaml:"protocol"` // serial, emulated
	Interval string  `yaml:"interval"` // период пар корреляции
	DriftPPM float64 `yaml:"drift_ppm"`
	Jitter   string  `yaml:"jitter"`
	Seed     int64   `yaml:"seed"`
	Pace     bool    `yaml:"pace"` // emulated: выдавать пары в реальном времени
}

// CalibrationConfig — файл калибровки; counter_rate из него заменяет filter.counter_rate
type CalibrationConfig struct {
	File string `yaml:"file"`
}

// HistoryConfig — история снимков для разметки буферизованных сэмплов
type HistoryConfig struct {
	Capacity int `yaml:"capacity"`
}

// MetricsConfig — HTTP endpoint /metrics; пустой listen отключает
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Default возвращает конфиг по умолчанию
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Port: "/dev/ttyACM0",
			Baud: 115200,
		},
		Filter: FilterConfig{
			CounterRate:         "2MHz",
			Window:              60,
			TimeUnit:            "1s",
			Capacity:            timemap.DefaultCapacity,
			RateThresholdPPM:    timemap.DefaultRateThreshold * 1e6,
			MaxRateDeviationPPM: timemap.DefaultMaxRateDeviation * 1e6,
		},
		Source: SourceConfig{
			Protocol: "serial",
			Interval: "1s",
		},
		History: HistoryConfig{
			Capacity: 128,
		},
	}
}

// Load читает конфиг из YAML
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse разбирает YAML, подставляет значения по умолчанию и проверяет конфиг
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&c)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func applyDefaults(c *Config) {
	d := Default()
	if c.Device.Port == "" && c.Device.VID == "" {
		c.Device.Port = d.Device.Port
	}
	if c.Device.Baud == 0 {
		c.Device.Baud = d.Device.Baud
	}
	if c.Filter.CounterRate == "" {
		c.Filter.CounterRate = d.Filter.CounterRate
	}
	if c.Filter.Window == 0 {
		c.Filter.Window = d.Filter.Window
	}
	if c.Filter.TimeUnit == "" {
		c.Filter.TimeUnit = d.Filter.TimeUnit
	}
	if c.Filter.Capacity == 0 {
		c.Filter.Capacity = d.Filter.Capacity
	}
	if c.Filter.RateThresholdPPM == 0 {
		c.Filter.RateThresholdPPM = d.Filter.RateThresholdPPM
	}
	if c.Filter.MaxRateDeviationPPM == 0 {
		c.Filter.MaxRateDeviationPPM = d.Filter.MaxRateDeviationPPM
	}
	if c.Source.Protocol == "" {
		c.Source.Protocol = d.Source.Protocol
	}
	if c.Source.Interval == "" {
		c.Source.Interval = d.Source.Interval
	}
	if c.History.Capacity == 0 {
		c.History.Capacity = d.History.Capacity
	}
}

// Validate проверяет значения, которые applyDefaults не исправляет
func (c *Config) Validate() error {
	var errs []error
	if _, err := calibration.ParseRate(c.Filter.CounterRate); err != nil {
		errs = append(errs, fmt.Errorf("filter.counter_rate: %w", err))
	}
	if unit, err := parseDuration(c.Filter.TimeUnit); err != nil || unit <= 0 {
		errs = append(errs, fmt.Errorf("filter.time_unit: %q", c.Filter.TimeUnit))
	}
	if _, err := parseDuration(c.Filter.MinInterval); err != nil {
		errs = append(errs, fmt.Errorf("filter.min_interval: %w", err))
	}
	if c.Filter.Capacity < 0 {
		errs = append(errs, fmt.Errorf("filter.capacity: %d", c.Filter.Capacity))
	}
	if c.Filter.MaxRateDeviationPPM < c.Filter.RateThresholdPPM {
		errs = append(errs, fmt.Errorf("filter.max_rate_deviation_ppm below rate_threshold_ppm"))
	}
	switch c.Source.Protocol {
	case "serial", "emulated":
	default:
		errs = append(errs, fmt.Errorf("source.protocol: unknown %q", c.Source.Protocol))
	}
	if d, err := parseDuration(c.Source.Interval); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("source.interval: %q", c.Source.Interval))
	}
	if _, err := parseDuration(c.Source.Jitter); err != nil {
		errs = append(errs, fmt.Errorf("source.jitter: %w", err))
	}
	if c.History.Capacity < 0 {
		errs = append(errs, fmt.Errorf("history.capacity: %d", c.History.Capacity))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// FilterParams возвращает аргументы timemap.NewWithOptions.
func (c *Config) FilterParams() (rate uint64, window uint32, unit int64, opts timemap.Options, err error) {
	rate, err = calibration.ParseRate(c.Filter.CounterRate)
	if err != nil {
		return 0, 0, 0, opts, err
	}
	unitDur, err := parseDuration(c.Filter.TimeUnit)
	if err != nil {
		return 0, 0, 0, opts, err
	}
	minInterval, err := parseDuration(c.Filter.MinInterval)
	if err != nil {
		return 0, 0, 0, opts, err
	}
	opts = timemap.Options{
		Capacity:         c.Filter.Capacity,
		MinInterval:      timeunit.FromDuration(minInterval),
		RateThreshold:    c.Filter.RateThresholdPPM * 1e-6,
		MaxRateDeviation: c.Filter.MaxRateDeviationPPM * 1e-6,
	}
	return rate, c.Filter.Window, timeunit.FromDuration(unitDur), opts, nil
}

// Interval — период пар корреляции
func (c *Config) Interval() time.Duration {
	d, err := parseDuration(c.Source.Interval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// Jitter — амплитуда джиттера эмулятора
func (c *Config) Jitter() time.Duration {
	d, _ := parseDuration(c.Source.Jitter)
	return d
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
