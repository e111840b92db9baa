package source

import (
	"fmt"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/config"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/devscan"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/hostclock"
)

// NewFromConfig создаёт Source из конфига. rate — номинальная частота счётчика
// (после возможной замены из калибровки), нужна эмулятору.
func NewFromConfig(c *config.Config, rate uint64, list devscan.Lister) (Source, error) {
	switch c.Source.Protocol {
	case "serial":
		port := c.Device.Port
		if port == "" {
			p, err := devscan.Find(list, devscan.Filter{VID: c.Device.VID, PID: c.Device.PID})
			if err != nil {
				return nil, err
			}
			port = p
		}
		return OpenSerial(port, c.Device.Baud)
	case "emulated":
		return NewEmulated(EmulatedConfig{
			CounterRate: rate,
			DriftPPM:    c.Source.DriftPPM,
			Interval:    c.Interval(),
			Jitter:      c.Jitter(),
			Seed:        c.Source.Seed,
			Start:       hostclock.Now(),
			Pace:        c.Source.Pace,
		}), nil
	default:
		return nil, fmt.Errorf("unknown protocol: %s", c.Source.Protocol)
	}
}
