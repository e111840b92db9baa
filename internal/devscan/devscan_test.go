package devscan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

func fakeLister(ports ...*enumerator.PortDetails) Lister {
	return func() ([]*enumerator.PortDetails, error) { return ports, nil }
}

var (
	devA = &enumerator.PortDetails{Name: "/dev/ttyACM1", IsUSB: true, VID: "16D0", PID: "10BA", SerialNumber: "000415", Product: "JS220"}
	devB = &enumerator.PortDetails{Name: "/dev/ttyACM0", IsUSB: true, VID: "16d0", PID: "10ba", SerialNumber: "000002"}
	devC = &enumerator.PortDetails{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001"}
	uart = &enumerator.PortDetails{Name: "/dev/ttyS0"}
)

func TestScan(t *testing.T) {
	devs, err := Scan(fakeLister(devA, devB, devC, uart, nil), Filter{})
	require.NoError(t, err)
	require.Len(t, devs, 3)
	assert.Equal(t, "u/0403:6001//dev/ttyUSB0", devs[0].ID)
	assert.Equal(t, "u/16d0:10ba/000002", devs[1].ID)
	assert.Equal(t, Device{ID: "u/16d0:10ba/000415", Port: "/dev/ttyACM1", Product: "JS220"}, devs[2])

	devs, err = Scan(fakeLister(devA, devB, devC), Filter{VID: "16d0", PID: "10BA"})
	require.NoError(t, err)
	assert.Len(t, devs, 2)

	devs, err = Scan(fakeLister(uart), Filter{})
	require.NoError(t, err)
	assert.Empty(t, devs)

	_, err = Scan(func() ([]*enumerator.PortDetails, error) { return nil, errors.New("boom") }, Filter{})
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	port, err := Find(fakeLister(devA, devC), Filter{VID: "16d0"})
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM1", port)

	_, err = Find(fakeLister(devA, devB), Filter{VID: "16d0"})
	assert.Error(t, err)
	_, err = Find(fakeLister(devC), Filter{VID: "16d0"})
	assert.Error(t, err)
}
