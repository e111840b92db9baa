package calibration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/calhash"
)

func TestParseRate(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"2000000", 2_000_000, false},
		{" 1000 ", 1000, false},
		{"2MHz", 2_000_000, false},
		{"10kHz", 10_000, false},
		{"1Hz", 1, false},
		{"0", 0, true},
		{"", 0, true},
		{"fast", 0, true},
		{"1mHz", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSealOpen(t *testing.T) {
	in := &Calibration{Serial: "000415", CounterRate: "2MHz", Date: "2026-01-20"}
	data, err := in.Marshal()
	require.NoError(t, err)
	assert.Zero(t, (len(data)-calhash.Size)%calhash.BlockSize)

	out, err := Open(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	rate, err := out.Rate()
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000_000), rate)
}

func TestOpen_Tampered(t *testing.T) {
	data, err := Seal([]byte("serial: \"1\"\ncounter_rate: \"1000000\"\n"))
	require.NoError(t, err)

	for _, idx := range []int{0, 10, len(data) - 1} {
		bad := append([]byte{}, data...)
		bad[idx] ^= 0x01
		_, err := Open(bad)
		assert.ErrorIs(t, err, ErrDigest, "byte %d", idx)
	}

	_, err = Open(data[:len(data)-1])
	assert.ErrorIs(t, err, ErrFormat)
	_, err = Open(nil)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestOpen_BadBody(t *testing.T) {
	data, err := Seal([]byte("serial: x\ncounter_rate: nope\n"))
	require.NoError(t, err)
	_, err = Open(data)
	assert.ErrorIs(t, err, ErrFormat)

	_, err = Seal([]byte{'a', 0, 'b'})
	assert.ErrorIs(t, err, ErrFormat)
}

func TestLoad(t *testing.T) {
	data, err := (&Calibration{Serial: "7", CounterRate: "1000000"}).Marshal()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "cal.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7", c.Serial)

	_, err = Load(filepath.Join(t.TempDir(), "missing.bin"))
	assert.Error(t, err)
}
