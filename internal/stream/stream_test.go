package stream

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/timemap"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/timeunit"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/tmap"
)

const freq = 1_000_000

func TestStamper_Filter(t *testing.T) {
	f, err := timemap.New(freq, 60, timeunit.Second)
	require.NoError(t, err)
	require.NoError(t, f.Add(10*freq, 100*timeunit.Second))
	s := NewStamper(f, nil)

	sp, err := s.Stamp(11*freq, freq/2)
	require.NoError(t, err)
	assert.Equal(t, Span{11 * freq, 11*freq + freq/2, 101 * timeunit.Second, 101*timeunit.Second + timeunit.Second/2}, sp)
	assert.Equal(t, uint64(freq/2), sp.Len())
	assert.Equal(t, 500*time.Millisecond, sp.Duration())
	assert.Equal(t, time.Date(2018, 1, 1, 0, 1, 41, 0, time.UTC), sp.StartTime())
	assert.True(t, sp.EndTime().After(sp.StartTime()))

	back, err := s.Locate(sp.Start, sp.End)
	require.NoError(t, err)
	assert.Equal(t, sp, back)

	_, err = s.Stamp(math.MaxUint64, 2)
	assert.Error(t, err)
	_, err = s.Locate(10, 5)
	assert.Error(t, err)

	// время до нулевого тика счётчика не переворачивается через 2^64
	early, err := s.Locate(50*timeunit.Second, 91*timeunit.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), early.StartCounter)
	assert.Equal(t, uint64(freq), early.EndCounter)
}

func TestStamper_History(t *testing.T) {
	f, err := timemap.New(freq, 60, timeunit.Second)
	require.NoError(t, err)
	h := tmap.New(timeunit.Second, 0)
	s := NewStamper(f, h)

	// история пуста — разметка по фильтру (тождественный снимок)
	sp, err := s.Stamp(freq, freq)
	require.NoError(t, err)
	assert.Equal(t, timeunit.Second, sp.Start)

	// старый снимок сдвинут на 5 с относительно нового: блок до смены размечается старым
	require.NoError(t, h.Add(timemap.Snapshot{OffsetCounter: 0, OffsetTime: 5 * timeunit.Second, CounterRate: freq}))
	require.NoError(t, h.Add(timemap.Snapshot{OffsetCounter: 10 * freq, OffsetTime: 20 * timeunit.Second, CounterRate: freq}))

	sp, err = s.Stamp(2*freq, freq)
	require.NoError(t, err)
	assert.Equal(t, 7*timeunit.Second, sp.Start)
	assert.Equal(t, 8*timeunit.Second, sp.End)

	sp, err = s.Stamp(12*freq, freq)
	require.NoError(t, err)
	assert.Equal(t, 22*timeunit.Second, sp.Start)

	sp, err = s.Locate(21*timeunit.Second, 22*timeunit.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(11*freq), sp.StartCounter)
	assert.Equal(t, uint64(12*freq), sp.EndCounter)
}
