package tmap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/timemap"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/timeunit"
)

const freq = 1_000_000

func snap(sec uint64, rate uint64) timemap.Snapshot {
	return timemap.Snapshot{OffsetCounter: sec * freq, OffsetTime: int64(sec) * timeunit.Second, CounterRate: rate}
}

func TestHistory_Empty(t *testing.T) {
	h := New(timeunit.Second, 0)
	_, err := h.CounterToTime(10)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = h.TimeToCounter(10)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, ok := h.Latest()
	assert.False(t, ok)
	_, ok = h.At(0)
	assert.False(t, ok)
	assert.Equal(t, 0, h.ExpireByCounter(100))
}

func TestHistory_Add(t *testing.T) {
	h := New(timeunit.Second, 4)
	require.NoError(t, h.Add(snap(1, freq)))
	require.NoError(t, h.Add(snap(1, freq)))
	assert.Equal(t, 1, h.Len(), "duplicate must be dropped")

	assert.ErrorIs(t, h.Add(timemap.Snapshot{OffsetCounter: 5}), ErrInvalidRate)
	assert.ErrorIs(t, h.Add(timemap.Snapshot{OffsetTime: -1, CounterRate: freq}), ErrNotMonotonic)
	assert.Equal(t, 1, h.Len())

	refined := snap(1, freq+10)
	require.NoError(t, h.Add(refined))
	assert.Equal(t, 1, h.Len(), "same anchor replaces the entry")
	latest, _ := h.Latest()
	assert.Equal(t, refined, latest)

	for s := uint64(2); s <= 6; s++ {
		require.NoError(t, h.Add(snap(s, freq)))
	}
	assert.Equal(t, 4, h.Len())
	first, ok := h.At(0)
	require.True(t, ok)
	assert.Equal(t, snap(3, freq), first)
	last, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, snap(6, freq), last)
}

func TestHistory_CounterToTime(t *testing.T) {
	h := New(timeunit.Second, 0)
	require.NoError(t, h.Add(snap(10, freq)))
	// после 20 с частота уточнена: 1000 тиков за 20 с ушли вперёд
	second := timemap.Snapshot{OffsetCounter: 20*freq + 1000, OffsetTime: 20 * timeunit.Second, CounterRate: freq + 100}
	require.NoError(t, h.Add(second))

	tests := []struct {
		name    string
		counter uint64
		want    int64
	}{
		{"before first", 5 * freq, 5 * timeunit.Second},
		{"first entry", 15 * freq, 15 * timeunit.Second},
		{"just before second", 20*freq + 999, snap(10, freq).CounterToTime(20*freq+999, timeunit.Second)},
		{"second anchor", 20*freq + 1000, 20 * timeunit.Second},
		{"after second", 20*freq + 1000 + (freq + 100), 21 * timeunit.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.CounterToTime(tt.counter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	c, err := h.TimeToCounter(21 * timeunit.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(20*freq+1000+freq+100), c)
	c, err = h.TimeToCounter(12 * timeunit.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(12*freq), c)
}

func TestHistory_ExpireByCounter(t *testing.T) {
	h := New(timeunit.Second, 0)
	for s := uint64(1); s <= 5; s++ {
		require.NoError(t, h.Add(snap(s*10, freq)))
	}
	// счётчик внутри третьего снимка: первые два больше не нужны
	assert.Equal(t, 2, h.ExpireByCounter(35*freq))
	first, _ := h.At(0)
	assert.Equal(t, snap(30, freq), first)

	assert.Equal(t, 0, h.ExpireByCounter(10*freq))
	assert.Equal(t, 2, h.ExpireByCounter(1000*freq))
	assert.Equal(t, 1, h.Len(), "latest entry is kept")

	h.Clear()
	assert.Equal(t, 0, h.Len())
}

func TestHistory_Concurrent(t *testing.T) {
	h := New(timeunit.Second, 16)
	require.NoError(t, h.Add(snap(0, freq)))
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := uint64(0); i < 1000; i++ {
				got, err := h.CounterToTime(i * freq)
				if err != nil || got != int64(i)*timeunit.Second {
					t.Errorf("counter %d: %d %v", i*freq, got, err)
					return
				}
			}
		}()
	}
	for s := uint64(1); s < 1000; s++ {
		require.NoError(t, h.Add(snap(s, freq)))
	}
	wg.Wait()
}
