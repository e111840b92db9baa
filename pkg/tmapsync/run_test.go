package tmapsync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/calibration"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/config"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/source"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/timemap"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/timeunit"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/tmap"
)

const freq = 2_000_000

func newPipeline(t *testing.T) (*Pipeline, *timemap.Filter, *tmap.History) {
	t.Helper()
	f, err := timemap.New(freq, 60, timeunit.Second)
	require.NoError(t, err)
	h := tmap.New(timeunit.Second, 0)
	return NewPipeline(f, h), f, h
}

func TestPipeline_Ingest(t *testing.T) {
	p, f, h := newPipeline(t)
	require.NoError(t, p.Ingest(source.Correlation{Counter: 60 * freq, Time: timeunit.Minute}))
	require.NoError(t, p.Ingest(source.Correlation{Counter: 62 * freq, Time: 62*timeunit.Second - timeunit.Millisecond}))
	require.NoError(t, p.Ingest(source.Correlation{Counter: 64 * freq, Time: 64*timeunit.Second + timeunit.Millisecond}))
	assert.Equal(t, timemap.Snapshot{OffsetCounter: 60 * freq, OffsetTime: timeunit.Minute, CounterRate: freq}, p.Snapshot())
	assert.Equal(t, 1, h.Len(), "same anchor keeps one history entry")

	err := p.Ingest(source.Correlation{Counter: 64 * freq, Time: 65 * timeunit.Second})
	assert.ErrorIs(t, err, timemap.ErrMonotonicity)
	assert.Equal(t, uint64(1), f.Stats().Rejected)

	sp, err := p.Stamper().Stamp(61*freq, freq)
	require.NoError(t, err)
	assert.Equal(t, 61*timeunit.Second, sp.Start)
	assert.Equal(t, 62*timeunit.Second, sp.End)
}

func TestPipeline_Restart(t *testing.T) {
	p, f, h := newPipeline(t)
	require.NoError(t, p.Ingest(source.Correlation{Counter: 100 * freq, Time: 100 * timeunit.Second}))
	require.NoError(t, p.Ingest(source.Correlation{Counter: 5, Time: 200 * timeunit.Second, Restart: true}))
	assert.Equal(t, timemap.Snapshot{OffsetCounter: 5, OffsetTime: 200 * timeunit.Second, CounterRate: freq}, f.Get())
	assert.Equal(t, 1, h.Len())
	latest, _ := h.Latest()
	assert.Equal(t, f.Get(), latest)
}

func TestPipeline_HistoryFollowsWindow(t *testing.T) {
	p, f, h := newPipeline(t)
	for i := uint64(0); i < 300; i++ {
		require.NoError(t, p.Ingest(source.Correlation{Counter: i * freq, Time: int64(i) * timeunit.Second}))
	}
	assert.Equal(t, 61, f.Stats().Retained)
	require.Greater(t, h.Len(), 0)
	first, _ := h.At(0)
	assert.GreaterOrEqual(t, first.OffsetCounter+f.WindowTicks(), uint64(238*freq))
	// буферизованный сэмпл из окна размечается точно
	tm, err := h.CounterToTime(250 * freq)
	require.NoError(t, err)
	assert.Equal(t, 250*timeunit.Second, tm)
}

// limited отдаёт n пар эмулятора, затем ошибку
type limited struct {
	source.Source
	n int
}

var errDone = errors.New("done")

func (l *limited) Next(ctx context.Context) (source.Correlation, error) {
	if l.n == 0 {
		return source.Correlation{}, errDone
	}
	l.n--
	return l.Source.Next(ctx)
}

func TestRun_Emulated(t *testing.T) {
	p, f, _ := newPipeline(t)
	src := &limited{Source: source.NewEmulated(source.EmulatedConfig{
		CounterRate: freq,
		DriftPPM:    200,
		Interval:    time.Second,
		Jitter:      50 * time.Microsecond,
		Seed:        1,
		Start:       timeunit.Day,
	}), n: 600}

	err := Run(context.Background(), src, p)
	assert.ErrorIs(t, err, errDone)
	assert.InDelta(t, freq+400, float64(f.Get().CounterRate), 100)
	// отклонение разметки от идеальной прямой — в пределах джиттера
	c := uint64(599 * (freq + 400))
	want := timeunit.Day + 599*timeunit.Second
	assert.InDelta(t, want, f.CounterToTime(c), float64(100*timeunit.Microsecond))
}

func TestRun_Cancel(t *testing.T) {
	p, _, _ := newPipeline(t)
	src := source.NewEmulated(source.EmulatedConfig{CounterRate: freq, Interval: time.Hour, Pace: true})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, Run(ctx, src, p), context.DeadlineExceeded)
}

func TestNewFilter_Calibration(t *testing.T) {
	data, err := (&calibration.Calibration{Serial: "42", CounterRate: "1MHz"}).Marshal()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "cal.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg := config.Default()
	f, err := NewFilter(cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64(freq), f.NominalRate())

	cfg.Calibration.File = path
	f, err = NewFilter(cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), f.NominalRate())

	data[0] ^= 1
	require.NoError(t, os.WriteFile(path, data, 0o644))
	_, err = NewFilter(cfg)
	assert.ErrorIs(t, err, calibration.ErrDigest)
}

func TestRunDaemon_Emulated(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Protocol = "emulated"
	cfg.Source.Interval = "1ms"
	cfg.Source.Pace = true
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, RunDaemon(ctx, cfg, true), context.DeadlineExceeded)
}
