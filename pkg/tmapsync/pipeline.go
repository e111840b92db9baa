package tmapsync

import (
	"errors"
	"time"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/logger"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/source"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/stream"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/timemap"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/tmap"
)

// Pipeline связывает источник корреляций с фильтром и историей снимков.
// Ingest вызывается из одной горутины; Stamper безопасен для любого числа читателей.
type Pipeline struct {
	f    *timemap.Filter
	h    *tmap.History
	last timemap.Snapshot
	bad  *logger.Throttle
}

// NewPipeline создаёт конвейер; h может быть nil.
func NewPipeline(f *timemap.Filter, h *tmap.History) *Pipeline {
	return &Pipeline{f: f, h: h, bad: logger.NewThrottle(10 * time.Second)}
}

// Ingest передаёт пару в фильтр и публикует изменившийся снимок в историю.
// Нарушение монотонности логируется с ограничением частоты и возвращается вызывающему;
// фильтр при этом не меняется.
func (p *Pipeline) Ingest(c source.Correlation) error {
	if c.Restart {
		logger.Info("устройство перезапустило поток, сброс фильтра")
		if err := p.f.Reset(); err != nil {
			return err
		}
		if p.h != nil {
			p.h.Clear()
		}
		p.last = timemap.Snapshot{}
	}
	if err := p.f.Add(c.Counter, c.Time); err != nil {
		if errors.Is(err, timemap.ErrMonotonicity) {
			p.bad.Error("correlation rejected: %v", err)
		}
		return err
	}
	snap := p.f.Get()
	if snap == p.last {
		return nil
	}
	if snap.CounterRate != p.last.CounterRate && p.last.CounterRate != 0 {
		logger.Info("counter rate %d -> %d Hz", p.last.CounterRate, snap.CounterRate)
	}
	p.last = snap
	if p.h == nil {
		return nil
	}
	if err := p.h.Add(snap); err != nil {
		// смещение назад при уточнении частоты: история начинается заново
		logger.Info("history: %v, restart", err)
		p.h.Clear()
		if err := p.h.Add(snap); err != nil {
			return err
		}
	}
	if w := p.f.WindowTicks(); c.Counter > w {
		p.h.ExpireByCounter(c.Counter - w)
	}
	return nil
}

// Snapshot — последний опубликованный снимок
func (p *Pipeline) Snapshot() timemap.Snapshot {
	return p.f.Get()
}

// Stamper — разметчик потока поверх фильтра и истории
func (p *Pipeline) Stamper() *stream.Stamper {
	return stream.NewStamper(p.f, p.h)
}
