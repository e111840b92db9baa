package timemap

import (
	"math"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/timeunit"
)

// Параметры оценки частоты по умолчанию
const (
	// DefaultRateThreshold — относительное отклонение наклона от номинала, ниже которого
	// публикуется номинальная частота (50 ppm)
	DefaultRateThreshold = 50e-6
	// DefaultMaxRateDeviation — оценки дальше этого отклонения считаются ошибочными (1000 ppm)
	DefaultMaxRateDeviation = 1000e-6
	// minRateSamples — минимум сэмплов для оценки наклона
	minRateSamples = 3
)

// rateParams — правило выбора публикуемой частоты
type rateParams struct {
	nominal      uint64
	unit         int64
	minSpan      uint64 // минимальный охват окна в тиках для оценки наклона
	threshold    float64
	maxDeviation float64
}

// estimateRate — двухпараметрическая линейная регрессия time(counter) по окну.
// x = тики от якоря, y = время от якоря; slope = единиц времени на тик → rate = unit/slope.
// Все произведения явно приводятся к float64: это запрещает компилятору FMA и даёт
// одинаковый результат на всех архитектурах.
func estimateRate(w *window, unit int64) (uint64, bool) {
	n := w.len()
	if n < 2 {
		return 0, false
	}
	anchor := w.oldest()
	var sumX, sumY float64
	for i := 0; i < n; i++ {
		s := w.at(i)
		sumX += float64(s.Counter - anchor.Counter)
		sumY += float64(timeunit.Sub(s.Time, anchor.Time))
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)
	var sxx, sxy float64
	for i := 0; i < n; i++ {
		s := w.at(i)
		dx := float64(float64(s.Counter-anchor.Counter) - meanX)
		dy := float64(float64(timeunit.Sub(s.Time, anchor.Time)) - meanY)
		sxx += float64(dx * dx)
		sxy += float64(dx * dy)
	}
	if sxx == 0 {
		return 0, false
	}
	slope := sxy / sxx
	if slope <= 0 || math.IsInf(slope, 0) || math.IsNaN(slope) {
		return 0, false
	}
	rate := math.Round(float64(unit) / slope)
	if rate < 1 || rate >= math.MaxUint64 {
		return 0, false
	}
	return uint64(rate), true
}

// chooseRate решает, какую частоту публиковать. Номинал — пока оценка в пределах порога;
// принятая ранее частота не меняется от колебаний меньше порога.
func chooseRate(w *window, current uint64, p rateParams) uint64 {
	if w.len() < minRateSamples {
		return current
	}
	if w.newest().Counter-w.oldest().Counter < p.minSpan {
		return current
	}
	est, ok := estimateRate(w, p.unit)
	if !ok {
		return current
	}
	nominal := float64(p.nominal)
	dev := math.Abs(float64(est) - nominal)
	switch {
	case dev <= float64(p.threshold*nominal):
		return p.nominal
	case dev > float64(p.maxDeviation*nominal):
		return current
	case math.Abs(float64(est)-float64(current)) <= float64(p.threshold*nominal):
		return current
	default:
		return est
	}
}

// fitOffset — наименьшие квадраты с фиксированным наклоном (rate), якорь — самый старый сэмпл.
// offset_time = t0 + round(mean((t_i - t0) - CounterToTime(c_i - c0))).
// Среднее считается точно: каждое слагаемое делится на n с остатком, остатки суммируются отдельно.
func fitOffset(w *window, rate uint64, unit int64) Snapshot {
	anchor := w.oldest()
	n := int64(w.len())
	var quot, rem int64
	for i := 0; i < w.len(); i++ {
		s := w.at(i)
		dt := timeunit.Sub(s.Time, anchor.Time)
		pred := timeunit.CounterToTime(int64(s.Counter-anchor.Counter), rate, unit)
		e := timeunit.Sub(dt, pred)
		quot += e / n
		rem += e % n
	}
	mean := quot + roundDiv(rem, n)
	return Snapshot{
		OffsetCounter: anchor.Counter,
		OffsetTime:    timeunit.Add(anchor.Time, mean),
		CounterRate:   rate,
	}
}

// roundDiv — floor(a/n + 1/2) для n > 0.
func roundDiv(a, n int64) int64 {
	return floorDiv(2*a+n, 2*n)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
