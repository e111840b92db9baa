package timemap

// Sample — одна пара корреляции (счётчик, время), снятая одновременно.
type Sample struct {
	Counter uint64
	Time    int64
}

// window — кольцевой буфер сэмплов фиксированной ёмкости, упорядоченный по счётчику.
// Индекс 0 — самый старый сэмпл.
type window struct {
	buf  []Sample
	head int // позиция самого старого
	n    int
}

func newWindow(capacity int) *window {
	return &window{buf: make([]Sample, capacity)}
}

func (w *window) len() int { return w.n }

func (w *window) at(i int) Sample {
	idx := w.head + i
	if idx >= len(w.buf) {
		idx -= len(w.buf)
	}
	return w.buf[idx]
}

func (w *window) oldest() Sample { return w.at(0) }

func (w *window) newest() Sample { return w.at(w.n - 1) }

// push добавляет сэмпл в конец; при заполненном буфере затирает самый старый и возвращает true.
func (w *window) push(s Sample) (overwritten bool) {
	if w.n == len(w.buf) {
		w.buf[w.head] = s
		w.head++
		if w.head == len(w.buf) {
			w.head = 0
		}
		return true
	}
	w.buf[(w.head+w.n)%len(w.buf)] = s
	w.n++
	return false
}

// trim удаляет старые сэмплы, отстающие от самого нового больше чем на spanTicks тиков.
// Самый новый сэмпл остаётся всегда. Возвращает число удалённых.
func (w *window) trim(spanTicks uint64) int {
	if w.n == 0 {
		return 0
	}
	newest := w.newest().Counter
	evicted := 0
	for w.n > 1 && newest-w.oldest().Counter > spanTicks {
		w.head++
		if w.head == len(w.buf) {
			w.head = 0
		}
		w.n--
		evicted++
	}
	return evicted
}

func (w *window) reset() {
	w.head = 0
	w.n = 0
}
