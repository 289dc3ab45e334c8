package domain

// NeutralAOI es el valor del AOI mientras no hay suficiente historia.
const NeutralAOI = 0.5

// OutcomeWindow mantiene los últimos N outcomes binarios ya resueltos.
// Solo debe recibir outcomes de mercados anteriores al que se evalúa.
type OutcomeWindow struct {
	size   int
	values []float64
}

// NewOutcomeWindow crea una ventana de tamaño size (mínimo 1).
func NewOutcomeWindow(size int) *OutcomeWindow {
	if size < 1 {
		size = 1
	}
	return &OutcomeWindow{size: size, values: make([]float64, 0, size)}
}

// Push añade un outcome (1 = Up, 0 = Down) y descarta el más viejo si sobra.
func (w *OutcomeWindow) Push(v float64) {
	if len(w.values) == w.size {
		copy(w.values, w.values[1:])
		w.values = w.values[:w.size-1]
	}
	w.values = append(w.values, v)
}

// Len devuelve cuántos outcomes hay en la ventana.
func (w *OutcomeWindow) Len() int {
	return len(w.values)
}

// Value devuelve la media de los últimos N outcomes, o 0.5 si hay menos de N.
func (w *OutcomeWindow) Value() float64 {
	if len(w.values) < w.size {
		return NeutralAOI
	}
	var sum float64
	for _, v := range w.values {
		sum += v
	}
	return sum / float64(len(w.values))
}
