package detector

import "math"

// window is a fixed-capacity rolling series of float64 samples. Oldest
// samples are evicted once capacity is reached. Not safe for concurrent use;
// each detector owns its windows exclusively.
type window struct {
	data []float64
	cap  int
}

func newWindow(capacity int) *window {
	return &window{data: make([]float64, 0, capacity), cap: capacity}
}

func (w *window) Push(v float64) {
	if len(w.data) == w.cap {
		copy(w.data, w.data[1:])
		w.data = w.data[:w.cap-1]
	}
	w.data = append(w.data, v)
}

func (w *window) Full() bool      { return len(w.data) == w.cap }
func (w *window) Len() int        { return len(w.data) }
func (w *window) Last() float64   { return w.data[len(w.data)-1] }
func (w *window) Values() []float64 { return w.data }

// mean returns the arithmetic mean of xs, or 0 for an empty slice.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev returns the population standard deviation of xs.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// pearson returns the Pearson correlation coefficient between equal-length
// series xs and ys, or 0 when either series is degenerate.
func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 || n != len(ys) {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}

// olsSlope returns the slope of the least-squares regression of ys on xs
// (ys ≈ slope·xs + intercept), or 0 when xs is degenerate.
func olsSlope(ys, xs []float64) float64 {
	n := len(xs)
	if n == 0 || n != len(ys) {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	var sxy, sxx float64
	for i := 0; i < n; i++ {
		dx := xs[i] - mx
		sxy += dx * (ys[i] - my)
		sxx += dx * dx
	}
	if sxx == 0 {
		return 0
	}
	return sxy / sxx
}
