package indicator

import "math"

// RollingWindow maintains a fixed-size window with running sum and sum of
// squares, giving O(1) mean and standard deviation per pushed value. The
// backtest replay uses it to avoid per-bar recomputation.
type RollingWindow struct {
	size  int
	buf   []float64
	head  int
	count int
	sum   float64
	sumSq float64
}

// NewRollingWindow creates a window of the given size.
func NewRollingWindow(size int) *RollingWindow {
	return &RollingWindow{size: size, buf: make([]float64, size)}
}

// Push adds a value, evicting the oldest once the window is full.
func (w *RollingWindow) Push(v float64) {
	if w.count == w.size {
		old := w.buf[w.head]
		w.sum -= old
		w.sumSq -= old * old
	} else {
		w.count++
	}
	w.buf[w.head] = v
	w.sum += v
	w.sumSq += v * v
	w.head = (w.head + 1) % w.size
}

// Full reports whether the window holds size values.
func (w *RollingWindow) Full() bool { return w.count == w.size }

// Count returns the number of values currently held.
func (w *RollingWindow) Count() int { return w.count }

// Mean returns the running mean of the held values.
func (w *RollingWindow) Mean() float64 {
	if w.count == 0 {
		return 0
	}
	return w.sum / float64(w.count)
}

// StdDev returns the sample standard deviation of the held values.
func (w *RollingWindow) StdDev() float64 {
	if w.count < 2 {
		return 0
	}
	n := float64(w.count)
	variance := (w.sumSq - w.sum*w.sum/n) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}
