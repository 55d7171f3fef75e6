package sensor

import "go.uber.org/atomic"

// averagingBits sets the exponential moving average weight: 1/16.
const averagingBits = 4

// Filter smooths raw 10-bit conversions with an integer EMA. The
// accumulator holds values pre-scaled by averagingBits so no precision is
// lost to integer division. Single writer (the sampling loop); readers go
// through an atomic load so a torn multi-word read is impossible.
type Filter struct {
	acc atomic.Uint32
}

// Reset arms the filter for a cold start: the next sample seeds the
// accumulator instead of being blended.
func (f *Filter) Reset() {
	f.acc.Store(0)
}

// Update folds one raw conversion into the accumulator. Must only be
// called from a single goroutine.
func (f *Filter) Update(raw int) {
	if raw < 0 {
		raw = 0
	}
	a := f.acc.Load()
	if a == 0 {
		f.acc.Store(uint32(raw) << averagingBits)
		return
	}
	f.acc.Store(a + uint32(raw) - (a >> averagingBits))
}

// Filtered returns the 16-sample moving average in the raw 0..1023 domain.
func (f *Filter) Filtered() int {
	return int(f.acc.Load() >> averagingBits)
}
