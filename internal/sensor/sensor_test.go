package sensor

import "testing"

func newTestSensor(correction int) *Sensor {
	return New(nil, func() int { return correction }, nil, 0)
}

// ===== Filter Tests =====

func TestFilterSeedsOnFirstSample(t *testing.T) {
	s := newTestSensor(0)
	s.Feed(512)
	if got := s.Filtered(); got != 512 {
		t.Errorf("Expected first sample to seed the filter, got %d", got)
	}
}

func TestFilterConvergesMonotonically(t *testing.T) {
	s := newTestSensor(0)
	s.Feed(100)

	prev := s.Filtered()
	for i := 0; i < 64; i++ {
		s.Feed(900)
		cur := s.Filtered()
		if cur < prev {
			t.Fatalf("Filtered value moved away from target at step %d: %d -> %d", i, prev, cur)
		}
		if cur > 900 {
			t.Fatalf("Filtered value overshot target at step %d: %d", i, cur)
		}
		prev = cur
	}
	if prev < 890 {
		t.Errorf("Filter did not converge after 64 samples: %d", prev)
	}
}

func TestFilterSteadyState(t *testing.T) {
	s := newTestSensor(0)
	for i := 0; i < 100; i++ {
		s.Feed(740)
	}
	if got := s.Filtered(); got != 740 {
		t.Errorf("Steady-state filtered value = %d, want 740", got)
	}
}

func TestFilterStaysWithinObservedRange(t *testing.T) {
	s := newTestSensor(0)
	samples := []int{200, 800, 300, 700, 250, 750, 400, 600}
	s.Feed(samples[0])
	for _, raw := range samples[1:] {
		s.Feed(raw)
		f := s.Filtered()
		if f < 200 || f > 800 {
			t.Fatalf("Filtered value %d escaped the observed sample range", f)
		}
	}
}

// ===== Calibration Tests =====

func feedFiltered(s *Sensor, filtered int) {
	// Drive the filter to an exact steady-state value.
	s.filter.Reset()
	for i := 0; i < 32; i++ {
		s.Feed(filtered)
	}
}

func TestTemperatureExactTableHits(t *testing.T) {
	s := newTestSensor(0)
	for i := 0; i < len(calibration)-1; i++ {
		feedFiltered(s, calibration[i])
		want := baseTempTenths + degreeTenths*i
		if got := s.Temperature(); got != want {
			t.Errorf("table[%d]=%d: Temperature() = %d, want %d", i, calibration[i], got, want)
		}
	}
}

func TestTemperatureInterpolationBounds(t *testing.T) {
	s := newTestSensor(0)
	for i := 0; i < len(calibration)-1; i++ {
		hi, lo := calibration[i], calibration[i+1]
		if hi-lo < 2 {
			continue // no strictly interior reading exists
		}
		mid := (hi + lo) / 2
		feedFiltered(s, mid)
		got := s.Temperature()
		lower := baseTempTenths + degreeTenths*i
		upper := lower + degreeTenths
		if got <= lower || got >= upper {
			t.Errorf("filtered %d between table[%d] and table[%d]: Temperature() = %d, want in (%d, %d)",
				mid, i, i+1, got, lower, upper)
		}
	}
}

func TestTemperatureAppliesCorrection(t *testing.T) {
	s := newTestSensor(15)
	feedFiltered(s, calibration[52]) // 0.0 C entry
	if got := s.Temperature(); got != 15 {
		t.Errorf("Temperature() with +1.5 correction = %d, want 15", got)
	}
}

func TestTemperatureIdempotent(t *testing.T) {
	s := newTestSensor(-3)
	feedFiltered(s, 523)
	first := s.Temperature()
	second := s.Temperature()
	if first != second {
		t.Errorf("Temperature() not idempotent: %d then %d", first, second)
	}
}

func TestTemperatureAboveTableClampsAtBase(t *testing.T) {
	s := newTestSensor(0)
	feedFiltered(s, 1020) // colder than the coldest table entry
	if got := s.Temperature(); got != baseTempTenths {
		t.Errorf("Temperature() above table = %d, want %d", got, baseTempTenths)
	}
}

func TestTemperatureBelowTableExtrapolates(t *testing.T) {
	s := newTestSensor(0)
	feedFiltered(s, 40) // hotter than the hottest table entry
	top := baseTempTenths + degreeTenths*(len(calibration)-1)
	if got := s.Temperature(); got <= top {
		t.Errorf("Temperature() below table = %d, want extrapolation above %d", got, top)
	}
}

func TestTableNonIncreasingForSearch(t *testing.T) {
	for i := 1; i < len(calibration); i++ {
		if calibration[i] > calibration[i-1] {
			t.Fatalf("calibration table increases at %d: %d > %d", i, calibration[i], calibration[i-1])
		}
	}
}
