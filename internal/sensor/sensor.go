package sensor

import (
	"context"
	"time"

	"go.uber.org/atomic"

	"thermo-service/internal/logger"
)

// DefaultSampleInterval matches the stock firmware's conversion cadence
// closely enough for the 1/16 EMA to settle within a couple of seconds.
const DefaultSampleInterval = 62500 * time.Microsecond

// Reader supplies raw 10-bit conversions from the analog channel.
type Reader interface {
	ReadRawSample() (int, error)
}

// Sensor owns the sampling clock, the smoothing filter and the calibrated
// conversion to tenths of a degree. It never fails: readings beyond the
// calibration table extrapolate, and ADC read errors keep the previous
// filter state.
type Sensor struct {
	reader     Reader
	filter     Filter
	correction func() int
	logger     *logger.Logger
	interval   time.Duration
	lastRaw    atomic.Int32
}

// New creates a sensor. correction returns the signed calibration offset
// in tenths of a degree (a stored parameter); nil means no correction.
func New(reader Reader, correction func() int, log *logger.Logger, interval time.Duration) *Sensor {
	if correction == nil {
		correction = func() int { return 0 }
	}
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	if log == nil {
		log = logger.NewLogger(nil, logger.LogLevelNone)
	}
	return &Sensor{
		reader:     reader,
		correction: correction,
		logger:     log.WithTag("sensor"),
		interval:   interval,
	}
}

// Run samples the analog channel until the context is cancelled.
func (s *Sensor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debugf("Sampling stopped: %v", ctx.Err())
			return
		case <-ticker.C:
			raw, err := s.reader.ReadRawSample()
			if err != nil {
				s.logger.Warnf("ADC read failed: %v", err)
				continue
			}
			s.Feed(raw)
		}
	}
}

// Feed folds one completed conversion into the filter. Exposed so the
// sampling loop and tests share the same path.
func (s *Sensor) Feed(raw int) {
	s.lastRaw.Store(int32(raw))
	s.filter.Update(raw)
}

// Raw returns the most recent conversion, unfiltered.
func (s *Sensor) Raw() int {
	return int(s.lastRaw.Load())
}

// Filtered returns the smoothed reading in the raw 0..1023 domain.
func (s *Sensor) Filtered() int {
	return s.filter.Filtered()
}

// Temperature returns the calibrated temperature in tenths of a degree
// Celsius, including the stored correction offset. Recomputed on demand.
func (s *Sensor) Temperature() int {
	return temperatureFor(s.filter.Filtered()) + s.correction()
}
