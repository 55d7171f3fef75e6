package hardware

import (
	"fmt"
	"os"
)

// SysfsADC reads raw conversions from a kernel IIO device. The sensor
// pipeline works in the 10-bit domain of the original board, so wider
// converters are scaled down.
type SysfsADC struct {
	device  string
	channel int
	shift   uint
}

// NewSysfsADC creates a reader for the given IIO device and channel.
// bits is the converter's native resolution.
func NewSysfsADC(device string, channel, bits int) *SysfsADC {
	var shift uint
	if bits > 10 {
		shift = uint(bits - 10)
	}
	return &SysfsADC{
		device:  device,
		channel: channel,
		shift:   shift,
	}
}

// ReadRawSample returns one conversion scaled to 10 bits.
func (a *SysfsADC) ReadRawSample() (int, error) {
	path := fmt.Sprintf("/sys/bus/iio/devices/%s/in_voltage%d_raw", a.device, a.channel)
	data, err := os.ReadFile(path)
	if err != nil {
		return -1, fmt.Errorf("failed reading %s: %w", path, err)
	}

	var value int
	if _, err := fmt.Sscanf(string(data), "%d", &value); err != nil {
		return -1, fmt.Errorf("failed parsing ADC value: %w", err)
	}

	return value >> a.shift, nil
}
