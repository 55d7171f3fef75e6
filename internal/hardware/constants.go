package hardware

import (
	"time"

	"thermo-service/internal/types"
)

const (
	DefaultGpioChip   = "gpiochip0"
	DefaultAdcDevice  = "iio:device0"
	DefaultAdcChannel = 0
	DefaultAdcBits    = 12

	DefaultParamsPath = "/var/lib/thermo-service/params.toml"

	// Hardware debounce applied to the button lines by the kernel.
	DebouncePeriod = 10 * time.Millisecond
)

// ButtonLines maps the front-panel buttons to their GPIO offsets. The
// buttons switch to ground, so a pressed button reads low.
var ButtonLines = map[types.Button]int{
	types.Button1: 3,
	types.Button2: 4,
	types.Button3: 5,
}

// DoMappings maps digital output channels to their GPIO offsets.
var DoMappings = map[string]int{
	"relay": 17,
}

// Display line offsets.
const (
	DisplayClkLine = 23
	DisplayDioLine = 24
)
