package hardware

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"thermo-service/internal/logger"
	"thermo-service/internal/types"
)

// ButtonCallback receives debounced button edges.
type ButtonCallback func(b types.Button, pressed bool)

// ThermoHardwareIO owns the board's GPIO resources: the relay output
// and the three button inputs. Button edges are debounced by the kernel
// and delivered through a registered callback.
type ThermoHardwareIO struct {
	logger   *logger.Logger
	chipName string
	chip     *gpiocdev.Chip

	mu       sync.RWMutex
	outputs  map[string]*gpiocdev.Line
	buttons  map[types.Button]*gpiocdev.Line
	callback ButtonCallback
}

// NewThermoHardwareIO creates the IO layer for the named GPIO chip.
func NewThermoHardwareIO(chipName string, log *logger.Logger) *ThermoHardwareIO {
	if log == nil {
		log = logger.NewLogger(nil, logger.LogLevelNone)
	}
	return &ThermoHardwareIO{
		logger:   log.WithTag("hardware"),
		chipName: chipName,
		outputs:  make(map[string]*gpiocdev.Line),
		buttons:  make(map[types.Button]*gpiocdev.Line),
	}
}

// Initialize claims all GPIO lines. Outputs start low, so the relay is
// open until the control plane says otherwise.
func (h *ThermoHardwareIO) Initialize() error {
	h.logger.Infof("Initializing hardware IO on %s", h.chipName)

	chip, err := gpiocdev.NewChip(h.chipName)
	if err != nil {
		return fmt.Errorf("failed to open GPIO chip %s: %w", h.chipName, err)
	}
	h.chip = chip

	for name, offset := range DoMappings {
		line, err := chip.RequestLine(offset,
			gpiocdev.AsOutput(0),
			gpiocdev.WithConsumer("thermo-service"))
		if err != nil {
			return fmt.Errorf("failed to request GPIO line %d: %w", offset, err)
		}
		h.outputs[name] = line
		h.logger.Debugf("Configured DO %s: line=%d", name, offset)
	}

	for button, offset := range ButtonLines {
		b := button
		line, err := chip.RequestLine(offset,
			gpiocdev.WithPullUp,
			gpiocdev.WithBothEdges,
			gpiocdev.WithDebounce(DebouncePeriod),
			gpiocdev.WithConsumer("thermo-service"),
			gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
				h.handleButtonEdge(b, evt)
			}))
		if err != nil {
			return fmt.Errorf("failed to request button line %d: %w", offset, err)
		}
		h.buttons[b] = line
		h.logger.Debugf("Configured button %d: line=%d", b, offset)
	}

	return nil
}

func (h *ThermoHardwareIO) handleButtonEdge(b types.Button, evt gpiocdev.LineEvent) {
	// Buttons switch to ground: falling edge means pressed.
	pressed := evt.Type == gpiocdev.LineEventFallingEdge

	h.mu.RLock()
	cb := h.callback
	h.mu.RUnlock()

	if cb != nil {
		cb(b, pressed)
	}
}

// RegisterButtonCallback sets the receiver for button edges. Only one
// callback is supported; the last registration wins.
func (h *ThermoHardwareIO) RegisterButtonCallback(cb ButtonCallback) {
	h.mu.Lock()
	h.callback = cb
	h.mu.Unlock()
}

// ReadButton returns the current level of a button.
func (h *ThermoHardwareIO) ReadButton(b types.Button) (bool, error) {
	h.mu.RLock()
	line, ok := h.buttons[b]
	h.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("unknown button: %d", b)
	}
	v, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("failed to read button %d: %w", b, err)
	}
	return v == 0, nil
}

// WriteDigitalOutput drives a named output channel.
func (h *ThermoHardwareIO) WriteDigitalOutput(channel string, value bool) error {
	h.mu.RLock()
	line, ok := h.outputs[channel]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown digital output channel: %s", channel)
	}

	val := 0
	if value {
		val = 1
	}
	if err := line.SetValue(val); err != nil {
		return fmt.Errorf("failed to set DO %s=%v: %w", channel, value, err)
	}
	h.logger.Debugf("Set DO %s=%v", channel, value)
	return nil
}

// Cleanup releases all GPIO resources, leaving the relay open.
func (h *ThermoHardwareIO) Cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.logger.Infof("Cleaning up hardware resources")

	if line, ok := h.outputs["relay"]; ok {
		line.SetValue(0)
	}
	for name, line := range h.outputs {
		line.Close()
		h.logger.Debugf("Closed GPIO line for %s", name)
	}
	for b, line := range h.buttons {
		line.Close()
		h.logger.Debugf("Closed GPIO line for button %d", b)
	}
	if h.chip != nil {
		h.chip.Close()
	}
}
