package core

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"

	"thermo-service/internal/buttons"
	"thermo-service/internal/control"
	"thermo-service/internal/display"
	"thermo-service/internal/logger"
	"thermo-service/internal/menu"
	"thermo-service/internal/messaging"
	"thermo-service/internal/params"
	"thermo-service/internal/sensor"
	"thermo-service/internal/types"
)

// TickInterval is the period of the main loop: 32 ticks per second,
// the clock the menu thresholds are calibrated against.
const TickInterval = time.Second / menu.TicksPerSecond

// ThermoSystem wires the subsystems together and owns the main loop:
// tick the menu, step the regulator, render the display and publish
// telemetry.
type ThermoSystem struct {
	logger *logger.Logger

	io      HardwareIO
	redis   MessagingClient
	display *display.Display
	params  *params.Store
	sensor  *sensor.Sensor
	control *control.Controller
	menu    *menu.Menu
	buttons *buttons.State

	ticks    atomic.Uint32
	lastMode types.MenuMode

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// relayOutput adapts the digital output channel to the control plane.
type relayOutput struct {
	io HardwareIO
}

func (r relayOutput) Set(closed bool) error {
	return r.io.WriteDigitalOutput("relay", closed)
}

// NewThermoSystem assembles the system. adc supplies raw conversions
// and seg the display frames, injected separately so tests can fake
// them.
func NewThermoSystem(io HardwareIO, adc sensor.Reader, seg display.SegmentWriter, redis MessagingClient, store *params.Store, l *logger.Logger) *ThermoSystem {
	if l == nil {
		l = logger.NewLogger(nil, logger.LogLevelNone)
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &ThermoSystem{
		logger:   l.WithTag("core"),
		io:       io,
		redis:    redis,
		params:   store,
		buttons:  &buttons.State{},
		lastMode: types.ModeRoot,
		ctx:      ctx,
		cancel:   cancel,
	}

	s.display = display.New(seg, l)
	s.sensor = sensor.New(adc, func() int { return store.Get(params.IDCorrection) }, l, 0)
	s.control = control.NewController(relayOutput{io}, s.sensor, store, l)
	s.menu = menu.New(s.buttons, s.display, store, s.control, s, l)

	return s
}

func (s *ThermoSystem) Start() error {
	s.logger.Infof("Starting thermo system")

	s.redis.SetCallbacks(messaging.Callbacks{
		RelayCallback:    s.handleRelayRequest,
		TimerCallback:    s.handleTimerRequest,
		ParamsCallback:   s.handleParamsRequest,
		SettingsCallback: s.handleSettingsUpdate,
	})

	if err := s.redis.Connect(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if err := s.params.Load(); err != nil {
		s.logger.Warnf("Failed to load settings, using defaults: %v", err)
	}

	if err := s.io.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize hardware: %w", err)
	}

	s.control.SetStateCallback(s.handleControlStateChange)
	s.control.SetRelayCallback(func(closed bool) {
		if err := s.redis.PublishRelayState(closed); err != nil {
			s.logger.Warnf("Failed to publish relay state: %v", err)
		}
	})
	if err := s.control.Start(s.ctx); err != nil {
		return fmt.Errorf("failed to start control plane: %w", err)
	}

	s.io.RegisterButtonCallback(s.handleButtonEdge)
	s.seedButtonLevels()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.sensor.Run(s.ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.menu.Run(s.ctx)
	}()

	s.wg.Add(1)
	go s.run()

	s.mirrorParams()

	if err := s.redis.StartListening(); err != nil {
		return fmt.Errorf("failed to start Redis listeners: %w", err)
	}

	s.logger.Infof("System started successfully")
	return nil
}

// Ticks returns the free-running 32 Hz uptime counter.
func (s *ThermoSystem) Ticks() uint32 {
	return s.ticks.Load()
}

// Seconds returns whole seconds of uptime.
func (s *ThermoSystem) Seconds() uint32 {
	return s.Ticks() / menu.TicksPerSecond
}

// seedButtonLevels reads the current level of every button, so a button
// already held when the service comes up is seen without waiting for its
// next edge.
func (s *ThermoSystem) seedButtonLevels() {
	for _, b := range []types.Button{types.Button1, types.Button2, types.Button3} {
		pressed, err := s.io.ReadButton(b)
		if err != nil {
			s.logger.Warnf("Failed to read button %d: %v", b, err)
			continue
		}
		if pressed {
			s.handleButtonEdge(b, true)
		}
	}
}

// handleButtonEdge funnels debounced GPIO edges into the menu, in the
// fixed button priority order.
func (s *ThermoSystem) handleButtonEdge(b types.Button, pressed bool) {
	s.buttons.HandleEdge(b, pressed)
	for {
		b, pressed, ok := s.buttons.NextEvent()
		if !ok {
			return
		}
		s.menu.Feed(menu.EventFor(b, pressed))
	}
}

func (s *ThermoSystem) handleControlStateChange(state types.ControlState) {
	if err := s.redis.PublishControlState(state); err != nil {
		s.logger.Warnf("Failed to publish control state: %v", err)
	}
	if state != types.ControlFermentation {
		if err := s.redis.ClearFermentationRemaining(); err != nil {
			s.logger.Warnf("Failed to clear fermentation countdown: %v", err)
		}
	}
}

// run is the main loop.
func (s *ThermoSystem) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			ticks := s.ticks.Add(1)
			s.menu.Tick()

			if ticks%menu.TicksPerSecond == 0 {
				s.control.Step()
				s.publishTelemetry()
			}

			s.render()
			s.display.Refresh()
		}
	}
}

// render drives the display from the current screen, reproducing the
// original front panel: alternating temperature and countdown on the
// root screen, settings labels and values elsewhere.
func (s *ThermoSystem) render() {
	// The power-on test pattern stays up for the first second.
	if s.Seconds() > 0 {
		s.display.TestMode(false, "")
	}

	mode := s.menu.Mode()
	if mode != s.lastMode {
		s.lastMode = mode
		if err := s.redis.PublishMenuMode(mode); err != nil {
			s.logger.Warnf("Failed to publish menu mode: %v", err)
		}
	}

	s.renderScreen(mode)
}

func (s *ThermoSystem) renderScreen(mode types.MenuMode) {
	switch mode {
	case types.ModeRoot:
		if s.control.IsRelayEnabled() && s.Seconds()&0x08 != 0 {
			if s.control.IsFermentationRunning() {
				// The countdown dot doubles as a slow colon blink.
				dot := s.Ticks()&0x100 == 0
				s.display.SetString(display.FormatTimer(s.control.Remaining(), dot))
			} else {
				s.display.SetString("N.T.R.")
			}
		} else {
			temp := s.sensor.Temperature()
			str := display.FormatTenths(temp)
			if s.params.Get(params.IDLimitIndication) != 0 {
				if temp < s.params.Get(params.IDLowerLimit) {
					str = "LLL"
				} else if temp > s.params.Get(params.IDUpperLimit) {
					str = "HHH"
				}
			}
			s.display.SetString(str)
		}

	case types.ModeSetTimer:
		s.display.SetString(s.formatParamValue(params.IDFermentationTime))

	case types.ModeSelectParam:
		s.display.SetString(display.FormatParamID(int(s.params.CurrentID())))

	case types.ModeChangeParam:
		s.display.SetString(s.formatParamValue(s.params.CurrentID()))

	default:
		s.display.SetString("ERR")
		s.display.SetOff(uint8(s.Ticks())&0x80 != 0)
	}
}

func (s *ThermoSystem) formatParamValue(id params.ID) string {
	v := s.params.Get(id)
	if params.IsTenths(id) {
		return display.FormatTenths(v)
	}
	return strconv.Itoa(v)
}

func (s *ThermoSystem) publishTelemetry() {
	if err := s.redis.PublishTemperature(s.sensor.Temperature(), s.sensor.Filtered()); err != nil {
		s.logger.Warnf("Failed to publish temperature: %v", err)
	}
	if s.control.IsFermentationRunning() {
		if err := s.redis.PublishFermentationRemaining(s.control.Remaining()); err != nil {
			s.logger.Warnf("Failed to publish fermentation countdown: %v", err)
		}
	}
}

// mirrorParams copies every stored setting into the Redis hash.
func (s *ThermoSystem) mirrorParams() {
	for i := 0; i < params.Count(); i++ {
		id := params.ID(i)
		if err := s.redis.SetParamValue(params.Key(id), s.params.Get(id)); err != nil {
			s.logger.Warnf("Failed to mirror setting %s: %v", params.Key(id), err)
		}
	}
}

func (s *ThermoSystem) Shutdown() {
	s.logger.Infof("Shutting down thermo system")
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.logger.Warnf("Timeout waiting for main loop to stop")
	}

	if err := s.redis.Close(); err != nil {
		s.logger.Warnf("Failed to close Redis client: %v", err)
	}
	s.io.Cleanup()
	s.logger.Infof("Shutdown complete")
}
