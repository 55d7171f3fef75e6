package control

import (
	"context"
	"sync"
	"time"

	"github.com/librescoot/librefsm"

	"thermo-service/internal/fsm"
	"thermo-service/internal/logger"
	"thermo-service/internal/params"
	"thermo-service/internal/types"
)

// Ensure Controller implements fsm.Actions
var _ fsm.Actions = (*Controller)(nil)

// Relay drives the load switch.
type Relay interface {
	Set(closed bool) error
}

// TempSource supplies the regulated temperature in tenths of a degree.
type TempSource interface {
	Temperature() int
}

// Settings supplies the stored regulation parameters.
type Settings interface {
	Get(params.ID) int
}

// stateIDToControlState converts a librefsm StateID to types.ControlState
func stateIDToControlState(id librefsm.StateID) types.ControlState {
	switch id {
	case fsm.StateIdle:
		return types.ControlIdle
	case fsm.StateThermostat:
		return types.ControlThermostat
	case fsm.StateFermentation:
		return types.ControlFermentation
	default:
		return types.ControlState(string(id))
	}
}

// Controller owns the relay. The state machine decides whether the
// regulator is allowed to run; the regulator decides the relay level
// from the measured temperature and the stored thresholds.
type Controller struct {
	relay    Relay
	temps    TempSource
	settings Settings
	logger   *logger.Logger

	machine *librefsm.Machine

	mu            sync.Mutex
	state         types.ControlState
	relayClosed   bool
	fermentEndsAt time.Time

	onStateChange func(types.ControlState)
	onRelayChange func(bool)
}

// NewController wires the control plane together. Start must be called
// before any commands are sent.
func NewController(relay Relay, temps TempSource, settings Settings, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.NewLogger(nil, logger.LogLevelNone)
	}
	return &Controller{
		relay:    relay,
		temps:    temps,
		settings: settings,
		logger:   log.WithTag("control"),
		state:    types.ControlIdle,
	}
}

// SetStateCallback registers a callback invoked on every control state
// change, used to publish the state over IPC. Must be called before
// Start.
func (c *Controller) SetStateCallback(fn func(types.ControlState)) {
	c.onStateChange = fn
}

// SetRelayCallback registers a callback invoked whenever the relay
// level actually changes. Must be called before Start.
func (c *Controller) SetRelayCallback(fn func(bool)) {
	c.onRelayChange = fn
}

// Start builds and starts the state machine.
func (c *Controller) Start(ctx context.Context) error {
	def := fsm.NewDefinition(c)
	machine, err := def.Build()
	if err != nil {
		return err
	}
	c.machine = machine

	c.machine.OnStateChange(func(from, to librefsm.StateID) {
		newState := stateIDToControlState(to)
		oldState := stateIDToControlState(from)

		c.mu.Lock()
		c.state = newState
		c.mu.Unlock()

		c.logger.Infof("Control transition: %s -> %s", oldState, newState)

		if c.onStateChange != nil {
			c.onStateChange(newState)
		}
	})

	if err := c.machine.Start(ctx); err != nil {
		return err
	}
	return nil
}

// sendEvent sends an event to the FSM
func (c *Controller) sendEvent(event librefsm.EventID) error {
	return c.machine.SendSync(librefsm.Event{ID: event})
}

// State returns the current control state.
func (c *Controller) State() types.ControlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RelayClosed reports the current relay level.
func (c *Controller) RelayClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.relayClosed
}

// === Front panel contract ===

// SetRelay enables or disables the thermostat. Disabling while a
// fermentation run is active aborts the run.
func (c *Controller) SetRelay(on bool) error {
	if on {
		if c.State() != types.ControlIdle {
			return nil
		}
		return c.sendEvent(fsm.EvEnable)
	}
	if c.State() == types.ControlIdle {
		return nil
	}
	return c.sendEvent(fsm.EvDisable)
}

// IsRelayEnabled reports whether the regulator is allowed to run.
func (c *Controller) IsRelayEnabled() bool {
	return c.State() != types.ControlIdle
}

// StartFermentation begins a timed fermentation run.
func (c *Controller) StartFermentation() error {
	if c.State() == types.ControlFermentation {
		return nil
	}
	return c.sendEvent(fsm.EvFermentStart)
}

// StopFermentation aborts a fermentation run.
func (c *Controller) StopFermentation() error {
	if c.State() != types.ControlFermentation {
		return nil
	}
	return c.sendEvent(fsm.EvFermentStop)
}

// IsFermentationRunning reports whether a fermentation run is active.
func (c *Controller) IsFermentationRunning() bool {
	return c.State() == types.ControlFermentation
}

// Remaining returns the time left in the fermentation run, zero when
// none is active.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	endsAt := c.fermentEndsAt
	c.mu.Unlock()
	if endsAt.IsZero() {
		return 0
	}
	d := time.Until(endsAt)
	if d < 0 {
		return 0
	}
	return d
}

// === Regulator ===

// Step runs one regulation pass. Called periodically from the main
// loop; does nothing while the control plane is idle.
func (c *Controller) Step() {
	if !c.IsRelayEnabled() {
		return
	}

	t := c.temps.Temperature()
	lower := c.settings.Get(params.IDLowerLimit)
	upper := c.settings.Get(params.IDUpperLimit)
	hyst := c.settings.Get(params.IDHysteresis)

	// Heating regulator: close below the window, open above it, hold
	// inside the hysteresis band.
	if t <= lower-hyst {
		c.applyRelay(true)
	} else if t >= upper+hyst {
		c.applyRelay(false)
	}
}

func (c *Controller) applyRelay(closed bool) {
	c.mu.Lock()
	if c.relayClosed == closed {
		c.mu.Unlock()
		return
	}
	c.relayClosed = closed
	c.mu.Unlock()

	if err := c.relay.Set(closed); err != nil {
		c.logger.Errorf("Failed to set relay: %v", err)
		return
	}
	c.logger.Debugf("Relay %s", relayWord(closed))

	if c.onRelayChange != nil {
		c.onRelayChange(closed)
	}
}

func relayWord(closed bool) string {
	if closed {
		return "closed"
	}
	return "open"
}

// === State Entry Actions ===

func (c *Controller) EnterIdle(ctx *librefsm.Context) error {
	c.applyRelay(false)
	return nil
}

func (c *Controller) EnterThermostat(ctx *librefsm.Context) error {
	// First regulation pass happens on the next Step; entering the
	// state only grants the regulator permission to act.
	return nil
}

func (c *Controller) EnterFermentation(ctx *librefsm.Context) error {
	hours := c.settings.Get(params.IDFermentationTime)
	duration := time.Duration(hours) * time.Hour

	c.mu.Lock()
	c.fermentEndsAt = time.Now().Add(duration)
	c.mu.Unlock()

	if c.machine != nil {
		c.machine.StartTimer(fsm.TimerFermentation, duration, librefsm.Event{ID: fsm.EvFermentTimeout})
	}
	c.logger.Infof("Fermentation started: %d h", hours)
	return nil
}

func (c *Controller) ExitFermentation(ctx *librefsm.Context) error {
	if c.machine != nil {
		c.machine.StopTimer(fsm.TimerFermentation)
	}
	c.mu.Lock()
	c.fermentEndsAt = time.Time{}
	c.mu.Unlock()
	return nil
}

// === Transition Actions ===

func (c *Controller) OnFermentTimeout(ctx *librefsm.Context) error {
	c.logger.Infof("Fermentation finished")
	return nil
}
