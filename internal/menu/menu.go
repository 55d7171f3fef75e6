package menu

import (
	"context"

	"go.uber.org/atomic"

	"thermo-service/internal/logger"
	"thermo-service/internal/params"
	"thermo-service/internal/types"
)

// TicksPerSecond is the menu clock rate. All hold thresholds below are
// expressed in these ticks.
const TicksPerSecond = 32

const (
	oneSecTicks   = TicksPerSecond
	threeSecTicks = TicksPerSecond * 3
	fiveSecTicks  = TicksPerSecond * 5
	autoRepeatGap = TicksPerSecond / 8
)

// Event is one input to the menu automaton: a button edge or the
// periodic timer check.
type Event int

const (
	EventCheckTimer Event = iota
	EventPushButton1
	EventReleaseButton1
	EventPushButton2
	EventReleaseButton2
	EventPushButton3
	EventReleaseButton3
)

// EventFor maps a button edge to its menu event.
func EventFor(b types.Button, pressed bool) Event {
	switch b {
	case types.Button1:
		if pressed {
			return EventPushButton1
		}
		return EventReleaseButton1
	case types.Button2:
		if pressed {
			return EventPushButton2
		}
		return EventReleaseButton2
	default:
		if pressed {
			return EventPushButton3
		}
		return EventReleaseButton3
	}
}

// Buttons exposes the current level of each front-panel button. Hold
// actions poll levels rather than counting edges.
type Buttons interface {
	Pressed(types.Button) bool
}

// Display is the slice of the display the menu drives directly: the
// blink gate used while adjusting the fermentation time.
type Display interface {
	SetOff(bool)
}

// Params is the settings surface the menu edits.
type Params interface {
	SetCurrentID(params.ID)
	IncCurrentID()
	DecCurrentID()
	IncCurrent()
	DecCurrent()
	PersistAll() error
}

// Relay is the control-plane surface toggled from the root screen.
type Relay interface {
	SetRelay(bool) error
	IsRelayEnabled() bool
	StartFermentation() error
	StopFermentation() error
	IsFermentationRunning() bool
}

// Uptime supplies the free-running tick counter used for blink phase.
type Uptime interface {
	Ticks() uint32
}

// Menu is the interaction automaton of the front panel. All events,
// including the 32 Hz timer check, funnel through one buffered channel
// consumed by a single goroutine, so the automaton itself needs no
// locking. The shown screen is mirrored into an atomic cell for the
// render loop.
//
// The automaton distinguishes its internal state from the shown screen:
// a held button 1 on the root screen previews the timer screen without
// committing to it until release.
type Menu struct {
	buttons Buttons
	display Display
	params  Params
	relay   Relay
	uptime  Uptime
	logger  *logger.Logger

	events chan Event

	// Consumer-goroutine state.
	state types.MenuMode
	timer uint32

	shown atomic.String
}

// New wires the automaton to its collaborators. Run must be started for
// events to take effect.
func New(buttons Buttons, display Display, store Params, relay Relay, uptime Uptime, log *logger.Logger) *Menu {
	if log == nil {
		log = logger.NewLogger(nil, logger.LogLevelNone)
	}
	m := &Menu{
		buttons: buttons,
		display: display,
		params:  store,
		relay:   relay,
		uptime:  uptime,
		logger:  log.WithTag("menu"),
		events:  make(chan Event, 16),
		state:   types.ModeRoot,
	}
	m.shown.Store(string(types.ModeRoot))
	return m
}

// Mode returns the screen the display should render right now.
func (m *Menu) Mode() types.MenuMode {
	return types.MenuMode(m.shown.Load())
}

// Feed queues one event. It never blocks: if the queue is full the
// event is dropped with a warning, which at 32 Hz means the consumer
// has stalled for half a second.
func (m *Menu) Feed(event Event) {
	select {
	case m.events <- event:
	default:
		m.logger.Warnf("Event queue full, dropping event %d", event)
	}
}

// Tick queues the periodic timer check. Call at TicksPerSecond.
func (m *Menu) Tick() {
	m.Feed(EventCheckTimer)
}

// Run consumes events until the context is cancelled.
func (m *Menu) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.events:
			if ev == EventCheckTimer {
				m.timer++
			}
			m.apply(ev)
		}
	}
}

func (m *Menu) setShown(mode types.MenuMode) {
	m.shown.Store(string(mode))
}

func (m *Menu) setState(mode types.MenuMode) {
	m.state = mode
	m.setShown(mode)
}

func (m *Menu) persist() {
	if err := m.params.PersistAll(); err != nil {
		m.logger.Errorf("Failed to persist settings: %v", err)
	}
}

func (m *Menu) apply(event Event) {
	switch m.state {
	case types.ModeRoot:
		m.applyRoot(event)
	case types.ModeSelectParam:
		m.applySelectParam(event)
	case types.ModeChangeParam:
		m.applyChangeParam(event)
	case types.ModeSetTimer:
		m.applySetTimer(event)
	}
}

func (m *Menu) applyRoot(event Event) {
	switch event {
	case EventPushButton1:
		// Preview the timer screen; committed on release, cancelled by
		// holding past the long-press threshold.
		m.timer = 0
		m.setShown(types.ModeSetTimer)

	case EventReleaseButton1:
		if m.timer < fiveSecTicks {
			m.state = types.ModeSetTimer
		}
		m.timer = 0

	case EventCheckTimer:
		if m.timer > threeSecTicks {
			m.timer = 0
			if m.buttons.Pressed(types.Button1) {
				m.params.SetCurrentID(0)
				m.setState(types.ModeSelectParam)
			} else if m.buttons.Pressed(types.Button2) {
				if m.relay.IsRelayEnabled() && !m.relay.IsFermentationRunning() {
					if err := m.relay.SetRelay(false); err != nil {
						m.logger.Errorf("Failed to disable thermostat: %v", err)
					}
				} else {
					if err := m.relay.SetRelay(true); err != nil {
						m.logger.Errorf("Failed to enable thermostat: %v", err)
					}
				}
			} else if m.buttons.Pressed(types.Button3) {
				if m.relay.IsFermentationRunning() {
					if err := m.relay.StopFermentation(); err != nil {
						m.logger.Errorf("Failed to stop fermentation: %v", err)
					}
					if err := m.relay.SetRelay(false); err != nil {
						m.logger.Errorf("Failed to disable thermostat: %v", err)
					}
				} else {
					if err := m.relay.StartFermentation(); err != nil {
						m.logger.Errorf("Failed to start fermentation: %v", err)
					}
					if err := m.relay.SetRelay(true); err != nil {
						m.logger.Errorf("Failed to enable thermostat: %v", err)
					}
				}
			}
		}

	default:
		// A stray edge while a preview is shown: fall back to the root
		// screen once the hold window has clearly expired.
		if m.timer > fiveSecTicks {
			m.timer = 0
			m.setState(types.ModeRoot)
		}
	}
}

func (m *Menu) applySelectParam(event Event) {
	switch event {
	case EventPushButton1:
		m.setState(types.ModeChangeParam)
		m.timer = 0
	case EventReleaseButton1:
		m.timer = 0

	case EventPushButton2:
		m.params.IncCurrentID()
		m.timer = 0
	case EventReleaseButton2:
		m.timer = 0

	case EventPushButton3:
		m.params.DecCurrentID()
		m.timer = 0
	case EventReleaseButton3:
		m.timer = 0

	case EventCheckTimer:
		if m.timer > oneSecTicks+autoRepeatGap {
			if m.buttons.Pressed(types.Button2) {
				m.params.IncCurrentID()
				m.timer = oneSecTicks
			} else if m.buttons.Pressed(types.Button3) {
				m.params.DecCurrentID()
				m.timer = oneSecTicks
			}
		}

		if m.timer > fiveSecTicks {
			m.timer = 0
			m.params.SetCurrentID(0)
			m.persist()
			m.setState(types.ModeRoot)
		}
	}
}

func (m *Menu) applyChangeParam(event Event) {
	switch event {
	case EventPushButton1:
		m.setState(types.ModeSelectParam)
		m.timer = 0
	case EventReleaseButton1:
		m.timer = 0

	case EventPushButton2:
		m.params.IncCurrent()
		m.timer = 0
	case EventReleaseButton2:
		m.timer = 0

	case EventPushButton3:
		m.params.DecCurrent()
		m.timer = 0
	case EventReleaseButton3:
		m.timer = 0

	case EventCheckTimer:
		if m.timer > oneSecTicks+autoRepeatGap {
			if m.buttons.Pressed(types.Button2) {
				m.params.IncCurrent()
				m.timer = oneSecTicks
			} else if m.buttons.Pressed(types.Button3) {
				m.params.DecCurrent()
				m.timer = oneSecTicks
			}
		}

		if m.buttons.Pressed(types.Button1) && m.timer > threeSecTicks {
			m.timer = 0
			m.setState(types.ModeSelectParam)
			return
		}

		if m.timer > fiveSecTicks {
			m.timer = 0
			m.persist()
			m.setState(types.ModeRoot)
		}
	}
}

func (m *Menu) applySetTimer(event Event) {
	switch event {
	case EventPushButton1:
		// Preview the root screen; the screen commits on release.
		m.timer = 0
		m.setShown(types.ModeRoot)
		m.display.SetOff(false)

	case EventReleaseButton1:
		if m.timer < fiveSecTicks {
			m.persist()
			m.state = types.ModeRoot
			m.display.SetOff(false)
		}
		m.timer = 0

	case EventPushButton2:
		m.params.SetCurrentID(params.IDFermentationTime)
		m.params.IncCurrent()
		m.timer = 0
	case EventReleaseButton2:
		m.timer = 0

	case EventPushButton3:
		m.params.SetCurrentID(params.IDFermentationTime)
		m.params.DecCurrent()
		m.timer = 0
	case EventReleaseButton3:
		m.timer = 0

	case EventCheckTimer:
		var blink bool
		if m.buttons.Pressed(types.Button2) || m.buttons.Pressed(types.Button3) {
			blink = false
		} else {
			blink = uint8(m.uptime.Ticks())&0x80 != 0
		}

		if m.timer > oneSecTicks+autoRepeatGap {
			m.params.SetCurrentID(params.IDFermentationTime)
			if m.buttons.Pressed(types.Button2) {
				m.params.IncCurrent()
				m.timer = oneSecTicks
			} else if m.buttons.Pressed(types.Button3) {
				m.params.DecCurrent()
				m.timer = oneSecTicks
			}
		}

		m.display.SetOff(blink)

		if m.timer > fiveSecTicks {
			m.timer = 0
			if m.buttons.Pressed(types.Button1) {
				m.setState(types.ModeSelectParam)
				m.display.SetOff(false)
				return
			}
			m.persist()
			m.setState(types.ModeRoot)
			m.display.SetOff(false)
		}
	}
}
