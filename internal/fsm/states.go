package fsm

import "github.com/librescoot/librefsm"

// Control-plane states
const (
	StateIdle         librefsm.StateID = "idle"
	StateThermostat   librefsm.StateID = "thermostat"
	StateFermentation librefsm.StateID = "fermentation"
)

// Control-plane events
const (
	// From the front panel or Redis
	EvEnable       librefsm.EventID = "enable"
	EvDisable      librefsm.EventID = "disable"
	EvFermentStart librefsm.EventID = "ferment-start"
	EvFermentStop  librefsm.EventID = "ferment-stop"

	// Timer events
	EvFermentTimeout librefsm.EventID = "ferment-timeout"
)

// Timer names for imperative timers
const (
	TimerFermentation = "fermentation"
)
