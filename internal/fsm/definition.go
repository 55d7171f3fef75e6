package fsm

import "github.com/librescoot/librefsm"

// NewDefinition creates the control-plane FSM definition. The actions
// parameter provides the implementation for state entry/exit.
//
// Idle means the relay is forced open. Thermostat regulates the relay
// between the stored temperature thresholds. Fermentation is the
// thermostat plus a countdown; when the countdown fires the whole
// control plane drops back to idle.
func NewDefinition(actions Actions) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(StateIdle,
			librefsm.WithOnEnter(actions.EnterIdle),
		).
		State(StateThermostat,
			librefsm.WithOnEnter(actions.EnterThermostat),
		).
		State(StateFermentation,
			librefsm.WithOnEnter(actions.EnterFermentation),
			librefsm.WithOnExit(actions.ExitFermentation),
		).

		// From Idle
		Transition(StateIdle, EvEnable, StateThermostat).
		Transition(StateIdle, EvFermentStart, StateFermentation).

		// From Thermostat
		Transition(StateThermostat, EvDisable, StateIdle).
		Transition(StateThermostat, EvFermentStart, StateFermentation).

		// From Fermentation
		Transition(StateFermentation, EvFermentStop, StateIdle).
		Transition(StateFermentation, EvDisable, StateIdle).
		Transition(StateFermentation, EvFermentTimeout, StateIdle,
			librefsm.WithAction(actions.OnFermentTimeout),
		).

		// Initial state
		Initial(StateIdle)
}
