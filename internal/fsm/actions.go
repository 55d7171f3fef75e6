package fsm

import "github.com/librescoot/librefsm"

// Actions defines the interface for control state machine actions.
// Controller implements this interface to handle state entry/exit.
type Actions interface {
	// State entry actions
	EnterIdle(c *librefsm.Context) error
	EnterThermostat(c *librefsm.Context) error
	EnterFermentation(c *librefsm.Context) error

	// State exit actions
	ExitFermentation(c *librefsm.Context) error

	// Transition actions
	OnFermentTimeout(c *librefsm.Context) error
}
