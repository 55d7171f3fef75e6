package types

// MenuMode is the externally visible "what to display" value. It usually
// equals the menu's internal state but may diverge transiently (long-press
// previews, timeout branches).
type MenuMode string

const (
	ModeRoot        MenuMode = "root"
	ModeSelectParam MenuMode = "select-param"
	ModeChangeParam MenuMode = "change-param"
	ModeSetTimer    MenuMode = "set-timer"
)

// ControlState mirrors the relay/fermentation control plane.
type ControlState string

const (
	ControlIdle         ControlState = "idle"
	ControlThermostat   ControlState = "thermostat"
	ControlFermentation ControlState = "fermentation"
)

// Button identifies one of the three front-panel buttons.
type Button int

const (
	Button1 Button = iota + 1
	Button2
	Button3
)
