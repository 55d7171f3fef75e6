package core

import (
	"time"

	"thermo-service/internal/hardware"
	"thermo-service/internal/messaging"
	"thermo-service/internal/types"
)

// MessagingClient defines the interface for Redis messaging operations
// needed by ThermoSystem
type MessagingClient interface {
	SetCallbacks(callbacks messaging.Callbacks)
	Connect() error
	StartListening() error
	Close() error

	// State
	PublishControlState(state types.ControlState) error
	PublishRelayState(closed bool) error
	PublishMenuMode(mode types.MenuMode) error

	// Telemetry
	PublishTemperature(tenths, rawFiltered int) error
	PublishFermentationRemaining(remaining time.Duration) error
	ClearFermentationRemaining() error

	// Settings
	SetParamValue(key string, value int) error
	GetHashField(hash, field string) (string, error)
}

// HardwareIO defines the interface for hardware I/O operations needed
// by ThermoSystem
type HardwareIO interface {
	Initialize() error
	Cleanup()

	// Digital I/O
	ReadButton(b types.Button) (bool, error)
	WriteDigitalOutput(channel string, value bool) error
	RegisterButtonCallback(cb hardware.ButtonCallback)
}
