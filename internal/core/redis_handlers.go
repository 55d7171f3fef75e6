package core

import (
	"fmt"
	"strconv"
	"strings"

	"thermo-service/internal/params"
)

// handleRelayRequest handles "on"/"off" commands from thermo:relay.
func (s *ThermoSystem) handleRelayRequest(on bool) error {
	s.logger.Infof("Received relay request: on=%v", on)
	return s.control.SetRelay(on)
}

// handleTimerRequest handles "start"/"stop" commands from thermo:timer.
func (s *ThermoSystem) handleTimerRequest(action string) error {
	s.logger.Infof("Received timer request: %s", action)
	switch action {
	case "start":
		if err := s.control.StartFermentation(); err != nil {
			return err
		}
		return s.control.SetRelay(true)
	case "stop":
		if err := s.control.StopFermentation(); err != nil {
			return err
		}
		return s.control.SetRelay(false)
	default:
		return fmt.Errorf("unknown timer action: %s", action)
	}
}

// handleParamsRequest handles "persist"/"reload" commands from
// thermo:params.
func (s *ThermoSystem) handleParamsRequest(action string) error {
	s.logger.Infof("Received params request: %s", action)
	switch action {
	case "persist":
		if err := s.params.PersistAll(); err != nil {
			return err
		}
		s.mirrorParams()
		return nil
	case "reload":
		if err := s.params.Load(); err != nil {
			return err
		}
		s.mirrorParams()
		return nil
	default:
		return fmt.Errorf("unknown params action: %s", action)
	}
}

// handleSettingsUpdate applies a changed value from the settings hash.
// Only keys under the "thermo." namespace concern this service.
func (s *ThermoSystem) handleSettingsUpdate(key string) error {
	name, ok := strings.CutPrefix(key, "thermo.")
	if !ok {
		return nil
	}
	id, ok := params.IDForKey(name)
	if !ok {
		s.logger.Infof("Ignoring unknown setting: %s", key)
		return nil
	}

	value, err := s.redis.GetHashField("settings", key)
	if err != nil {
		return err
	}
	if value == "" {
		return nil
	}

	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q", key, value)
	}

	s.params.Set(id, v)
	s.logger.Infof("Setting %s updated to %d", name, s.params.Get(id))
	return s.redis.SetParamValue(name, s.params.Get(id))
}
