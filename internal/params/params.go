package params

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"thermo-service/internal/logger"
)

// ID names one stored setting. The numeric value doubles as the "P<n>"
// label shown while browsing settings.
type ID int

const (
	IDLowerLimit ID = iota // relay close threshold, tenths of a degree
	IDUpperLimit           // relay open threshold, tenths of a degree
	IDHysteresis           // dead band applied around both thresholds
	IDCorrection           // sensor calibration offset, tenths of a degree
	IDFermentationTime     // fermentation duration, whole hours
	IDLimitIndication      // show LLL/HHH outside the threshold window
	paramCount
)

// definition is one row of the settings table: persistence key, value
// range and factory default.
type definition struct {
	key      string
	min, max int
	def      int
	tenths   bool // value is tenths of a degree
}

var definitions = [paramCount]definition{
	IDLowerLimit:       {key: "lower_limit", min: -520, max: 1120, def: 180, tenths: true},
	IDUpperLimit:       {key: "upper_limit", min: -520, max: 1120, def: 220, tenths: true},
	IDHysteresis:       {key: "hysteresis", min: 0, max: 100, def: 5, tenths: true},
	IDCorrection:       {key: "correction", min: -70, max: 70, def: 0, tenths: true},
	IDFermentationTime: {key: "fermentation_hours", min: 1, max: 99, def: 24},
	IDLimitIndication:  {key: "limit_indication", min: 0, max: 1, def: 1},
}

// Store holds the settings in memory and mirrors them to a TOML file.
// All accessors are safe for concurrent use; the menu goroutine owns the
// selection cursor but readers may poll values at any time.
type Store struct {
	mu      sync.Mutex
	values  [paramCount]int
	current ID
	path    string
	logger  *logger.Logger
}

// NewStore creates a store seeded with factory defaults. Load must be
// called before use to pick up persisted values.
func NewStore(path string, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewLogger(nil, logger.LogLevelNone)
	}
	s := &Store{
		path:   path,
		logger: log.WithTag("params"),
	}
	for id := ID(0); id < paramCount; id++ {
		s.values[id] = definitions[id].def
	}
	return s
}

// Load reads the settings file. A missing file is not an error: the
// factory defaults stay in effect until the first persist.
func (s *Store) Load() error {
	raw := make(map[string]int)
	if _, err := toml.DecodeFile(s.path, &raw); err != nil {
		if os.IsNotExist(err) {
			s.logger.Infof("No settings file at %s, using defaults", s.path)
			return nil
		}
		return fmt.Errorf("failed to load settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id := ID(0); id < paramCount; id++ {
		if v, ok := raw[definitions[id].key]; ok {
			s.values[id] = clamp(v, definitions[id].min, definitions[id].max)
		}
	}
	s.logger.Debugf("Loaded settings from %s", s.path)
	return nil
}

// PersistAll writes every setting to the TOML file. The write goes
// through a temp file and rename so a power cut mid-write cannot leave
// a truncated file behind.
func (s *Store) PersistAll() error {
	s.mu.Lock()
	raw := make(map[string]int, paramCount)
	for id := ID(0); id < paramCount; id++ {
		raw[definitions[id].key] = s.values[id]
	}
	s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".params-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	if err := toml.NewEncoder(tmp).Encode(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp settings file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	s.logger.Debugf("Persisted settings to %s", s.path)
	return nil
}

// Get returns the value of one setting.
func (s *Store) Get(id ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 0 || id >= paramCount {
		return 0
	}
	return s.values[id]
}

// Set stores a value, clamped to the setting's range.
func (s *Store) Set(id ID, value int) {
	if id < 0 || id >= paramCount {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[id] = clamp(value, definitions[id].min, definitions[id].max)
}

// CurrentID returns the setting the selection cursor points at.
func (s *Store) CurrentID() ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetCurrentID moves the selection cursor, clamped to the table.
func (s *Store) SetCurrentID(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = ID(clamp(int(id), 0, int(paramCount)-1))
}

// IncCurrentID advances the cursor, stopping at the last setting.
func (s *Store) IncCurrentID() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < paramCount-1 {
		s.current++
	}
}

// DecCurrentID moves the cursor back, stopping at the first setting.
func (s *Store) DecCurrentID() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current > 0 {
		s.current--
	}
}

// Current returns the value of the selected setting.
func (s *Store) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[s.current]
}

// IncCurrent raises the selected setting's value, clamped to its range.
func (s *Store) IncCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := definitions[s.current]
	s.values[s.current] = clamp(s.values[s.current]+1, d.min, d.max)
}

// DecCurrent lowers the selected setting's value, clamped to its range.
func (s *Store) DecCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := definitions[s.current]
	s.values[s.current] = clamp(s.values[s.current]-1, d.min, d.max)
}

// IsTenths reports whether the setting holds tenths of a degree, which
// decides how the display formats it.
func IsTenths(id ID) bool {
	if id < 0 || id >= paramCount {
		return false
	}
	return definitions[id].tenths
}

// Key returns the persistence key of a setting, also used as the field
// name when mirroring values over IPC.
func Key(id ID) string {
	if id < 0 || id >= paramCount {
		return ""
	}
	return definitions[id].key
}

// IDForKey resolves a persistence key back to its setting.
func IDForKey(key string) (ID, bool) {
	for id := ID(0); id < paramCount; id++ {
		if definitions[id].key == key {
			return id, true
		}
	}
	return 0, false
}

// Count returns the number of settings.
func Count() int {
	return int(paramCount)
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
