package display

import (
	"sync"

	"thermo-service/internal/logger"
)

// Segment bits in the standard seven-segment layout plus the decimal
// point.
const (
	segA   = 0x01
	segB   = 0x02
	segC   = 0x04
	segD   = 0x08
	segE   = 0x10
	segF   = 0x20
	segG   = 0x40
	segDot = 0x80
)

// charset maps the characters the firmware renders to segment patterns.
// Unknown characters fall back to an underscore.
var charset = map[byte]byte{
	'-': segG,
	' ': 0,
	'0': segA | segB | segC | segD | segE | segF,
	'1': segB | segC,
	'2': segA | segB | segD | segE | segG,
	'3': segA | segB | segC | segD | segG,
	'4': segB | segC | segF | segG,
	'5': segA | segC | segD | segF | segG,
	'6': segA | segC | segD | segE | segF | segG,
	'7': segA | segB | segC,
	'8': segA | segB | segC | segD | segE | segF | segG,
	'9': segA | segB | segC | segD | segF | segG,
	'A': segA | segB | segC | segE | segF | segG,
	'B': segC | segD | segE | segF | segG,
	'C': segA | segD | segE | segF,
	'D': segB | segC | segD | segE | segG,
	'E': segA | segD | segE | segF | segG,
	'F': segA | segE | segF | segG,
	'H': segB | segC | segE | segF | segG,
	'L': segD | segE | segF,
	'N': segA | segB | segC | segE | segF,
	'O': segA | segB | segC | segD | segE | segF,
	'P': segA | segB | segE | segF | segG,
	'R': segA | segE | segF,
	'T': segD | segE | segF | segG,
}

const fallbackGlyph = segD // '_'

// SegmentWriter pushes one three-digit frame to the panel, leftmost
// digit first.
type SegmentWriter interface {
	WriteSegments([3]byte) error
}

// Display renders strings onto a three-digit seven-segment panel. A
// trailing '.' in the input folds into the preceding glyph's decimal
// point, so "37.5" still fits the three digits. Frames are pushed on
// Refresh and only when something changed, keeping the render loop
// cheap.
type Display struct {
	writer SegmentWriter
	logger *logger.Logger

	mu       sync.Mutex
	frame    [3]byte
	off      bool
	testMode bool
	pushed   [3]byte
	pushedOK bool
}

// New creates a display in test mode, showing all segments until
// TestMode(false) is called.
func New(writer SegmentWriter, log *logger.Logger) *Display {
	if log == nil {
		log = logger.NewLogger(nil, logger.LogLevelNone)
	}
	d := &Display{
		writer: writer,
		logger: log.WithTag("display"),
	}
	d.TestMode(true, "")
	return d
}

// SetString renders a string right-aligned. Dots attach to the glyph
// before them unless that glyph is itself a dot; anything beyond three
// glyphs is cut off. Ignored in test mode.
func (d *Display) SetString(s string) {
	glyphs, dots := foldDots(s)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.testMode {
		return
	}

	var frame [3]byte
	pad := 3 - len(glyphs)
	for i, g := range glyphs {
		p, ok := charset[g]
		if !ok {
			p = fallbackGlyph
		}
		if dots[i] {
			p |= segDot
		}
		frame[pad+i] = p
	}
	d.frame = frame
}

// foldDots splits a string into at most three glyphs with their dot
// flags.
func foldDots(s string) ([]byte, []bool) {
	glyphs := make([]byte, 0, 3)
	dots := make([]bool, 0, 3)
	for i := 0; i < len(s); i++ {
		if s[i] == '.' && len(glyphs) > 0 && !dots[len(dots)-1] {
			dots[len(dots)-1] = true
			continue
		}
		if len(glyphs) == 3 {
			break
		}
		glyphs = append(glyphs, s[i])
		dots = append(dots, false)
	}
	return glyphs, dots
}

// SetOff blanks or restores the panel without losing the frame. Used
// for blinking.
func (d *Display) SetOff(off bool) {
	d.mu.Lock()
	d.off = off
	d.mu.Unlock()
}

// TestMode lights the whole panel (or a given preview string) and
// freezes the frame until disabled.
func (d *Display) TestMode(on bool, preview string) {
	d.mu.Lock()
	wasTest := d.testMode
	d.testMode = false
	d.mu.Unlock()

	if !wasTest && on {
		if preview == "" {
			preview = "888"
		}
		d.SetString(preview)
	}

	d.mu.Lock()
	d.testMode = on
	d.mu.Unlock()
}

// Refresh pushes the current frame to the panel if it changed since the
// last push.
func (d *Display) Refresh() {
	d.mu.Lock()
	frame := d.frame
	if d.off {
		frame = [3]byte{}
	}
	if d.pushedOK && frame == d.pushed {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	if err := d.writer.WriteSegments(frame); err != nil {
		d.logger.Warnf("Failed to write frame: %v", err)
		return
	}

	d.mu.Lock()
	d.pushed = frame
	d.pushedOK = true
	d.mu.Unlock()
}
