package display

import (
	"fmt"
	"time"
)

// FormatTenths renders a value held in tenths, "37.5" style. When the
// full form does not fit three digits the tenth is dropped: 1005 tenths
// becomes "100", -520 becomes "-52".
func FormatTenths(v int) string {
	neg := v < 0
	if neg {
		v = -v
	}
	whole := v / 10
	tenth := v % 10

	s := fmt.Sprintf("%d.%d", whole, tenth)
	if neg {
		s = "-" + s
	}
	if glyphCount(s) > 3 {
		s = fmt.Sprintf("%d", whole)
		if neg {
			s = "-" + s
		}
	}
	return s
}

// glyphCount counts display positions: a dot folds into the glyph
// before it.
func glyphCount(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' && i > 0 && s[i-1] != '.' {
			continue
		}
		n++
	}
	return n
}

// FormatTimer renders a countdown as hours and minutes, "2.30" style,
// with the dot doubling as the blink colon. Past nine hours only whole
// hours fit.
func FormatTimer(remaining time.Duration, dot bool) string {
	if remaining < 0 {
		remaining = 0
	}
	hours := int(remaining / time.Hour)
	minutes := int(remaining%time.Hour) / int(time.Minute)

	if hours > 9 {
		return fmt.Sprintf("%d", hours)
	}
	if dot {
		return fmt.Sprintf("%d.%02d", hours, minutes)
	}
	return fmt.Sprintf("%d%02d", hours, minutes)
}

// FormatParamID renders a settings index as its "P<n>" label.
func FormatParamID(id int) string {
	return fmt.Sprintf("P%d", id)
}
