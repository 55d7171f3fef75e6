package display

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// TM1637 drive protocol constants.
const (
	cmdDataAuto   = 0x40 // write data, auto-increment address
	cmdAddrBase   = 0xC0 // start at grid 0
	cmdDisplayOn  = 0x88 // display control, on, OR with brightness 0..7
	cmdDisplayOff = 0x80
	bitPeriod     = 5 * time.Microsecond
	MaxBrightness = 7
)

// TM1637 bit-bangs the two-wire protocol of the TM1637 LED driver over
// a pair of GPIO lines. The chip has no chip-select: a start condition
// is DIO falling while CLK is high, stop is DIO rising while CLK is
// high, and bytes go out LSB first with an ack slot after each.
type TM1637 struct {
	clk *gpiocdev.Line
	dio *gpiocdev.Line
}

// NewTM1637 claims the clock and data lines on the given chip.
func NewTM1637(chipName string, clkOffset, dioOffset int, consumer string) (*TM1637, error) {
	clk, err := gpiocdev.RequestLine(chipName, clkOffset,
		gpiocdev.AsOutput(1),
		gpiocdev.WithConsumer(consumer+"-clk"))
	if err != nil {
		return nil, fmt.Errorf("failed to request clk line %d: %w", clkOffset, err)
	}
	dio, err := gpiocdev.RequestLine(chipName, dioOffset,
		gpiocdev.AsOutput(1),
		gpiocdev.WithConsumer(consumer+"-dio"))
	if err != nil {
		clk.Close()
		return nil, fmt.Errorf("failed to request dio line %d: %w", dioOffset, err)
	}
	return &TM1637{clk: clk, dio: dio}, nil
}

// WriteSegments pushes one frame, leftmost digit first.
func (t *TM1637) WriteSegments(segments [3]byte) error {
	if err := t.writeCommand(cmdDataAuto); err != nil {
		return err
	}

	t.start()
	if err := t.writeByte(cmdAddrBase); err != nil {
		t.stop()
		return err
	}
	for _, s := range segments {
		if err := t.writeByte(s); err != nil {
			t.stop()
			return err
		}
	}
	t.stop()
	return nil
}

// SetBrightness turns the display on at the given level (0..7).
func (t *TM1637) SetBrightness(level byte) error {
	if level > MaxBrightness {
		level = MaxBrightness
	}
	return t.writeCommand(cmdDisplayOn | level)
}

// Off blanks the panel without touching the segment RAM.
func (t *TM1637) Off() error {
	return t.writeCommand(cmdDisplayOff)
}

// Close blanks the panel and releases both lines.
func (t *TM1637) Close() error {
	t.Off()
	t.dio.Close()
	return t.clk.Close()
}

func (t *TM1637) writeCommand(cmd byte) error {
	t.start()
	err := t.writeByte(cmd)
	t.stop()
	return err
}

func (t *TM1637) start() {
	t.clk.SetValue(1)
	t.dio.SetValue(1)
	t.delay()
	t.dio.SetValue(0)
	t.delay()
	t.clk.SetValue(0)
}

func (t *TM1637) stop() {
	t.clk.SetValue(0)
	t.dio.SetValue(0)
	t.delay()
	t.clk.SetValue(1)
	t.delay()
	t.dio.SetValue(1)
	t.delay()
}

func (t *TM1637) writeByte(b byte) error {
	for i := 0; i < 8; i++ {
		t.clk.SetValue(0)
		if b&1 != 0 {
			t.dio.SetValue(1)
		} else {
			t.dio.SetValue(0)
		}
		t.delay()
		t.clk.SetValue(1)
		t.delay()
		b >>= 1
	}

	// Ack slot: release DIO for one clock. The chip pulls the line low;
	// we clock through it without reading back.
	t.clk.SetValue(0)
	t.dio.SetValue(1)
	t.delay()
	t.clk.SetValue(1)
	t.delay()
	t.clk.SetValue(0)
	return nil
}

func (t *TM1637) delay() {
	time.Sleep(bitPeriod)
}
