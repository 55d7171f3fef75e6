package menu

import (
	"testing"

	"thermo-service/internal/params"
	"thermo-service/internal/types"
)

type fakeButtons struct {
	down map[types.Button]bool
}

func (f *fakeButtons) Pressed(b types.Button) bool { return f.down[b] }

type fakeDisplay struct {
	off        bool
	setOffSeen int
}

func (f *fakeDisplay) SetOff(off bool) {
	f.off = off
	f.setOffSeen++
}

type fakeParams struct {
	current    params.ID
	setCalls   []params.ID
	incIDs     int
	decIDs     int
	incs       int
	decs       int
	persists   int
	persistErr error
}

func (f *fakeParams) SetCurrentID(id params.ID) {
	f.current = id
	f.setCalls = append(f.setCalls, id)
}
func (f *fakeParams) IncCurrentID() { f.incIDs++; f.current++ }
func (f *fakeParams) DecCurrentID() { f.decIDs++; f.current-- }
func (f *fakeParams) IncCurrent()   { f.incs++ }
func (f *fakeParams) DecCurrent()   { f.decs++ }
func (f *fakeParams) PersistAll() error {
	f.persists++
	return f.persistErr
}

type fakeRelay struct {
	enabled    bool
	fermenting bool
	relaySets  []bool
	starts     int
	stops      int
}

func (f *fakeRelay) SetRelay(on bool) error {
	f.enabled = on
	f.relaySets = append(f.relaySets, on)
	return nil
}
func (f *fakeRelay) IsRelayEnabled() bool { return f.enabled }
func (f *fakeRelay) StartFermentation() error {
	f.starts++
	f.fermenting = true
	return nil
}
func (f *fakeRelay) StopFermentation() error {
	f.stops++
	f.fermenting = false
	return nil
}
func (f *fakeRelay) IsFermentationRunning() bool { return f.fermenting }

type fakeUptime struct {
	ticks uint32
}

func (f *fakeUptime) Ticks() uint32 { return f.ticks }

type testBench struct {
	menu    *Menu
	buttons *fakeButtons
	display *fakeDisplay
	params  *fakeParams
	relay   *fakeRelay
	uptime  *fakeUptime
}

func newTestBench() *testBench {
	tb := &testBench{
		buttons: &fakeButtons{down: make(map[types.Button]bool)},
		display: &fakeDisplay{},
		params:  &fakeParams{},
		relay:   &fakeRelay{},
		uptime:  &fakeUptime{},
	}
	tb.menu = New(tb.buttons, tb.display, tb.params, tb.relay, tb.uptime, nil)
	return tb
}

// feed applies a button event the way the Run loop would.
func (tb *testBench) feed(ev Event) {
	tb.menu.apply(ev)
}

// tick advances the menu clock n ticks.
func (tb *testBench) tick(n int) {
	for i := 0; i < n; i++ {
		tb.menu.timer++
		tb.menu.apply(EventCheckTimer)
	}
}

func (tb *testBench) press(b types.Button) {
	tb.buttons.down[b] = true
	tb.feed(EventFor(b, true))
}

func (tb *testBench) release(b types.Button) {
	tb.buttons.down[b] = false
	tb.feed(EventFor(b, false))
}

func TestShortPressButton1EntersTimerScreen(t *testing.T) {
	tb := newTestBench()

	tb.press(types.Button1)
	if tb.menu.state != types.ModeRoot {
		t.Errorf("State after push = %v, want root (preview only)", tb.menu.state)
	}
	if got := tb.menu.Mode(); got != types.ModeSetTimer {
		t.Errorf("Shown screen during push = %v, want set-timer preview", got)
	}

	tb.tick(10)
	tb.release(types.Button1)
	if tb.menu.state != types.ModeSetTimer {
		t.Errorf("State after short release = %v, want set-timer", tb.menu.state)
	}
	if tb.menu.timer != 0 {
		t.Errorf("Hold counter after release = %d, want 0", tb.menu.timer)
	}
}

func TestLongPressButton1EntersSettings(t *testing.T) {
	tb := newTestBench()

	tb.press(types.Button1)
	tb.tick(threeSecTicks + 1)

	if tb.menu.state != types.ModeSelectParam {
		t.Errorf("State after 3 s hold = %v, want select-param", tb.menu.state)
	}
	if tb.menu.Mode() != types.ModeSelectParam {
		t.Errorf("Shown screen = %v, want select-param", tb.menu.Mode())
	}
	if len(tb.params.setCalls) == 0 || tb.params.setCalls[0] != 0 {
		t.Errorf("Settings cursor not reset to first entry: %v", tb.params.setCalls)
	}
}

func TestLongPressButton2TogglesThermostat(t *testing.T) {
	tb := newTestBench()

	tb.press(types.Button2)
	tb.tick(threeSecTicks + 1)
	if !tb.relay.enabled {
		t.Fatal("Thermostat should be enabled after first long press")
	}

	tb.release(types.Button2)
	tb.press(types.Button2)
	tb.tick(threeSecTicks + 1)
	if tb.relay.enabled {
		t.Error("Thermostat should be disabled after second long press")
	}
}

func TestLongPressButton3TogglesFermentation(t *testing.T) {
	tb := newTestBench()

	tb.press(types.Button3)
	tb.tick(threeSecTicks + 1)
	if tb.relay.starts != 1 || !tb.relay.enabled {
		t.Fatalf("Fermentation start: starts=%d enabled=%v", tb.relay.starts, tb.relay.enabled)
	}

	tb.release(types.Button3)
	tb.press(types.Button3)
	tb.tick(threeSecTicks + 1)
	if tb.relay.stops != 1 || tb.relay.enabled {
		t.Errorf("Fermentation stop: stops=%d enabled=%v", tb.relay.stops, tb.relay.enabled)
	}
}

func TestFermentationWinsOverThermostatToggle(t *testing.T) {
	tb := newTestBench()
	tb.relay.enabled = true
	tb.relay.fermenting = true

	// With fermentation running, a long press on button 2 re-enables
	// rather than disables the relay.
	tb.press(types.Button2)
	tb.tick(threeSecTicks + 1)
	if !tb.relay.enabled {
		t.Error("Relay should stay enabled while fermentation runs")
	}
}

func TestSelectParamBrowsing(t *testing.T) {
	tb := newTestBench()
	tb.menu.setState(types.ModeSelectParam)

	tb.press(types.Button2)
	tb.release(types.Button2)
	tb.press(types.Button2)
	tb.release(types.Button2)
	tb.press(types.Button3)
	tb.release(types.Button3)

	if tb.params.incIDs != 2 || tb.params.decIDs != 1 {
		t.Errorf("Cursor moves: inc=%d dec=%d, want 2 and 1", tb.params.incIDs, tb.params.decIDs)
	}
}

func TestSelectParamAutoRepeat(t *testing.T) {
	tb := newTestBench()
	tb.menu.setState(types.ModeSelectParam)

	tb.press(types.Button2) // one step on the edge
	tb.tick(oneSecTicks + autoRepeatGap + 1)
	if tb.params.incIDs != 2 {
		t.Fatalf("Steps after hold reaching repeat threshold = %d, want 2", tb.params.incIDs)
	}

	// After the first repeat the counter re-arms at the one second mark,
	// so further steps come every autoRepeatGap+1 ticks.
	tb.tick(autoRepeatGap + 1)
	if tb.params.incIDs != 3 {
		t.Errorf("Steps after one repeat interval = %d, want 3", tb.params.incIDs)
	}
}

func TestSelectParamTimeoutPersistsAndReturnsToRoot(t *testing.T) {
	tb := newTestBench()
	tb.menu.setState(types.ModeSelectParam)

	tb.tick(fiveSecTicks + 1)

	if tb.menu.state != types.ModeRoot {
		t.Errorf("State after timeout = %v, want root", tb.menu.state)
	}
	if tb.params.persists != 1 {
		t.Errorf("Persist calls = %d, want 1", tb.params.persists)
	}
	if len(tb.params.setCalls) == 0 || tb.params.setCalls[len(tb.params.setCalls)-1] != 0 {
		t.Error("Settings cursor should be reset on timeout")
	}
}

func TestChangeParamAdjustsValue(t *testing.T) {
	tb := newTestBench()
	tb.menu.setState(types.ModeSelectParam)

	tb.press(types.Button1)
	if tb.menu.state != types.ModeChangeParam {
		t.Fatalf("State after push 1 = %v, want change-param", tb.menu.state)
	}
	tb.release(types.Button1)

	tb.press(types.Button2)
	tb.release(types.Button2)
	tb.press(types.Button3)
	tb.release(types.Button3)
	if tb.params.incs != 1 || tb.params.decs != 1 {
		t.Errorf("Value steps: inc=%d dec=%d, want 1 and 1", tb.params.incs, tb.params.decs)
	}
}

func TestChangeParamLongPressButton1ReturnsToBrowse(t *testing.T) {
	tb := newTestBench()
	tb.menu.setState(types.ModeChangeParam)

	tb.buttons.down[types.Button1] = true
	tb.tick(threeSecTicks + 1)

	if tb.menu.state != types.ModeSelectParam {
		t.Errorf("State after 3 s hold = %v, want select-param", tb.menu.state)
	}
	if tb.params.persists != 0 {
		t.Errorf("Persist calls = %d, want 0 on screen change", tb.params.persists)
	}
}

func TestChangeParamTimeoutPersists(t *testing.T) {
	tb := newTestBench()
	tb.menu.setState(types.ModeChangeParam)

	tb.tick(fiveSecTicks + 1)

	if tb.menu.state != types.ModeRoot {
		t.Errorf("State after timeout = %v, want root", tb.menu.state)
	}
	if tb.params.persists != 1 {
		t.Errorf("Persist calls = %d, want 1", tb.params.persists)
	}
}

func TestSetTimerAdjustsFermentationTime(t *testing.T) {
	tb := newTestBench()
	tb.menu.setState(types.ModeSetTimer)

	tb.press(types.Button2)
	if tb.params.current != params.IDFermentationTime || tb.params.incs != 1 {
		t.Errorf("Push 2: current=%v incs=%d", tb.params.current, tb.params.incs)
	}
	tb.release(types.Button2)

	tb.press(types.Button3)
	if tb.params.decs != 1 {
		t.Errorf("Push 3: decs=%d, want 1", tb.params.decs)
	}
}

func TestSetTimerShortRelease1PersistsAndReturns(t *testing.T) {
	tb := newTestBench()
	tb.menu.setState(types.ModeSetTimer)

	tb.press(types.Button1)
	if got := tb.menu.Mode(); got != types.ModeRoot {
		t.Errorf("Shown screen during push = %v, want root preview", got)
	}
	tb.tick(5)
	tb.release(types.Button1)

	if tb.menu.state != types.ModeRoot {
		t.Errorf("State after release = %v, want root", tb.menu.state)
	}
	if tb.params.persists != 1 {
		t.Errorf("Persist calls = %d, want 1", tb.params.persists)
	}
	if tb.display.off {
		t.Error("Display should be forced on when leaving the timer screen")
	}
}

func TestSetTimerBlinkFollowsUptimePhase(t *testing.T) {
	tb := newTestBench()
	tb.menu.setState(types.ModeSetTimer)

	tb.uptime.ticks = 0x80
	tb.tick(1)
	if !tb.display.off {
		t.Error("Display should blank in the dark blink phase")
	}

	tb.uptime.ticks = 0x00
	tb.tick(1)
	if tb.display.off {
		t.Error("Display should show in the lit blink phase")
	}
}

func TestSetTimerBlinkSuppressedWhileAdjusting(t *testing.T) {
	tb := newTestBench()
	tb.menu.setState(types.ModeSetTimer)
	tb.uptime.ticks = 0x80
	tb.buttons.down[types.Button2] = true

	tb.tick(1)
	if tb.display.off {
		t.Error("Blink should pause while a button is held")
	}
}

func TestSetTimerLongHoldButton1EntersSettings(t *testing.T) {
	tb := newTestBench()
	tb.menu.setState(types.ModeSetTimer)

	tb.press(types.Button1)
	tb.tick(fiveSecTicks + 1)

	if tb.menu.state != types.ModeSelectParam {
		t.Errorf("State after 5 s hold = %v, want select-param", tb.menu.state)
	}
	if tb.display.off {
		t.Error("Display should be forced on when entering settings")
	}
}

func TestSetTimerTimeoutPersistsAndReturns(t *testing.T) {
	tb := newTestBench()
	tb.menu.setState(types.ModeSetTimer)

	tb.tick(fiveSecTicks + 1)

	if tb.menu.state != types.ModeRoot {
		t.Errorf("State after timeout = %v, want root", tb.menu.state)
	}
	if tb.params.persists != 1 {
		t.Errorf("Persist calls = %d, want 1", tb.params.persists)
	}
}

func TestRootStrayEventHealsStuckPreview(t *testing.T) {
	tb := newTestBench()
	tb.menu.setShown(types.ModeSetTimer)
	tb.menu.timer = fiveSecTicks + 1

	tb.feed(EventReleaseButton2)

	if got := tb.menu.Mode(); got != types.ModeRoot {
		t.Errorf("Shown screen after stray event = %v, want root", got)
	}
	if tb.menu.timer != 0 {
		t.Errorf("Hold counter = %d, want 0", tb.menu.timer)
	}
}
