package midi

import (
	"testing"

	"loopgrid/engine"
)

func TestNoteRowColRoundTrip(t *testing.T) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			note := rowColToNote(row, col)
			r, c := noteToRowCol(note)
			if r != row || c != col {
				t.Fatalf("note %d: got (%d,%d), want (%d,%d)", note, r, c, row, col)
			}
		}
	}
}

func TestNoteToRowColRejectsOutOfGrid(t *testing.T) {
	for _, note := range []uint8{0, 9, 10, 99, 127} {
		if r, _ := noteToRowCol(note); r != -1 {
			t.Errorf("note %d should be rejected, got row %d", note, r)
		}
	}
}

func TestCCTopRow(t *testing.T) {
	r, c := ccToRowCol(91)
	if r != 8 || c != 0 {
		t.Fatalf("cc 91: got (%d,%d)", r, c)
	}
	if r, _ := ccToRowCol(90); r != -1 {
		t.Fatal("cc 90 should be rejected")
	}
}

func TestPortClassification(t *testing.T) {
	if !isLaunchpad("launchpad x lpx midi in") {
		t.Error("launchpad port not detected")
	}
	if isLaunchpad("arturia keystep 32") {
		t.Error("keyboard misdetected as launchpad")
	}
	if !isVirtualPort("midi through port-0") {
		t.Error("loopback port not filtered")
	}
}

func TestToggleLaunchCycle(t *testing.T) {
	eng := engine.NewEngine()
	layer, err := eng.CreateLayer("bass")
	if err != nil {
		t.Fatal(err)
	}
	r := NewRouter(eng, NewDeviceManager(), 0)

	// Stopped layer: press arms a quantized start
	r.toggleLaunch(layer)
	if !layer.IsArmed() || layer.Pending() != engine.ActionStartOnNextMeasure {
		t.Fatal("first press should arm start")
	}

	// Press again before the boundary: cancelled
	r.toggleLaunch(layer)
	if layer.IsArmed() || layer.Pending() != engine.ActionNone {
		t.Fatal("second press should cancel the arm")
	}

	// Playing layer: press arms a quantized stop
	layer.SetPlaying(true)
	r.toggleLaunch(layer)
	if !layer.IsArmedToStop() || layer.Pending() != engine.ActionStopOnNextMeasure {
		t.Fatal("press while playing should arm stop")
	}

	// And pressing again withdraws the stop
	r.toggleLaunch(layer)
	if layer.IsArmedToStop() || layer.Pending() != engine.ActionNone {
		t.Fatal("press should cancel the armed stop")
	}
}

func TestHandleNoteUnknownIsIgnored(t *testing.T) {
	eng := engine.NewEngine()
	r := NewRouter(eng, NewDeviceManager(), 0)
	r.handleNote(127) // no layer owns this note; must not panic
}
