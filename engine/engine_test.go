package engine

import (
	"testing"
)

// stepBlocks drives the engine with blocks sized to exactly one grid step
// (6000 samples at 120 BPM, 4/4, 48kHz).
func stepBlocks(e *Engine, blocks int) {
	t := testTransport(6000)
	out := makeOut(6000)
	for i := 0; i < blocks; i++ {
		e.Process(t, out)
	}
}

func TestRegistrySlots(t *testing.T) {
	e := NewEngine()

	var ids []string
	for i := 0; i < MaxLayers; i++ {
		l, err := e.CreateLayer("")
		if err != nil {
			t.Fatalf("layer %d: %v", i, err)
		}
		if l.Slot != i {
			t.Fatalf("layer %d assigned slot %d", i, l.Slot)
		}
		ids = append(ids, l.ID)
	}

	if _, err := e.CreateLayer("overflow"); err == nil {
		t.Fatal("ninth layer should be rejected")
	}

	// removing frees the slot for reuse
	e.RemoveLayer(ids[2])
	l, err := e.CreateLayer("replacement")
	if err != nil {
		t.Fatal(err)
	}
	if l.Slot != 2 {
		t.Fatalf("freed slot not reused, got %d", l.Slot)
	}

	if got := len(e.LayerIDs()); got != MaxLayers {
		t.Fatalf("LayerIDs() = %d entries, want %d", got, MaxLayers)
	}
	if e.Layer(ids[2]) != nil {
		t.Fatal("removed layer still resolvable")
	}
	if e.Layer(ids[0]) == nil {
		t.Fatal("existing layer not resolvable")
	}
}

func TestLayerByNote(t *testing.T) {
	e := NewEngine()
	a, _ := e.CreateLayer("a")
	b, _ := e.CreateLayer("b")
	b.SetMIDINote(72)

	if got := e.LayerByNote(72); got != b {
		t.Fatal("note 72 should resolve layer b")
	}
	if got := e.LayerByNote(a.MIDINote()); got != a {
		t.Fatal("default note should resolve layer a")
	}
	if got := e.LayerByNote(1); got != nil {
		t.Fatal("unassigned note should resolve nil")
	}
}

func TestQuantizedStartFiresAtBoundary(t *testing.T) {
	e := NewEngine()
	l, _ := e.CreateLayer("")
	adoptContent(l, makeContent(48000, 48000, 120))

	e.Start()
	stepBlocks(e, 2) // mid-measure: currentStep = 2

	l.SetPending(ActionStartOnNextMeasure)
	if l.IsPlaying() {
		t.Fatal("pending start must not fire immediately")
	}

	stepBlocks(e, 13) // currentStep = 15, still inside the measure
	if l.IsPlaying() {
		t.Fatal("pending start fired before the measure boundary")
	}

	stepBlocks(e, 1) // wrap: step 15 -> 0
	if !l.IsPlaying() {
		t.Fatal("pending start should fire at the boundary")
	}
	if l.Pending() != ActionNone {
		t.Fatal("pending action must be consumed exactly once")
	}
}

func TestQuantizedStartCancelled(t *testing.T) {
	e := NewEngine()
	l, _ := e.CreateLayer("")
	adoptContent(l, makeContent(48000, 48000, 120))

	e.Start()
	stepBlocks(e, 2)
	l.SetPending(ActionStartOnNextMeasure)
	stepBlocks(e, 5)
	l.SetPending(ActionNone) // cancel before the wrap

	stepBlocks(e, 20)
	if l.IsPlaying() {
		t.Fatal("cancelled start must never fire")
	}
}

func TestQuantizedStopResetsCursor(t *testing.T) {
	e := NewEngine()
	l, _ := e.CreateLayer("")
	adoptContent(l, makeContent(48000, 48000, 120))
	l.Grid.SetNumMeasures(2)
	l.SetPlaying(true)

	e.Start()
	stepBlocks(e, 3)
	l.SetPending(ActionStopOnNextMeasure)

	stepBlocks(e, 12) // step 15 of measure 0
	if !l.IsPlaying() {
		t.Fatal("stop fired before the boundary")
	}
	stepBlocks(e, 1) // boundary
	if l.IsPlaying() {
		t.Fatal("pending stop should fire at the boundary")
	}
	if l.Grid.CurrentStep() != 0 || l.Grid.CurrentMeasure() != 0 {
		t.Fatalf("stop should rewind cursor, got (%d, %d)",
			l.Grid.CurrentMeasure(), l.Grid.CurrentStep())
	}
}

func TestTransportRestartIsABoundary(t *testing.T) {
	e := NewEngine()
	l, _ := e.CreateLayer("")
	adoptContent(l, makeContent(48000, 48000, 120))

	l.SetPending(ActionStartOnNextMeasure)
	e.Start()
	stepBlocks(e, 1)

	if !l.IsPlaying() {
		t.Fatal("transport (re)start should resolve pending actions")
	}
}

func TestQuantizedStopNotifiesControl(t *testing.T) {
	e := NewEngine()
	l, _ := e.CreateLayer("")
	adoptContent(l, makeContent(48000, 48000, 120))
	l.SetPlaying(true)
	l.SetArmedToStop(true)

	e.Start()
	stepBlocks(e, 1)
	drainNotifications(e.Notifications())

	l.SetPending(ActionStopOnNextMeasure)
	stepBlocks(e, 16)

	var sawStop, sawDisarm bool
	for _, n := range drainNotifications(e.Notifications()) {
		if n.Kind == NotifyPlaying && !n.Value {
			sawStop = true
		}
		if n.Kind == NotifyArmedToStop && !n.Value {
			sawDisarm = true
		}
	}
	if !sawStop {
		t.Fatal("quantized stop should post a playing=false notification")
	}
	if !sawDisarm {
		t.Fatal("quantized stop should clear and report isArmedToStop")
	}
}

func TestSoloSilencesOthers(t *testing.T) {
	e := NewEngine()
	a, _ := e.CreateLayer("a")
	b, _ := e.CreateLayer("b")
	adoptContent(a, makeContent(48000, 48000, 120))
	adoptContent(b, makeContent(48000, 48000, 120))
	a.SetPlaying(true)
	b.SetPlaying(true)
	b.SetSolo(true)

	e.Start()
	out := makeOut(64)
	e.Process(testTransport(64), out)

	// only b audible: 0.5 sample * 0.8 volume
	if got, want := out[0][10], float32(0.4); !close32(got, want) {
		t.Fatalf("solo mix sample = %v, want %v", got, want)
	}
}

func TestStoppedTransportRendersSilence(t *testing.T) {
	e := NewEngine()
	l, _ := e.CreateLayer("")
	adoptContent(l, makeContent(48000, 48000, 120))
	l.SetPlaying(true)

	out := makeOut(64)
	out[0][5] = 0.9 // dirty buffer from the host
	e.Process(testTransport(64), out)

	for i, v := range out[0] {
		if v != 0 {
			t.Fatalf("stopped transport: sample %d = %v, want 0", i, v)
		}
	}
}

func TestNotificationPostNeverBlocks(t *testing.T) {
	e := NewEngine()
	l, _ := e.CreateLayer("")
	adoptContent(l, makeContent(100, 48000, 120))
	l.isPlaying.Store(true)

	// fill the channel well past capacity; posts must drop, not block
	for i := 0; i < 200; i++ {
		l.SetArmed(i%2 == 0)
	}
	if got := len(drainNotifications(e.Notifications())); got == 0 || got > 64 {
		t.Fatalf("expected a bounded, non-empty backlog, got %d", got)
	}
}
