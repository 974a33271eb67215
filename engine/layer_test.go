package engine

import (
	"runtime"
	"testing"
)

func makeContent(n int, rate, tempo float64) *AudioContent {
	left := make([]float32, n)
	right := make([]float32, n)
	for i := range left {
		left[i] = 0.5
		right[i] = 0.5
	}
	return &AudioContent{
		Samples:     [][]float32{left, right},
		NumSamples:  n,
		SampleRate:  rate,
		SourceTempo: tempo,
	}
}

func testTransport(n int) Transport {
	return Transport{
		SampleRate:   48000,
		Tempo:        120,
		TimeSigNum:   4,
		TimeSigDenom: 4,
		NumSamples:   n,
	}
}

func makeOut(n int) [][]float32 {
	return [][]float32{make([]float32, n), make([]float32, n)}
}

func TestStageContentValidates(t *testing.T) {
	l := newLayer("l1", "Layer 1", 0)

	if err := l.StageContent(&AudioContent{}); err == nil {
		t.Fatal("empty content should be rejected")
	}
	if err := l.StageContent(&AudioContent{
		Samples:    [][]float32{make([]float32, 3)},
		NumSamples: 5,
		SampleRate: 48000,
	}); err == nil {
		t.Fatal("mismatched channel length should be rejected")
	}
	if err := l.StageContent(makeContent(100, 48000, 120)); err != nil {
		t.Fatalf("valid content rejected: %v", err)
	}
	if !l.hasStagingData.Load() {
		t.Fatal("staging flag should be set after StageContent")
	}
}

func TestSwapAdoptedBetweenBlocks(t *testing.T) {
	l := newLayer("l1", "Layer 1", 0)
	c := makeContent(4800, 44100, 100)

	if err := l.StageContent(c); err != nil {
		t.Fatal(err)
	}
	l.RequestSwap()

	l.processBlock(testTransport(64), makeOut(64), false)

	if l.active != c {
		t.Fatal("active content should be the staged buffer after one block")
	}
	if l.active.NumSamples != len(l.active.Samples[0]) {
		t.Fatal("adopted buffer is internally inconsistent")
	}
	if l.cursor != 0 {
		t.Fatalf("cursor should reset on swap, got %v", l.cursor)
	}
	if l.hasStagingData.Load() || l.swapRequested.Load() {
		t.Fatal("both flags must clear after the swap is consumed")
	}
	if !l.HasContent() {
		t.Fatal("layer should report content after swap")
	}

	// ratio: (44100/48000) * (120/100)
	want := (44100.0 / 48000.0) * 1.2
	if got := l.PlaybackRatio(); got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("playback ratio = %v, want %v", got, want)
	}
}

func TestSwapWithoutStagingDefers(t *testing.T) {
	l := newLayer("l1", "Layer 1", 0)
	l.RequestSwap()

	l.processBlock(testTransport(64), makeOut(64), false)

	if !l.swapRequested.Load() {
		t.Fatal("swap request must stay set until staging data arrives")
	}
	if l.active != nil {
		t.Fatal("no content should be adopted")
	}

	// staging data arrives later; the deferred request completes
	c := makeContent(1000, 48000, 120)
	if err := l.StageContent(c); err != nil {
		t.Fatal(err)
	}
	l.processBlock(testTransport(64), makeOut(64), false)

	if l.active != c {
		t.Fatal("deferred swap should complete once staging data arrives")
	}
	if l.swapRequested.Load() {
		t.Fatal("swap request should clear after completion")
	}
}

func TestClearSwapRequestWithdraws(t *testing.T) {
	l := newLayer("l1", "Layer 1", 0)
	l.RequestSwap()
	l.ClearSwapRequest()

	l.StageContent(makeContent(1000, 48000, 120))
	l.processBlock(testTransport(64), makeOut(64), false)

	if l.active != nil {
		t.Fatal("withdrawn request must not swap")
	}
	if !l.SwapPending() {
		t.Fatal("staged content should still be pending")
	}
}

func TestRestagingReplacesPendingSwap(t *testing.T) {
	l := newLayer("l1", "Layer 1", 0)
	first := makeContent(100, 48000, 120)
	second := makeContent(200, 48000, 120)

	l.StageContent(first)
	l.RequestSwap()
	l.StageContent(second) // silently replaces the pending buffer
	l.processBlock(testTransport(64), makeOut(64), false)

	if l.active != second {
		t.Fatal("restaging should replace the pending buffer")
	}
}

func drainNotifications(ch <-chan Notification) []Notification {
	var out []Notification
	for {
		select {
		case n := <-ch:
			out = append(out, n)
		default:
			return out
		}
	}
}

func adoptContent(l *Layer, c *AudioContent) {
	l.StageContent(c)
	l.RequestSwap()
	l.consumeSwap()
}

func TestArmedNotificationDedup(t *testing.T) {
	ch := make(chan Notification, 16)
	l := newLayer("l1", "Layer 1", 0)
	l.notify = func(n Notification) { ch <- n }

	adoptContent(l, makeContent(100, 48000, 120))
	l.isPlaying.Store(true)

	l.SetArmed(true)
	l.SetArmed(true) // no-op rewrite

	got := drainNotifications(ch)
	if len(got) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(got))
	}
	if got[0].Kind != NotifyArmed || !got[0].Value {
		t.Fatalf("unexpected notification %+v", got[0])
	}

	l.SetArmed(false)
	l.SetArmed(false)
	got = drainNotifications(ch)
	if len(got) != 1 {
		t.Fatalf("expected exactly one disarm notification, got %d", len(got))
	}
}

func TestNoNotificationWithoutContent(t *testing.T) {
	ch := make(chan Notification, 16)
	l := newLayer("l1", "Layer 1", 0)
	l.notify = func(n Notification) { ch <- n }

	l.isPlaying.Store(true)
	l.SetArmed(true)
	l.SetArmedToStop(true)

	if got := drainNotifications(ch); len(got) != 0 {
		t.Fatalf("flags on an empty layer must not notify, got %v", got)
	}
}

func TestBoundaryOnEmptyLayerStaysSilentToControl(t *testing.T) {
	ch := make(chan Notification, 16)
	l := newLayer("l1", "Layer 1", 0)
	l.notify = func(n Notification) { ch <- n }

	l.SetArmed(true)
	l.SetPending(ActionStartOnNextMeasure)
	l.resolveBoundary()

	if !l.IsPlaying() {
		t.Fatal("boundary must still start the layer")
	}
	if l.IsArmed() || l.Pending() != ActionNone {
		t.Fatal("boundary must consume the arm and the pending action")
	}
	if got := drainNotifications(ch); len(got) != 0 {
		t.Fatalf("quantized start on an empty layer must not notify, got %v", got)
	}

	l.SetPending(ActionStopOnNextMeasure)
	l.SetArmedToStop(true)
	l.resolveBoundary()

	if l.IsPlaying() {
		t.Fatal("boundary must stop the layer")
	}
	if got := drainNotifications(ch); len(got) != 0 {
		t.Fatalf("quantized stop on an empty layer must not notify, got %v", got)
	}
}

func TestEmptyLayerPlaysSilence(t *testing.T) {
	l := newLayer("l1", "Layer 1", 0)
	l.SetPlaying(true) // administrative, permitted with no content

	out := makeOut(64)
	l.processBlock(testTransport(64), out, false)

	if !l.IsPlaying() {
		t.Fatal("administrative play flag should hold")
	}
	for _, ch := range out {
		for i, v := range ch {
			if v != 0 {
				t.Fatalf("expected silence, sample %d = %v", i, v)
			}
		}
	}
}

func TestMutedLayerIsSilentButAdvances(t *testing.T) {
	l := newLayer("l1", "Layer 1", 0)
	adoptContent(l, makeContent(48000, 48000, 120))
	l.SetPlaying(true)
	l.SetMuted(true)

	out := makeOut(6001)
	tr := testTransport(6001)
	l.processBlock(tr, out, false)

	for _, v := range out[0] {
		if v != 0 {
			t.Fatal("muted layer must be silent")
		}
	}
	if l.Grid.CurrentStep() != 1 {
		t.Fatalf("muted layer should still advance, step = %d", l.Grid.CurrentStep())
	}
}

func TestStepRetriggerAppliesVelocity(t *testing.T) {
	l := newLayer("l1", "Layer 1", 0)
	adoptContent(l, makeContent(48000, 48000, 120))
	l.SetPlaying(true)
	l.Grid.ToggleStep(0, 1)
	l.Grid.SetVelocity(0, 1, 0.5)

	// one step is 6000 samples at 120 BPM 4/4 48kHz
	out := makeOut(6001)
	l.processBlock(testTransport(6001), out, false)

	// before the step fires: volume 0.8 * gain 1.0 * sample 0.5
	if got, want := out[0][0], float32(0.5*0.8); !close32(got, want) {
		t.Fatalf("pre-trigger sample = %v, want %v", got, want)
	}
	// after step 1 fires its velocity gates the level
	if got, want := out[0][6000], float32(0.5*0.8*0.5); !close32(got, want) {
		t.Fatalf("post-trigger sample = %v, want %v", got, want)
	}
	if l.cursor >= 100 {
		t.Fatalf("retrigger should rewind the cursor, got %v", l.cursor)
	}
}

func TestSwapAtomicityUnderConcurrency(t *testing.T) {
	l := newLayer("l1", "Layer 1", 0)
	tr := testTransport(64)
	out := makeOut(64)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			// single pending swap: wait for both flags to clear
			for l.SwapPending() {
				runtime.Gosched()
			}
			if err := l.StageContent(makeContent(100+i, 48000, 120)); err != nil {
				t.Errorf("stage %d: %v", i, err)
				return
			}
			l.RequestSwap()
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		l.processBlock(tr, out, false)
		if c := l.active; c != nil {
			for ch := range c.Samples {
				if len(c.Samples[ch]) != c.NumSamples {
					t.Fatalf("observed mixed buffer state: channel %d has %d samples, header says %d",
						ch, len(c.Samples[ch]), c.NumSamples)
				}
			}
		}
	}
}

func close32(a, b float32) bool {
	d := a - b
	return d < 1e-5 && d > -1e-5
}
