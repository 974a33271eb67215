package engine

import (
	"math"
	"sync/atomic"
)

// PendingAction is a one-shot quantized transport instruction, consumed
// exactly once at the next measure boundary.
type PendingAction int32

const (
	ActionNone PendingAction = iota
	ActionStartOnNextMeasure
	ActionStopOnNextMeasure
)

// Layer is one independently playable audio slot: its content, step grid,
// playback cursor and transport flags.
//
// Ownership is split between two contexts. The audio-rendering context
// owns the active content and the playback cursor; the control context
// owns staging content until a swap is requested. Everything crossing the
// boundary is an atomic with a single logical writer, so the render path
// never takes a lock.
type Layer struct {
	ID   string
	Name string
	Slot int

	Grid StepGrid

	// audio-rendering context only
	active    *AudioContent
	cursor    float64
	stepGain  float32
	fireFirst bool // fire the current step on the next processed sample

	// written by the producer, adopted by the swap consumer
	staging        atomic.Pointer[AudioContent]
	hasStagingData atomic.Bool
	swapRequested  atomic.Bool

	isPlaying     atomic.Bool
	isArmed       atomic.Bool
	isArmedToStop atomic.Bool
	pendingAction atomic.Int32

	activeSamples atomic.Int32  // active content length, for control-side checks
	playbackRatio atomic.Uint64 // float64 bits, cached for accessors

	volume    atomic.Uint32 // float32 bits
	pan       atomic.Uint32 // float32 bits, -1..1
	muted     atomic.Bool
	solo      atomic.Bool
	bpmOffset atomic.Uint64 // float64 bits, control-side tempo nudge

	midiNote atomic.Int32

	notify func(Notification)
}

func newLayer(id, name string, slot int) *Layer {
	l := &Layer{ID: id, Name: name, Slot: slot, stepGain: 1.0}
	l.Grid.init()
	l.volume.Store(math.Float32bits(0.8))
	l.playbackRatio.Store(math.Float64bits(1.0))
	l.midiNote.Store(int32(60 + slot))
	return l
}

// post sends a notification without ever blocking. Dropped if the channel
// is full; the audio-rendering context never waits on delivery.
func (l *Layer) post(kind NotificationKind, value bool) {
	if l.notify != nil {
		l.notify(Notification{LayerID: l.ID, Kind: kind, Value: value})
	}
}

// HasContent reports whether the layer has non-empty active content.
func (l *Layer) HasContent() bool { return l.activeSamples.Load() > 0 }

func (l *Layer) IsPlaying() bool     { return l.isPlaying.Load() }
func (l *Layer) IsArmed() bool       { return l.isArmed.Load() }
func (l *Layer) IsArmedToStop() bool { return l.isArmedToStop.Load() }

func (l *Layer) Pending() PendingAction {
	return PendingAction(l.pendingAction.Load())
}

// SetPending queues or overwrites the quantized instruction. It fires at
// the next measure boundary, never immediately and never retroactively;
// storing ActionNone before the boundary cancels it.
func (l *Layer) SetPending(a PendingAction) {
	l.pendingAction.Store(int32(a))
}

// SetPlaying sets the administrative play flag. A layer with no content
// may hold isPlaying and renders silence. The transition is forwarded
// once when it is a real change on a layer that has content and is now
// playing; a rewrite of the same value never notifies.
func (l *Layer) SetPlaying(playing bool) {
	was := l.isPlaying.Swap(playing)
	if was != playing && l.HasContent() && playing {
		l.post(NotifyPlaying, playing)
	}
}

// SetArmed arms the layer to start at the next boundary resolution.
func (l *Layer) SetArmed(armed bool) {
	was := l.isArmed.Swap(armed)
	if was != armed && l.HasContent() && l.isPlaying.Load() {
		l.post(NotifyArmed, armed)
	}
}

// SetArmedToStop arms the layer to stop at the next boundary resolution.
func (l *Layer) SetArmedToStop(armed bool) {
	was := l.isArmedToStop.Swap(armed)
	if was != armed && l.HasContent() && l.isPlaying.Load() {
		l.post(NotifyArmedToStop, armed)
	}
}

func (l *Layer) SetVolume(v float32) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	l.volume.Store(math.Float32bits(v))
}

func (l *Layer) Volume() float32 { return math.Float32frombits(l.volume.Load()) }

func (l *Layer) SetPan(p float32) {
	if p < -1 {
		p = -1
	}
	if p > 1 {
		p = 1
	}
	l.pan.Store(math.Float32bits(p))
}

func (l *Layer) Pan() float32 { return math.Float32frombits(l.pan.Load()) }

func (l *Layer) SetMuted(m bool) { l.muted.Store(m) }
func (l *Layer) Muted() bool     { return l.muted.Load() }
func (l *Layer) SetSolo(s bool)  { l.solo.Store(s) }
func (l *Layer) Solo() bool      { return l.solo.Load() }

// SetBPMOffset nudges the playback tempo relative to the host tempo.
func (l *Layer) SetBPMOffset(o float64) { l.bpmOffset.Store(math.Float64bits(o)) }
func (l *Layer) BPMOffset() float64     { return math.Float64frombits(l.bpmOffset.Load()) }

// PlaybackRatio returns the cached time-stretch ratio computed by the
// audio-rendering context.
func (l *Layer) PlaybackRatio() float64 {
	return math.Float64frombits(l.playbackRatio.Load())
}

func (l *Layer) SetMIDINote(n int) { l.midiNote.Store(int32(n)) }
func (l *Layer) MIDINote() int     { return int(l.midiNote.Load()) }

// StageContent hands newly produced audio to the layer. The content is
// validated structurally, then published with a release store of
// hasStagingData so the consumer never observes a partial write. Only one
// swap can be pending; restaging before the previous swap is consumed
// silently replaces it, so producers should poll SwapPending first.
func (l *Layer) StageContent(c *AudioContent) error {
	if err := c.Validate(); err != nil {
		return err
	}
	l.staging.Store(c)
	l.hasStagingData.Store(true)
	return nil
}

// RequestSwap asks the audio-rendering context to adopt the staged
// content between blocks. With no staging data present the request is
// deferred: the flag stays set and the swap completes on the first block
// after staging data arrives (or ClearSwapRequest withdraws it).
func (l *Layer) RequestSwap() {
	l.swapRequested.Store(true)
}

// ClearSwapRequest withdraws a deferred swap request from the control
// context. A swap already observed by the consumer cannot be cancelled.
func (l *Layer) ClearSwapRequest() {
	l.swapRequested.Store(false)
}

// SwapPending reports whether staged content or a swap request is still
// outstanding. Producers poll this before preparing the next buffer.
func (l *Layer) SwapPending() bool {
	return l.swapRequested.Load() || l.hasStagingData.Load()
}

// consumeSwap adopts staged content. Called once per processing block,
// never mid-block, so the buffer referenced within any single block is
// entirely old or entirely new content. Audio-rendering context only.
func (l *Layer) consumeSwap() {
	if !l.swapRequested.Load() || !l.hasStagingData.Load() {
		return
	}
	c := l.staging.Swap(nil)
	if c == nil {
		return
	}
	l.active = c
	l.cursor = 0
	l.stepGain = 1.0
	l.activeSamples.Store(int32(c.NumSamples))
	l.hasStagingData.Store(false)
	l.swapRequested.Store(false)
}

// setPlayingFromQuantizer flips isPlaying on behalf of a fired pending
// action. Transitions on a layer with no content stay silent: there is
// nothing audible for a listener to react to.
func (l *Layer) setPlayingFromQuantizer(playing bool) {
	was := l.isPlaying.Swap(playing)
	if was != playing && l.HasContent() {
		l.post(NotifyPlaying, playing)
	}
}

// resolveBoundary consumes the pending action at a measure boundary.
// Audio-rendering context only.
func (l *Layer) resolveBoundary() {
	switch PendingAction(l.pendingAction.Load()) {
	case ActionStartOnNextMeasure:
		l.pendingAction.Store(int32(ActionNone))
		l.setPlayingFromQuantizer(true)
		if l.isArmed.Swap(false) && l.HasContent() {
			l.post(NotifyArmed, false)
		}
	case ActionStopOnNextMeasure:
		l.pendingAction.Store(int32(ActionNone))
		l.setPlayingFromQuantizer(false)
		if l.isArmedToStop.Swap(false) && l.HasContent() {
			l.post(NotifyArmedToStop, false)
		}
		l.Grid.resetCursor()
		l.cursor = 0
	}
}

// retimeRatio recomputes the cached playback ratio from the active
// content's rate and source tempo against the current transport.
func (l *Layer) retimeRatio(t Transport) float64 {
	ratio := 1.0
	if l.active != nil {
		if t.SampleRate > 0 && l.active.SampleRate > 0 {
			ratio = l.active.SampleRate / t.SampleRate
		}
		if l.active.SourceTempo > 0 && t.Tempo > 0 {
			ratio *= (t.Tempo + l.BPMOffset()) / l.active.SourceTempo
		}
	}
	if ratio <= 0 {
		ratio = 1.0
	}
	l.playbackRatio.Store(math.Float64bits(ratio))
	return ratio
}

// processBlock advances this layer by one block: consume a completed
// swap, advance the quantizer sample by sample, fire step retriggers and
// boundary actions, and mix the layer into out. No allocation, no locks.
func (l *Layer) processBlock(t Transport, out [][]float32, anySolo bool) {
	l.consumeSwap()
	l.Grid.retime(t)
	ratio := l.retimeRatio(t)

	volume := l.Volume()
	pan := l.Pan()
	leftGain, rightGain := float32(1), float32(1)
	if pan < 0 {
		rightGain = 1 + pan
	} else if pan > 0 {
		leftGain = 1 - pan
	}
	audible := !l.muted.Load() && (!anySolo || l.solo.Load())

	content := l.active
	length := 0
	if content != nil {
		length = content.NumSamples
	}

	playing := l.isPlaying.Load()

	for i := 0; i < t.NumSamples; i++ {
		stepFired, wrapped := l.Grid.advanceOne()
		if wrapped {
			l.resolveBoundary()
			playing = l.isPlaying.Load()
		}
		if l.fireFirst {
			l.fireFirst = false
			stepFired = true
		}
		if stepFired && playing {
			m := int(l.Grid.currentMeasure.Load())
			s := int(l.Grid.currentStep.Load())
			if l.Grid.steps[m][s].Load() {
				// retrigger the slice from the top at the step's intensity
				l.cursor = 0
				l.stepGain = l.Grid.Velocity(m, s)
			}
		}

		if !playing || length == 0 {
			continue
		}
		if l.cursor >= float64(length) {
			// stale cursor is clamped, never an error on this path
			l.cursor = 0
		}

		if audible {
			gain := volume * l.stepGain
			left := content.sampleAt(0, l.cursor) * gain * leftGain
			right := content.sampleAt(1, l.cursor) * gain * rightGain
			if len(out) > 0 {
				out[0][i] += left
			}
			if len(out) > 1 {
				out[1][i] += right
			}
		}
		l.cursor += ratio
	}
}

// startOfTransport is invoked on the block where the host transport goes
// from stopped to playing: a (re)start counts as a measure boundary for
// pending-action resolution, and cursors rewind to the top.
func (l *Layer) startOfTransport() {
	l.Grid.resetCursor()
	l.cursor = 0
	l.stepGain = 1.0
	l.fireFirst = true
	l.resolveBoundary()
}
