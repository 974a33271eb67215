package engine

import (
	"math"
	"sync/atomic"
)

const (
	// MaxMeasures is the fixed measure capacity of a grid.
	MaxMeasures = 4
	// MaxSteps is the fixed step capacity of one measure.
	MaxSteps = 16
	// NumPages is how many content variants a step can cycle through.
	NumPages = 4
	// DefaultVelocity is assigned on every step transition.
	DefaultVelocity = 0.8
)

// StepGrid is the per-layer step/velocity/page matrix. Step, velocity and
// page cells are written by the control context and read by the
// audio-rendering context; each cell is an independent atomic so an edit
// made before a block is visible to that block or a later one. The
// playback cursor is written only by the audio-rendering context, the edit
// cursor only by the control context.
type StepGrid struct {
	steps      [MaxMeasures][MaxSteps]atomic.Bool
	velocities [MaxMeasures][MaxSteps]atomic.Uint32 // float32 bits
	pages      [MaxMeasures][MaxSteps]atomic.Int32

	numMeasures   atomic.Int32
	pagingEnabled atomic.Bool

	currentStep    atomic.Int32 // playback cursor
	currentMeasure atomic.Int32
	editMeasure    atomic.Int32 // edit-time cursor, independent of playback

	// audio-context-only timing state, recomputed at the top of each block
	stepAccumulator float64
	samplesPerStep  float64
	totalSteps      int
}

func (g *StepGrid) init() {
	g.numMeasures.Store(1)
	g.totalSteps = MaxSteps
	for m := 0; m < MaxMeasures; m++ {
		for s := 0; s < MaxSteps; s++ {
			g.velocities[m][s].Store(math.Float32bits(DefaultVelocity))
		}
	}
}

func clampIndex(v, max int) int {
	if v < 0 {
		return 0
	}
	if v >= max {
		return max - 1
	}
	return v
}

// ToggleStep cycles the step at (measure, step). With paging enabled the
// cycle is empty -> page 0 -> page 1 -> page 2 -> page 3 -> empty; with
// paging disabled it is a plain on/off toggle and the stored page is left
// alone. Every transition resets the step velocity to DefaultVelocity.
// Indices clamp to the grid's fixed capacity, matching the read
// accessors: edits land in the addressed cell even when it sits beyond
// the playable region, and become audible if the region later grows.
func (g *StepGrid) ToggleStep(measure, step int) {
	measure = clampIndex(measure, MaxMeasures)
	step = clampIndex(step, MaxSteps)

	if g.pagingEnabled.Load() {
		if !g.steps[measure][step].Load() {
			g.steps[measure][step].Store(true)
			g.pages[measure][step].Store(0)
		} else {
			next := g.pages[measure][step].Load() + 1
			if next >= NumPages {
				g.steps[measure][step].Store(false)
				g.pages[measure][step].Store(0)
			} else {
				g.pages[measure][step].Store(next)
			}
		}
	} else {
		g.steps[measure][step].Store(!g.steps[measure][step].Load())
	}

	g.velocities[measure][step].Store(math.Float32bits(DefaultVelocity))
}

// SetNumMeasures resizes the playable region. Shrinking deactivates steps
// and resets velocities in the measures that become unreachable, and
// clamps both cursors into the new range immediately.
func (g *StepGrid) SetNumMeasures(n int) {
	if n < 1 {
		n = 1
	}
	if n > MaxMeasures {
		n = MaxMeasures
	}
	old := int(g.numMeasures.Load())
	g.numMeasures.Store(int32(n))

	for m := n; m < old; m++ {
		for s := 0; s < MaxSteps; s++ {
			g.steps[m][s].Store(false)
			g.velocities[m][s].Store(math.Float32bits(DefaultVelocity))
		}
	}

	if int(g.currentMeasure.Load()) >= n {
		g.currentMeasure.Store(int32(n - 1))
	}
	if int(g.editMeasure.Load()) >= n {
		g.editMeasure.Store(int32(n - 1))
	}
}

// SetVelocity sets a step's intensity, clamped to [0, 1].
func (g *StepGrid) SetVelocity(measure, step int, v float32) {
	measure = clampIndex(measure, MaxMeasures)
	step = clampIndex(step, MaxSteps)
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	g.velocities[measure][step].Store(math.Float32bits(v))
}

// SetEditMeasure moves the edit-time cursor, clamped into range.
func (g *StepGrid) SetEditMeasure(m int) {
	g.editMeasure.Store(int32(clampIndex(m, int(g.numMeasures.Load()))))
}

// SetPagingEnabled switches the layer between plain toggles and the
// four-page cycle. Stored page values survive a disable.
func (g *StepGrid) SetPagingEnabled(on bool) {
	g.pagingEnabled.Store(on)
}

func (g *StepGrid) PagingEnabled() bool { return g.pagingEnabled.Load() }

// Step reports whether the step at (measure, step) is active.
func (g *StepGrid) Step(measure, step int) bool {
	measure = clampIndex(measure, MaxMeasures)
	step = clampIndex(step, MaxSteps)
	return g.steps[measure][step].Load()
}

// Velocity returns the step's intensity in [0, 1].
func (g *StepGrid) Velocity(measure, step int) float32 {
	measure = clampIndex(measure, MaxMeasures)
	step = clampIndex(step, MaxSteps)
	return math.Float32frombits(g.velocities[measure][step].Load())
}

// Page returns the content variant assigned to a step. The value is
// carried even while paging is disabled.
func (g *StepGrid) Page(measure, step int) int {
	measure = clampIndex(measure, MaxMeasures)
	step = clampIndex(step, MaxSteps)
	return int(g.pages[measure][step].Load())
}

func (g *StepGrid) NumMeasures() int    { return int(g.numMeasures.Load()) }
func (g *StepGrid) CurrentStep() int    { return int(g.currentStep.Load()) }
func (g *StepGrid) CurrentMeasure() int { return int(g.currentMeasure.Load()) }
func (g *StepGrid) EditMeasure() int    { return int(g.editMeasure.Load()) }

// retime recomputes derived timing from the host transport and defensively
// clamps the playback cursor after tempo, signature or measure changes.
// Audio-rendering context only.
func (g *StepGrid) retime(t Transport) {
	g.samplesPerStep = samplesPerStep(t.SampleRate, t.Tempo, t.TimeSigNum, t.TimeSigDenom)
	g.totalSteps = TotalSteps(t.TimeSigNum, t.TimeSigDenom)

	if int(g.currentStep.Load()) >= g.totalSteps {
		g.currentStep.Store(0)
	}
	if int(g.currentMeasure.Load()) >= int(g.numMeasures.Load()) {
		g.currentMeasure.Store(int32(g.numMeasures.Load() - 1))
	}
}

// advanceOne moves playback time forward by one sample. stepFired reports
// that the cursor moved onto a new step this sample; measureWrapped that
// the step cursor wrapped from the last step to step 0. The accumulator
// is decremented rather than reset so timing error never accumulates.
// Audio-rendering context only.
func (g *StepGrid) advanceOne() (stepFired, measureWrapped bool) {
	if g.samplesPerStep <= 0 {
		return false, false
	}
	g.stepAccumulator++
	if g.stepAccumulator < g.samplesPerStep {
		return false, false
	}
	g.stepAccumulator -= g.samplesPerStep

	step := int(g.currentStep.Load()) + 1
	if step >= g.totalSteps {
		step = 0
		measure := int(g.currentMeasure.Load()) + 1
		if measure >= int(g.numMeasures.Load()) {
			measure = 0
		}
		g.currentMeasure.Store(int32(measure))
		measureWrapped = true
	}
	g.currentStep.Store(int32(step))
	return true, measureWrapped
}

// resetCursor rewinds playback to the top of the grid.
func (g *StepGrid) resetCursor() {
	g.currentStep.Store(0)
	g.currentMeasure.Store(0)
	g.stepAccumulator = 0
}
