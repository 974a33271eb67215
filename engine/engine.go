package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// MaxLayers is the fixed number of simultaneously registered layer slots.
const MaxLayers = 8

// Transport is the host-supplied timing snapshot for one processing
// block.
type Transport struct {
	SampleRate   float64
	Tempo        float64 // quarter-note BPM
	TimeSigNum   int
	TimeSigDenom int
	NumSamples   int // samples in this block
}

// Engine owns the layer registry and drives all layers once per
// processing block. Layer lookup by id happens on the control side under
// a mutex; the audio-rendering context only walks the fixed slot array of
// atomic pointers, so registration and removal never block rendering.
type Engine struct {
	slots [MaxLayers]atomic.Pointer[Layer]

	mu     sync.Mutex
	byID   map[string]*Layer
	order  []string
	serial int

	playing    atomic.Bool
	wasPlaying bool // audio-rendering context only

	notifications chan Notification
}

// NewEngine creates an engine with an empty registry and a bounded
// notification channel.
func NewEngine() *Engine {
	return &Engine{
		byID:          make(map[string]*Layer),
		notifications: make(chan Notification, 64),
	}
}

// Notifications is drained by the control context on its own schedule.
// Events are dropped, never blocked on, when the consumer falls behind.
func (e *Engine) Notifications() <-chan Notification {
	return e.notifications
}

func (e *Engine) postNotification(n Notification) {
	select {
	case e.notifications <- n:
	default:
		// control context is behind; dropping beats blocking the render
	}
}

// CreateLayer registers a new layer in the first free slot.
func (e *Engine) CreateLayer(name string) (*Layer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	slot := -1
	for i := 0; i < MaxLayers; i++ {
		if e.slots[i].Load() == nil {
			slot = i
			break
		}
	}
	if slot == -1 {
		return nil, fmt.Errorf("layer limit reached (%d)", MaxLayers)
	}

	e.serial++
	id := fmt.Sprintf("layer-%d", e.serial)
	if name == "" {
		name = fmt.Sprintf("Layer %d", slot+1)
	}

	l := newLayer(id, name, slot)
	l.notify = e.postNotification

	e.byID[id] = l
	e.order = append(e.order, id)
	e.slots[slot].Store(l)
	return l, nil
}

// RemoveLayer unregisters a layer. The slot becomes free for reuse; the
// audio-rendering context stops seeing the layer on its next block.
func (e *Engine) RemoveLayer(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.byID[id]
	if !ok {
		return
	}
	e.slots[l.Slot].Store(nil)
	delete(e.byID, id)
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Layer resolves a layer by identifier, or nil.
func (e *Engine) Layer(id string) *Layer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.byID[id]
}

// LayerIDs returns the registered ids in creation order.
func (e *Engine) LayerIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, len(e.order))
	copy(ids, e.order)
	return ids
}

// Layers returns a snapshot of the registered layers in creation order.
func (e *Engine) Layers() []*Layer {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Layer, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.byID[id])
	}
	return out
}

// LayerByNote resolves a layer by its assigned MIDI note, or nil.
func (e *Engine) LayerByNote(note int) *Layer {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range e.order {
		if l := e.byID[id]; l.MIDINote() == note {
			return l
		}
	}
	return nil
}

// Start opens the master transport gate.
func (e *Engine) Start() { e.playing.Store(true) }

// Stop closes the master transport gate. Layer state is untouched;
// cursors rewind on the next start.
func (e *Engine) Stop() { e.playing.Store(false) }

func (e *Engine) Playing() bool { return e.playing.Load() }

// Process renders one block into out (>= 1 channel, each at least
// Transport.NumSamples long). Invoked by the host's real-time callback:
// it must not allocate, block, or lock. Swaps are consumed between
// blocks, pending actions resolve at measure boundaries, and a transport
// (re)start counts as a boundary.
func (e *Engine) Process(t Transport, out [][]float32) {
	n := t.NumSamples
	for _, ch := range out {
		if n > len(ch) {
			n = len(ch)
		}
	}
	t.NumSamples = n

	for _, ch := range out {
		for i := 0; i < n; i++ {
			ch[i] = 0
		}
	}

	if !e.playing.Load() {
		e.wasPlaying = false
		return
	}

	start := !e.wasPlaying
	e.wasPlaying = true

	anySolo := false
	for i := 0; i < MaxLayers; i++ {
		if l := e.slots[i].Load(); l != nil && l.Solo() {
			anySolo = true
			break
		}
	}

	for i := 0; i < MaxLayers; i++ {
		l := e.slots[i].Load()
		if l == nil {
			continue
		}
		if start {
			l.startOfTransport()
		}
		l.processBlock(t, out, anySolo)
	}
}
