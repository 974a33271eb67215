// Package host drives the engine from a portaudio output stream.
package host

import (
	"fmt"
	"math"
	"sync/atomic"

	pa "github.com/gordonklaus/portaudio"

	"loopgrid/debug"
	"loopgrid/engine"
)

// Host owns the audio stream. The portaudio callback runs on the
// audio-rendering context, so everything it touches is atomic.
type Host struct {
	engine     *engine.Engine
	stream     *pa.Stream
	sampleRate float64
	bufferSize int

	tempoBits atomic.Uint64
	sigNum    atomic.Int32
	sigDenom  atomic.Int32
}

// New initializes portaudio and opens the default output stream.
// Call Close to release the device.
func New(eng *engine.Engine, sampleRate float64, bufferSize int, tempo float64, sigNum, sigDenom int) (*Host, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	h := &Host{
		engine:     eng,
		sampleRate: sampleRate,
		bufferSize: bufferSize,
	}
	h.tempoBits.Store(math.Float64bits(tempo))
	h.sigNum.Store(int32(sigNum))
	h.sigDenom.Store(int32(sigDenom))

	stream, err := pa.OpenDefaultStream(0, 2, sampleRate, bufferSize, h.render)
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("portaudio open: %w", err)
	}
	h.stream = stream

	info := stream.Info()
	debug.Log("host", "opened stream: %.0f Hz, %d frames, latency %v",
		info.SampleRate, bufferSize, info.OutputLatency)
	return h, nil
}

// render is the portaudio callback.
func (h *Host) render(out [][]float32) {
	t := engine.Transport{
		SampleRate:   h.sampleRate,
		Tempo:        math.Float64frombits(h.tempoBits.Load()),
		TimeSigNum:   int(h.sigNum.Load()),
		TimeSigDenom: int(h.sigDenom.Load()),
		NumSamples:   len(out[0]),
	}
	h.engine.Process(t, out)
}

// Start begins audio rendering.
func (h *Host) Start() error {
	if err := h.stream.Start(); err != nil {
		return fmt.Errorf("portaudio start: %w", err)
	}
	return nil
}

// Close stops the stream and terminates portaudio.
func (h *Host) Close() {
	if h.stream != nil {
		h.stream.Stop()
		h.stream.Close()
	}
	if err := pa.Terminate(); err != nil {
		debug.Log("host", "portaudio terminate: %v", err)
	}
}

// SetTempo updates the transport tempo in BPM. Safe from any goroutine.
func (h *Host) SetTempo(bpm float64) {
	if bpm < 20 {
		bpm = 20
	}
	if bpm > 300 {
		bpm = 300
	}
	h.tempoBits.Store(math.Float64bits(bpm))
}

func (h *Host) Tempo() float64 {
	return math.Float64frombits(h.tempoBits.Load())
}

// SetTimeSignature updates the transport meter. Safe from any goroutine.
func (h *Host) SetTimeSignature(num, denom int) {
	if num < 1 {
		num = 4
	}
	if denom < 1 {
		denom = 4
	}
	h.sigNum.Store(int32(num))
	h.sigDenom.Store(int32(denom))
}

func (h *Host) TimeSignature() (int, int) {
	return int(h.sigNum.Load()), int(h.sigDenom.Load())
}

func (h *Host) SampleRate() float64 { return h.sampleRate }
