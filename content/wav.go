// Package content produces engine audio content from external sources.
// It is control/production-context glue: everything here may allocate and
// block, and hands finished buffers to a layer through the staging
// protocol.
package content

import (
	"fmt"
	"io"
	"math"
	"os"

	wav "github.com/youpy/go-wav"

	"loopgrid/engine"
)

// Reader is what the WAV decoder needs from its source. Files and
// bytes.Reader both qualify.
type Reader interface {
	io.Reader
	io.ReaderAt
}

// Decode reads a complete WAV stream into playable content. Mono sources
// are duplicated to both channels; anything beyond stereo is folded down
// to the first two channels. sourceTempo is the BPM the material was
// produced at, used by the engine for time-stretching.
func Decode(r Reader, sourceTempo float64) (*engine.AudioContent, error) {
	reader := wav.NewReader(r)
	format, err := reader.Format()
	if err != nil {
		return nil, fmt.Errorf("wav format: %w", err)
	}

	var left, right []float32
	for {
		samples, err := reader.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("wav samples: %w", err)
		}
		for _, s := range samples {
			lv := float32(reader.FloatValue(s, 0))
			rv := lv
			if format.NumChannels > 1 {
				rv = float32(reader.FloatValue(s, 1))
			}
			left = append(left, lv)
			right = append(right, rv)
		}
	}

	c := &engine.AudioContent{
		Samples:     [][]float32{left, right},
		NumSamples:  len(left),
		SampleRate:  float64(format.SampleRate),
		SourceTempo: sourceTempo,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile decodes a WAV file from disk.
func LoadFile(path string, sourceTempo float64) (*engine.AudioContent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, sourceTempo)
}

// Sine generates a stereo test tone, handy for exercising layers when no
// produced material is around.
func Sine(freq, seconds, sampleRate, sourceTempo float64) *engine.AudioContent {
	n := int(seconds * sampleRate)
	if n < 1 {
		n = 1
	}
	left := make([]float32, n)
	right := make([]float32, n)
	for i := 0; i < n; i++ {
		v := float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
		left[i] = v
		right[i] = v
	}
	return &engine.AudioContent{
		Samples:     [][]float32{left, right},
		NumSamples:  n,
		SampleRate:  sampleRate,
		SourceTempo: sourceTempo,
	}
}
