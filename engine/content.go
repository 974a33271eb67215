package engine

import "fmt"

// AudioContent is a complete block of playable audio handed to a layer by
// a content producer. The engine validates it structurally, never
// musically.
type AudioContent struct {
	Samples     [][]float32 // one slice per channel, equal lengths
	NumSamples  int
	SampleRate  float64
	SourceTempo float64 // BPM the content was produced at
}

// Validate checks the structural invariants a layer relies on. Content
// that fails here is rejected at staging time so the audio-rendering
// context never has to.
func (c *AudioContent) Validate() error {
	if c == nil {
		return fmt.Errorf("audio content: nil")
	}
	if c.NumSamples <= 0 {
		return fmt.Errorf("audio content: zero samples")
	}
	if len(c.Samples) == 0 {
		return fmt.Errorf("audio content: no channels")
	}
	for ch, data := range c.Samples {
		if len(data) != c.NumSamples {
			return fmt.Errorf("audio content: channel %d has %d samples, want %d", ch, len(data), c.NumSamples)
		}
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("audio content: invalid sample rate %v", c.SampleRate)
	}
	return nil
}

// sampleAt reads one channel at a fractional position with linear
// interpolation, clamping at the last sample.
func (c *AudioContent) sampleAt(channel int, pos float64) float32 {
	if channel >= len(c.Samples) {
		channel = len(c.Samples) - 1
	}
	data := c.Samples[channel]
	idx := int(pos)
	if idx >= len(data)-1 {
		return data[len(data)-1]
	}
	frac := float32(pos - float64(idx))
	return data[idx] + frac*(data[idx+1]-data[idx])
}
