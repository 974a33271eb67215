package engine

import "testing"

func TestTotalSteps(t *testing.T) {
	cases := []struct {
		num, denom int
		want       int
	}{
		{4, 4, 16},
		{3, 4, 12},
		{6, 8, 12},
		{9, 8, 12},
		{2, 2, 16},
		{7, 8, 14},
		{4, 16, 16}, // unknown denominator falls back to 4 steps per beat
		{5, 4, 16},  // capped at grid width
	}
	for _, c := range cases {
		if got := TotalSteps(c.num, c.denom); got != c.want {
			t.Errorf("TotalSteps(%d/%d) = %d, want %d", c.num, c.denom, got, c.want)
		}
	}
}

func TestStepsPerBeat(t *testing.T) {
	cases := []struct{ denom, want int }{
		{8, 2},
		{4, 4},
		{2, 8},
		{16, 4},
		{1, 4},
	}
	for _, c := range cases {
		if got := StepsPerBeat(c.denom); got != c.want {
			t.Errorf("StepsPerBeat(%d) = %d, want %d", c.denom, got, c.want)
		}
	}
}

func TestSamplesPerStep(t *testing.T) {
	// 120 BPM, 48kHz, 4/4: a 16th-note step is 125ms = 6000 samples
	if got := samplesPerStep(48000, 120, 4, 4); got != 6000 {
		t.Errorf("samplesPerStep 4/4 = %v, want 6000", got)
	}

	// 6/8 and 9/8 both have 12 steps but subdivide differently
	sixEight := samplesPerStep(48000, 120, 6, 8)
	nineEight := samplesPerStep(48000, 120, 9, 8)
	if sixEight == nineEight {
		t.Errorf("6/8 and 9/8 steps must differ, both %v", sixEight)
	}
	if sixEight != 6000 {
		t.Errorf("samplesPerStep 6/8 = %v, want 6000", sixEight)
	}
	if nineEight != 9000 {
		t.Errorf("samplesPerStep 9/8 = %v, want 9000", nineEight)
	}

	if got := samplesPerStep(48000, 0, 4, 4); got != 0 {
		t.Errorf("zero tempo should yield 0, got %v", got)
	}
}

func TestStrongBeatClassification(t *testing.T) {
	// 4/4: strong beats on steps 0, 4, 8, 12
	for s := 0; s < 16; s++ {
		want := s%4 == 0
		if got := IsStrongBeat(s, 4, 4); got != want {
			t.Errorf("IsStrongBeat(%d, 4/4) = %v, want %v", s, got, want)
		}
	}

	// 6/8 compound: strong pulses every three steps
	for s := 0; s < 12; s++ {
		want := s%3 == 0
		if got := IsStrongBeat(s, 6, 8); got != want {
			t.Errorf("IsStrongBeat(%d, 6/8) = %v, want %v", s, got, want)
		}
	}
}
