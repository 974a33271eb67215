package engine

// StepsPerBeat returns how many grid steps subdivide one beat for a
// time-signature denominator. Quarter-note meters get 16th-note steps,
// eighth-note meters get two steps per beat, half-note meters eight.
func StepsPerBeat(denominator int) int {
	switch denominator {
	case 8:
		return 2
	case 4:
		return 4
	case 2:
		return 8
	default:
		return 4
	}
}

// TotalSteps returns the number of grid steps in one measure of the given
// time signature, capped at the grid width. Compound meters 6/8 and 9/8
// both run 12 steps, subdivided in threes rather than twos.
func TotalSteps(numerator, denominator int) int {
	if denominator == 8 && (numerator == 6 || numerator == 9) {
		return 12
	}
	total := numerator * StepsPerBeat(denominator)
	if total < 1 {
		total = 1
	}
	if total > MaxSteps {
		total = MaxSteps
	}
	return total
}

// IsStrongBeat reports whether a step lands on a beat boundary. Display
// classification only, derived from the same denominator table as
// TotalSteps.
func IsStrongBeat(step, numerator, denominator int) bool {
	if denominator == 8 && (numerator == 6 || numerator == 9) {
		// compound meter: strong pulses every three steps
		return step%3 == 0
	}
	return step%StepsPerBeat(denominator) == 0
}

// IsHalfBeat reports whether a step lands on a half-beat subdivision.
func IsHalfBeat(step, numerator, denominator int) bool {
	spb := StepsPerBeat(denominator)
	if denominator == 8 && (numerator == 6 || numerator == 9) {
		return step%3 == 0
	}
	if spb < 2 {
		return true
	}
	return step%(spb/2) == 0
}

// samplesPerStep converts host timing into the sample length of one grid
// step. Tempo is quarter-note BPM regardless of the time signature, which
// matches how hosts report it.
func samplesPerStep(sampleRate, tempo float64, numerator, denominator int) float64 {
	if tempo <= 0 || sampleRate <= 0 {
		return 0
	}
	beatSeconds := (60.0 / tempo) * (4.0 / float64(denominator))
	if denominator == 8 && (numerator == 6 || numerator == 9) {
		// 12 steps spread over the measure's eighth-note beats
		return sampleRate * beatSeconds * float64(numerator) / 12.0
	}
	return sampleRate * beatSeconds / float64(StepsPerBeat(denominator))
}
