// Package midi connects hardware controllers to the layer engine:
// hot-plug device detection, note input for arming layers, and
// LED/note feedback when layer state changes.
package midi

// ControllerType identifies the kind of controller
type ControllerType int

const (
	ControllerUnknown ControllerType = iota
	ControllerLaunchpad
	ControllerKeyboard
)

// PadEvent is sent when a pad is pressed on a grid controller
type PadEvent struct {
	Row, Col int
	Velocity uint8
}

// NoteEvent is sent when a note is played on a keyboard.
// On is false for note-off (or note-on with velocity 0).
type NoteEvent struct {
	Note     uint8
	Velocity uint8
	Channel  uint8
	On       bool
}

// Controller is the interface for MIDI input devices
type Controller interface {
	ID() string
	Type() ControllerType

	// Input events from the controller
	PadEvents() <-chan PadEvent   // For grid controllers (Launchpad)
	NoteEvents() <-chan NoteEvent // For keyboards

	// Output to the controller
	SetLED(row, col int, color uint8, channel uint8) error
	ClearLEDs() error

	// Lifecycle
	Close() error
}

// Launchpad X color palette (velocity values 0-127)
// See Programmer's Reference Manual for full palette
const (
	ColorOff       uint8 = 0
	ColorDimRed    uint8 = 7
	ColorRed       uint8 = 5
	ColorDimGreen  uint8 = 19
	ColorGreen     uint8 = 21
	ColorYellow    uint8 = 13
	ColorOrange    uint8 = 9
	ColorDimOrange uint8 = 11
	ColorWhite     uint8 = 3

	// Channel modes for SetLED (use as 'channel' parameter)
	ChannelStatic uint8 = 0 // solid color
	ChannelFlash  uint8 = 1 // flashing A/B alternating
	ChannelPulse  uint8 = 2 // pulsing (fades)
)
