package midi

import (
	"context"
	"fmt"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"

	"loopgrid/debug"
	"loopgrid/engine"
)

// Router wires controller input to the engine and echoes layer state
// back out: notes and pad presses arm layers for the next measure
// boundary, engine notifications become outgoing notes and pad LEDs.
type Router struct {
	engine  *engine.Engine
	dm      *DeviceManager
	send    func(msg gomidi.Message) error
	channel uint8
}

// NewRouter creates a router for the given engine and device manager.
// channel is the outgoing MIDI channel (0-15).
func NewRouter(eng *engine.Engine, dm *DeviceManager, channel uint8) *Router {
	if channel > 15 {
		channel = 0
	}
	return &Router{engine: eng, dm: dm, channel: channel}
}

// OpenOutput opens the first output port whose name contains portName
// (case-insensitive). Notification echo is silently skipped when no
// output is open.
func (r *Router) OpenOutput(portName string) error {
	if portName == "" {
		return nil
	}
	want := strings.ToLower(portName)
	for _, out := range gomidi.GetOutPorts() {
		if strings.Contains(strings.ToLower(out.String()), want) {
			send, err := gomidi.SendTo(out)
			if err != nil {
				return fmt.Errorf("open output %q: %w", out.String(), err)
			}
			r.send = send
			debug.Log("midi", "output open: %s", out.String())
			return nil
		}
	}
	return fmt.Errorf("no output port matching %q", portName)
}

// Run consumes device events until ctx is cancelled.
// Blocking - run in a goroutine.
func (r *Router) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.dm.Events():
			if !ok {
				return
			}
			if ev.Type == DeviceConnected {
				debug.Log("midi", "connected: %s", ev.ID)
				go r.listen(ctx, ev.Controller)
			} else {
				debug.Log("midi", "disconnected: %s", ev.ID)
			}
		}
	}
}

// listen consumes one controller's input channels until they close.
func (r *Router) listen(ctx context.Context, c Controller) {
	notes := c.NoteEvents()
	pads := c.PadEvents()
	for notes != nil || pads != nil {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-notes:
			if !ok {
				notes = nil
				continue
			}
			if ev.On {
				r.handleNote(ev.Note)
			}
		case ev, ok := <-pads:
			if !ok {
				pads = nil
				continue
			}
			if ev.Velocity > 0 {
				r.handlePad(ev.Row, ev.Col)
			}
		}
	}
}

// handleNote toggles the layer assigned to this note.
func (r *Router) handleNote(note uint8) {
	layer := r.engine.LayerByNote(int(note))
	if layer == nil {
		return
	}
	r.toggleLaunch(layer)
}

// handlePad maps the bottom pad row to layer slots.
func (r *Router) handlePad(row, col int) {
	if row != 0 || col < 0 || col >= engine.MaxLayers {
		return
	}
	for _, layer := range r.engine.Layers() {
		if layer.Slot == col {
			r.toggleLaunch(layer)
			return
		}
	}
}

// toggleLaunch arms a stopped layer to start on the next measure
// boundary, arms a playing layer to stop, and cancels a pending arm.
func (r *Router) toggleLaunch(layer *engine.Layer) {
	switch {
	case layer.IsArmed():
		// Second press before the boundary cancels the launch
		layer.SetPending(engine.ActionNone)
		layer.SetArmed(false)
	case layer.IsArmedToStop():
		layer.SetPending(engine.ActionNone)
		layer.SetArmedToStop(false)
	case layer.IsPlaying():
		layer.SetPending(engine.ActionStopOnNextMeasure)
		layer.SetArmedToStop(true)
	default:
		layer.SetPending(engine.ActionStartOnNextMeasure)
		layer.SetArmed(true)
	}
}

// Echo mirrors one notification to the MIDI output and the Launchpad.
// Called by whoever drains the engine's notification channel.
func (r *Router) Echo(n engine.Notification) {
	layer := r.engine.Layer(n.LayerID)
	if layer == nil {
		return
	}
	note := uint8(layer.MIDINote())

	if r.send != nil && n.Kind == engine.NotifyPlaying {
		if n.Value {
			r.send(gomidi.NoteOn(r.channel, note, 127))
		} else {
			r.send(gomidi.NoteOff(r.channel, note))
		}
	}

	lp := r.dm.GetLaunchpad()
	if lp == nil {
		return
	}
	switch n.Kind {
	case engine.NotifyPlaying:
		if n.Value {
			lp.SetLED(0, layer.Slot, ColorGreen, ChannelStatic)
		} else {
			lp.SetLED(0, layer.Slot, ColorDimGreen, ChannelStatic)
		}
	case engine.NotifyArmed:
		if n.Value {
			lp.SetLED(0, layer.Slot, ColorYellow, ChannelPulse)
		}
	case engine.NotifyArmedToStop:
		if n.Value {
			lp.SetLED(0, layer.Slot, ColorRed, ChannelFlash)
		}
	}
}
