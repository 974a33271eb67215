// midiprobe is a small diagnostic tool for checking the MIDI setup
// before running loopgrid: list ports, watch incoming notes, and
// exercise the Launchpad LEDs used for layer feedback.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "watch":
		watchNotes()
	case "leds":
		testLEDs()
	case "notes":
		sendLayerNotes()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("midiprobe - MIDI setup diagnostics")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list    - list all MIDI ports")
	fmt.Println("  watch   - print incoming note events (ctrl+c to stop)")
	fmt.Println("  leds    - light the bottom Launchpad row (layer slots)")
	fmt.Println("  notes   - send the eight layer launch notes (60-67)")
}

func listPorts() {
	fmt.Println("Input ports:")
	for i, in := range midi.GetInPorts() {
		fmt.Printf("  %d: %s\n", i, in.String())
	}
	fmt.Println("Output ports:")
	for i, out := range midi.GetOutPorts() {
		fmt.Printf("  %d: %s\n", i, out.String())
	}
}

func watchNotes() {
	ins := midi.GetInPorts()
	if len(ins) == 0 {
		fmt.Println("no input ports")
		return
	}

	var stops []func()
	for _, in := range ins {
		port := in
		stop, err := midi.ListenTo(port, func(msg midi.Message, timestampms int32) {
			var ch, note, vel uint8
			switch {
			case msg.GetNoteOn(&ch, &note, &vel):
				fmt.Printf("%-40s note-on  ch=%d note=%d vel=%d\n", port.String(), ch, note, vel)
			case msg.GetNoteOff(&ch, &note, &vel):
				fmt.Printf("%-40s note-off ch=%d note=%d\n", port.String(), ch, note)
			}
		})
		if err != nil {
			fmt.Printf("open %s: %v\n", port.String(), err)
			continue
		}
		stops = append(stops, stop)
	}
	fmt.Printf("watching %d ports, ctrl+c to stop\n", len(stops))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
	for _, stop := range stops {
		stop()
	}
}

func findLaunchpadOut() drivers.Out {
	for _, out := range midi.GetOutPorts() {
		name := strings.ToLower(out.String())
		if strings.Contains(name, "launchpad") && strings.Contains(name, "midi") {
			return out
		}
	}
	return nil
}

// testLEDs cycles the bottom pad row through the layer state colors.
func testLEDs() {
	out := findLaunchpadOut()
	if out == nil {
		fmt.Println("no Launchpad output found")
		return
	}
	send, err := midi.SendTo(out)
	if err != nil {
		fmt.Printf("open output: %v\n", err)
		return
	}

	// Programmer mode
	send(midi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x00, 0x7F}))

	colors := []uint8{21, 13, 5, 0} // green, yellow, red, off
	for _, color := range colors {
		for col := 0; col < 8; col++ {
			// Bottom row notes 11-18
			send(midi.NoteOn(0, uint8(11+col), color))
		}
		time.Sleep(400 * time.Millisecond)
	}
	fmt.Println("done")
}

// sendLayerNotes fires each default layer launch note once.
func sendLayerNotes() {
	outs := midi.GetOutPorts()
	if len(outs) == 0 {
		fmt.Println("no output ports")
		return
	}
	send, err := midi.SendTo(outs[0])
	if err != nil {
		fmt.Printf("open output: %v\n", err)
		return
	}
	fmt.Printf("sending notes 60-67 to %s\n", outs[0].String())
	for note := uint8(60); note <= 67; note++ {
		send(midi.NoteOn(0, note, 100))
		time.Sleep(150 * time.Millisecond)
		send(midi.NoteOff(0, note))
	}
}
