package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"loopgrid/config"
	"loopgrid/content"
	"loopgrid/debug"
	"loopgrid/engine"
	"loopgrid/host"
	"loopgrid/midi"
	"loopgrid/theme"
	"loopgrid/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Debug {
		if err := debug.Enable(); err != nil {
			fmt.Printf("debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	var palette *theme.Palette
	if cfg.Palette != "" {
		p, err := theme.LoadGPL(cfg.Palette)
		if err != nil {
			debug.Log("main", "palette %q: %v", cfg.Palette, err)
		} else {
			palette = p
		}
	}
	th := theme.New(palette)

	eng := engine.NewEngine()
	loadLayers(eng, cfg)

	// Audio host owns the output stream and the transport clock
	h, err := host.New(eng,
		cfg.Audio.SampleRate, cfg.Audio.BufferSize,
		cfg.Transport.Tempo, cfg.Transport.TimeSigNum, cfg.Transport.TimeSigDenom)
	if err != nil {
		fmt.Printf("audio: %v\n", err)
		os.Exit(1)
	}
	defer h.Close()

	if err := h.Start(); err != nil {
		fmt.Printf("audio: %v\n", err)
		os.Exit(1)
	}

	// MIDI hot-plug and note routing
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deviceMgr := midi.NewDeviceManager()
	if cfg.MIDI.InputPort != "" {
		deviceMgr.SetInputFilter(cfg.MIDI.InputPort)
	}
	go deviceMgr.Run(ctx)

	channel := uint8(0)
	if cfg.MIDI.Channel >= 1 && cfg.MIDI.Channel <= 16 {
		channel = uint8(cfg.MIDI.Channel - 1)
	}
	router := midi.NewRouter(eng, deviceMgr, channel)
	if cfg.MIDI.OutputPort != "" {
		if err := router.OpenOutput(cfg.MIDI.OutputPort); err != nil {
			debug.Log("main", "midi output: %v", err)
		}
	}
	go router.Run(ctx)

	// Fan notifications out to MIDI echo and the TUI
	updates := make(chan engine.Notification, 64)
	go func() {
		for n := range eng.Notifications() {
			debug.Log("notify", "%s %s=%v", n.LayerID, n.Kind, n.Value)
			router.Echo(n)
			select {
			case updates <- n:
			default:
			}
		}
	}()

	m := tui.NewModel(eng, h, th, updates)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// Persist transport tweaks made during the session
	cfg.Transport.Tempo = h.Tempo()
	cfg.Transport.TimeSigNum, cfg.Transport.TimeSigDenom = h.TimeSignature()
	if err := cfg.Save(); err != nil {
		debug.Log("main", "save config: %v", err)
	}
}

// loadLayers creates the configured layers and stages their audio.
// Files that fail to load still get a layer so the slot layout is
// stable; the layer just starts empty.
func loadLayers(eng *engine.Engine, cfg *config.Config) {
	for _, lc := range cfg.Layers {
		layer, err := eng.CreateLayer(lc.Name)
		if err != nil {
			debug.Log("main", "layer %q: %v", lc.Name, err)
			return
		}
		if lc.MIDINote > 0 {
			layer.SetMIDINote(lc.MIDINote)
		}
		if lc.File == "" {
			continue
		}
		c, err := content.LoadFile(lc.File, lc.Tempo)
		if err != nil {
			debug.Log("main", "load %q: %v", lc.File, err)
			continue
		}
		if err := layer.StageContent(c); err != nil {
			debug.Log("main", "stage %q: %v", lc.File, err)
			continue
		}
		layer.RequestSwap()
	}
}
