package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"loopgrid/engine"
	"loopgrid/host"
	"loopgrid/theme"
)

type Model struct {
	Engine  *engine.Engine
	Host    *host.Host
	Theme   *theme.Theme
	Updates <-chan engine.Notification

	focus    int // index into Engine.LayerIDs()
	cursor   int // step cursor within the focused grid
	status   string
	quitting bool
}

// NotificationMsg carries one engine notification into the update loop.
type NotificationMsg engine.Notification

type tickMsg time.Time

func NewModel(eng *engine.Engine, h *host.Host, th *theme.Theme, updates <-chan engine.Notification) Model {
	return Model{
		Engine:  eng,
		Host:    h,
		Theme:   th,
		Updates: updates,
	}
}

func listenForNotifications(updates <-chan engine.Notification) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-updates
		if !ok {
			return nil
		}
		return NotificationMsg(n)
	}
}

// tick drives playhead redraws while the transport runs.
func tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		listenForNotifications(m.Updates),
		tick(),
	)
}

// focusedLayer returns the layer under focus, or nil when none exist.
func (m *Model) focusedLayer() *engine.Layer {
	ids := m.Engine.LayerIDs()
	if len(ids) == 0 {
		return nil
	}
	if m.focus >= len(ids) {
		m.focus = len(ids) - 1
	}
	return m.Engine.Layer(ids[m.focus])
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case NotificationMsg:
		n := engine.Notification(msg)
		m.status = fmt.Sprintf("%s %s=%v", n.LayerID, n.Kind, n.Value)
		return m, listenForNotifications(m.Updates)

	case tickMsg:
		return m, tick()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	layer := m.focusedLayer()

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		m.Engine.Stop()
		return m, tea.Quit

	case "p":
		if m.Engine.Playing() {
			m.Engine.Stop()
		} else {
			m.Engine.Start()
		}

	case "+", "=":
		m.Host.SetTempo(m.Host.Tempo() + 5)

	case "-", "_":
		m.Host.SetTempo(m.Host.Tempo() - 5)

	case "j", "down":
		if m.focus < len(m.Engine.LayerIDs())-1 {
			m.focus++
		}

	case "k", "up":
		if m.focus > 0 {
			m.focus--
		}

	case "h", "left":
		if m.cursor > 0 {
			m.cursor--
		}

	case "l", "right":
		if layer != nil && m.cursor < m.gridWidth(layer)-1 {
			m.cursor++
		}

	case "[":
		if layer != nil {
			layer.Grid.SetEditMeasure(layer.Grid.EditMeasure() - 1)
		}

	case "]":
		if layer != nil {
			layer.Grid.SetEditMeasure(layer.Grid.EditMeasure() + 1)
		}

	case " ":
		if layer != nil {
			layer.Grid.ToggleStep(layer.Grid.EditMeasure(), m.cursor)
		}

	case "g":
		if layer != nil {
			layer.Grid.SetPagingEnabled(!layer.Grid.PagingEnabled())
		}

	case "1", "2", "3", "4":
		if layer != nil {
			layer.Grid.SetNumMeasures(int(msg.String()[0] - '0'))
		}

	case "enter":
		if layer != nil {
			m.toggleLaunch(layer)
		}

	case "m":
		if layer != nil {
			layer.SetMuted(!layer.Muted())
		}

	case "s":
		if layer != nil {
			layer.SetSolo(!layer.Solo())
		}

	case "u", "d": // velocity at cursor
		if layer != nil {
			em := layer.Grid.EditMeasure()
			v := layer.Grid.Velocity(em, m.cursor)
			if msg.String() == "u" {
				v += 0.1
			} else {
				v -= 0.1
			}
			layer.Grid.SetVelocity(em, m.cursor, v)
		}

	case "n":
		if _, err := m.Engine.CreateLayer(fmt.Sprintf("layer %d", len(m.Engine.LayerIDs())+1)); err != nil {
			m.status = err.Error()
		}

	case "x":
		if layer != nil {
			m.Engine.RemoveLayer(layer.ID)
		}
	}

	return m, nil
}

// toggleLaunch arms or disarms the focused layer at the next boundary.
func (m *Model) toggleLaunch(layer *engine.Layer) {
	switch {
	case layer.IsArmed():
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

// gridWidth is the number of steps shown for a layer at the current
// time signature.
func (m Model) gridWidth(layer *engine.Layer) int {
	num, denom := m.Host.TimeSignature()
	return engine.TotalSteps(num, denom)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	th := m.Theme
	headerStyle := lipgloss.NewStyle().Foreground(th.Accent()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	focusStyle := lipgloss.NewStyle().Foreground(th.FG()).Bold(true)
	playStyle := lipgloss.NewStyle().Foreground(th.Active())
	armedStyle := lipgloss.NewStyle().Foreground(th.Armed())
	stopStyle := lipgloss.NewStyle().Foreground(th.Stop())

	playState := "STOP"
	stateStyle := dimStyle
	if m.Engine.Playing() {
		playState = "PLAY"
		stateStyle = playStyle
	}
	num, denom := m.Host.TimeSignature()
	header := headerStyle.Render("loopgrid") + "  " +
		stateStyle.Render(playState) +
		dimStyle.Render(fmt.Sprintf("  %3.0fbpm  %d/%d", m.Host.Tempo(), num, denom))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")

	ids := m.Engine.LayerIDs()
	for i, id := range ids {
		layer := m.Engine.Layer(id)
		if layer == nil {
			continue
		}

		line := m.layerLine(layer, playStyle, armedStyle, stopStyle, dimStyle)
		if i == m.focus {
			out.WriteString(focusStyle.Render("> "))
			out.WriteString(line)
			out.WriteString("\n")
			out.WriteString(m.gridView(layer))
		} else {
			out.WriteString("  ")
			out.WriteString(line)
			out.WriteString("\n")
		}
	}
	if len(ids) == 0 {
		out.WriteString(dimStyle.Render("  no layers (n to create)"))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	out.WriteString(dimStyle.Render("jk:layer hl:step []:measure space:toggle enter:launch g:paging 1-4:measures"))
	out.WriteString("\n")
	out.WriteString(dimStyle.Render("m:mute s:solo u/d:velocity n:new x:remove p:play +/-:tempo q:quit"))
	if m.status != "" {
		out.WriteString("\n")
		out.WriteString(dimStyle.Render(m.status))
	}
	out.WriteString("\n")

	return out.String()
}

// layerLine renders the one-line summary for a layer.
func (m Model) layerLine(layer *engine.Layer, playStyle, armedStyle, stopStyle, dimStyle lipgloss.Style) string {
	sym := m.Theme.Symbols

	state := dimStyle.Render(string(sym.Stopped))
	switch {
	case layer.IsArmedToStop():
		state = stopStyle.Render(string(sym.Armed))
	case layer.IsArmed():
		state = armedStyle.Render(string(sym.Armed))
	case layer.IsPlaying():
		state = playStyle.Render(string(sym.Playing))
	}

	flags := ""
	if layer.Muted() {
		flags += " M"
	}
	if layer.Solo() {
		flags += " S"
	}
	if layer.SwapPending() {
		flags += " " + string(sym.SwapWaiting)
	}
	content := ""
	if !layer.HasContent() {
		content = dimStyle.Render(" (empty)")
	}

	return fmt.Sprintf("%s %-12s vol:%.2f pan:%+.2f%s%s",
		state, layer.Name, layer.Volume(), layer.Pan(), flags, content)
}

// gridView renders the focused layer's step grid, one line per measure.
func (m Model) gridView(layer *engine.Layer) string {
	th := m.Theme
	sym := th.Symbols
	num, denom := m.Host.TimeSignature()
	width := engine.TotalSteps(num, denom)

	strongStyle := lipgloss.NewStyle().Foreground(th.FG())
	weakStyle := lipgloss.NewStyle().Foreground(th.Muted())
	activeStyle := lipgloss.NewStyle().Foreground(th.Active())
	playheadStyle := lipgloss.NewStyle().Foreground(th.Accent()).Reverse(true)
	cursorStyle := lipgloss.NewStyle().Foreground(th.Armed())
	pageStyle := lipgloss.NewStyle().Foreground(th.Warning())

	playing := m.Engine.Playing()
	curMeasure := layer.Grid.CurrentMeasure()
	curStep := layer.Grid.CurrentStep()
	editMeasure := layer.Grid.EditMeasure()

	var out strings.Builder
	for measure := 0; measure < layer.Grid.NumMeasures(); measure++ {
		if measure == editMeasure {
			out.WriteString("   *")
		} else {
			out.WriteString("    ")
		}
		for step := 0; step < engine.MaxSteps; step++ {
			if step >= width {
				// cells past the signature's step count are inert
				out.WriteString(weakStyle.Render(string(sym.StepBeyond)))
				continue
			}

			onPlayhead := playing && measure == curMeasure && step == curStep
			onCursor := measure == editMeasure && step == m.cursor
			active := layer.Grid.Step(measure, step)

			var cell string
			var style lipgloss.Style
			switch {
			case onPlayhead && onCursor:
				cell = string(sym.CursorPlayhead)
				style = playheadStyle
			case onPlayhead:
				cell = string(sym.StepPlayhead)
				style = playheadStyle
			case onCursor && active && layer.Grid.PagingEnabled():
				cell = string(rune('1' + layer.Grid.Page(measure, step)))
				style = cursorStyle
			case onCursor && active:
				cell = string(sym.CursorActive)
				style = cursorStyle
			case onCursor:
				cell = string(sym.CursorEmpty)
				style = cursorStyle
			case active && layer.Grid.PagingEnabled():
				// Show which content page the step triggers
				cell = string(rune('1' + layer.Grid.Page(measure, step)))
				style = pageStyle
			case active:
				cell = string(sym.StepActive)
				style = activeStyle
			case engine.IsStrongBeat(step, num, denom):
				cell = string(sym.StepEmpty)
				style = strongStyle
			default:
				cell = string(sym.StepEmpty)
				style = weakStyle
			}

			out.WriteString(style.Render(cell))
			if (step+1)%engine.StepsPerBeat(denom) == 0 && step != width-1 {
				out.WriteString(" ")
			}
		}
		out.WriteString("\n")
	}
	return out.String()
}
