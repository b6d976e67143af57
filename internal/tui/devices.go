// SPDX-License-Identifier: MIT

// Package tui holds the interactive device picker behind the `pick` command.
// It is a setup utility, not a visualizer: renderers are external clients of
// the metric transports.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/samuelpmahan/audio-viz/internal/audio"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB454"))
)

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// fetchDevices enumerates the host's audio devices.
func fetchDevices() tea.Msg {
	devices, err := audio.HostDevices()
	if err != nil {
		return errMsg{err}
	}
	return devicesMsg{devices}
}

// PickerModel is the Bubble Tea model for choosing a capture device. Enter
// on an input-capable device records it as the choice and quits; q quits
// without choosing.
type PickerModel struct {
	devices  []audio.Device
	cursor   int
	viewport viewport.Model
	ready    bool
	err      error
	status   string
	choice   *audio.Device
}

// NewPickerModel returns a picker with nothing selected.
func NewPickerModel() PickerModel {
	return PickerModel{}
}

// Init starts device enumeration.
func (m PickerModel) Init() tea.Cmd {
	return fetchDevices
}

// Update handles input and updates the model.
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
			if len(m.devices) > 0 {
				m.viewport.SetContent(m.renderDevices())
			}
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case devicesMsg:
		m.devices = msg.devices
		// Land the cursor on the first capture-capable device.
		for i, d := range m.devices {
			if d.MaxInputChannels > 0 {
				m.cursor = i
				break
			}
		}
		if m.ready {
			m.viewport.SetContent(m.renderDevices())
		}

	case errMsg:
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"))):
			return m, tea.Quit

		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if m.cursor > 0 {
				m.cursor--
				m.status = ""
				m.viewport.SetContent(m.renderDevices())
			}

		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if m.cursor < len(m.devices)-1 {
				m.cursor++
				m.status = ""
				m.viewport.SetContent(m.renderDevices())
			}

		case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
			if len(m.devices) == 0 {
				break
			}
			selected := m.devices[m.cursor]
			if selected.MaxInputChannels == 0 {
				m.status = fmt.Sprintf("%q has no input channels; pick a capture device", selected.Name)
				m.viewport.SetContent(m.renderDevices())
				break
			}
			m.choice = &selected
			return m, tea.Quit
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the UI.
func (m PickerModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}
	if !m.ready {
		return "Scanning audio devices..."
	}

	title := titleStyle.Render("Pick an Input Device")
	help := infoStyle.Render("↑/↓: Navigate • Enter: Select • q: Quit")
	if m.status != "" {
		help = statusStyle.Render(m.status)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

// renderDevices formats the device list. Output-only devices stay visible but
// dimmed, so the IDs line up with the `list` command.
func (m PickerModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		info := fmt.Sprintf("[%d] %s (%s)\n", device.ID, device.Name, device.Kind())
		info += fmt.Sprintf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		info += fmt.Sprintf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)

		switch {
		case i == m.cursor:
			info = highlightStyle.Render(info)
		case device.MaxInputChannels == 0:
			info = dimStyle.Render(info)
		}

		sb.WriteString(info)
		sb.WriteString("\n")
	}
	return sb.String()
}

// PickDevice runs the picker and returns the chosen device, or nil when the
// user quit without choosing. PortAudio must be initialized.
func PickDevice() (*audio.Device, error) {
	p := tea.NewProgram(
		NewPickerModel(),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("device picker failed: %w", err)
	}

	m, ok := final.(PickerModel)
	if !ok {
		return nil, fmt.Errorf("device picker returned unexpected model %T", final)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.choice, nil
}
