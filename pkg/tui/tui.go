// Package tui is an interactive terminal browser over a persisted topology
// snapshot, launched by `al1905d topology --interactive`. Adapted from the
// teacher's pkg/interactive: a bubbletea model/update/view triple, lipgloss
// styles for the title/selection/status line, and a tickMsg-driven clock in
// the header, trimmed from a full simulation-control console down to
// read-only topology navigation.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/krisarmstrong/al1905d/pkg/store"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	deviceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246"))
)

type tickMsg time.Time

type model struct {
	snapshot store.Snapshot
	cursor   int
	now      time.Time
}

// NewModel builds the initial bubbletea model for browsing snap.
func NewModel(snap store.Snapshot) tea.Model {
	return model{snapshot: snap, now: time.Now()}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), tea.EnterAltScreen)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.snapshot.Devices)-1 {
				m.cursor++
			}
		}
	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("al1905d topology — snapshot taken %s", m.snapshot.TakenAt.Format(time.RFC3339))))
	b.WriteString("\n\n")

	if len(m.snapshot.Devices) == 0 {
		b.WriteString(statsStyle.Render("no devices in this snapshot"))
		b.WriteString("\n")
	}

	for i, dev := range m.snapshot.Devices {
		line := fmt.Sprintf("%s  interfaces=%d  last_seen=%s", dev.AlMac, len(dev.Interfaces), dev.LastSeen.Format(time.RFC3339))
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString(deviceStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	if m.cursor >= 0 && m.cursor < len(m.snapshot.Devices) {
		b.WriteString("\n")
		b.WriteString(statsStyle.Render("interfaces:"))
		b.WriteString("\n")
		for _, iface := range m.snapshot.Devices[m.cursor].Interfaces {
			b.WriteString("  " + iface + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(statsStyle.Render(fmt.Sprintf("%s — up/down to navigate, q to quit", m.now.Format(time.Kitchen))))
	return b.String()
}

// Run launches the interactive browser over snap and blocks until the user
// quits.
func Run(snap store.Snapshot) error {
	_, err := tea.NewProgram(NewModel(snap), tea.WithAltScreen()).Run()
	return err
}
