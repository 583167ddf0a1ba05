// Package monitor implements a terminal dashboard showing CPU
// registers and PPU timing state, stepped one instruction at a time.
package monitor

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Snapshot is the subset of machine state the dashboard displays, read
// by value at startup and again after every step.
type Snapshot struct {
	A, X, Y, SP    uint8
	PC             uint16
	C, Z, I, D, V, N bool
	Scanline, Cycle int
	Frame           uint64
	BusCycles       uint64
	Halted          bool
}

// Target is the machine the dashboard drives: one CPU instruction per
// Step, with Snapshot reporting the state afterward.
type Target interface {
	Step()
	Snapshot() Snapshot
}

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	haltStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	boxStyle   = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder())
)

type model struct {
	target Target
	snap   Snapshot
	steps  uint64
	quit   bool
}

// New returns a bubbletea model driving target.
func New(target Target) tea.Model {
	return model{target: target, snap: target.Snapshot()}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quit = true
			return m, tea.Quit
		case " ", "n":
			if !m.snap.Halted {
				m.target.Step()
				m.steps++
				m.snap = m.target.Snapshot()
			}
		}
	}
	return m, nil
}

func flagRow(s Snapshot) string {
	bit := func(set bool, ch string) string {
		if set {
			return ch
		}
		return "-"
	}
	return fmt.Sprintf("%s %s %s %s %s %s",
		bit(s.N, "N"), bit(s.V, "V"), bit(s.D, "D"),
		bit(s.I, "I"), bit(s.Z, "Z"), bit(s.C, "C"))
}

func (m model) View() string {
	s := m.snap

	registers := lipgloss.JoinVertical(lipgloss.Left,
		labelStyle.Render("CPU"),
		fmt.Sprintf("PC=%04X A=%02X X=%02X Y=%02X SP=%02X", s.PC, s.A, s.X, s.Y, s.SP),
		flagRow(s),
	)

	timing := lipgloss.JoinVertical(lipgloss.Left,
		labelStyle.Render("PPU"),
		fmt.Sprintf("scanline=%-3d cycle=%-3d frame=%d", s.Scanline, s.Cycle, s.Frame),
		fmt.Sprintf("bus cycles=%d  steps=%d", s.BusCycles, m.steps),
	)

	status := "space/n: step one instruction   q: quit"
	if s.Halted {
		status = haltStyle.Render("HALTED") + "   " + status
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, registers, "", timing, "", status))
}

// Run starts the interactive dashboard, blocking until the user quits.
func Run(target Target) error {
	_, err := tea.NewProgram(New(target)).Run()
	return err
}
