package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jeannie068/analogplace/pkg/observability"
)

// =============================================================================
// SolveModel - Live annealing progress
// =============================================================================

// Messages sent from solver hooks into the bubbletea event loop.
type (
	annealStartMsg struct {
		runID   string
		modules int
		groups  int
	}
	temperatureMsg struct {
		temp     float64
		bestCost int64
		accepted int
		rejected int
	}
	improvementMsg struct{ cost int64 }
	solveTimeoutMsg struct{}
	solveDoneMsg    struct{ err error }
	frameMsg        time.Time
)

// SolveModel is the bubbletea model that displays simulated annealing
// progress while a placement is being solved. It is driven entirely by
// solver hook messages; the solve itself runs in a separate goroutine.
type SolveModel struct {
	Input string

	modules      int
	groups       int
	temp         float64
	bestCost     int64
	accepted     int
	rejected     int
	improvements int
	timedOut     bool
	running      bool
	done         bool
	err          error

	start time.Time
	frame int

	cancel context.CancelFunc
}

// NewSolveModel creates a progress model for solving the given input file.
// cancel is invoked when the user interrupts with ctrl+c or q.
func NewSolveModel(input string, cancel context.CancelFunc) SolveModel {
	return SolveModel{Input: input, start: time.Now(), cancel: cancel}
}

func (m SolveModel) Init() tea.Cmd {
	return tickFrame()
}

func tickFrame() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m SolveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
	case frameMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, tickFrame()
	case annealStartMsg:
		m.modules = msg.modules
		m.groups = msg.groups
		m.running = true
	case temperatureMsg:
		m.temp = msg.temp
		m.bestCost = msg.bestCost
		m.accepted += msg.accepted
		m.rejected += msg.rejected
	case improvementMsg:
		m.bestCost = msg.cost
		m.improvements++
	case solveTimeoutMsg:
		m.timedOut = true
	case solveDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (m SolveModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder

	frame := spinnerFrames[m.frame%len(spinnerFrames)]
	b.WriteString(styleIconSpinner.Render(frame))
	b.WriteString(" ")
	b.WriteString(StyleTitle.Render("Solving " + m.Input))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("q abort"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"Modules", fmt.Sprintf("%d", m.modules)},
		{"Symmetry groups", fmt.Sprintf("%d", m.groups)},
		{"Temperature", fmt.Sprintf("%.2f", m.temp)},
		{"Best cost", fmt.Sprintf("%d", m.bestCost)},
		{"Accepted", fmt.Sprintf("%d", m.accepted)},
		{"Rejected", fmt.Sprintf("%d", m.rejected)},
		{"Improvements", fmt.Sprintf("%d", m.improvements)},
		{"Elapsed", time.Since(m.start).Round(time.Second).String()},
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorGray).Padding(0, 1)
			}
			return StyleNumber.Padding(0, 1)
		})

	b.WriteString(t.Render())
	b.WriteString("\n")

	if m.timedOut {
		b.WriteString(StyleWarning.Render("! time limit reached, finishing with best placement so far"))
		b.WriteString("\n")
	}

	return b.String()
}

// =============================================================================
// Solver hooks feeding the model
// =============================================================================

// teaSolverHooks forwards solver progress into a running bubbletea program.
// Hook methods are called from the solver goroutine; tea.Program.Send is
// safe for concurrent use.
type teaSolverHooks struct {
	observability.NoopSolverHooks
	program *tea.Program
}

func (h *teaSolverHooks) OnAnnealStart(_ context.Context, runID string, modules, groups int) {
	h.program.Send(annealStartMsg{runID: runID, modules: modules, groups: groups})
}

func (h *teaSolverHooks) OnTemperature(_ context.Context, _ string, temp float64, bestCost int64, accepted, rejected int) {
	h.program.Send(temperatureMsg{temp: temp, bestCost: bestCost, accepted: accepted, rejected: rejected})
}

func (h *teaSolverHooks) OnImprovement(_ context.Context, _ string, cost int64) {
	h.program.Send(improvementMsg{cost: cost})
}

func (h *teaSolverHooks) OnTimeout(_ context.Context, _ string) {
	h.program.Send(solveTimeoutMsg{})
}
