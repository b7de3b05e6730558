// Package tui provides a live terminal view of a running parameter fit.
package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/kinfit/internal/viz"
)

const historyCapacity = 200

// EvalMsg reports one residual evaluation of the running fit.
type EvalMsg struct {
	Values   []float64
	Residual float64
}

// DoneMsg carries the fitted parameters when the minimizer returns.
type DoneMsg struct {
	Params map[string]float64
}

// FitModel is the bubbletea model for fit progress: evaluation count,
// best residual so far and a sparkline of recent residuals.
type FitModel struct {
	names       []string
	evaluations int
	best        float64
	bestValues  []float64
	history     []float64
	done        bool
	fitted      map[string]float64
}

func NewFitModel(names []string) FitModel {
	return FitModel{names: names, best: math.Inf(1)}
}

func (m FitModel) Init() tea.Cmd { return nil }

func (m FitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case EvalMsg:
		m.evaluations++
		if msg.Residual < m.best {
			m.best = msg.Residual
			m.bestValues = msg.Values
		}
		if !math.IsInf(msg.Residual, 0) && !math.IsNaN(msg.Residual) {
			m.history = append(m.history, msg.Residual)
			if len(m.history) > historyCapacity {
				m.history = m.history[len(m.history)-historyCapacity:]
			}
		}
	case DoneMsg:
		m.done = true
		m.fitted = msg.Params
		return m, tea.Quit
	}
	return m, nil
}

func (m FitModel) View() string {
	var b strings.Builder

	b.WriteString(viz.TitleStyle.Render("parameter fit"))
	b.WriteString("\n")
	b.WriteString(viz.LabelStyle.Render("evaluations"))
	b.WriteString(viz.ValueStyle.Render(fmt.Sprintf("%d", m.evaluations)))
	b.WriteString("\n")
	b.WriteString(viz.LabelStyle.Render("best residual"))
	b.WriteString(viz.ValueStyle.Render(fmt.Sprintf("%.6g", m.best)))
	b.WriteString("\n")

	for i, name := range m.names {
		if i >= len(m.bestValues) {
			break
		}
		b.WriteString(viz.LabelStyle.Render(name))
		b.WriteString(viz.ValueStyle.Render(fmt.Sprintf("%.6g", m.bestValues[i])))
		b.WriteString("\n")
	}

	if len(m.history) > 1 {
		graph := asciigraph.Plot(m.history,
			asciigraph.Height(8),
			asciigraph.Width(70),
			asciigraph.Caption("residual"),
		)
		b.WriteString(viz.GraphStyle.Render(graph))
		b.WriteString("\n")
	}

	if m.done {
		b.WriteString(viz.SuccessStyle.Render("done"))
	} else {
		b.WriteString("q to quit")
	}
	b.WriteString("\n")
	return b.String()
}

// RunFit drives the progress view while start executes the fit in a
// goroutine. The observe callback handed to start must be wired into the
// fit's Observe option. Returns nil params if the view was quit early.
func RunFit(names []string, start func(observe func(values []float64, residual float64)) map[string]float64) (map[string]float64, error) {
	p := tea.NewProgram(NewFitModel(names))

	go func() {
		fitted := start(func(values []float64, residual float64) {
			p.Send(EvalMsg{Values: append([]float64{}, values...), Residual: residual})
		})
		p.Send(DoneMsg{Params: fitted})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	return final.(FitModel).fitted, nil
}
